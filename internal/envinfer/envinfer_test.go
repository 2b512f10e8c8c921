package envinfer

import (
	"sort"
	"testing"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

func TestInferCapturesOuterArgument(t *testing.T) {
	// f(x) = let-recursive g() = x in g()
	inner := &mir.FuncDef{
		Name:       "g",
		Body:       &mir.Variable{Name: "x"},
		ResultType: mir.TNumber{},
	}
	letRec := &mir.LetRecursive{
		Definition: inner,
		Body:       &mir.Call{FunctionType: &mir.TFunction{Result: mir.TNumber{}}, Function: &mir.Variable{Name: "g"}},
	}
	mod := &mir.Module{FuncDefs: []*mir.FuncDef{{
		Name:       "f",
		Args:       []mir.Param{{Name: "x", Type: mir.TNumber{}}},
		Body:       letRec,
		ResultType: mir.TNumber{},
	}}}

	out := Infer(mod)
	gotLetRec := out.FuncDefs[0].Body.(*mir.LetRecursive)
	env := gotLetRec.Definition.Environment
	if len(env) != 1 || env[0].Name != "x" {
		t.Fatalf("expected g to capture x, got environment %+v", env)
	}
}

func TestInferOmitsUncapturedClosure(t *testing.T) {
	// f() = let-recursive g() = 1 in g()
	inner := &mir.FuncDef{Name: "g", Body: &mir.Literal{Kind: mir.LiteralNumber, Value: 1.0}, ResultType: mir.TNumber{}}
	letRec := &mir.LetRecursive{
		Definition: inner,
		Body:       &mir.Call{FunctionType: &mir.TFunction{Result: mir.TNumber{}}, Function: &mir.Variable{Name: "g"}},
	}
	mod := &mir.Module{FuncDefs: []*mir.FuncDef{{Name: "f", Body: letRec, ResultType: mir.TNumber{}}}}

	out := Infer(mod)
	gotLetRec := out.FuncDefs[0].Body.(*mir.LetRecursive)
	if len(gotLetRec.Definition.Environment) != 0 {
		t.Fatalf("expected no captures, got %+v", gotLetRec.Definition.Environment)
	}
}

func TestFreeVarsExcludesOwnArgsAndBinders(t *testing.T) {
	// let y = x in y + z
	e := &mir.Let{
		Binder: "y",
		Type:   mir.TNumber{},
		Bound:  &mir.Variable{Name: "x"},
		Body: &mir.Operation{
			ArithOp: opAdd(),
			Left:    &mir.Variable{Name: "y"},
			Right:   &mir.Variable{Name: "z"},
		},
	}
	got := freeVars(e)
	names := make([]string, 0, len(got))
	for n := range got {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "x" || names[1] != "z" {
		t.Fatalf("expected free vars {x, z}, got %v", names)
	}
}

func opAdd() *mir.ArithOp {
	op := mir.OpAdd
	return &op
}
