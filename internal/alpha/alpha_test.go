package alpha

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

func TestConvertRenamesShadowedLet(t *testing.T) {
	// let x = 1 in let x = x in x
	inner := &mir.Let{
		Binder: "x",
		Type:   mir.TNumber{},
		Bound:  &mir.Variable{Name: "x"},
		Body:   &mir.Variable{Name: "x"},
	}
	outer := &mir.Let{
		Binder: "x",
		Type:   mir.TNumber{},
		Bound:  &mir.Literal{Kind: mir.LiteralNumber, Value: 1.0},
		Body:   inner,
	}
	mod := &mir.Module{FuncDefs: []*mir.FuncDef{{Name: "f", Body: outer, ResultType: mir.TNumber{}}}}

	out := Convert(mod)
	got := out.FuncDefs[0].Body.(*mir.Let)
	if got.Binder != "x" {
		t.Fatalf("outer binder should keep its first spelling, got %q", got.Binder)
	}
	gotInner := got.Body.(*mir.Let)
	if gotInner.Binder != "x:1" {
		t.Fatalf("shadowing binder should be renamed x:1, got %q", gotInner.Binder)
	}
	boundRef := gotInner.Bound.(*mir.Variable)
	if boundRef.Name != "x" {
		t.Fatalf("inner let's bound expr refers to the outer x, got %q", boundRef.Name)
	}
	bodyRef := gotInner.Body.(*mir.Variable)
	if bodyRef.Name != "x:1" {
		t.Fatalf("inner let's body refers to the shadowing x:1, got %q", bodyRef.Name)
	}
}

func TestConvertCaseBindersAreIndependentlyRenamed(t *testing.T) {
	c := &mir.Case{
		Argument: &mir.Variable{Name: "v"},
		Alternatives: []mir.Alternative{
			{Tags: []string{"Number"}, Binder: "x", Body: &mir.Variable{Name: "x"}},
		},
		Default: &mir.DefaultAlternative{Binder: "x", Body: &mir.Variable{Name: "x"}},
	}
	mod := &mir.Module{FuncDefs: []*mir.FuncDef{{
		Name:       "f",
		Args:       []mir.Param{{Name: "v", Type: mir.TVariant{Tag: "Any"}}},
		Body:       c,
		ResultType: mir.TNumber{},
	}}}

	out := Convert(mod)
	gotCase := out.FuncDefs[0].Body.(*mir.Case)
	altBinder := gotCase.Alternatives[0].Binder
	defBinder := gotCase.Default.Binder
	if altBinder == defBinder {
		t.Fatalf("alternative and default binders must not collide, both got %q", altBinder)
	}
}
