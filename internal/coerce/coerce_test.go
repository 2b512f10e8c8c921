package coerce

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func pos() position.Position { return position.Position{File: "t", Line: 1, Column: 1} }
func node() hir.Node { return hir.NewNode(pos()) }

func lit(k hir.LiteralKind, v interface{}) *hir.Literal {
	return &hir.Literal{Node: node(), Kind: k, Value: v}
}

func runPipeline(t *testing.T, mod *hir.Module) *hir.Module {
	t.Helper()
	inferred, err := infer.Infer(mod)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	coerced, err := Coerce(inferred)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	return coerced
}

func TestCoerceInsertsUnionWrap(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TUnion{Left: &types.TNumber{}, Right: &types.TNone{}},
		Body:       lit(hir.LiteralNone, nil),
		Pos:        pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := runPipeline(t, mod)
	c, ok := out.FuncDefs[0].Lambda.Body.(*hir.Coerce)
	if !ok {
		t.Fatalf("expected body to be wrapped in a Coerce node, got %T", out.FuncDefs[0].Lambda.Body)
	}
	if c.To.String() != l.ResultType.String() {
		t.Errorf("coerce target = %s, want %s", c.To, l.ResultType)
	}
}

func TestCoerceNoWrapWhenTypesMatch(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body:       lit(hir.LiteralNumber, 1.0),
		Pos:        pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := runPipeline(t, mod)
	if _, ok := out.FuncDefs[0].Lambda.Body.(*hir.Coerce); ok {
		t.Fatalf("did not expect a Coerce node when types already match")
	}
}

func TestCoerceCallArguments(t *testing.T) {
	decl := &hir.FuncDecl{Name: "acceptsUnion", Type: &types.TFunction{
		Args:   []types.Type{&types.TUnion{Left: &types.TNumber{}, Right: &types.TString{}}},
		Result: &types.TNone{},
	}, Pos: pos()}
	l := &hir.Lambda{
		ResultType: &types.TNone{},
		Body: &hir.Call{
			Node:      node(),
			Function:  &hir.Variable{Node: node(), Name: "acceptsUnion"},
			Arguments: []hir.Expr{lit(hir.LiteralNumber, 1.0)},
		},
		Pos: pos(),
	}
	mod := &hir.Module{
		FuncDecls: []*hir.FuncDecl{decl},
		FuncDefs:  []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}},
	}
	out := runPipeline(t, mod)
	call := out.FuncDefs[0].Lambda.Body.(*hir.Call)
	if _, ok := call.Arguments[0].(*hir.Coerce); !ok {
		t.Fatalf("expected call argument to be coerced, got %T", call.Arguments[0])
	}
}

func TestCoerceFlattensNestedCoerce(t *testing.T) {
	inner := &hir.Coerce{Node: node(), From: &types.TNone{}, To: &types.TNumber{}, Argument: lit(hir.LiteralNone, nil)}
	outerTo := &types.TUnion{Left: &types.TNumber{}, Right: &types.TString{}}
	w, err := wrap(inner, &types.TNumber{}, outerTo, infer.NewContext(&hir.Module{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := w.(*hir.Coerce)
	if !ok {
		t.Fatalf("expected a Coerce node, got %T", w)
	}
	if c.From.String() != "None" {
		t.Errorf("flattened From = %s, want None", c.From)
	}
	if _, nested := c.Argument.(*hir.Coerce); nested {
		t.Errorf("coerce nodes must not nest")
	}
}
