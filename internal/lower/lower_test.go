package lower

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/check"
	"github.com/pen-lang/pen-sub002/internal/coerce"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/mir"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
	"github.com/pen-lang/pen-sub002/internal/variants"
)

func pos() position.Position { return position.Position{File: "t", Line: 1, Column: 1} }
func node() hir.Node { return hir.NewNode(pos()) }

func lit(k hir.LiteralKind, v interface{}) *hir.Literal {
	return &hir.Literal{Node: node(), Kind: k, Value: v}
}

func pipeline(t *testing.T, mod *hir.Module) *mir.Module {
	t.Helper()
	inferred, err := infer.Infer(mod)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	coerced, err := coerce.Coerce(inferred)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if err := check.Check(coerced); err != nil {
		t.Fatalf("check: %v", err)
	}
	coll, err := variants.Collect(coerced)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	return Lower(coerced, coll)
}

func TestLowerArithmeticBody(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.Arithmetic{
			Node: node(), Op: hir.OpAdd,
			Left: lit(hir.LiteralNumber, 1.0), Right: lit(hir.LiteralNumber, 2.0),
		},
		Pos: pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := pipeline(t, mod)
	if len(out.FuncDefs) != 1 {
		t.Fatalf("expected one lowered function, got %d", len(out.FuncDefs))
	}
	op, ok := out.FuncDefs[0].Body.(*mir.Operation)
	if !ok {
		t.Fatalf("expected an Operation body, got %T", out.FuncDefs[0].Body)
	}
	if op.ArithOp == nil || *op.ArithOp != mir.OpAdd {
		t.Errorf("expected OpAdd, got %v", op.ArithOp)
	}
}

func TestLowerUnionResultProducesVariant(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TUnion{Left: &types.TNumber{}, Right: &types.TNone{}},
		Body:       lit(hir.LiteralNumber, 1.0),
		Pos:        pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := pipeline(t, mod)
	if _, ok := out.FuncDefs[0].Body.(*mir.Variant); !ok {
		t.Fatalf("expected the inserted Coerce to lower to a Variant, got %T", out.FuncDefs[0].Body)
	}
}

func TestLowerAnyResultProducesVariant(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TAny{},
		Body:       lit(hir.LiteralNumber, 1.0),
		Pos:        pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := pipeline(t, mod)
	v, ok := out.FuncDefs[0].Body.(*mir.Variant)
	if !ok {
		t.Fatalf("expected a Number flowing into Any to be tagged as a Variant, got %T", out.FuncDefs[0].Body)
	}
	if _, ok := v.PayloadType.(mir.TNumber); !ok {
		t.Errorf("expected the variant payload to stay Number-typed, got %s", v.PayloadType)
	}
}

func TestLowerIfTypeProducesCase(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.IfType{
			Node:          node(),
			ScrutineeName: "x",
			Scrutinee:     &hir.Variable{Node: node(), Name: "x"},
			Branches: []hir.TypeBranch{
				{Type: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0)},
			},
			Else: &hir.ElseBranch{ResidualType: &types.TNone{}, Body: lit(hir.LiteralNumber, 2.0)},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TUnion{Left: &types.TNumber{}, Right: &types.TNone{}}}},
		Pos:  pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := pipeline(t, mod)
	c, ok := out.FuncDefs[0].Body.(*mir.Case)
	if !ok {
		t.Fatalf("expected a Case body, got %T", out.FuncDefs[0].Body)
	}
	if len(c.Alternatives) != 1 || c.Alternatives[0].Tags[0] != "Number" {
		t.Errorf("expected a single Number alternative, got %v", c.Alternatives)
	}
	if c.Default == nil {
		t.Errorf("expected a default alternative for the else branch")
	}
}

func TestLowerListLiteralRegistersConsRecord(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TList{Element: &types.TNumber{}},
		Body: &hir.List{
			Node:        node(),
			ElementType: &types.TNumber{},
			Elements:    []hir.ListElement{{Value: lit(hir.LiteralNumber, 1.0)}},
		},
		Pos: pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	out := pipeline(t, mod)
	rec, ok := out.FuncDefs[0].Body.(*mir.Record)
	if !ok {
		t.Fatalf("expected a Record body, got %T", out.FuncDefs[0].Body)
	}
	found := false
	for _, r := range out.Records {
		if r.Name == rec.RecordType {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the synthesized cons record %s to be registered in the module", rec.RecordType)
	}
}
