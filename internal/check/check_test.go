package check

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/coerce"
	"github.com/pen-lang/pen-sub002/internal/diag"
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

func pipeline(t *testing.T, mod *hir.Module) error {
	t.Helper()
	inferred, err := infer.Infer(mod)
	if err != nil {
		return err
	}
	coerced, err := coerce.Coerce(inferred)
	if err != nil {
		return err
	}
	return Check(coerced)
}

func TestCheckValidModulePasses(t *testing.T) {
	l := &hir.Lambda{ResultType: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0), Pos: pos()}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	if err := pipeline(t, mod); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckDuplicateFunctionName(t *testing.T) {
	l1 := &hir.Lambda{ResultType: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0), Pos: pos()}
	l2 := &hir.Lambda{ResultType: &types.TNumber{}, Body: lit(hir.LiteralNumber, 2.0), Pos: pos()}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{
		{Name: "f", Original: "f", Lambda: l1, Public: true, Pos: pos()},
		{Name: "f", Original: "f", Lambda: l2, Public: true, Pos: pos()},
	}}
	if err := pipeline(t, mod); err == nil {
		t.Fatalf("expected a duplicate-function-name error")
	}
}

func TestCheckArithmeticOperandMismatch(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.Arithmetic{
			Node: node(), Op: hir.OpAdd,
			Left:  lit(hir.LiteralNumber, 1.0),
			Right: lit(hir.LiteralString, "x"),
		},
		Pos: pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	if err := pipeline(t, mod); err == nil {
		t.Fatalf("expected an operand-type-mismatch error")
	}
}

func TestCheckRejectsCForeignSignatureWithUnion(t *testing.T) {
	mod := &hir.Module{
		Foreign: []*hir.ForeignDecl{{
			Name:       "parse",
			Convention: "c",
			Signature: &types.TFunction{
				Args:   []types.Type{&types.TString{}},
				Result: &types.TUnion{Left: &types.TNumber{}, Right: &types.TError{}},
			},
			Pos: pos(),
		}},
	}
	err := Check(mod)
	if err == nil {
		t.Fatalf("expected a c-convention union signature to be rejected")
	}
	report, ok := err.(*diag.Report)
	if !ok || report.Code != diag.ForeignSignatureInvalid {
		t.Fatalf("expected ForeignSignatureInvalid, got %v", err)
	}
}

func TestCheckAcceptsNativeForeignSignatureWithUnion(t *testing.T) {
	mod := &hir.Module{
		Foreign: []*hir.ForeignDecl{{
			Name:       "parse",
			Convention: "native",
			Signature: &types.TFunction{
				Args:   []types.Type{&types.TString{}},
				Result: &types.TUnion{Left: &types.TNumber{}, Right: &types.TError{}},
			},
			Pos: pos(),
		}},
	}
	if err := Check(mod); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckIfTypeOverlappingBranches(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.IfType{
			Node:          node(),
			ScrutineeName: "x",
			Scrutinee:     &hir.Variable{Node: node(), Name: "x"},
			Branches: []hir.TypeBranch{
				{Type: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0)},
				{Type: &types.TNumber{}, Body: lit(hir.LiteralNumber, 2.0)},
			},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TNumber{}}},
		Pos:  pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	if err := pipeline(t, mod); err == nil {
		t.Fatalf("expected an overlapping-branch error")
	}
}
