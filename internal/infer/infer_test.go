package infer

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func pos() position.Position { return position.Position{File: "t", Line: 1, Column: 1} }

func node() hir.Node { return hir.NewNode(pos()) }

func lit(k hir.LiteralKind, v interface{}) *hir.Literal {
	return &hir.Literal{Node: node(), Kind: k, Value: v}
}

func singleFuncModule(name string, l *hir.Lambda) *hir.Module {
	return &hir.Module{FuncDefs: []*hir.FuncDef{{Name: name, Original: name, Lambda: l, Public: true, Pos: pos()}}}
}

func TestInferLiteralAndArithmetic(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.Arithmetic{
			Node: node(), Op: hir.OpAdd,
			Left:  lit(hir.LiteralNumber, 1.0),
			Right: lit(hir.LiteralNumber, 2.0),
		},
		Pos: pos(),
	}
	out, err := Infer(singleFuncModule("main", l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arith := out.FuncDefs[0].Lambda.Body.(*hir.Arithmetic)
	if arith.Op != hir.OpAdd {
		t.Fatalf("op not preserved")
	}
}

func TestInferCallFillsFunctionType(t *testing.T) {
	decl := &hir.FuncDecl{Name: "double", Type: &types.TFunction{Args: []types.Type{&types.TNumber{}}, Result: &types.TNumber{}}, Pos: pos()}
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.Call{
			Node: node(), Function: &hir.Variable{Node: node(), Name: "double"},
			Arguments: []hir.Expr{lit(hir.LiteralNumber, 1.0)},
		},
		Pos: pos(),
	}
	mod := singleFuncModule("main", l)
	mod.FuncDecls = []*hir.FuncDecl{decl}
	out, err := Infer(mod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := out.FuncDefs[0].Lambda.Body.(*hir.Call)
	if call.FunctionType == nil {
		t.Fatalf("FunctionType not filled")
	}
	if diff := cmp.Diff(decl.Type.String(), call.FunctionType.String()); diff != "" {
		t.Errorf("function type mismatch (-want +got):\n%s", diff)
	}
}

func TestInferUnboundVariable(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body:       &hir.Variable{Node: node(), Name: "missing"},
		Pos:        pos(),
	}
	_, err := Infer(singleFuncModule("main", l))
	if err == nil {
		t.Fatalf("expected an unbound-variable error")
	}
}

func TestInferTrySubtractsError(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.Try{
			Node:    node(),
			Operand: &hir.Variable{Node: node(), Name: "x"},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TUnion{Left: &types.TNumber{}, Right: &types.TError{}}}},
		Pos:  pos(),
	}
	out, err := Infer(singleFuncModule("main", l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	try := out.FuncDefs[0].Lambda.Body.(*hir.Try)
	if diff := cmp.Diff("Number", try.SuccessType.String()); diff != "" {
		t.Errorf("success type mismatch (-want +got):\n%s", diff)
	}
}

func TestInferIfTypeUnreachableElse(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.IfType{
			Node:          node(),
			ScrutineeName: "x",
			Scrutinee:     &hir.Variable{Node: node(), Name: "x"},
			Branches: []hir.TypeBranch{
				{Type: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0)},
				{Type: &types.TString{}, Body: lit(hir.LiteralNumber, 2.0)},
			},
			Else: &hir.ElseBranch{Body: lit(hir.LiteralNumber, 3.0)},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TUnion{Left: &types.TNumber{}, Right: &types.TString{}}}},
		Pos:  pos(),
	}
	_, err := Infer(singleFuncModule("main", l))
	if err == nil {
		t.Fatalf("expected an unreachable-else error")
	}
}

func TestInferIfTypeResidual(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.IfType{
			Node:          node(),
			ScrutineeName: "x",
			Scrutinee:     &hir.Variable{Node: node(), Name: "x"},
			Branches: []hir.TypeBranch{
				{Type: &types.TNumber{}, Body: lit(hir.LiteralNumber, 1.0)},
			},
			Else: &hir.ElseBranch{Body: lit(hir.LiteralNumber, 2.0)},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TUnion{Left: &types.TNumber{}, Right: &types.TString{}}}},
		Pos:  pos(),
	}
	out, err := Infer(singleFuncModule("main", l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ifType := out.FuncDefs[0].Lambda.Body.(*hir.IfType)
	if diff := cmp.Diff("String", ifType.Else.ResidualType.String()); diff != "" {
		t.Errorf("residual type mismatch (-want +got):\n%s", diff)
	}
}

func TestInferRecordDeconstruction(t *testing.T) {
	mod := &hir.Module{
		Records: []*hir.RecordDef{{
			Name: "Point", Original: "Point",
			Fields: []hir.Field{{Name: "x", Type: &types.TNumber{}}, {Name: "y", Type: &types.TNumber{}}},
			Public: true, Pos: pos(),
		}},
	}
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.RecordDeconstruction{
			Node:   node(),
			Record: &hir.Variable{Node: node(), Name: "p"},
			Field:  "x",
		},
		Args: []hir.Param{{Name: "p", Type: &types.TRecord{Name: "Point"}}},
		Pos:  pos(),
	}
	mod.FuncDefs = []*hir.FuncDef{{Name: "getX", Original: "getX", Lambda: l, Public: true, Pos: pos()}}
	out, err := Infer(mod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deconstr := out.FuncDefs[0].Lambda.Body.(*hir.RecordDeconstruction)
	if diff := cmp.Diff("Point", deconstr.RecordType); diff != "" {
		t.Errorf("record type mismatch (-want +got):\n%s", diff)
	}
}

func TestInferUnknownRecordField(t *testing.T) {
	mod := &hir.Module{
		Records: []*hir.RecordDef{{Name: "Point", Fields: []hir.Field{{Name: "x", Type: &types.TNumber{}}}, Public: true, Pos: pos()}},
	}
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body:       &hir.RecordDeconstruction{Node: node(), Record: &hir.Variable{Node: node(), Name: "p"}, Field: "z"},
		Args:       []hir.Param{{Name: "p", Type: &types.TRecord{Name: "Point"}}},
		Pos:        pos(),
	}
	mod.FuncDefs = []*hir.FuncDef{{Name: "getZ", Original: "getZ", Lambda: l, Public: true, Pos: pos()}}
	_, err := Infer(mod)
	if err == nil {
		t.Fatalf("expected an unknown-field error")
	}
}
