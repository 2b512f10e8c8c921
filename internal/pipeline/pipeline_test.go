package pipeline

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func addModule() *hir.Module {
	numT := &types.TNumber{}
	body := &hir.Arithmetic{
		Op:    hir.OpAdd,
		Left:  &hir.Variable{Name: "x"},
		Right: &hir.Variable{Name: "y"},
	}
	return &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name: "add", Original: "add", Public: true,
			Lambda: &hir.Lambda{
				Args:       []hir.Param{{Name: "x", Type: numT}, {Name: "y", Type: numT}},
				ResultType: numT,
				Body:       body,
			},
		}},
	}
}

func TestCompileRunsEveryStageOnAWellTypedModule(t *testing.T) {
	result, err := Compile(addModule(), Options{ModulePath: "test/main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Iface.Module != "test/main" {
		t.Fatalf("expected the interface to carry the given module path, got %q", result.Iface.Module)
	}
	if len(result.Iface.Functions) != 1 || result.Iface.Functions[0].Canonical != "add" {
		t.Fatalf("expected add in the exported interface, got %+v", result.Iface.Functions)
	}
	if len(result.MIR.FuncDefs) != 1 {
		t.Fatalf("expected one compiled MIR function, got %d", len(result.MIR.FuncDefs))
	}
}

func TestCompileSkipReuseOmitsHeapReuseNodes(t *testing.T) {
	result, err := Compile(addModule(), Options{ModulePath: "test/main", SkipReuse: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.MIR.FuncDefs) != 1 {
		t.Fatalf("expected one compiled MIR function, got %d", len(result.MIR.FuncDefs))
	}
}

func TestCompileModuleCallingDeclaredFunction(t *testing.T) {
	numT := &types.TNumber{}
	decl := &hir.FuncDecl{Name: "double", Type: &types.TFunction{Args: []types.Type{numT}, Result: numT}}
	mod := &hir.Module{
		FuncDecls: []*hir.FuncDecl{decl},
		FuncDefs: []*hir.FuncDef{{
			Name: "main", Original: "main", Public: true,
			Lambda: &hir.Lambda{
				ResultType: numT,
				Body: &hir.Call{
					Function:  &hir.Variable{Name: "double"},
					Arguments: []hir.Expr{&hir.Literal{Kind: hir.LiteralNumber, Value: 21.0}},
				},
			},
		}},
	}
	result, err := Compile(mod, Options{ModulePath: "test/main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.MIR.FuncDefs) != 1 {
		t.Fatalf("expected one compiled MIR function, got %d", len(result.MIR.FuncDefs))
	}
}

func TestCompileUnionResultSurvivesFinalRecheck(t *testing.T) {
	unionT := &types.TUnion{Left: &types.TNumber{}, Right: &types.TNone{}}
	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name: "maybe", Original: "maybe", Public: true,
			Lambda: &hir.Lambda{
				ResultType: unionT,
				Body:       &hir.Literal{Kind: hir.LiteralNone},
			},
		}},
	}
	if _, err := Compile(mod, Options{ModulePath: "test/main"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompilePropagatesUnboundVariableError(t *testing.T) {
	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name: "bad", Original: "bad", Public: true,
			Lambda: &hir.Lambda{
				ResultType: &types.TNumber{},
				Body:       &hir.Variable{Name: "undefined"},
			},
		}},
	}
	if _, err := Compile(mod, Options{ModulePath: "test/main"}); err == nil {
		t.Fatal("expected an error compiling a module referencing an unbound variable")
	}
}
