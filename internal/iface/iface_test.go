package iface

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func TestFromModuleExcludesImportedEntities(t *testing.T) {
	fnType := &types.TFunction{Result: &types.TNumber{}}
	mod := &hir.Module{
		Records: []*hir.RecordDef{
			{Name: "Own", Original: "Own", Public: true},
			{Name: "Other'Rec", Original: "Rec", Public: true, Imported: true},
		},
		FuncDecls: []*hir.FuncDecl{
			{Name: "own", Type: fnType},
			{Name: "Other'f", Type: fnType, Imported: true},
		},
	}

	out := FromModule("m", mod)
	if len(out.Types) != 1 || out.Types[0].Canonical != "Own" {
		t.Fatalf("expected only the module's own record exported, got %+v", out.Types)
	}
	if len(out.Functions) != 1 || out.Functions[0].Canonical != "own" {
		t.Fatalf("expected only the module's own declaration exported, got %+v", out.Functions)
	}
}

func TestFromModuleExportsPublicDefinitions(t *testing.T) {
	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{
			{Name: "pub", Original: "pub", Public: true, Lambda: &hir.Lambda{ResultType: &types.TNumber{}}},
			{Name: "priv", Original: "priv", Lambda: &hir.Lambda{ResultType: &types.TNumber{}}},
		},
	}

	out := FromModule("m", mod)
	if len(out.Functions) != 1 || out.Functions[0].Canonical != "pub" {
		t.Fatalf("expected only the public definition exported, got %+v", out.Functions)
	}
}
