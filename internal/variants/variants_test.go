package variants

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func pos() position.Position { return position.Position{File: "t", Line: 1, Column: 1} }
func node() hir.Node { return hir.NewNode(pos()) }

func TestCollectFindsIfTypeBranchListType(t *testing.T) {
	l := &hir.Lambda{
		ResultType: &types.TNumber{},
		Body: &hir.IfType{
			Node:          node(),
			ScrutineeName: "x",
			Scrutinee:     &hir.Variable{Node: node(), Name: "x"},
			Branches: []hir.TypeBranch{
				{Type: &types.TList{Element: &types.TNumber{}}, Body: &hir.Literal{Node: node(), Kind: hir.LiteralNumber, Value: 1.0}},
			},
			Else: &hir.ElseBranch{ResidualType: &types.TString{}, Body: &hir.Literal{Node: node(), Kind: hir.LiteralNumber, Value: 2.0}},
		},
		Args: []hir.Param{{Name: "x", Type: &types.TUnion{Left: &types.TList{Element: &types.TNumber{}}, Right: &types.TString{}}}},
		Pos:  pos(),
	}
	mod := &hir.Module{FuncDefs: []*hir.FuncDef{{Name: "f", Original: "f", Lambda: l, Public: true, Pos: pos()}}}
	c, err := Collect(mod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	listType := &types.TList{Element: &types.TNumber{}}
	name, ok := c.NameOf(listType)
	if !ok {
		t.Fatalf("expected the list type to be collected")
	}
	defs := c.RecordDefs()
	if len(defs) != 1 || defs[0].Name != name {
		t.Fatalf("expected exactly one record def named %s, got %v", name, defs)
	}
}

func TestNameIsDeterministic(t *testing.T) {
	a := Name(&types.TList{Element: &types.TNumber{}})
	b := Name(&types.TList{Element: &types.TNumber{}})
	if a != b {
		t.Errorf("Name is not deterministic: %s != %s", a, b)
	}
}
