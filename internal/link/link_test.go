package link

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/iface"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func pos() position.Position { return position.Position{File: "t", Line: 1, Column: 1} }

// TestUnqualifiedRename reproduces section 8 scenario 1: a module declares
// Foo = () -> Bar and imports the Bar module (prefix "Bar", unqualified set
// {Bar}) exporting a function Bar whose canonical name is RealBar. After
// Merge, function declarations include RealBar and Foo's body references
// the variable RealBar, not Bar.
func TestUnqualifiedRename(t *testing.T) {
	barType := &types.TFunction{Result: &types.TNumber{}}
	barIface := iface.New("Bar")
	barIface.Functions = []iface.FuncDecl{{Canonical: "RealBar", Original: "Bar", Type: barType, Pos: pos()}}

	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name:     "Foo",
			Original: "Foo",
			Public:   true,
			Lambda: &hir.Lambda{
				ResultType: barType,
				Body:       &hir.Variable{Node: hir.NewNode(pos()), Name: "Bar"},
				Pos:        pos(),
			},
			Pos: pos(),
		}},
	}

	out := Merge(mod, []Import{{Iface: barIface, Prefix: "Bar", Unqualified: map[string]bool{"Bar": true}}}, nil)

	var found bool
	for _, d := range out.FuncDecls {
		if d.Name == "RealBar" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected merged FuncDecls to contain RealBar, got %+v", out.FuncDecls)
	}

	body, ok := out.FuncDefs[0].Lambda.Body.(*hir.Variable)
	if !ok {
		t.Fatalf("expected body to remain a Variable, got %T", out.FuncDefs[0].Lambda.Body)
	}
	if body.Name != "RealBar" {
		t.Fatalf("expected body to reference RealBar, got %q", body.Name)
	}
}

// TestQualifiedOnlyRequiresPrefix checks that an import not in the
// unqualified set is only reachable via its qualified "prefix'original" key.
func TestQualifiedOnlyRequiresPrefix(t *testing.T) {
	fType := &types.TFunction{Result: &types.TNumber{}}
	impIface := iface.New("Mod")
	impIface.Functions = []iface.FuncDecl{{Canonical: "Mod'f", Original: "f", Type: fType, Pos: pos()}}

	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name:     "g",
			Original: "g",
			Public:   true,
			Lambda: &hir.Lambda{
				ResultType: fType,
				Body:       &hir.Variable{Node: hir.NewNode(pos()), Name: "f"},
				Pos:        pos(),
			},
			Pos: pos(),
		}},
	}

	out := Merge(mod, []Import{{Iface: impIface, Prefix: "Mod"}}, nil)

	body := out.FuncDefs[0].Lambda.Body.(*hir.Variable)
	if body.Name != "f" {
		t.Fatalf("unqualified reference should be left untouched without an unqualified entry, got %q", body.Name)
	}
}

// TestLocalDefinitionShadowsImport verifies step 2 of section 4.1: a local
// definition is subtracted from the rename maps even if an import offers
// the same bare name.
func TestLocalDefinitionShadowsImport(t *testing.T) {
	fType := &types.TFunction{Result: &types.TNumber{}}
	impIface := iface.New("Mod")
	impIface.Functions = []iface.FuncDecl{{Canonical: "Mod'f", Original: "f", Type: fType, Pos: pos()}}

	mod := &hir.Module{
		FuncDecls: []*hir.FuncDecl{{Name: "f", Type: fType, Pos: pos()}},
		FuncDefs: []*hir.FuncDef{{
			Name:     "f",
			Original: "f",
			Public:   true,
			Lambda: &hir.Lambda{
				ResultType: fType,
				Body:       &hir.Variable{Node: hir.NewNode(pos()), Name: "f"},
				Pos:        pos(),
			},
			Pos: pos(),
		}},
	}

	out := Merge(mod, []Import{{Iface: impIface, Prefix: "Mod", Unqualified: map[string]bool{"f": true}}}, nil)

	body := out.FuncDefs[0].Lambda.Body.(*hir.Variable)
	if body.Name != "f" {
		t.Fatalf("local definition should shadow the import, got %q", body.Name)
	}
	// The import's own canonical name ("Mod'f") differs from the local
	// definition's ("f"), so it is still merged in as a distinct
	// declaration; only the unqualified *reference* is shadowed.
	var found bool
	for _, d := range out.FuncDecls {
		if d.Name == "Mod'f" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Mod'f to still be merged in as a distinct declaration, got %+v", out.FuncDecls)
	}
}

// TestPublicWinsOnCollision verifies step 4 of section 4.1: when two
// imports supply the same canonical type name, the public one is kept.
func TestPublicWinsOnCollision(t *testing.T) {
	privIface := iface.New("A")
	privIface.Types = []iface.TypeDef{{Canonical: "Shared", Original: "Shared", Public: false, Pos: pos()}}

	pubIface := iface.New("B")
	pubIface.Types = []iface.TypeDef{{Canonical: "Shared", Original: "Shared", Public: true, Pos: pos()}}

	mod := &hir.Module{}
	out := Merge(mod, []Import{
		{Iface: privIface, Prefix: "A"},
		{Iface: pubIface, Prefix: "B"},
	}, nil)

	var kept *hir.RecordDef
	for _, r := range out.Records {
		if r.Name == "Shared" {
			kept = r
		}
	}
	if kept == nil || !kept.Public {
		t.Fatalf("expected the public Shared record to be merged in, got %+v", out.Records)
	}
}

// TestRenameIdempotence checks section 8's global invariant 1: applying
// Merge a second time to an already-merged module with no further imports
// leaves it unchanged (no stale rename keys fire twice).
func TestRenameIdempotence(t *testing.T) {
	barType := &types.TFunction{Result: &types.TNumber{}}
	barIface := iface.New("Bar")
	barIface.Functions = []iface.FuncDecl{{Canonical: "RealBar", Original: "Bar", Type: barType, Pos: pos()}}

	mod := &hir.Module{
		FuncDefs: []*hir.FuncDef{{
			Name:     "Foo",
			Original: "Foo",
			Public:   true,
			Lambda: &hir.Lambda{
				ResultType: barType,
				Body:       &hir.Variable{Node: hir.NewNode(pos()), Name: "Bar"},
				Pos:        pos(),
			},
			Pos: pos(),
		}},
	}

	once := Merge(mod, []Import{{Iface: barIface, Prefix: "Bar", Unqualified: map[string]bool{"Bar": true}}}, nil)
	twice := Merge(once, nil, nil)

	if len(once.FuncDecls) != len(twice.FuncDecls) {
		t.Fatalf("re-running Merge with no further imports changed FuncDecls: %+v vs %+v", once.FuncDecls, twice.FuncDecls)
	}
	body := twice.FuncDefs[0].Lambda.Body.(*hir.Variable)
	if body.Name != "RealBar" {
		t.Fatalf("re-running Merge should leave the already-renamed reference alone, got %q", body.Name)
	}
}
