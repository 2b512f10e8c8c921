// Package link implements the import merger and renamer of section 4.1: it
// merges the current module with the public interfaces of its imports and
// the prelude, rewriting every unqualified or import-prefixed reference to
// its globally unique canonical name.
package link

import (
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/iface"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Separator is the fixed character joining an import prefix to an
// original name to build a qualified key, per section 3.1.
const Separator = "'"

// Import is one imported module: its interface, the alias the importer
// chose for it, and the subset of its exports usable unqualified.
type Import struct {
	Iface       *iface.Interface
	Prefix      string
	Unqualified map[string]bool
}

// typeEntry holds whichever of the two type-level shapes (record or alias)
// a canonical name resolves to, so records and aliases can share one
// dedup-by-canonical-name map.
type typeEntry struct {
	rec   *iface.TypeDef
	alias *iface.AliasDef
}

func (e typeEntry) public() bool {
	if e.rec != nil {
		return e.rec.Public
	}
	if e.alias != nil {
		return e.alias.Public
	}
	return false
}

// Merge rewrites mod's expressions to canonical names and merges in the
// imported and prelude declarations mod now has access to. It never fails
// intrinsically (section 4.1: "None intrinsic"); any collision is resolved
// by the public-wins rule and any name left unresolved surfaces later as a
// type-check error.
func Merge(mod *hir.Module, imports []Import, prelude []*iface.Interface) *hir.Module {
	typeRename := map[string]string{}
	varRename := map[string]string{}
	importedTypes := map[string]typeEntry{}
	importedFuncs := map[string]*iface.FuncDecl{}

	addImport := func(prefix string, unqualified map[string]bool, ifc *iface.Interface) {
		bare := prefix == ""
		for _, t := range ifc.PublicTypes() {
			t := t
			typeRename[qualify(prefix, t.Original)] = t.Canonical
			if bare || unqualified[t.Original] {
				typeRename[t.Original] = t.Canonical
			}
			mergeTypeEntry(importedTypes, t.Canonical, typeEntry{rec: &t})
		}
		for _, a := range ifc.PublicAliases() {
			a := a
			typeRename[qualify(prefix, a.Original)] = a.Canonical
			if bare || unqualified[a.Original] {
				typeRename[a.Original] = a.Canonical
			}
			mergeTypeEntry(importedTypes, a.Canonical, typeEntry{alias: &a})
		}
		for _, f := range ifc.PublicFunctions() {
			f := f
			varRename[qualify(prefix, f.Original)] = f.Canonical
			if bare || unqualified[f.Original] {
				varRename[f.Original] = f.Canonical
			}
			mergeFunc(importedFuncs, f.Canonical, &f)
		}
	}

	for _, imp := range imports {
		addImport(imp.Prefix, imp.Unqualified, imp.Iface)
	}
	for _, p := range prelude {
		addImport("", nil, p)
	}

	// Local definitions shadow imports: subtract any name already defined
	// in this module from both rename maps.
	for _, r := range mod.Records {
		delete(typeRename, r.Original)
		delete(typeRename, r.Name)
	}
	for _, a := range mod.Aliases {
		delete(typeRename, a.Original)
		delete(typeRename, a.Name)
	}
	for _, d := range mod.FuncDecls {
		delete(varRename, d.Name)
	}
	for _, d := range mod.FuncDefs {
		delete(varRename, d.Original)
		delete(varRename, d.Name)
	}

	tv := func(t types.Type) types.Type { return renameType(t, typeRename) }
	ev := func(e hir.Expr) hir.Expr { return renameExpr(e, varRename) }

	out := hir.TransformModule(mod, tv, ev)
	mergeInto(out, importedTypes, importedFuncs)
	return out
}

// qualify builds the "{prefix}'{original}" key of section 3.1, NFC
// normalizing both halves so a source written with combining-character
// sequences resolves to the same key as one using precomposed forms.
func qualify(prefix, original string) string {
	return norm.NFC.String(prefix) + Separator + norm.NFC.String(original)
}

func renameType(t types.Type, rename map[string]string) types.Type {
	switch v := t.(type) {
	case *types.TRecord:
		if n, ok := rename[v.Name]; ok {
			return &types.TRecord{Name: n}
		}
		return v
	case *types.TReference:
		if n, ok := rename[v.Name]; ok {
			return &types.TReference{Name: n}
		}
		return v
	case *types.TFunction:
		args := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = renameType(a, rename)
		}
		return &types.TFunction{Args: args, Result: renameType(v.Result, rename)}
	case *types.TList:
		return &types.TList{Element: renameType(v.Element, rename)}
	case *types.TMap:
		return &types.TMap{Key: renameType(v.Key, rename), Value: renameType(v.Value, rename)}
	case *types.TUnion:
		return &types.TUnion{Left: renameType(v.Left, rename), Right: renameType(v.Right, rename)}
	default:
		return t
	}
}

func renameExpr(e hir.Expr, rename map[string]string) hir.Expr {
	v, ok := e.(*hir.Variable)
	if !ok {
		return e
	}
	if n, ok := rename[v.Name]; ok {
		return &hir.Variable{Node: v.Node, Name: n}
	}
	return e
}

func mergeTypeEntry(into map[string]typeEntry, canonical string, entry typeEntry) {
	existing, ok := into[canonical]
	if !ok || (entry.public() && !existing.public()) {
		into[canonical] = entry
	}
}

func mergeFunc(into map[string]*iface.FuncDecl, canonical string, f *iface.FuncDecl) {
	if _, ok := into[canonical]; !ok {
		into[canonical] = f
	}
}

// mergeInto appends the deduplicated imported declarations to mod, sorted
// by canonical name so the merge is deterministic (rename idempotence,
// section 8, requires running Merge twice to yield the same module).
func mergeInto(mod *hir.Module, typeEntries map[string]typeEntry, funcs map[string]*iface.FuncDecl) {
	names := make([]string, 0, len(typeEntries))
	for n := range typeEntries {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		e := typeEntries[n]
		switch {
		case e.rec != nil:
			fields := make([]hir.Field, len(e.rec.Fields))
			for i, f := range e.rec.Fields {
				fields[i] = hir.Field{Name: f.Name, Type: f.Type}
			}
			mod.Records = append(mod.Records, &hir.RecordDef{
				Name: e.rec.Canonical, Original: e.rec.Original, Fields: fields,
				Open: e.rec.Open, Public: true, Imported: true, Pos: e.rec.Pos,
			})
		case e.alias != nil:
			mod.Aliases = append(mod.Aliases, &hir.AliasDef{
				Name: e.alias.Canonical, Original: e.alias.Original, Target: e.alias.Target,
				Public: true, Imported: true, Pos: e.alias.Pos,
			})
		}
	}

	fnames := make([]string, 0, len(funcs))
	for n := range funcs {
		fnames = append(fnames, n)
	}
	sort.Strings(fnames)
	for _, n := range fnames {
		f := funcs[n]
		mod.FuncDecls = append(mod.FuncDecls, &hir.FuncDecl{Name: f.Canonical, Type: f.Type, Imported: true, Pos: f.Pos})
	}
}
