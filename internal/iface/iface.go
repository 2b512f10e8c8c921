// Package iface is the on-disk module interface of section 6: a stable,
// YAML-encoded record of a module's exported record types, aliases and
// function declarations, consumed read-only by internal/link. The module
// path resolver that turns an import path into an *Interface is external
// to this core (section 1); this package only defines the record and its
// encoding, matching the schema-versioned idiom the core's driver expects.
package iface

import (
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Schema is the interface format version written to and checked against
// every encoded interface.
const Schema = "pencore.iface/v1"

// Interface is a module's public surface.
type Interface struct {
	Module    string
	Schema    string
	Types     []TypeDef
	Aliases   []AliasDef
	Functions []FuncDecl
}

// TypeDef mirrors hir.RecordDef's exported attributes.
type TypeDef struct {
	Canonical string
	Original  string
	Fields    []FieldSig
	Open      bool
	Public    bool
	Pos       position.Position
}

type FieldSig struct {
	Name string
	Type types.Type
}

// AliasDef mirrors hir.AliasDef's exported attributes.
type AliasDef struct {
	Canonical string
	Original  string
	Target    types.Type
	Public    bool
	Pos       position.Position
}

// FuncDecl mirrors hir.FuncDecl's exported attributes.
type FuncDecl struct {
	Canonical string
	Original  string
	Type      *types.TFunction
	Pos       position.Position
}

// New creates an empty interface for the given module path.
func New(module string) *Interface {
	return &Interface{Module: module, Schema: Schema}
}

// PublicTypes, PublicAliases and PublicFunctions filter to exported-only
// entries, which is what internal/link actually imports (section 4.1
// merges "every publicly exported entity").
func (i *Interface) PublicTypes() []TypeDef {
	var out []TypeDef
	for _, t := range i.Types {
		if t.Public {
			out = append(out, t)
		}
	}
	return out
}

func (i *Interface) PublicAliases() []AliasDef {
	var out []AliasDef
	for _, a := range i.Aliases {
		if a.Public {
			out = append(out, a)
		}
	}
	return out
}

func (i *Interface) PublicFunctions() []FuncDecl {
	// Function declarations carry no explicit Public flag in section 6's
	// record; every declared function in a published interface is an
	// export by construction (the driver only writes exported decls here).
	return i.Functions
}

// FromModule builds the fresh interface a compiled module exports (section
// 2, pipeline output (b)): every non-imported public record, alias, and
// function, keyed by canonical name. Imported entities already carry
// Imported=true on their hir.RecordDef/AliasDef/FuncDecl (internal/link's
// merge) and are excluded, since a module re-exports only what it itself
// defines.
func FromModule(modulePath string, mod *hir.Module) *Interface {
	out := New(modulePath)
	for _, r := range mod.Records {
		if r.Imported || !r.Public {
			continue
		}
		fields := make([]FieldSig, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = FieldSig{Name: f.Name, Type: f.Type}
		}
		out.Types = append(out.Types, TypeDef{
			Canonical: r.Name, Original: r.Original, Fields: fields,
			Open: r.Open, Public: r.Public, Pos: r.Pos,
		})
	}
	for _, a := range mod.Aliases {
		if a.Imported || !a.Public {
			continue
		}
		out.Aliases = append(out.Aliases, AliasDef{
			Canonical: a.Name, Original: a.Original, Target: a.Target, Public: a.Public, Pos: a.Pos,
		})
	}
	for _, d := range mod.FuncDecls {
		if d.Imported {
			continue
		}
		out.Functions = append(out.Functions, FuncDecl{Canonical: d.Name, Original: d.Name, Type: d.Type, Pos: d.Pos})
	}
	for _, d := range mod.FuncDefs {
		if !d.Public {
			continue
		}
		out.Functions = append(out.Functions, FuncDecl{
			Canonical: d.Name, Original: d.Original, Type: lambdaType(d.Lambda), Pos: d.Pos,
		})
	}
	return out
}

func lambdaType(l *hir.Lambda) *types.TFunction {
	args := make([]types.Type, len(l.Args))
	for i, a := range l.Args {
		args[i] = a.Type
	}
	return &types.TFunction{Args: args, Result: l.ResultType}
}
