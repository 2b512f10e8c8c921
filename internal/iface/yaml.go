package iface

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// document is the normalized on-disk shape: types are serialized as their
// textual form (types.Type.String()/ParseType) so the YAML stays readable
// and diffable under version control.
type document struct {
	Schema  string          `yaml:"schema"`
	Module  string          `yaml:"module"`
	Types   []typeDocument  `yaml:"types,omitempty"`
	Aliases []aliasDocument `yaml:"aliases,omitempty"`
	Funcs   []funcDocument  `yaml:"funcs,omitempty"`
}

type fieldDocument struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type posDocument struct {
	File   string `yaml:"file,omitempty"`
	Line   int    `yaml:"line,omitempty"`
	Column int    `yaml:"column,omitempty"`
}

type typeDocument struct {
	Canonical string          `yaml:"canonical"`
	Original  string          `yaml:"original"`
	Fields    []fieldDocument `yaml:"fields,omitempty"`
	Open      bool            `yaml:"open"`
	Public    bool            `yaml:"public"`
	Pos       posDocument     `yaml:"pos"`
}

type aliasDocument struct {
	Canonical string      `yaml:"canonical"`
	Original  string      `yaml:"original"`
	Target    string      `yaml:"target"`
	Public    bool        `yaml:"public"`
	Pos       posDocument `yaml:"pos"`
}

type funcDocument struct {
	Canonical string      `yaml:"canonical"`
	Original  string      `yaml:"original"`
	Type      string      `yaml:"type"`
	Pos       posDocument `yaml:"pos"`
}

// Encode renders i into its normalized YAML form: every array is sorted by
// canonical name so that two semantically identical interfaces encode to
// byte-identical documents (rename idempotence, section 8, depends on this
// for round-tripping through the on-disk cache).
func (i *Interface) Encode() ([]byte, error) {
	doc := document{Schema: i.Schema, Module: i.Module}
	if doc.Schema == "" {
		doc.Schema = Schema
	}
	for _, t := range i.Types {
		fields := make([]fieldDocument, len(t.Fields))
		for j, f := range t.Fields {
			fields[j] = fieldDocument{Name: f.Name, Type: f.Type.String()}
		}
		sort.Slice(fields, func(a, b int) bool { return fields[a].Name < fields[b].Name })
		doc.Types = append(doc.Types, typeDocument{
			Canonical: t.Canonical, Original: t.Original, Fields: fields,
			Open: t.Open, Public: t.Public, Pos: posDoc(t.Pos),
		})
	}
	for _, a := range i.Aliases {
		doc.Aliases = append(doc.Aliases, aliasDocument{
			Canonical: a.Canonical, Original: a.Original, Target: a.Target.String(),
			Public: a.Public, Pos: posDoc(a.Pos),
		})
	}
	for _, f := range i.Functions {
		doc.Funcs = append(doc.Funcs, funcDocument{
			Canonical: f.Canonical, Original: f.Original, Type: f.Type.String(),
			Pos: posDoc(f.Pos),
		})
	}
	sort.Slice(doc.Types, func(a, b int) bool { return doc.Types[a].Canonical < doc.Types[b].Canonical })
	sort.Slice(doc.Aliases, func(a, b int) bool { return doc.Aliases[a].Canonical < doc.Aliases[b].Canonical })
	sort.Slice(doc.Funcs, func(a, b int) bool { return doc.Funcs[a].Canonical < doc.Funcs[b].Canonical })
	return yaml.Marshal(doc)
}

// Decode parses a previously Encode-d interface.
func Decode(data []byte) (*Interface, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("iface: decode: %w", err)
	}
	out := &Interface{Module: doc.Module, Schema: doc.Schema}
	for _, t := range doc.Types {
		var fields []FieldSig
		for _, f := range t.Fields {
			ty, err := types.ParseType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("iface: field %s.%s: %w", t.Canonical, f.Name, err)
			}
			fields = append(fields, FieldSig{Name: f.Name, Type: ty})
		}
		out.Types = append(out.Types, TypeDef{
			Canonical: t.Canonical, Original: t.Original, Fields: fields,
			Open: t.Open, Public: t.Public, Pos: t.Pos.toPosition(),
		})
	}
	for _, a := range doc.Aliases {
		ty, err := types.ParseType(a.Target)
		if err != nil {
			return nil, fmt.Errorf("iface: alias %s: %w", a.Canonical, err)
		}
		out.Aliases = append(out.Aliases, AliasDef{
			Canonical: a.Canonical, Original: a.Original, Target: ty,
			Public: a.Public, Pos: a.Pos.toPosition(),
		})
	}
	for _, f := range doc.Funcs {
		ty, err := types.ParseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("iface: func %s: %w", f.Canonical, err)
		}
		fn, ok := ty.(*types.TFunction)
		if !ok {
			return nil, fmt.Errorf("iface: func %s: type %q is not a function type", f.Canonical, f.Type)
		}
		out.Functions = append(out.Functions, FuncDecl{
			Canonical: f.Canonical, Original: f.Original, Type: fn, Pos: f.Pos.toPosition(),
		})
	}
	return out, nil
}

func posDoc(p position.Position) posDocument {
	return posDocument{File: p.File, Line: p.Line, Column: p.Column}
}

func (p posDocument) toPosition() position.Position {
	return position.Position{File: p.File, Line: p.Line, Column: p.Column}
}
