// Package hir implements the typed high-level IR of section 3.3: the
// surface of the language after structural translation from the (external,
// out-of-scope) parser's tree but before import renaming, inference,
// coercion and checking. Every optional type slot on an expression is a
// nil-able types.Type field, populated in place by the inferrer and coercer.
package hir

import (
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Module is a single translation unit: its own declarations, prior to
// merging with imports (internal/link adds imported copies of these same
// shapes).
type Module struct {
	Records   []*RecordDef
	Aliases   []*AliasDef
	Foreign   []*ForeignDecl
	FuncDecls []*FuncDecl
	FuncDefs  []*FuncDef
}

// RecordDef is a nominal record type definition.
type RecordDef struct {
	Name     string // canonical name
	Original string // name as written
	Fields   []Field
	Open     bool // open records admit extra fields at the value level
	Public   bool
	Imported bool
	Pos      position.Position
}

type Field struct {
	Name string
	Type types.Type
}

// AliasDef is a type alias: `type Name = Target`.
type AliasDef struct {
	Name     string
	Original string
	Target   types.Type
	Public   bool
	Imported bool
	Pos      position.Position
}

// ForeignDecl declares a foreign function under a calling convention.
type ForeignDecl struct {
	Name       string
	Convention string // "c" or "native"
	Signature  *types.TFunction
	Pos        position.Position
}

// FuncDecl is a top-level function's declared type, independent of its
// definition (imported functions carry a FuncDecl with no matching FuncDef
// in this module).
type FuncDecl struct {
	Name     string
	Type     *types.TFunction
	Imported bool
	Pos      position.Position
}

// FuncDef is a top-level function definition.
type FuncDef struct {
	Name          string
	Original      string
	Lambda        *Lambda
	ForeignExport *string
	Public        bool
	Pos           position.Position
}

// Lambda is (arguments, result type, body).
type Lambda struct {
	Args       []Param
	ResultType types.Type
	Body       Expr
	Pos        position.Position
}

type Param struct {
	Name string
	Type types.Type
}
