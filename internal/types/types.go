// Package types implements the closed type sum of section 3.2: primitives,
// functions, lists, maps, records, aliases and unions, together with
// canonicalization, subtyping and set difference over canonical forms.
package types

import (
	"fmt"
	"strings"
)

// Type is implemented by every member of the closed type sum. Types are
// immutable values; every transformation returns a new Type.
type Type interface {
	String() string
	typeNode()
}

// Primitives. These are singletons; comparisons use Equal, never ==, since a
// Reference can canonicalize to one of these.
type (
	TNone    struct{}
	TBoolean struct{}
	TNumber  struct{}
	TString  struct{}
	TError   struct{}
	TAny     struct{}
)

func (TNone) typeNode()    {}
func (TBoolean) typeNode() {}
func (TNumber) typeNode()  {}
func (TString) typeNode()  {}
func (TError) typeNode()   {}
func (TAny) typeNode()     {}

func (TNone) String() string    { return "None" }
func (TBoolean) String() string { return "Boolean" }
func (TNumber) String() string  { return "Number" }
func (TString) String() string  { return "String" }
func (TError) String() string   { return "Error" }
func (TAny) String() string     { return "Any" }

// TFunction is an ordered argument list plus a result type.
type TFunction struct {
	Args   []Type
	Result Type
}

func (*TFunction) typeNode() {}
func (t *TFunction) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Result)
}

// TList is a homogeneous list element type.
type TList struct {
	Element Type
}

func (*TList) typeNode() {}
func (t *TList) String() string { return fmt.Sprintf("[%s]", t.Element) }

// TMap is a key/value pair.
type TMap struct {
	Key   Type
	Value Type
}

func (*TMap) typeNode() {}
func (t *TMap) String() string { return fmt.Sprintf("{%s: %s}", t.Key, t.Value) }

// TRecord names a nominal record type. Equality is by Name alone; the field
// list lives in the defining module's record definition, looked up through
// an Environment when needed.
type TRecord struct {
	Name string
}

func (*TRecord) typeNode() {}
func (t *TRecord) String() string { return t.Name }

// TReference is an unresolved name — a type alias or a record referenced
// before its definition is known. Canonicalize resolves it through an
// Environment.
type TReference struct {
	Name string
}

func (*TReference) typeNode() {}
func (t *TReference) String() string { return t.Name }

// TUnion is a binary union; canonical unions are flattened into a sorted,
// deduplicated chain built left-to-right by buildUnion.
type TUnion struct {
	Left  Type
	Right Type
}

func (*TUnion) typeNode() {}
func (t *TUnion) String() string { return fmt.Sprintf("%s | %s", t.Left, t.Right) }

// Environment resolves the canonical name of a type alias or record to its
// target type. It is supplied by the caller (the module plus its imports);
// this package never mutates it.
type Environment interface {
	// Resolve returns the type that `name` refers to (an alias's target, or
	// the TRecord itself for a record name) and whether it is known.
	Resolve(name string) (Type, bool)
}

// MapEnvironment is a trivial Environment backed by a map, convenient for
// tests and for assembling a module's alias table.
type MapEnvironment map[string]Type

func (e MapEnvironment) Resolve(name string) (Type, bool) {
	t, ok := e[name]
	return t, ok
}
