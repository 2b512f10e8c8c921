// Package mir is the explicit, reference-counted low-level IR of section
// 3.4: records, variants, closures with explicit environments, and the
// clone/drop/retain-heap/discard-heap annotations inserted by later passes.
package mir

// Type is the MIR-level type sum: a nominal name (record or primitive
// alias), or the special Variant type used to encode unions.
type Type interface {
	String() string
	mirType()
}

type TNone struct{}
type TBoolean struct{}
type TNumber struct{}
type TString struct{}

func (TNone) mirType()    {}
func (TBoolean) mirType() {}
func (TNumber) mirType()  {}
func (TString) mirType()  {}

func (TNone) String() string    { return "none" }
func (TBoolean) String() string { return "boolean" }
func (TNumber) String() string  { return "number" }
func (TString) String() string  { return "string" }

// TRecord names a record type defined in the owning module's Records table.
type TRecord struct{ Name string }

func (TRecord) mirType()         {}
func (t TRecord) String() string { return t.Name }

// TFunction is a closure type: argument types plus result type.
type TFunction struct {
	Args   []Type
	Result Type
}

func (*TFunction) mirType() {}
func (t *TFunction) String() string {
	s := "("
	for i, a := range t.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ") -> " + t.Result.String()
}

// TVariant is the tagged (tag, payload) encoding every HIR union is lowered
// to (section 3.4: "Variant is MIR-level Type::Variant"). Tag is the
// deterministic canonical-type encoding produced by internal/variants.
type TVariant struct{ Tag string }

func (TVariant) mirType()         {}
func (t TVariant) String() string { return "variant<" + t.Tag + ">" }

// RecordDef is a nominal record type: an ordered list of field types (MIR
// records carry no field names, only positional index, per section 3.4).
type RecordDef struct {
	Name   string
	Fields []Type
}

// ForeignDecl declares an external function signature under a calling
// convention ("c" or "native", section 6).
type ForeignDecl struct {
	Name       string
	Convention string
	Signature  *TFunction
}

// ForeignDef binds a local function to an external symbol.
type ForeignDef struct {
	SourceName string
	TargetName string
	Convention string
}

// FuncDecl is a top-level function signature.
type FuncDecl struct {
	Name string
	Type *TFunction
}

// Param is one (name, type) argument or environment slot.
type Param struct {
	Name string
	Type Type
}

// FuncDef is a MIR function definition: an explicit, typed capture
// environment, arguments, a body, a result type, and whether it is a
// zero-argument thunk (section 3.4).
type FuncDef struct {
	Name        string
	Environment []Param
	Args        []Param
	Body        Expr
	ResultType  Type
	IsThunk     bool
}

// Module is the MIR translation unit (section 3.4).
type Module struct {
	Records     []*RecordDef
	Foreign     []*ForeignDecl
	ForeignDefs []*ForeignDef
	FuncDecls   []*FuncDecl
	FuncDefs    []*FuncDef
}
