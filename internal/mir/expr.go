package mir

// Expr is the base interface of the MIR expression sum (section 3.4).
type Expr interface {
	mirExpr()
}

// LiteralKind mirrors hir.LiteralKind for the four primitive constants.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralBoolean
	LiteralNumber
	LiteralString
)

// Literal is a none/boolean/number/string constant.
type Literal struct {
	Kind  LiteralKind
	Value interface{}
}

func (*Literal) mirExpr() {}

// Variable references a binder introduced by Let, LetRecursive, a Case
// alternative, a function argument or environment slot.
type Variable struct {
	Name string
}

func (*Variable) mirExpr() {}

// ArithOp and OrderOp mirror the HIR operator enums.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

type OrderOp int

const (
	OpLess OrderOp = iota
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
)

// Operation is a binary arithmetic or comparison operation.
type Operation struct {
	ArithOp *ArithOp
	OrderOp *OrderOp
	Left    Expr
	Right   Expr
}

func (*Operation) mirExpr() {}

// If is a two-armed conditional. internal/lower emits it for every HIR if
// and for the boolean and/or/not operators.
type If struct {
	Condition Expr
	Then      Expr
	Else      Expr
}

func (*If) mirExpr() {}

// Alternative is one arm of a Case: the set of variant tags it matches and
// a binder for the unpacked payload.
type Alternative struct {
	Tags   []string
	Binder string
	Body   Expr
}

// DefaultAlternative is Case's catch-all arm.
type DefaultAlternative struct {
	Binder string
	Body   Expr
}

// Case scrutinizes a variant-typed Argument against a set of alternatives,
// each matching one or more tags, with an optional default.
type Case struct {
	Argument     Expr
	Alternatives []Alternative
	Default      *DefaultAlternative
}

func (*Case) mirExpr() {}

// Let binds Bound to Binder of Type before evaluating Body.
type Let struct {
	Binder string
	Type   Type
	Bound  Expr
	Body   Expr
}

func (*Let) mirExpr() {}

// LetRecursive binds a local closure (Definition) before evaluating Body,
// making the closure available to its own body for recursion.
type LetRecursive struct {
	Definition *FuncDef
	Body       Expr
}

func (*LetRecursive) mirExpr() {}

// Call applies Function (of FunctionType) to Arguments.
type Call struct {
	FunctionType *TFunction
	Function     Expr
	Arguments    []Expr
}

func (*Call) mirExpr() {}

// Record constructs a value of the named record type from positional
// field expressions.
type Record struct {
	RecordType string
	Fields     []Expr
}

func (*Record) mirExpr() {}

// RecordField reads the field at Index (resolved from the record
// definition during lowering) off Record.
type RecordField struct {
	RecordType string
	Index      int
	Record     Expr
}

func (*RecordField) mirExpr() {}

// FieldUpdate is one (index, new value) pair of a RecordUpdate.
type FieldUpdate struct {
	Index int
	Value Expr
}

// RecordUpdate produces a copy of Record with the listed fields replaced.
type RecordUpdate struct {
	RecordType string
	Record     Expr
	Fields     []FieldUpdate
}

func (*RecordUpdate) mirExpr() {}

// Variant packs Payload as a value of PayloadType tagged for the variant's
// current member (section 3.4: "Variant(tag, payload)").
type Variant struct {
	PayloadType Type
	Payload     Expr
}

func (*Variant) mirExpr() {}

// TryOperation evaluates Operand; on success binds SuccessBinder (of
// SuccessType) and evaluates Then; on an Error-tagged result it returns the
// variant unchanged through the enclosing function (section 4.6).
type TryOperation struct {
	Operand       Expr
	SuccessBinder string
	SuccessType   Type
	Then          Expr
}

func (*TryOperation) mirExpr() {}

// StringConcatenation joins Operands.
type StringConcatenation struct {
	Operands []Expr
}

func (*StringConcatenation) mirExpr() {}

// Synchronize marks Expression as crossing a thread boundary, forcing
// non-atomic refcount operations on Type to become atomic from this point
// on (section 5).
type Synchronize struct {
	Type       Type
	Expression Expr
}

func (*Synchronize) mirExpr() {}

// TypeInformationFunction retrieves the per-type function pointer used for
// polymorphic equality over a variant (section 3.4).
type TypeInformationFunction struct {
	Variant Expr
}

func (*TypeInformationFunction) mirExpr() {}

// Clone increments the refcount of each named variable before evaluating
// Body (section 4.9/3.4). Vars maps variable name to its declared type.
type Clone struct {
	Vars map[string]Type
	Body Expr
}

func (*Clone) mirExpr() {}

// Drop decrements the refcount of each named variable after Body's result
// is computed but before returning it.
type Drop struct {
	Vars map[string]Type
	Body Expr
}

func (*Drop) mirExpr() {}

// RetainHeap holds the heap blocks in ReuseMap (variable -> reuse token)
// alive across the wrapped Drop for a later heap-reuse rewrite.
type RetainHeap struct {
	ReuseMap map[string]string
	Body     Expr
}

func (*RetainHeap) mirExpr() {}

// ReuseRecord allocates Literal into the previously retained block ID
// instead of a fresh allocation (section 4.10).
type ReuseRecord struct {
	ID      string
	Literal *Record
}

func (*ReuseRecord) mirExpr() {}

// DiscardHeap frees retained blocks (by ID) that were not reused on the
// branch containing Body.
type DiscardHeap struct {
	IDs  []string
	Body Expr
}

func (*DiscardHeap) mirExpr() {}
