package hir

import (
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Expr is the base interface of the HIR expression sum (section 3.3).
// Every optional type slot is a nil-able field populated by the inferrer
// (internal/infer) or the coercer (internal/coerce).
type Expr interface {
	Pos() position.Position
	exprNode()
}

// Node factors the position every expression carries.
type Node struct {
	P position.Position
}

func (n Node) Pos() position.Position { return n.P }

// LiteralKind distinguishes the four literal forms.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralBoolean
	LiteralNumber
	LiteralString
)

// Literal is a none/boolean/number/string constant.
type Literal struct {
	Node
	Kind  LiteralKind
	Value interface{}
}

func (*Literal) exprNode() {}

// Variable references an argument, let-binding, function declaration or
// function definition by name. Before import renaming the name may be
// locally spelled or import-prefixed; after renaming it is canonical.
type Variable struct {
	Node
	Name string
}

func (*Variable) exprNode() {}

// Call applies Function to Arguments. FunctionType is an optional slot
// filled by the inferrer with the canonical function type of Function.
type Call struct {
	Node
	FunctionType *types.TFunction
	Function     Expr
	Arguments    []Expr
}

func (*Call) exprNode() {}

// ArithOp enumerates the arithmetic operators.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

// Arithmetic is a binary arithmetic operation; both operands and the
// result have type Number.
type Arithmetic struct {
	Node
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (*Arithmetic) exprNode() {}

// BoolOp enumerates the boolean connectives.
type BoolOp int

const (
	OpAnd BoolOp = iota
	OpOr
)

// Boolean is a binary boolean connective; both operands and the result
// have type Boolean.
type Boolean struct {
	Node
	Op    BoolOp
	Left  Expr
	Right Expr
}

func (*Boolean) exprNode() {}

// Not negates a Boolean operand.
type Not struct {
	Node
	Operand Expr
}

func (*Not) exprNode() {}

// OrderOp enumerates the ordering comparisons.
type OrderOp int

const (
	OpLess OrderOp = iota
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

// Order is a binary ordering comparison over Number operands, producing
// Boolean.
type Order struct {
	Node
	Op    OrderOp
	Left  Expr
	Right Expr
}

func (*Order) exprNode() {}

// Equality compares two values of a common operand type (inferred as the
// union of both operands' types) for structural equality, producing
// Boolean.
type Equality struct {
	Node
	OperandType types.Type
	Left        Expr
	Right       Expr
}

func (*Equality) exprNode() {}

// Try evaluates Operand, which must have a union type containing Error;
// SuccessType is the optional slot set by the inferrer to Operand's type
// minus Error.
type Try struct {
	Node
	SuccessType types.Type
	Operand     Expr
}

func (*Try) exprNode() {}

// Thunk defers Body; PayloadType is the optional slot set to Body's type.
type Thunk struct {
	Node
	PayloadType types.Type
	Body        Expr
}

func (*Thunk) exprNode() {}

// If is a two-armed conditional. Its own type is not annotated on the Node
// — the coercer joins the branch types and inserts any needed Coerce nodes
// around Then/Else rather than on If itself.
type If struct {
	Node
	Condition Expr
	Then      Expr
	Else      Expr
}

func (*If) exprNode() {}

// IfList matches List against cons/nil; in Then, HeadName is bound as a
// thunk of element type and RestName as the tail list.
type IfList struct {
	Node
	ElementType types.Type
	List        Expr
	HeadName    string
	RestName    string
	Then        Expr
	Else        Expr
}

func (*IfList) exprNode() {}

// IfMap matches Map for a given key, binding ValueName (a thunk of the
// value type) and RestName (the map without that key) in Then.
type IfMap struct {
	Node
	KeyType   types.Type
	ValueType types.Type
	Map       Expr
	Key       Expr
	ValueName string
	RestName  string
	Then      Expr
	Else      Expr
}

func (*IfMap) exprNode() {}

// TypeBranch is one arm of an IfType: a declared narrow type and its body,
// evaluated with the scrutinee name bound to that narrow type.
type TypeBranch struct {
	Type types.Type
	Body Expr
}

// ElseBranch is the optional catch-all arm of an IfType; ResidualType is
// the optional slot set to the scrutinee's type minus every branch type.
type ElseBranch struct {
	ResidualType types.Type
	Body         Expr
}

// IfType narrows Scrutinee (bound locally as ScrutineeName) over a set of
// declared types, with an optional residual else-branch.
type IfType struct {
	Node
	ScrutineeName string
	Scrutinee     Expr
	Branches      []TypeBranch
	Else          *ElseBranch
}

func (*IfType) exprNode() {}

// Let binds Bound to an optional Name (nil for `let _ = ...`), with
// BoundType the optional slot set to Bound's inferred type.
type Let struct {
	Node
	Name      *string
	BoundType types.Type
	Bound     Expr
	Body      Expr
}

func (*Let) exprNode() {}

// LambdaExpr embeds a Lambda as a closure-valued expression.
type LambdaExpr struct {
	Node
	Lambda *Lambda
}

func (*LambdaExpr) exprNode() {}

// ListElement is either a single element (coerced to the list's element
// type) or a spread sub-list (coerced to List(element type)).
type ListElement struct {
	Spread bool
	Value  Expr
}

// List constructs a list literal; ElementType is the optional slot set by
// the inferrer.
type List struct {
	Node
	ElementType types.Type
	Elements    []ListElement
}

func (*List) exprNode() {}

// FieldValue is one field of a record construction or update.
type FieldValue struct {
	Name  string
	Value Expr
}

// RecordConstruction builds a value of the named record type.
type RecordConstruction struct {
	Node
	RecordType string
	Fields     []FieldValue
}

func (*RecordConstruction) exprNode() {}

// RecordDeconstruction reads Field off Record; RecordType is the optional
// slot set by the inferrer to Record's canonical record name.
type RecordDeconstruction struct {
	Node
	RecordType string
	Record     Expr
	Field      string
}

func (*RecordDeconstruction) exprNode() {}

// RecordUpdate produces a copy of Record with Fields replaced.
type RecordUpdate struct {
	Node
	RecordType string
	Record     Expr
	Fields     []FieldValue
}

func (*RecordUpdate) exprNode() {}

// Coerce wraps Argument (of canonical type From) so that it is usable
// where To is expected. Inserted only by internal/coerce; never nested by
// construction (the coercer folds From/To chains at insertion time).
type Coerce struct {
	Node
	From     types.Type
	To       types.Type
	Argument Expr
}

func (*Coerce) exprNode() {}

// NewNode is a convenience constructor used by every pass that builds new
// expression nodes at a given position.
func NewNode(p position.Position) Node { return Node{P: p} }
