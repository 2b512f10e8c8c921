// Package lower implements the HIR to MIR lowering of section 4.6: a
// structural translation of the fully checked, variant-collected HIR into
// the explicit reference-counted MIR, ahead of alpha conversion (§4.7),
// environment inference (§4.8) and reference-count annotation (§4.9).
package lower

import (
	"fmt"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/mir"
	"github.com/pen-lang/pen-sub002/internal/types"
	"github.com/pen-lang/pen-sub002/internal/variants"
)

type lowerer struct {
	records map[string]*hir.RecordDef
	coll    *variants.Collection
	byType  map[string]*mir.RecordDef // canonical element/entry type string -> synthesized record
	byName  map[string]*mir.RecordDef // synthesized record name -> its definition
	order   []string                  // synthesized record names, in creation order, for deterministic output
	helpers map[string]bool           // runtime entry points referenced by lowered code
}

// Lower translates mod (checked HIR, after internal/variants.Collect has
// run over it) into a MIR module.
func Lower(mod *hir.Module, coll *variants.Collection) *mir.Module {
	l := &lowerer{
		records: map[string]*hir.RecordDef{},
		coll:    coll,
		byType:  map[string]*mir.RecordDef{},
		byName:  map[string]*mir.RecordDef{},
		helpers: map[string]bool{},
	}
	for _, r := range mod.Records {
		l.records[r.Name] = r
	}

	out := &mir.Module{Records: coll.RecordDefs()}
	for _, r := range mod.Records {
		fields := make([]mir.Type, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = l.toMIR(f.Type)
		}
		out.Records = append(out.Records, &mir.RecordDef{Name: r.Name, Fields: fields})
	}
	for _, f := range mod.Foreign {
		out.Foreign = append(out.Foreign, &mir.ForeignDecl{
			Name: f.Name, Convention: f.Convention, Signature: l.toMIRFunc(f.Signature),
		})
	}
	for _, d := range mod.FuncDecls {
		out.FuncDecls = append(out.FuncDecls, &mir.FuncDecl{Name: d.Name, Type: l.toMIRFunc(d.Type)})
	}
	for _, d := range mod.FuncDefs {
		out.FuncDefs = append(out.FuncDefs, l.lowerFuncDef(d))
		if d.ForeignExport != nil {
			out.ForeignDefs = append(out.ForeignDefs, &mir.ForeignDef{
				SourceName: d.Name, TargetName: *d.ForeignExport, Convention: "native",
			})
		}
	}

	for _, name := range l.order {
		out.Records = append(out.Records, l.byName[name])
	}
	// Runtime entry points referenced by lowered collection code get a
	// declaration so every later pass sees them as ordinary module-scope
	// functions; their precise per-call signature travels on each Call's
	// own FunctionType.
	for _, name := range []string{"list_concat", "map_lookup"} {
		if l.helpers[name] {
			out.FuncDecls = append(out.FuncDecls, &mir.FuncDecl{Name: name, Type: runtimeHelperType()})
		}
	}
	return out
}

// runtimeHelperType is the module-scope signature under which a runtime
// collection helper is declared: two boxed operands in, one boxed result
// out. Call sites carry their concrete element/entry types themselves.
func runtimeHelperType() *mir.TFunction {
	anyT := mir.TVariant{Tag: "Any"}
	return &mir.TFunction{Args: []mir.Type{anyT, anyT}, Result: anyT}
}

func (l *lowerer) lowerFuncDef(d *hir.FuncDef) *mir.FuncDef {
	args := make([]mir.Param, len(d.Lambda.Args))
	for i, a := range d.Lambda.Args {
		args[i] = mir.Param{Name: a.Name, Type: l.toMIR(a.Type)}
	}
	return &mir.FuncDef{
		Name:       d.Name,
		Args:       args,
		Body:       l.lowerExpr(d.Lambda.Body),
		ResultType: l.toMIR(d.Lambda.ResultType),
	}
}

func (l *lowerer) lowerExpr(e hir.Expr) mir.Expr {
	switch n := e.(type) {
	case *hir.Literal:
		return &mir.Literal{Kind: mir.LiteralKind(n.Kind), Value: n.Value}

	case *hir.Variable:
		return &mir.Variable{Name: n.Name}

	case *hir.Call:
		args := make([]mir.Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = l.lowerExpr(a)
		}
		return &mir.Call{FunctionType: l.toMIRFunc(n.FunctionType), Function: l.lowerExpr(n.Function), Arguments: args}

	case *hir.Arithmetic:
		op := mir.ArithOp(n.Op)
		return &mir.Operation{ArithOp: &op, Left: l.lowerExpr(n.Left), Right: l.lowerExpr(n.Right)}

	case *hir.Order:
		op := mir.OrderOp(n.Op)
		return &mir.Operation{OrderOp: &op, Left: l.lowerExpr(n.Left), Right: l.lowerExpr(n.Right)}

	case *hir.Boolean:
		left := l.lowerExpr(n.Left)
		right := l.lowerExpr(n.Right)
		switch n.Op {
		case hir.OpAnd:
			return &mir.If{Condition: left, Then: right, Else: &mir.Literal{Kind: mir.LiteralBoolean, Value: false}}
		default: // OpOr
			return &mir.If{Condition: left, Then: &mir.Literal{Kind: mir.LiteralBoolean, Value: true}, Else: right}
		}

	case *hir.Not:
		return &mir.If{
			Condition: l.lowerExpr(n.Operand),
			Then:      &mir.Literal{Kind: mir.LiteralBoolean, Value: false},
			Else:      &mir.Literal{Kind: mir.LiteralBoolean, Value: true},
		}

	case *hir.Equality:
		left, right := l.lowerExpr(n.Left), l.lowerExpr(n.Right)
		if _, union := n.OperandType.(*types.TUnion); union {
			operandT := l.toMIR(n.OperandType)
			return &mir.Call{
				FunctionType: &mir.TFunction{Args: []mir.Type{operandT, operandT}, Result: mir.TBoolean{}},
				Function:     &mir.TypeInformationFunction{Variant: left},
				Arguments:    []mir.Expr{left, right},
			}
		}
		op := mir.OpEqual
		return &mir.Operation{OrderOp: &op, Left: left, Right: right}

	case *hir.Try:
		const binder = "try_success"
		// A union-typed success value is already a variant; re-wrapping it
		// would nest variants (section 3.4 forbids that).
		var then mir.Expr = &mir.Variable{Name: binder}
		if _, union := n.SuccessType.(*types.TUnion); !union {
			then = &mir.Variant{PayloadType: l.variantPayloadType(n.SuccessType), Payload: then}
		}
		return &mir.TryOperation{
			Operand:       l.lowerExpr(n.Operand),
			SuccessBinder: binder,
			SuccessType:   l.toMIR(n.SuccessType),
			Then:          then,
		}

	case *hir.Thunk:
		return l.lowerClosure("thunk", nil, l.lowerExpr(n.Body), l.toMIR(n.PayloadType), true)

	case *hir.If:
		return &mir.If{Condition: l.lowerExpr(n.Condition), Then: l.lowerExpr(n.Then), Else: l.lowerExpr(n.Else)}

	case *hir.IfList:
		return l.lowerIfList(n)

	case *hir.IfMap:
		return l.lowerIfMap(n)

	case *hir.IfType:
		return l.lowerIfType(n)

	case *hir.Let:
		bound := l.lowerExpr(n.Bound)
		if n.Name == nil {
			return &mir.Let{Binder: "_", Type: l.toMIR(n.BoundType), Bound: bound, Body: l.lowerExpr(n.Body)}
		}
		return &mir.Let{Binder: *n.Name, Type: l.toMIR(n.BoundType), Bound: bound, Body: l.lowerExpr(n.Body)}

	case *hir.LambdaExpr:
		name := "closure"
		args := make([]mir.Param, len(n.Lambda.Args))
		for i, a := range n.Lambda.Args {
			args[i] = mir.Param{Name: a.Name, Type: l.toMIR(a.Type)}
		}
		def := &mir.FuncDef{Name: name, Args: args, Body: l.lowerExpr(n.Lambda.Body), ResultType: l.toMIR(n.Lambda.ResultType)}
		return &mir.LetRecursive{Definition: def, Body: &mir.Variable{Name: name}}

	case *hir.List:
		return l.buildList(n.ElementType, n.Elements)

	case *hir.RecordConstruction:
		return l.lowerRecordConstruction(n)

	case *hir.RecordDeconstruction:
		rec := l.records[n.RecordType]
		idx := fieldIndex(rec, n.Field)
		return &mir.RecordField{RecordType: n.RecordType, Index: idx, Record: l.lowerExpr(n.Record)}

	case *hir.RecordUpdate:
		rec := l.records[n.RecordType]
		fields := make([]mir.FieldUpdate, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = mir.FieldUpdate{Index: fieldIndex(rec, f.Name), Value: l.lowerExpr(f.Value)}
		}
		return &mir.RecordUpdate{RecordType: n.RecordType, Record: l.lowerExpr(n.Record), Fields: fields}

	case *hir.Coerce:
		return l.lowerCoerce(n)

	default:
		panic(fmt.Sprintf("lower: unhandled HIR expression %T", e))
	}
}

// lowerClosure is the shared "lambda -> let-recursive(definition,
// variable(name))" translation (section 4.6's lambda row), used for
// zero-argument thunks, including the if-list/if-map head and value
// bindings; a nested hir.LambdaExpr builds the same shape inline in
// lowerExpr. The environment is left empty;
// internal/envinfer fills it in from the fully alpha-converted tree.
func (l *lowerer) lowerClosure(name string, args []mir.Param, body mir.Expr, result mir.Type, isThunk bool) mir.Expr {
	def := &mir.FuncDef{Name: name, Args: args, Body: body, ResultType: result, IsThunk: isThunk}
	return &mir.LetRecursive{Definition: def, Body: &mir.Variable{Name: name}}
}

func (l *lowerer) lowerIfType(n *hir.IfType) mir.Expr {
	var def *mir.DefaultAlternative
	if n.Else != nil {
		def = &mir.DefaultAlternative{Binder: n.ScrutineeName, Body: l.lowerExpr(n.Else.Body)}
	}
	alts := make([]mir.Alternative, len(n.Branches))
	for i, b := range n.Branches {
		alts[i] = mir.Alternative{Tags: []string{l.tagFor(b.Type)}, Binder: n.ScrutineeName, Body: l.lowerExpr(b.Body)}
	}
	return &mir.Case{Argument: l.lowerExpr(n.Scrutinee), Alternatives: alts, Default: def}
}

// lowerIfList and lowerIfMap lower the collection pattern-match into a
// Case over a two-field header record synthesized on demand (see
// DESIGN.md). lowerIfList cases directly over the list value, whose
// non-empty form is the per-element-type Cons-style record; lowerIfMap
// cases over the result of a call to the runtime map_lookup helper, an
// Entry-style record of the value and the remaining map.
func (l *lowerer) lowerIfList(n *hir.IfList) mir.Expr {
	cons := l.consRecordFor(n.ElementType)
	pairBinder := "list_pair"
	headField := &mir.RecordField{RecordType: cons.Name, Index: 0, Record: &mir.Variable{Name: pairBinder}}
	restField := &mir.RecordField{RecordType: cons.Name, Index: 1, Record: &mir.Variable{Name: pairBinder}}
	then := l.lowerClosure(n.HeadName, nil, headField, l.toMIR(n.ElementType), true)
	then = &mir.Let{Binder: n.RestName, Type: cons.Fields[1], Bound: restField, Body: wrapBody(then, n.Then, l)}
	return &mir.Case{
		Argument: l.lowerExpr(n.List),
		Alternatives: []mir.Alternative{
			{Tags: []string{cons.Name}, Binder: pairBinder, Body: then},
		},
		Default: &mir.DefaultAlternative{Binder: "_", Body: l.lowerExpr(n.Else)},
	}
}

// wrapBody substitutes the already-lowered Then body in place of the
// thunk/rest let-chain's placeholder tail, keeping lowerIfList/lowerIfMap
// readable as a single nested-let construction.
func wrapBody(headBinding mir.Expr, then hir.Expr, l *lowerer) mir.Expr {
	lowered := l.lowerExpr(then)
	return spliceLetBody(headBinding, lowered)
}

// spliceLetBody walks a chain of Let/LetRecursive nodes built purely for
// their binding side effect and replaces the innermost body with final.
func spliceLetBody(chain mir.Expr, final mir.Expr) mir.Expr {
	switch n := chain.(type) {
	case *mir.Let:
		n.Body = spliceLetBody(n.Body, final)
		return n
	case *mir.LetRecursive:
		n.Body = spliceLetBody(n.Body, final)
		return n
	default:
		return final
	}
}

func (l *lowerer) lowerIfMap(n *hir.IfMap) mir.Expr {
	entry := l.entryRecordFor(n.KeyType, n.ValueType)
	pairBinder := "map_pair"
	valueField := &mir.RecordField{RecordType: entry.Name, Index: 0, Record: &mir.Variable{Name: pairBinder}}
	restField := &mir.RecordField{RecordType: entry.Name, Index: 1, Record: &mir.Variable{Name: pairBinder}}
	then := l.lowerClosure(n.ValueName, nil, valueField, l.toMIR(n.ValueType), true)
	then = &mir.Let{Binder: n.RestName, Type: entry.Fields[1], Bound: restField, Body: wrapBody(then, n.Then, l)}
	l.helpers["map_lookup"] = true
	mapT := l.toMIR(&types.TMap{Key: n.KeyType, Value: n.ValueType})
	return &mir.Case{
		Argument: &mir.Call{
			FunctionType: &mir.TFunction{Args: []mir.Type{mapT, l.toMIR(n.KeyType)}, Result: mir.TVariant{Tag: entry.Name}},
			Function:     &mir.Variable{Name: "map_lookup"},
			Arguments:    []mir.Expr{l.lowerExpr(n.Map), l.lowerExpr(n.Key)},
		},
		Alternatives: []mir.Alternative{
			{Tags: []string{entry.Name}, Binder: pairBinder, Body: then},
		},
		Default: &mir.DefaultAlternative{Binder: "_", Body: l.lowerExpr(n.Else)},
	}
}

func (l *lowerer) lowerRecordConstruction(n *hir.RecordConstruction) mir.Expr {
	rec := l.records[n.RecordType]
	fields := make([]mir.Expr, len(rec.Fields))
	byName := map[string]hir.Expr{}
	for _, f := range n.Fields {
		byName[f.Name] = f.Value
	}
	for i, f := range rec.Fields {
		fields[i] = l.lowerExpr(byName[f.Name])
	}
	return &mir.Record{RecordType: n.RecordType, Fields: fields}
}

// lowerCoerce implements the coerce row of section 4.6's table: a no-op
// when both sides canonicalize equal (should not occur after a correct
// internal/coerce pass, but treated defensively here), a variant
// construction when the target is a union or Any and the source is not
// already variant-encoded, and the argument unchanged otherwise: a union-
// or Any-typed source is already a variant and keeps its own tag, so no
// repacking is done. Any lowers to variant<Any> (see toMIR), so a value flowing
// into an Any context must be tagged exactly like one flowing into a
// union.
func (l *lowerer) lowerCoerce(n *hir.Coerce) mir.Expr {
	arg := l.lowerExpr(n.Argument)
	_, fromUnion := n.From.(*types.TUnion)
	_, fromAny := n.From.(*types.TAny)
	_, toUnion := n.To.(*types.TUnion)
	_, toAny := n.To.(*types.TAny)
	if (toUnion || toAny) && !fromUnion && !fromAny {
		return &mir.Variant{PayloadType: l.variantPayloadType(n.From), Payload: arg}
	}
	return arg
}

// buildList lowers a list literal as a right fold over cons cells, spliced
// with a runtime concatenation call at every spread element.
func (l *lowerer) buildList(elemType types.Type, elems []hir.ListElement) mir.Expr {
	cons := l.consRecordFor(elemType)
	listT := l.toMIR(&types.TList{Element: elemType})
	var tail mir.Expr = &mir.Record{RecordType: "Nil_" + cons.Name}
	for i := len(elems) - 1; i >= 0; i-- {
		el := elems[i]
		lowered := l.lowerExpr(el.Value)
		if el.Spread {
			l.helpers["list_concat"] = true
			tail = &mir.Call{
				FunctionType: &mir.TFunction{Args: []mir.Type{listT, listT}, Result: listT},
				Function:     &mir.Variable{Name: "list_concat"},
				Arguments:    []mir.Expr{lowered, tail},
			}
			continue
		}
		tail = &mir.Record{RecordType: cons.Name, Fields: []mir.Expr{lowered, tail}}
	}
	return tail
}

// consRecordFor returns (creating and registering on first use) the
// two-field Cons-style record used to represent a non-empty List(elemType)
// value, along with its paired zero-field Nil record.
func (l *lowerer) consRecordFor(elemType types.Type) *mir.RecordDef {
	key := elemType.String()
	if r, ok := l.byType[key]; ok {
		return r
	}
	mirElem := l.toMIR(elemType)
	name := "Cons_" + variants.Name(elemType)
	r := &mir.RecordDef{Name: name, Fields: []mir.Type{mirElem, mir.TVariant{Tag: name}}}
	l.register(name, r)
	l.byType[key] = r
	l.register("Nil_"+name, &mir.RecordDef{Name: "Nil_" + name})
	return r
}

func (l *lowerer) entryRecordFor(keyType, valueType types.Type) *mir.RecordDef {
	key := keyType.String() + "=>" + valueType.String()
	if r, ok := l.byType[key]; ok {
		return r
	}
	name := "Entry_" + variants.Name(&types.TMap{Key: keyType, Value: valueType})
	r := &mir.RecordDef{Name: name, Fields: []mir.Type{l.toMIR(valueType), mir.TVariant{Tag: name}}}
	l.register(name, r)
	l.byType[key] = r
	return r
}

// register records a synthesized record definition by name, in creation
// order, so Lower can emit it into the module's Records table exactly once.
func (l *lowerer) register(name string, r *mir.RecordDef) {
	if _, ok := l.byName[name]; ok {
		return
	}
	l.byName[name] = r
	l.order = append(l.order, name)
}

func (l *lowerer) tagFor(t types.Type) string {
	switch v := t.(type) {
	case *types.TNone:
		return "None"
	case *types.TBoolean:
		return "Boolean"
	case *types.TNumber:
		return "Number"
	case *types.TString:
		return "String"
	case *types.TError:
		return "Error"
	case *types.TAny:
		return "Any"
	case *types.TRecord:
		return v.Name
	default:
		if n, ok := l.coll.NameOf(t); ok {
			return n
		}
		return variants.Name(t)
	}
}

func (l *lowerer) toMIR(t types.Type) mir.Type {
	if t == nil {
		return mir.TNone{}
	}
	switch v := t.(type) {
	case *types.TNone:
		return mir.TNone{}
	case *types.TBoolean:
		return mir.TBoolean{}
	case *types.TNumber:
		return mir.TNumber{}
	case *types.TString:
		return mir.TString{}
	case *types.TError:
		return mir.TVariant{Tag: "Error"}
	case *types.TAny:
		return mir.TVariant{Tag: "Any"}
	case *types.TRecord:
		return mir.TRecord{Name: v.Name}
	case *types.TFunction:
		return l.toMIRFunc(v)
	default:
		if n, ok := l.coll.NameOf(t); ok {
			return mir.TVariant{Tag: n}
		}
		return mir.TVariant{Tag: variants.Name(t)}
	}
}

// variantPayloadType gives the MIR type a value of t carries inside a
// variant: a collected Function/List/Map shape is boxed behind its
// synthesized record rather than its own variant tag, since a variant
// payload may never itself be a variant (section 3.4).
func (l *lowerer) variantPayloadType(t types.Type) mir.Type {
	m := l.toMIR(t)
	if v, ok := m.(mir.TVariant); ok {
		return mir.TRecord{Name: v.Tag}
	}
	return m
}

func (l *lowerer) toMIRFunc(t *types.TFunction) *mir.TFunction {
	if t == nil {
		return nil
	}
	args := make([]mir.Type, len(t.Args))
	for i, a := range t.Args {
		args[i] = l.toMIR(a)
	}
	return &mir.TFunction{Args: args, Result: l.toMIR(t.Result)}
}

func fieldIndex(rec *hir.RecordDef, name string) int {
	if rec == nil {
		return -1
	}
	for i, f := range rec.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
