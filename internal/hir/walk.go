package hir

import "github.com/pen-lang/pen-sub002/internal/types"

// ExprVisitor is applied to every expression Node, post-order (children
// first), by Transform. It is used by internal/link (through
// TransformModule) to build a fresh tree.
type ExprVisitor func(Expr) Expr

// TypeVisitor rewrites every types.Type value encountered in the tree: the
// result-type annotations on the Node that carries them, and the argument
// types of calls, lambdas, etc. Used by internal/link to rename Record and
// Reference types to their canonical names.
type TypeVisitor func(types.Type) types.Type

// Transform rebuilds e, applying tv to every type-valued field and ev to
// every expression Node after its children have been transformed.
func Transform(e Expr, tv TypeVisitor, ev ExprVisitor) Expr {
	if e == nil {
		return nil
	}
	if tv == nil {
		tv = func(t types.Type) types.Type { return t }
	}
	var out Expr
	switch n := e.(type) {
	case *Literal:
		out = &Literal{Node: n.Node, Kind: n.Kind, Value: n.Value}
	case *Variable:
		out = &Variable{Node: n.Node, Name: n.Name}
	case *Call:
		args := make([]Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = Transform(a, tv, ev)
		}
		var ft *types.TFunction
		if n.FunctionType != nil {
			ft, _ = tv(n.FunctionType).(*types.TFunction)
		}
		out = &Call{Node: n.Node, FunctionType: ft, Function: Transform(n.Function, tv, ev), Arguments: args}
	case *Arithmetic:
		out = &Arithmetic{Node: n.Node, Op: n.Op, Left: Transform(n.Left, tv, ev), Right: Transform(n.Right, tv, ev)}
	case *Boolean:
		out = &Boolean{Node: n.Node, Op: n.Op, Left: Transform(n.Left, tv, ev), Right: Transform(n.Right, tv, ev)}
	case *Not:
		out = &Not{Node: n.Node, Operand: Transform(n.Operand, tv, ev)}
	case *Order:
		out = &Order{Node: n.Node, Op: n.Op, Left: Transform(n.Left, tv, ev), Right: Transform(n.Right, tv, ev)}
	case *Equality:
		var ot types.Type
		if n.OperandType != nil {
			ot = tv(n.OperandType)
		}
		out = &Equality{Node: n.Node, OperandType: ot, Left: Transform(n.Left, tv, ev), Right: Transform(n.Right, tv, ev)}
	case *Try:
		var st types.Type
		if n.SuccessType != nil {
			st = tv(n.SuccessType)
		}
		out = &Try{Node: n.Node, SuccessType: st, Operand: Transform(n.Operand, tv, ev)}
	case *Thunk:
		var pt types.Type
		if n.PayloadType != nil {
			pt = tv(n.PayloadType)
		}
		out = &Thunk{Node: n.Node, PayloadType: pt, Body: Transform(n.Body, tv, ev)}
	case *If:
		out = &If{Node: n.Node, Condition: Transform(n.Condition, tv, ev), Then: Transform(n.Then, tv, ev), Else: Transform(n.Else, tv, ev)}
	case *IfList:
		var et types.Type
		if n.ElementType != nil {
			et = tv(n.ElementType)
		}
		out = &IfList{Node: n.Node, ElementType: et, List: Transform(n.List, tv, ev), HeadName: n.HeadName, RestName: n.RestName, Then: Transform(n.Then, tv, ev), Else: Transform(n.Else, tv, ev)}
	case *IfMap:
		var kt, vt types.Type
		if n.KeyType != nil {
			kt = tv(n.KeyType)
		}
		if n.ValueType != nil {
			vt = tv(n.ValueType)
		}
		out = &IfMap{Node: n.Node, KeyType: kt, ValueType: vt, Map: Transform(n.Map, tv, ev), Key: Transform(n.Key, tv, ev), ValueName: n.ValueName, RestName: n.RestName, Then: Transform(n.Then, tv, ev), Else: Transform(n.Else, tv, ev)}
	case *IfType:
		branches := make([]TypeBranch, len(n.Branches))
		for i, b := range n.Branches {
			branches[i] = TypeBranch{Type: tv(b.Type), Body: Transform(b.Body, tv, ev)}
		}
		var els *ElseBranch
		if n.Else != nil {
			var rt types.Type
			if n.Else.ResidualType != nil {
				rt = tv(n.Else.ResidualType)
			}
			els = &ElseBranch{ResidualType: rt, Body: Transform(n.Else.Body, tv, ev)}
		}
		out = &IfType{Node: n.Node, ScrutineeName: n.ScrutineeName, Scrutinee: Transform(n.Scrutinee, tv, ev), Branches: branches, Else: els}
	case *Let:
		var bt types.Type
		if n.BoundType != nil {
			bt = tv(n.BoundType)
		}
		out = &Let{Node: n.Node, Name: n.Name, BoundType: bt, Bound: Transform(n.Bound, tv, ev), Body: Transform(n.Body, tv, ev)}
	case *LambdaExpr:
		out = &LambdaExpr{Node: n.Node, Lambda: transformLambda(n.Lambda, tv, ev)}
	case *List:
		var et types.Type
		if n.ElementType != nil {
			et = tv(n.ElementType)
		}
		elems := make([]ListElement, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = ListElement{Spread: el.Spread, Value: Transform(el.Value, tv, ev)}
		}
		out = &List{Node: n.Node, ElementType: et, Elements: elems}
	case *RecordConstruction:
		out = &RecordConstruction{Node: n.Node, RecordType: renameTypeName(n.RecordType, tv), Fields: transformFields(n.Fields, tv, ev)}
	case *RecordDeconstruction:
		out = &RecordDeconstruction{Node: n.Node, RecordType: renameTypeName(n.RecordType, tv), Record: Transform(n.Record, tv, ev), Field: n.Field}
	case *RecordUpdate:
		out = &RecordUpdate{Node: n.Node, RecordType: renameTypeName(n.RecordType, tv), Record: Transform(n.Record, tv, ev), Fields: transformFields(n.Fields, tv, ev)}
	case *Coerce:
		var from, to types.Type
		if n.From != nil {
			from = tv(n.From)
		}
		if n.To != nil {
			to = tv(n.To)
		}
		out = &Coerce{Node: n.Node, From: from, To: to, Argument: Transform(n.Argument, tv, ev)}
	default:
		out = e
	}
	if ev != nil {
		out = ev(out)
	}
	return out
}

func transformFields(fields []FieldValue, tv TypeVisitor, ev ExprVisitor) []FieldValue {
	out := make([]FieldValue, len(fields))
	for i, f := range fields {
		out[i] = FieldValue{Name: f.Name, Value: Transform(f.Value, tv, ev)}
	}
	return out
}

func transformLambda(l *Lambda, tv TypeVisitor, ev ExprVisitor) *Lambda {
	if l == nil {
		return nil
	}
	args := make([]Param, len(l.Args))
	for i, a := range l.Args {
		t := a.Type
		if t != nil {
			t = tv(t)
		}
		args[i] = Param{Name: a.Name, Type: t}
	}
	var rt types.Type
	if l.ResultType != nil {
		rt = tv(l.ResultType)
	}
	return &Lambda{Args: args, ResultType: rt, Body: Transform(l.Body, tv, ev), Pos: l.Pos}
}

// renameTypeName applies tv to the named record type by wrapping it as a
// TRecord and unwrapping the result; record-position strings go through
// the same TypeVisitor as every other type occurrence so a single renaming
// function covers both.
func renameTypeName(name string, tv TypeVisitor) string {
	if name == "" {
		return name
	}
	switch r := tv(&types.TRecord{Name: name}).(type) {
	case *types.TRecord:
		return r.Name
	case *types.TReference:
		return r.Name
	default:
		return name
	}
}

// TransformModule rewrites every expression and type occurrence in m,
// returning a fresh module (m is never mutated).
func TransformModule(m *Module, tv TypeVisitor, ev ExprVisitor) *Module {
	if tv == nil {
		tv = func(t types.Type) types.Type { return t }
	}
	out := &Module{}
	for _, r := range m.Records {
		fields := make([]Field, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = Field{Name: f.Name, Type: tv(f.Type)}
		}
		out.Records = append(out.Records, &RecordDef{
			Name: r.Name, Original: r.Original, Fields: fields,
			Open: r.Open, Public: r.Public, Imported: r.Imported, Pos: r.Pos,
		})
	}
	for _, a := range m.Aliases {
		out.Aliases = append(out.Aliases, &AliasDef{
			Name: a.Name, Original: a.Original, Target: tv(a.Target),
			Public: a.Public, Imported: a.Imported, Pos: a.Pos,
		})
	}
	for _, f := range m.Foreign {
		sig, _ := tv(f.Signature).(*types.TFunction)
		out.Foreign = append(out.Foreign, &ForeignDecl{Name: f.Name, Convention: f.Convention, Signature: sig, Pos: f.Pos})
	}
	for _, d := range m.FuncDecls {
		sig, _ := tv(d.Type).(*types.TFunction)
		out.FuncDecls = append(out.FuncDecls, &FuncDecl{Name: d.Name, Type: sig, Imported: d.Imported, Pos: d.Pos})
	}
	for _, d := range m.FuncDefs {
		out.FuncDefs = append(out.FuncDefs, &FuncDef{
			Name: d.Name, Original: d.Original, Lambda: transformLambda(d.Lambda, tv, ev),
			ForeignExport: d.ForeignExport, Public: d.Public, Pos: d.Pos,
		})
	}
	return out
}
