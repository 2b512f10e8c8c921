package infer

import (
	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Infer runs the bottom-up inference pass over every function definition in
// mod, returning a new module with every optional type slot filled. mod is
// expected to already have been through internal/link.Merge.
func Infer(mod *hir.Module) (*hir.Module, error) {
	ctx := NewContext(mod)
	root := ctx.GlobalEnv(mod)

	out := &hir.Module{
		Records:   mod.Records,
		Aliases:   mod.Aliases,
		Foreign:   mod.Foreign,
		FuncDecls: mod.FuncDecls,
	}
	for _, d := range mod.FuncDefs {
		lambda, err := inferLambda(d.Lambda, root, ctx)
		if err != nil {
			return nil, err
		}
		out.FuncDefs = append(out.FuncDefs, &hir.FuncDef{
			Name: d.Name, Original: d.Original, Lambda: lambda,
			ForeignExport: d.ForeignExport, Public: d.Public, Pos: d.Pos,
		})
	}
	return out, nil
}

func inferLambda(l *hir.Lambda, env *types.Env, ctx *Context) (*hir.Lambda, error) {
	body := env
	for _, a := range l.Args {
		body = body.Bind(a.Name, a.Type)
	}
	newBody, _, err := inferExpr(l.Body, body, ctx)
	if err != nil {
		return nil, err
	}
	return &hir.Lambda{Args: l.Args, ResultType: l.ResultType, Body: newBody, Pos: l.Pos}, nil
}

// inferExpr infers e bottom-up under env, returning the rebuilt expression
// (every optional slot filled) and its canonical type.
func inferExpr(e hir.Expr, env *types.Env, ctx *Context) (hir.Expr, types.Type, error) {
	switch n := e.(type) {
	case *hir.Literal:
		return n, literalType(n.Kind), nil

	case *hir.Variable:
		t, ok := env.Lookup(n.Name)
		if !ok {
			return nil, nil, errAt(diag.UnboundVariable, n.Pos(), "unbound variable %q", n.Name)
		}
		return n, t, nil

	case *hir.Call:
		fn, ft, err := inferExpr(n.Function, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		cft, err := canon(ft, ctx)
		if err != nil {
			return nil, nil, err
		}
		fnType, ok := cft.(*types.TFunction)
		if !ok {
			return nil, nil, errAt(diag.FunctionExpected, n.Pos(), "call target has non-function type %s", cft)
		}
		if len(fnType.Args) != len(n.Arguments) {
			return nil, nil, errAt(diag.WrongArgumentCount, n.Pos(), "expected %d arguments, got %d", len(fnType.Args), len(n.Arguments))
		}
		args := make([]hir.Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			ai, _, err := inferExpr(a, env, ctx)
			if err != nil {
				return nil, nil, err
			}
			args[i] = ai
		}
		return &hir.Call{Node: n.Node, FunctionType: fnType, Function: fn, Arguments: args}, fnType.Result, nil

	case *hir.Arithmetic:
		left, _, err := inferExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := inferExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Arithmetic{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TNumber{}, nil

	case *hir.Boolean:
		left, _, err := inferExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := inferExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Boolean{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Not:
		operand, _, err := inferExpr(n.Operand, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Not{Node: n.Node, Operand: operand}, &types.TBoolean{}, nil

	case *hir.Order:
		left, _, err := inferExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := inferExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Order{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Equality:
		left, lt, err := inferExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, rt, err := inferExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		operand, err := canon(&types.TUnion{Left: lt, Right: rt}, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Equality{Node: n.Node, OperandType: operand, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Try:
		operand, ot, err := inferExpr(n.Operand, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		cot, err := canon(ot, ctx)
		if err != nil {
			return nil, nil, err
		}
		success, err := types.Difference(cot, &types.TError{}, aliasEnv(ctx))
		if err != nil {
			return nil, nil, err
		}
		if types.IsEmpty(success) {
			return nil, nil, errAt(diag.UnionTypeExpected, n.Pos(), "try operand %s carries no success type once Error is removed", cot)
		}
		if _, any := success.(*types.TAny); any {
			return nil, nil, errAt(diag.UnionTypeExpected, n.Pos(), "try operand %s is not a closed union containing Error", cot)
		}
		return &hir.Try{Node: n.Node, SuccessType: success, Operand: operand}, success, nil

	case *hir.Thunk:
		body, bt, err := inferExpr(n.Body, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Thunk{Node: n.Node, PayloadType: bt, Body: body}, &types.TFunction{Args: nil, Result: bt}, nil

	case *hir.If:
		cond, _, err := inferExpr(n.Condition, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		then, tt, err := inferExpr(n.Then, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := inferExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.If{Node: n.Node, Condition: cond, Then: then, Else: els}, joined, nil

	case *hir.IfList:
		list, lt, err := inferExpr(n.List, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		clt, err := canon(lt, ctx)
		if err != nil {
			return nil, nil, err
		}
		listType, ok := clt.(*types.TList)
		if !ok {
			return nil, nil, errAt(diag.ListExpected, n.Pos(), "if-list scrutinee has non-list type %s", clt)
		}
		thenEnv := env.Bind(n.HeadName, &types.TFunction{Result: listType.Element}).Bind(n.RestName, listType)
		then, tt, err := inferExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := inferExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.IfList{
			Node: n.Node, ElementType: listType.Element, List: list,
			HeadName: n.HeadName, RestName: n.RestName, Then: then, Else: els,
		}, joined, nil

	case *hir.IfMap:
		mp, mt, err := inferExpr(n.Map, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		cmt, err := canon(mt, ctx)
		if err != nil {
			return nil, nil, err
		}
		mapType, ok := cmt.(*types.TMap)
		if !ok {
			return nil, nil, errAt(diag.MapExpected, n.Pos(), "if-map scrutinee has non-map type %s", cmt)
		}
		key, _, err := inferExpr(n.Key, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		thenEnv := env.Bind(n.ValueName, &types.TFunction{Result: mapType.Value}).Bind(n.RestName, mapType)
		then, tt, err := inferExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := inferExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.IfMap{
			Node: n.Node, KeyType: mapType.Key, ValueType: mapType.Value, Map: mp, Key: key,
			ValueName: n.ValueName, RestName: n.RestName, Then: then, Else: els,
		}, joined, nil

	case *hir.IfType:
		return inferIfType(n, env, ctx)

	case *hir.Let:
		bound, bt, err := inferExpr(n.Bound, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		bodyEnv := env
		if n.Name != nil {
			bodyEnv = env.Bind(*n.Name, bt)
		}
		body, rt, err := inferExpr(n.Body, bodyEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Let{Node: n.Node, Name: n.Name, BoundType: bt, Bound: bound, Body: body}, rt, nil

	case *hir.LambdaExpr:
		l, err := inferLambda(n.Lambda, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.LambdaExpr{Node: n.Node, Lambda: l}, lambdaType(l), nil

	case *hir.List:
		elems := make([]hir.ListElement, len(n.Elements))
		var elemType types.Type
		for i, el := range n.Elements {
			v, vt, err := inferExpr(el.Value, env, ctx)
			if err != nil {
				return nil, nil, err
			}
			elems[i] = hir.ListElement{Spread: el.Spread, Value: v}
			et := vt
			if el.Spread {
				cvt, err := canon(vt, ctx)
				if err != nil {
					return nil, nil, err
				}
				lt, ok := cvt.(*types.TList)
				if !ok {
					return nil, nil, errAt(diag.ListExpected, el.Value.Pos(), "spread element has non-list type %s", cvt)
				}
				et = lt.Element
			}
			if elemType == nil {
				elemType = et
			} else {
				elemType = &types.TUnion{Left: elemType, Right: et}
			}
		}
		if elemType == nil {
			elemType = &types.TAny{}
		}
		celem, err := canon(elemType, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.List{Node: n.Node, ElementType: celem, Elements: elems}, &types.TList{Element: celem}, nil

	case *hir.RecordConstruction:
		rec, ok := ctx.Records[n.RecordType]
		if !ok {
			return nil, nil, errAt(diag.UnknownRecordType, n.Pos(), "unknown record type %q", n.RecordType)
		}
		fields, err := inferFields(n.Fields, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(fields) != len(rec.Fields) {
			return nil, nil, errAt(diag.WrongFieldCount, n.Pos(), "record %q expects %d fields, got %d", n.RecordType, len(rec.Fields), len(fields))
		}
		return &hir.RecordConstruction{Node: n.Node, RecordType: n.RecordType, Fields: fields}, &types.TRecord{Name: n.RecordType}, nil

	case *hir.RecordDeconstruction:
		record, rt, err := inferExpr(n.Record, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		crt, err := canon(rt, ctx)
		if err != nil {
			return nil, nil, err
		}
		recType, ok := crt.(*types.TRecord)
		if !ok {
			return nil, nil, errAt(diag.UnknownRecordType, n.Pos(), "field access on non-record type %s", crt)
		}
		rec, ok := ctx.Records[recType.Name]
		if !ok {
			return nil, nil, errAt(diag.UnknownRecordType, n.Pos(), "unknown record type %q", recType.Name)
		}
		fieldType, ok := fieldType(rec, n.Field)
		if !ok {
			return nil, nil, errAt(diag.RecordFieldUnknown, n.Pos(), "record %q has no field %q", recType.Name, n.Field)
		}
		return &hir.RecordDeconstruction{Node: n.Node, RecordType: recType.Name, Record: record, Field: n.Field}, fieldType, nil

	case *hir.RecordUpdate:
		record, rt, err := inferExpr(n.Record, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		crt, err := canon(rt, ctx)
		if err != nil {
			return nil, nil, err
		}
		recType, ok := crt.(*types.TRecord)
		if !ok {
			return nil, nil, errAt(diag.UnknownRecordType, n.Pos(), "update on non-record type %s", crt)
		}
		fields, err := inferFields(n.Fields, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.RecordUpdate{Node: n.Node, RecordType: recType.Name, Record: record, Fields: fields}, recType, nil

	case *hir.Coerce:
		// Already-coerced input (re-running inference idempotently) — the
		// slot is already filled, just recurse into the wrapped argument.
		arg, _, err := inferExpr(n.Argument, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Coerce{Node: n.Node, From: n.From, To: n.To, Argument: arg}, n.To, nil

	default:
		return nil, nil, errAt(diag.TypeNotInferred, e.Pos(), "no inference rule for %T", e)
	}
}

func inferIfType(n *hir.IfType, env *types.Env, ctx *Context) (hir.Expr, types.Type, error) {
	scrutinee, st, err := inferExpr(n.Scrutinee, env, ctx)
	if err != nil {
		return nil, nil, err
	}
	cst, err := canon(st, ctx)
	if err != nil {
		return nil, nil, err
	}

	branches := make([]hir.TypeBranch, len(n.Branches))
	var joined types.Type
	var union types.Type
	for i, b := range n.Branches {
		bt, err := canon(b.Type, ctx)
		if err != nil {
			return nil, nil, err
		}
		branchEnv := env.Bind(n.ScrutineeName, bt)
		body, rt, err := inferExpr(b.Body, branchEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		branches[i] = hir.TypeBranch{Type: bt, Body: body}
		if joined == nil {
			joined = rt
		} else {
			joined = &types.TUnion{Left: joined, Right: rt}
		}
		if union == nil {
			union = bt
		} else {
			union = &types.TUnion{Left: union, Right: bt}
		}
	}

	var els *hir.ElseBranch
	if n.Else != nil {
		var residual types.Type = &types.TAny{}
		if union != nil {
			residual, err = types.Difference(cst, union, aliasEnv(ctx))
			if err != nil {
				return nil, nil, err
			}
		}
		if types.IsEmpty(residual) {
			return nil, nil, errAt(diag.UnreachableCode, n.Else.Body.Pos(), "else branch is unreachable: every case of %s is already covered", cst)
		}
		cstCanon, err := canon(cst, ctx)
		if err != nil {
			return nil, nil, err
		}
		if _, any := cstCanon.(*types.TAny); !any {
			if _, resAny := residual.(*types.TAny); resAny {
				return nil, nil, errAt(diag.UnionTypeExpected, n.Pos(), "if-type scrutinee %s is not a closed union", cst)
			}
		}
		elseEnv := env.Bind(n.ScrutineeName, residual)
		body, rt, err := inferExpr(n.Else.Body, elseEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		els = &hir.ElseBranch{ResidualType: residual, Body: body}
		if joined == nil {
			joined = rt
		} else {
			joined = &types.TUnion{Left: joined, Right: rt}
		}
	}

	cjoined, err := canon(joined, ctx)
	if err != nil {
		return nil, nil, err
	}
	return &hir.IfType{
		Node: n.Node, ScrutineeName: n.ScrutineeName, Scrutinee: scrutinee,
		Branches: branches, Else: els,
	}, cjoined, nil
}

func inferFields(fields []hir.FieldValue, env *types.Env, ctx *Context) ([]hir.FieldValue, error) {
	out := make([]hir.FieldValue, len(fields))
	for i, f := range fields {
		v, _, err := inferExpr(f.Value, env, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = hir.FieldValue{Name: f.Name, Value: v}
	}
	return out, nil
}

func fieldType(rec *hir.RecordDef, name string) (types.Type, bool) {
	for _, f := range rec.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func literalType(k hir.LiteralKind) types.Type {
	switch k {
	case hir.LiteralBoolean:
		return &types.TBoolean{}
	case hir.LiteralNumber:
		return &types.TNumber{}
	case hir.LiteralString:
		return &types.TString{}
	default:
		return &types.TNone{}
	}
}

// aliasEnv adapts ctx's alias table to the types.Environment interface
// Canonicalize/Difference/Subtype expect.
type aliasResolver struct{ aliases map[string]types.Type }

func (a aliasResolver) Resolve(name string) (types.Type, bool) {
	t, ok := a.aliases[name]
	return t, ok
}

func aliasEnv(ctx *Context) types.Environment {
	return aliasResolver{aliases: ctx.Aliases}
}

func canon(t types.Type, ctx *Context) (types.Type, error) {
	if t == nil {
		return nil, nil
	}
	return types.Canonicalize(t, aliasEnv(ctx))
}
