// Package coerce implements the type coercer of section 4.3: a second
// bottom-up pass over an already-inferred HIR module that inserts an
// explicit Coerce node wherever a sub-expression's canonical type differs
// from the type expected by its context.
package coerce

import (
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Coerce runs the coercion pass over mod, which must already have been
// through internal/infer.Infer (every optional type slot filled).
func Coerce(mod *hir.Module) (*hir.Module, error) {
	ctx := infer.NewContext(mod)
	root := ctx.GlobalEnv(mod)

	out := &hir.Module{
		Records:   mod.Records,
		Aliases:   mod.Aliases,
		Foreign:   mod.Foreign,
		FuncDecls: mod.FuncDecls,
	}
	for _, d := range mod.FuncDefs {
		lambda, err := coerceLambda(d.Lambda, root, ctx)
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

func coerceLambda(l *hir.Lambda, env *types.Env, ctx *infer.Context) (*hir.Lambda, error) {
	bodyEnv := env
	for _, a := range l.Args {
		bodyEnv = bodyEnv.Bind(a.Name, a.Type)
	}
	body, bt, err := coerceExpr(l.Body, bodyEnv, ctx)
	if err != nil {
		return nil, err
	}
	wrapped, err := wrap(body, bt, l.ResultType, ctx)
	if err != nil {
		return nil, err
	}
	return &hir.Lambda{Args: l.Args, ResultType: l.ResultType, Body: wrapped, Pos: l.Pos}, nil
}

// coerceExpr rebuilds e, recursing first (leaves processed before their
// parents, per section 4.3's "coercions never nest" invariant) and
// returns the canonical type of the rebuilt expression, reading the
// optional slots internal/infer already filled rather than recomputing
// them.
func coerceExpr(e hir.Expr, env *types.Env, ctx *infer.Context) (hir.Expr, types.Type, error) {
	switch n := e.(type) {
	case *hir.Literal:
		return n, literalType(n.Kind), nil

	case *hir.Variable:
		t, ok := env.Lookup(n.Name)
		if !ok {
			t = &types.TAny{}
		}
		return n, t, nil

	case *hir.Call:
		fn, _, err := coerceExpr(n.Function, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		args := make([]hir.Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			av, at, err := coerceExpr(a, env, ctx)
			if err != nil {
				return nil, nil, err
			}
			var expected types.Type = &types.TAny{}
			if i < len(n.FunctionType.Args) {
				expected = n.FunctionType.Args[i]
			}
			w, err := wrap(av, at, expected, ctx)
			if err != nil {
				return nil, nil, err
			}
			args[i] = w
		}
		return &hir.Call{Node: n.Node, FunctionType: n.FunctionType, Function: fn, Arguments: args}, n.FunctionType.Result, nil

	case *hir.Arithmetic:
		left, _, err := coerceExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := coerceExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Arithmetic{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TNumber{}, nil

	case *hir.Boolean:
		left, _, err := coerceExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := coerceExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Boolean{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Not:
		operand, _, err := coerceExpr(n.Operand, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Not{Node: n.Node, Operand: operand}, &types.TBoolean{}, nil

	case *hir.Order:
		left, _, err := coerceExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, _, err := coerceExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Order{Node: n.Node, Op: n.Op, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Equality:
		left, lt, err := coerceExpr(n.Left, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, rt, err := coerceExpr(n.Right, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		left, err = wrap(left, lt, n.OperandType, ctx)
		if err != nil {
			return nil, nil, err
		}
		right, err = wrap(right, rt, n.OperandType, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Equality{Node: n.Node, OperandType: n.OperandType, Left: left, Right: right}, &types.TBoolean{}, nil

	case *hir.Try:
		operand, _, err := coerceExpr(n.Operand, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Try{Node: n.Node, SuccessType: n.SuccessType, Operand: operand}, n.SuccessType, nil

	case *hir.Thunk:
		body, bt, err := coerceExpr(n.Body, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		body, err = wrap(body, bt, n.PayloadType, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Thunk{Node: n.Node, PayloadType: n.PayloadType, Body: body}, &types.TFunction{Result: n.PayloadType}, nil

	case *hir.If:
		cond, _, err := coerceExpr(n.Condition, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		then, tt, err := coerceExpr(n.Then, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := coerceExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		then, err = wrap(then, tt, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, err = wrap(els, et, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.If{Node: n.Node, Condition: cond, Then: then, Else: els}, joined, nil

	case *hir.IfList:
		list, _, err := coerceExpr(n.List, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		thenEnv := env.Bind(n.HeadName, &types.TFunction{Result: n.ElementType}).Bind(n.RestName, &types.TList{Element: n.ElementType})
		then, tt, err := coerceExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := coerceExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		then, err = wrap(then, tt, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, err = wrap(els, et, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.IfList{
			Node: n.Node, ElementType: n.ElementType, List: list,
			HeadName: n.HeadName, RestName: n.RestName, Then: then, Else: els,
		}, joined, nil

	case *hir.IfMap:
		mp, _, err := coerceExpr(n.Map, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		key, _, err := coerceExpr(n.Key, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		thenEnv := env.Bind(n.ValueName, &types.TFunction{Result: n.ValueType}).Bind(n.RestName, &types.TMap{Key: n.KeyType, Value: n.ValueType})
		then, tt, err := coerceExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, et, err := coerceExpr(n.Else, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		joined, err := canon(&types.TUnion{Left: tt, Right: et}, ctx)
		if err != nil {
			return nil, nil, err
		}
		then, err = wrap(then, tt, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		els, err = wrap(els, et, joined, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.IfMap{
			Node: n.Node, KeyType: n.KeyType, ValueType: n.ValueType, Map: mp, Key: key,
			ValueName: n.ValueName, RestName: n.RestName, Then: then, Else: els,
		}, joined, nil

	case *hir.IfType:
		return coerceIfType(n, env, ctx)

	case *hir.Let:
		bound, _, err := coerceExpr(n.Bound, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		bodyEnv := env
		if n.Name != nil {
			bodyEnv = env.Bind(*n.Name, n.BoundType)
		}
		body, rt, err := coerceExpr(n.Body, bodyEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Let{Node: n.Node, Name: n.Name, BoundType: n.BoundType, Bound: bound, Body: body}, rt, nil

	case *hir.LambdaExpr:
		l, err := coerceLambda(n.Lambda, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.LambdaExpr{Node: n.Node, Lambda: l}, lambdaType(l), nil

	case *hir.List:
		elems := make([]hir.ListElement, len(n.Elements))
		for i, el := range n.Elements {
			v, vt, err := coerceExpr(el.Value, env, ctx)
			if err != nil {
				return nil, nil, err
			}
			expected := n.ElementType
			if el.Spread {
				expected = &types.TList{Element: n.ElementType}
			}
			w, err := wrap(v, vt, expected, ctx)
			if err != nil {
				return nil, nil, err
			}
			elems[i] = hir.ListElement{Spread: el.Spread, Value: w}
		}
		return &hir.List{Node: n.Node, ElementType: n.ElementType, Elements: elems}, &types.TList{Element: n.ElementType}, nil

	case *hir.RecordConstruction:
		fields, err := coerceFields(n.Fields, n.RecordType, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.RecordConstruction{Node: n.Node, RecordType: n.RecordType, Fields: fields}, &types.TRecord{Name: n.RecordType}, nil

	case *hir.RecordDeconstruction:
		record, _, err := coerceExpr(n.Record, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		rec := ctx.Records[n.RecordType]
		ft, _ := fieldType(rec, n.Field)
		return &hir.RecordDeconstruction{Node: n.Node, RecordType: n.RecordType, Record: record, Field: n.Field}, ft, nil

	case *hir.RecordUpdate:
		record, _, err := coerceExpr(n.Record, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		fields, err := coerceFields(n.Fields, n.RecordType, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.RecordUpdate{Node: n.Node, RecordType: n.RecordType, Record: record, Fields: fields}, &types.TRecord{Name: n.RecordType}, nil

	case *hir.Coerce:
		arg, _, err := coerceExpr(n.Argument, env, ctx)
		if err != nil {
			return nil, nil, err
		}
		return &hir.Coerce{Node: n.Node, From: n.From, To: n.To, Argument: arg}, n.To, nil

	default:
		return e, nil, nil
	}
}

func coerceIfType(n *hir.IfType, env *types.Env, ctx *infer.Context) (hir.Expr, types.Type, error) {
	scrutinee, _, err := coerceExpr(n.Scrutinee, env, ctx)
	if err != nil {
		return nil, nil, err
	}

	type branchResult struct {
		body hir.Expr
		t    types.Type
	}
	results := make([]branchResult, len(n.Branches))
	var joined types.Type
	for i, b := range n.Branches {
		branchEnv := env.Bind(n.ScrutineeName, b.Type)
		body, bt, err := coerceExpr(b.Body, branchEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		results[i] = branchResult{body: body, t: bt}
		if joined == nil {
			joined = bt
		} else {
			joined = &types.TUnion{Left: joined, Right: bt}
		}
	}

	var elseBody hir.Expr
	var elseType types.Type
	if n.Else != nil {
		elseEnv := env.Bind(n.ScrutineeName, n.Else.ResidualType)
		body, et, err := coerceExpr(n.Else.Body, elseEnv, ctx)
		if err != nil {
			return nil, nil, err
		}
		elseBody, elseType = body, et
		if joined == nil {
			joined = et
		} else {
			joined = &types.TUnion{Left: joined, Right: et}
		}
	}

	cjoined, err := canon(joined, ctx)
	if err != nil {
		return nil, nil, err
	}

	branches := make([]hir.TypeBranch, len(n.Branches))
	for i, b := range n.Branches {
		w, err := wrap(results[i].body, results[i].t, cjoined, ctx)
		if err != nil {
			return nil, nil, err
		}
		branches[i] = hir.TypeBranch{Type: b.Type, Body: w}
	}

	var els *hir.ElseBranch
	if n.Else != nil {
		w, err := wrap(elseBody, elseType, cjoined, ctx)
		if err != nil {
			return nil, nil, err
		}
		els = &hir.ElseBranch{ResidualType: n.Else.ResidualType, Body: w}
	}

	return &hir.IfType{
		Node: n.Node, ScrutineeName: n.ScrutineeName, Scrutinee: scrutinee,
		Branches: branches, Else: els,
	}, cjoined, nil
}

func coerceFields(fields []hir.FieldValue, recordType string, env *types.Env, ctx *infer.Context) ([]hir.FieldValue, error) {
	rec := ctx.Records[recordType]
	out := make([]hir.FieldValue, len(fields))
	for i, f := range fields {
		v, vt, err := coerceExpr(f.Value, env, ctx)
		if err != nil {
			return nil, err
		}
		declared, ok := fieldType(rec, f.Name)
		if !ok {
			declared = vt
		}
		w, err := wrap(v, vt, declared, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = hir.FieldValue{Name: f.Name, Value: w}
	}
	return out, nil
}

func fieldType(rec *hir.RecordDef, name string) (types.Type, bool) {
	if rec == nil {
		return nil, false
	}
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

func lambdaType(l *hir.Lambda) *types.TFunction {
	args := make([]types.Type, len(l.Args))
	for i, a := range l.Args {
		args[i] = a.Type
	}
	return &types.TFunction{Args: args, Result: l.ResultType}
}

type aliasResolver struct{ aliases map[string]types.Type }

func (a aliasResolver) Resolve(name string) (types.Type, bool) {
	t, ok := a.aliases[name]
	return t, ok
}

func aliasEnv(ctx *infer.Context) types.Environment {
	return aliasResolver{aliases: ctx.Aliases}
}

func canon(t types.Type, ctx *infer.Context) (types.Type, error) {
	if t == nil {
		return nil, nil
	}
	return types.Canonicalize(t, aliasEnv(ctx))
}

// wrap inserts coerce(from->to, e) unless from and to are canonically
// equal, and flattens a already-inserted coerce at e into a single
// coerce(original-from -> to, ...) rather than nesting (section 4.3:
// "coercions never nest").
func wrap(e hir.Expr, from, to types.Type, ctx *infer.Context) (hir.Expr, error) {
	if from == nil || to == nil {
		return e, nil
	}
	equal, err := types.Equal(from, to, aliasEnv(ctx))
	if err != nil {
		return nil, err
	}
	if equal {
		return e, nil
	}
	if c, ok := e.(*hir.Coerce); ok {
		return &hir.Coerce{Node: c.Node, From: c.From, To: to, Argument: c.Argument}, nil
	}
	return &hir.Coerce{Node: hir.NewNode(e.Pos()), From: from, To: to, Argument: e}, nil
}
