// Package check implements the HIR type checker of section 4.4: the final
// single pass over a fully inferred and coerced module, verifying the
// typing rules hold and producing a structured diagnostic on the first
// violation found.
package check

import (
	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

const phase = "check"

// Check verifies mod, which must already be inferred and coerced.
func Check(mod *hir.Module) error {
	ctx := infer.NewContext(mod)

	if err := checkDuplicateFunctionNames(mod); err != nil {
		return err
	}
	if err := checkForeignExports(mod); err != nil {
		return err
	}
	if err := checkForeignSignatures(mod, ctx); err != nil {
		return err
	}

	root := ctx.GlobalEnv(mod)
	for _, d := range mod.FuncDefs {
		env := root
		for _, a := range d.Lambda.Args {
			env = env.Bind(a.Name, a.Type)
		}
		if _, err := checkExpr(d.Lambda.Body, env, ctx); err != nil {
			return err
		}
	}
	return nil
}

func checkExpr(e hir.Expr, env *types.Env, ctx *infer.Context) (types.Type, error) {
	switch n := e.(type) {
	case *hir.Literal:
		return literalType(n.Kind), nil

	case *hir.Variable:
		t, ok := env.Lookup(n.Name)
		if !ok {
			return nil, errAt(diag.UnboundVariable, n.Pos(), "unbound variable %q", n.Name)
		}
		return t, nil

	case *hir.Call:
		if n.FunctionType == nil {
			return nil, errAt(diag.FunctionExpected, n.Pos(), "call target has no function type")
		}
		if _, err := checkExpr(n.Function, env, ctx); err != nil {
			return nil, err
		}
		if len(n.Arguments) != len(n.FunctionType.Args) {
			return nil, errAt(diag.WrongArgumentCount, n.Pos(), "expected %d arguments, got %d", len(n.FunctionType.Args), len(n.Arguments))
		}
		for _, a := range n.Arguments {
			if _, err := checkExpr(a, env, ctx); err != nil {
				return nil, err
			}
		}
		return n.FunctionType.Result, nil

	case *hir.Arithmetic:
		if err := checkOperandType(n.Left, env, ctx, &types.TNumber{}); err != nil {
			return nil, err
		}
		if err := checkOperandType(n.Right, env, ctx, &types.TNumber{}); err != nil {
			return nil, err
		}
		return &types.TNumber{}, nil

	case *hir.Boolean:
		if err := checkOperandType(n.Left, env, ctx, &types.TBoolean{}); err != nil {
			return nil, err
		}
		if err := checkOperandType(n.Right, env, ctx, &types.TBoolean{}); err != nil {
			return nil, err
		}
		return &types.TBoolean{}, nil

	case *hir.Not:
		if err := checkOperandType(n.Operand, env, ctx, &types.TBoolean{}); err != nil {
			return nil, err
		}
		return &types.TBoolean{}, nil

	case *hir.Order:
		if err := checkOperandType(n.Left, env, ctx, &types.TNumber{}); err != nil {
			return nil, err
		}
		if err := checkOperandType(n.Right, env, ctx, &types.TNumber{}); err != nil {
			return nil, err
		}
		return &types.TBoolean{}, nil

	case *hir.Equality:
		if err := checkAnyFree(n.OperandType, n.Pos()); err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Left, env, ctx); err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Right, env, ctx); err != nil {
			return nil, err
		}
		return &types.TBoolean{}, nil

	case *hir.Try:
		if n.SuccessType == nil {
			return nil, errAt(diag.TypeNotInferred, n.Pos(), "try success type was never inferred")
		}
		if err := checkAnyFree(n.SuccessType, n.Pos()); err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Operand, env, ctx); err != nil {
			return nil, err
		}
		return n.SuccessType, nil

	case *hir.Thunk:
		if _, err := checkExpr(n.Body, env, ctx); err != nil {
			return nil, err
		}
		return &types.TFunction{Result: n.PayloadType}, nil

	case *hir.If:
		if _, err := checkExpr(n.Condition, env, ctx); err != nil {
			return nil, err
		}
		tt, err := checkExpr(n.Then, env, ctx)
		if err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Else, env, ctx); err != nil {
			return nil, err
		}
		return tt, nil

	case *hir.IfList:
		lt, err := checkExpr(n.List, env, ctx)
		if err != nil {
			return nil, err
		}
		clt, err := canon(lt, ctx)
		if err != nil {
			return nil, err
		}
		if _, ok := clt.(*types.TList); !ok {
			return nil, errAt(diag.ListExpected, n.Pos(), "if-list scrutinee has non-list type %s", clt)
		}
		thenEnv := env.Bind(n.HeadName, &types.TFunction{Result: n.ElementType}).Bind(n.RestName, &types.TList{Element: n.ElementType})
		tt, err := checkExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Else, env, ctx); err != nil {
			return nil, err
		}
		return tt, nil

	case *hir.IfMap:
		mt, err := checkExpr(n.Map, env, ctx)
		if err != nil {
			return nil, err
		}
		cmt, err := canon(mt, ctx)
		if err != nil {
			return nil, err
		}
		if _, ok := cmt.(*types.TMap); !ok {
			return nil, errAt(diag.MapExpected, n.Pos(), "if-map scrutinee has non-map type %s", cmt)
		}
		if _, err := checkExpr(n.Key, env, ctx); err != nil {
			return nil, err
		}
		thenEnv := env.Bind(n.ValueName, &types.TFunction{Result: n.ValueType}).Bind(n.RestName, &types.TMap{Key: n.KeyType, Value: n.ValueType})
		tt, err := checkExpr(n.Then, thenEnv, ctx)
		if err != nil {
			return nil, err
		}
		if _, err := checkExpr(n.Else, env, ctx); err != nil {
			return nil, err
		}
		return tt, nil

	case *hir.IfType:
		return checkIfType(n, env, ctx)

	case *hir.Let:
		bt, err := checkExpr(n.Bound, env, ctx)
		if err != nil {
			return nil, err
		}
		bodyEnv := env
		if n.Name != nil {
			bodyEnv = env.Bind(*n.Name, bt)
		}
		return checkExpr(n.Body, bodyEnv, ctx)

	case *hir.LambdaExpr:
		env2 := env
		for _, a := range n.Lambda.Args {
			env2 = env2.Bind(a.Name, a.Type)
		}
		if _, err := checkExpr(n.Lambda.Body, env2, ctx); err != nil {
			return nil, err
		}
		return lambdaType(n.Lambda), nil

	case *hir.List:
		if err := checkAnyFree(n.ElementType, n.Pos()); err != nil {
			return nil, err
		}
		for _, el := range n.Elements {
			if _, err := checkExpr(el.Value, env, ctx); err != nil {
				return nil, err
			}
		}
		return &types.TList{Element: n.ElementType}, nil

	case *hir.RecordConstruction:
		rec, ok := ctx.Records[n.RecordType]
		if !ok {
			return nil, errAt(diag.UnknownRecordType, n.Pos(), "unknown record type %q", n.RecordType)
		}
		if len(n.Fields) != len(rec.Fields) {
			return nil, errAt(diag.WrongFieldCount, n.Pos(), "record %q expects %d fields, got %d", n.RecordType, len(rec.Fields), len(n.Fields))
		}
		for _, f := range n.Fields {
			if _, ok := fieldType(rec, f.Name); !ok {
				return nil, errAt(diag.RecordFieldUnknown, n.Pos(), "record %q has no field %q", n.RecordType, f.Name)
			}
			if _, err := checkExpr(f.Value, env, ctx); err != nil {
				return nil, err
			}
		}
		return &types.TRecord{Name: n.RecordType}, nil

	case *hir.RecordDeconstruction:
		if _, err := checkExpr(n.Record, env, ctx); err != nil {
			return nil, err
		}
		rec, ok := ctx.Records[n.RecordType]
		if !ok {
			return nil, errAt(diag.UnknownRecordType, n.Pos(), "unknown record type %q", n.RecordType)
		}
		ft, ok := fieldType(rec, n.Field)
		if !ok {
			return nil, errAt(diag.RecordFieldUnknown, n.Pos(), "record %q has no field %q", n.RecordType, n.Field)
		}
		return ft, nil

	case *hir.RecordUpdate:
		if _, err := checkExpr(n.Record, env, ctx); err != nil {
			return nil, err
		}
		rec, ok := ctx.Records[n.RecordType]
		if !ok {
			return nil, errAt(diag.UnknownRecordType, n.Pos(), "unknown record type %q", n.RecordType)
		}
		for _, f := range n.Fields {
			if _, ok := fieldType(rec, f.Name); !ok {
				return nil, errAt(diag.RecordFieldUnknown, n.Pos(), "record %q has no field %q", n.RecordType, f.Name)
			}
			if _, err := checkExpr(f.Value, env, ctx); err != nil {
				return nil, err
			}
		}
		return &types.TRecord{Name: n.RecordType}, nil

	case *hir.Coerce:
		at, err := checkExpr(n.Argument, env, ctx)
		if err != nil {
			return nil, err
		}
		eq, err := types.Equal(at, n.From, aliasEnv(ctx))
		if err != nil {
			return nil, err
		}
		if !eq {
			return nil, diag.Mismatch(phase, diag.TypesNotMatched, n.Pos(), n.From, at, "coerce source annotation does not match argument's actual type")
		}
		eq, err = types.Equal(n.From, n.To, aliasEnv(ctx))
		if err != nil {
			return nil, err
		}
		if eq {
			return nil, errAt(diag.TypesNotMatched, n.Pos(), "redundant coerce from %s to an equal type", n.From)
		}
		return n.To, nil

	default:
		return nil, errAt(diag.TypeNotInferred, e.Pos(), "no check rule for %T", e)
	}
}

func checkIfType(n *hir.IfType, env *types.Env, ctx *infer.Context) (types.Type, error) {
	if _, err := checkExpr(n.Scrutinee, env, ctx); err != nil {
		return nil, err
	}
	var joined types.Type
	for i, b := range n.Branches {
		for j := i + 1; j < len(n.Branches); j++ {
			// Branches are disjoint iff removing the later branch's members
			// from the earlier one leaves the earlier one unchanged.
			rest, err := types.Difference(b.Type, n.Branches[j].Type, aliasEnv(ctx))
			if err != nil {
				return nil, err
			}
			disjoint, err := types.Equal(rest, b.Type, aliasEnv(ctx))
			if err != nil {
				return nil, err
			}
			if !disjoint {
				return nil, errAt(diag.TypeMismatch, n.Pos(), "if-type branches %d and %d overlap (%s, %s)", i, j, b.Type, n.Branches[j].Type)
			}
		}
		branchEnv := env.Bind(n.ScrutineeName, b.Type)
		bt, err := checkExpr(b.Body, branchEnv, ctx)
		if err != nil {
			return nil, err
		}
		if joined == nil {
			joined = bt
		}
	}
	if n.Else != nil {
		if n.Else.ResidualType != nil && types.IsEmpty(n.Else.ResidualType) {
			return nil, errAt(diag.UnreachableCode, n.Else.Body.Pos(), "if-type else branch is unreachable")
		}
		elseEnv := env.Bind(n.ScrutineeName, n.Else.ResidualType)
		bt, err := checkExpr(n.Else.Body, elseEnv, ctx)
		if err != nil {
			return nil, err
		}
		if joined == nil {
			joined = bt
		}
	}
	return joined, nil
}

func checkOperandType(e hir.Expr, env *types.Env, ctx *infer.Context, want types.Type) error {
	t, err := checkExpr(e, env, ctx)
	if err != nil {
		return err
	}
	eq, err := types.Equal(t, want, aliasEnv(ctx))
	if err != nil {
		return err
	}
	if !eq {
		return diag.Mismatch(phase, diag.TypeMismatch, e.Pos(), want, t, "operand has the wrong type")
	}
	return nil
}

func checkAnyFree(t types.Type, pos position.Position) error {
	if t == nil {
		return nil
	}
	for _, m := range unionMembers(t) {
		if _, ok := m.(*types.TAny); ok {
			if _, wholeIsAny := t.(*types.TAny); wholeIsAny {
				continue
			}
			return errAt(diag.TypeMismatch, pos, "union %s has Any as a member", t)
		}
	}
	return nil
}

func unionMembers(t types.Type) []types.Type {
	if u, ok := t.(*types.TUnion); ok {
		return append(unionMembers(u.Left), unionMembers(u.Right)...)
	}
	return []types.Type{t}
}

func checkDuplicateFunctionNames(mod *hir.Module) error {
	seen := map[string]position.Position{}
	for _, d := range mod.FuncDefs {
		if _, ok := seen[d.Name]; ok {
			return errAt(diag.DuplicateFunctionName, d.Pos, "function %q is already defined", d.Name)
		}
		seen[d.Name] = d.Pos
	}
	for _, d := range mod.FuncDecls {
		if _, ok := seen[d.Name]; ok {
			return errAt(diag.DuplicateFunctionName, d.Pos, "function %q is already defined", d.Name)
		}
		seen[d.Name] = d.Pos
	}
	return nil
}

func checkForeignExports(mod *hir.Module) error {
	declared := map[string]bool{}
	for _, f := range mod.Foreign {
		declared[f.Name] = true
	}
	for _, d := range mod.FuncDefs {
		if d.ForeignExport != nil && !declared[*d.ForeignExport] {
			return errAt(diag.ForeignDefinitionNotFound, d.Pos, "foreign export %q has no matching declaration", *d.ForeignExport)
		}
	}
	return nil
}

// checkForeignSignatures rejects a "c"-convention declaration whose
// signature contains a union type anywhere (section 6: the C ABI carries
// primitives and pointers only; unions and variants do not cross it).
func checkForeignSignatures(mod *hir.Module, ctx *infer.Context) error {
	for _, f := range mod.Foreign {
		if f.Convention != "c" || f.Signature == nil {
			continue
		}
		sig, err := canon(f.Signature, ctx)
		if err != nil {
			return err
		}
		if containsUnion(sig) {
			return errAt(diag.ForeignSignatureInvalid, f.Pos, "foreign declaration %q carries a union type under the c calling convention", f.Name)
		}
	}
	return nil
}

func containsUnion(t types.Type) bool {
	switch v := t.(type) {
	case *types.TUnion:
		return true
	case *types.TFunction:
		for _, a := range v.Args {
			if containsUnion(a) {
				return true
			}
		}
		return containsUnion(v.Result)
	case *types.TList:
		return containsUnion(v.Element)
	case *types.TMap:
		return containsUnion(v.Key) || containsUnion(v.Value)
	default:
		return false
	}
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

func errAt(code diag.Code, pos position.Position, format string, args ...interface{}) error {
	return diag.New(phase, code, pos, format, args...)
}
