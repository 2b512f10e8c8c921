// Package variants implements the variant-type collector of section 4.5:
// a walk over the fully checked HIR gathering every concrete Function,
// List, and Map type that appears in a variant-carrying position, each
// becoming one deterministically named MIR type definition.
package variants

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/mir"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Collection is the result of Collect: every distinct canonical
// Function/List/Map type found, keyed by its deterministic name.
type Collection struct {
	names map[string]string     // canonical type string -> deterministic name
	types map[string]types.Type // deterministic name -> canonical type
}

func newCollection() *Collection {
	return &Collection{names: map[string]string{}, types: map[string]types.Type{}}
}

// NameOf returns the deterministic name previously assigned to t, if t was
// collected.
func (c *Collection) NameOf(t types.Type) (string, bool) {
	n, ok := c.names[t.String()]
	return n, ok
}

// Names returns every collected name, sorted (section 4.5: "stable across
// runs").
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Collection) add(t types.Type) string {
	key := t.String()
	if n, ok := c.names[key]; ok {
		return n
	}
	n := Name(t)
	c.names[key] = n
	c.types[n] = t
	return n
}

// Name deterministically encodes a canonical type into an identifier-safe
// string, stable across runs since it is derived only from the type's own
// canonical string form.
func Name(t types.Type) string {
	prefix := "Type"
	switch t.(type) {
	case *types.TFunction:
		prefix = "Function"
	case *types.TList:
		prefix = "List"
	case *types.TMap:
		prefix = "Map"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(t.String()))
	return fmt.Sprintf("%s_%x", prefix, h.Sum64())
}

// RecordDefs builds one MIR record type definition per collected type, in
// deterministic name order.
func (c *Collection) RecordDefs() []*mir.RecordDef {
	names := c.Names()
	out := make([]*mir.RecordDef, len(names))
	for i, n := range names {
		out[i] = &mir.RecordDef{Name: n, Fields: payloadFields(c.types[n])}
	}
	return out
}

// payloadFields gives each synthesized variant-payload record a minimal,
// documented body: the boxed value's logical shape, not a literal runtime
// layout (lists/maps are opaque runtime handles at this layer; see
// DESIGN.md's "variant payload representation" decision).
func payloadFields(t types.Type) []mir.Type {
	switch v := t.(type) {
	case *types.TFunction:
		return []mir.Type{toMIR(v)}
	case *types.TList:
		return []mir.Type{toMIR(v.Element)}
	case *types.TMap:
		return []mir.Type{toMIR(v.Key), toMIR(v.Value)}
	default:
		return nil
	}
}

func toMIR(t types.Type) mir.Type {
	switch v := t.(type) {
	case *types.TNone:
		return mir.TNone{}
	case *types.TBoolean:
		return mir.TBoolean{}
	case *types.TNumber:
		return mir.TNumber{}
	case *types.TString:
		return mir.TString{}
	case *types.TRecord:
		return mir.TRecord{Name: v.Name}
	case *types.TFunction:
		args := make([]mir.Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = toMIR(a)
		}
		return &mir.TFunction{Args: args, Result: toMIR(v.Result)}
	default:
		// List, Map, Union, Any, Error, Reference: represented at this
		// layer by their deterministic tag; the defining record (if any)
		// is registered separately wherever it occupies a variant
		// position in its own right.
		return mir.TVariant{Tag: Name(t)}
	}
}

// Collect walks every function body in mod and gathers the variant-eligible
// types occurring in if-type branches, equality operands, try success
// types, and list/map element/key/value types.
func Collect(mod *hir.Module) (*Collection, error) {
	ctx := infer.NewContext(mod)
	c := newCollection()
	root := ctx.GlobalEnv(mod)
	for _, d := range mod.FuncDefs {
		env := root
		for _, a := range d.Lambda.Args {
			env = env.Bind(a.Name, a.Type)
		}
		if _, err := walk(d.Lambda.Body, env, ctx, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func collectIfQualifying(c *Collection, t types.Type) {
	if t == nil {
		return
	}
	switch t.(type) {
	case *types.TFunction, *types.TList, *types.TMap:
		c.add(t)
	}
}

// walk mirrors internal/check's structural recursion but, rather than
// validating, records every qualifying type it passes through and returns
// the expression's own type so callers can continue the walk.
func walk(e hir.Expr, env *types.Env, ctx *infer.Context, c *Collection) (types.Type, error) {
	switch n := e.(type) {
	case *hir.Literal:
		return literalType(n.Kind), nil
	case *hir.Variable:
		t, _ := env.Lookup(n.Name)
		return t, nil
	case *hir.Call:
		if _, err := walk(n.Function, env, ctx, c); err != nil {
			return nil, err
		}
		for _, a := range n.Arguments {
			if _, err := walk(a, env, ctx, c); err != nil {
				return nil, err
			}
		}
		if n.FunctionType != nil {
			return n.FunctionType.Result, nil
		}
		return nil, nil
	case *hir.Arithmetic:
		walk(n.Left, env, ctx, c)
		walk(n.Right, env, ctx, c)
		return &types.TNumber{}, nil
	case *hir.Boolean:
		walk(n.Left, env, ctx, c)
		walk(n.Right, env, ctx, c)
		return &types.TBoolean{}, nil
	case *hir.Not:
		walk(n.Operand, env, ctx, c)
		return &types.TBoolean{}, nil
	case *hir.Order:
		walk(n.Left, env, ctx, c)
		walk(n.Right, env, ctx, c)
		return &types.TBoolean{}, nil
	case *hir.Equality:
		collectIfQualifying(c, n.OperandType)
		walk(n.Left, env, ctx, c)
		walk(n.Right, env, ctx, c)
		return &types.TBoolean{}, nil
	case *hir.Try:
		collectIfQualifying(c, n.SuccessType)
		walk(n.Operand, env, ctx, c)
		return n.SuccessType, nil
	case *hir.Thunk:
		walk(n.Body, env, ctx, c)
		return &types.TFunction{Result: n.PayloadType}, nil
	case *hir.If:
		walk(n.Condition, env, ctx, c)
		tt, _ := walk(n.Then, env, ctx, c)
		walk(n.Else, env, ctx, c)
		return tt, nil
	case *hir.IfList:
		collectIfQualifying(c, n.ElementType)
		walk(n.List, env, ctx, c)
		thenEnv := env.Bind(n.HeadName, &types.TFunction{Result: n.ElementType}).Bind(n.RestName, &types.TList{Element: n.ElementType})
		tt, _ := walk(n.Then, thenEnv, ctx, c)
		walk(n.Else, env, ctx, c)
		return tt, nil
	case *hir.IfMap:
		collectIfQualifying(c, n.KeyType)
		collectIfQualifying(c, n.ValueType)
		walk(n.Map, env, ctx, c)
		walk(n.Key, env, ctx, c)
		thenEnv := env.Bind(n.ValueName, &types.TFunction{Result: n.ValueType}).Bind(n.RestName, &types.TMap{Key: n.KeyType, Value: n.ValueType})
		tt, _ := walk(n.Then, thenEnv, ctx, c)
		walk(n.Else, env, ctx, c)
		return tt, nil
	case *hir.IfType:
		walk(n.Scrutinee, env, ctx, c)
		var joined types.Type
		for _, b := range n.Branches {
			collectIfQualifying(c, b.Type)
			branchEnv := env.Bind(n.ScrutineeName, b.Type)
			bt, _ := walk(b.Body, branchEnv, ctx, c)
			if joined == nil {
				joined = bt
			}
		}
		if n.Else != nil {
			elseEnv := env.Bind(n.ScrutineeName, n.Else.ResidualType)
			bt, _ := walk(n.Else.Body, elseEnv, ctx, c)
			if joined == nil {
				joined = bt
			}
		}
		return joined, nil
	case *hir.Let:
		bt, _ := walk(n.Bound, env, ctx, c)
		bodyEnv := env
		if n.Name != nil {
			bodyEnv = env.Bind(*n.Name, bt)
		}
		return walk(n.Body, bodyEnv, ctx, c)
	case *hir.LambdaExpr:
		env2 := env
		for _, a := range n.Lambda.Args {
			env2 = env2.Bind(a.Name, a.Type)
		}
		walk(n.Lambda.Body, env2, ctx, c)
		return lambdaType(n.Lambda), nil
	case *hir.List:
		collectIfQualifying(c, n.ElementType)
		for _, el := range n.Elements {
			walk(el.Value, env, ctx, c)
		}
		return &types.TList{Element: n.ElementType}, nil
	case *hir.RecordConstruction:
		for _, f := range n.Fields {
			walk(f.Value, env, ctx, c)
		}
		return &types.TRecord{Name: n.RecordType}, nil
	case *hir.RecordDeconstruction:
		walk(n.Record, env, ctx, c)
		rec := ctx.Records[n.RecordType]
		ft, _ := fieldType(rec, n.Field)
		return ft, nil
	case *hir.RecordUpdate:
		walk(n.Record, env, ctx, c)
		for _, f := range n.Fields {
			walk(f.Value, env, ctx, c)
		}
		return &types.TRecord{Name: n.RecordType}, nil
	case *hir.Coerce:
		walk(n.Argument, env, ctx, c)
		return n.To, nil
	default:
		return nil, nil
	}
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
