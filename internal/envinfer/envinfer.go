// Package envinfer implements the environment inference of section 4.8:
// for every local closure (`let-recursive`), the exact set of free
// variables its body captures is computed and recorded as an explicit,
// typed environment on the closure. Nested closures are resolved
// innermost-first, which falls out naturally here since free-variable
// computation is a bottom-up structural recursion.
package envinfer

import (
	"sort"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

// tenv is a chained name -> declared-type environment, extended at every
// binder the way internal/types.Env is for HIR inference.
type tenv struct {
	bindings map[string]mir.Type
	parent   *tenv
}

func (e *tenv) bind(name string, t mir.Type) *tenv {
	return &tenv{bindings: map[string]mir.Type{name: t}, parent: e}
}

func (e *tenv) lookup(name string) (mir.Type, bool) {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

type inferer struct {
	records map[string]bool // names of every record type defined in the module
}

// Infer fills in the Environment field of every let-recursive closure in
// mod. Top-level function definitions have no enclosing environment (they
// are not closures; they carry no free variables by construction since
// module-level names are never "free" per section 4.8), so their own
// Environment stays empty.
func Infer(mod *mir.Module) *mir.Module {
	inf := &inferer{records: map[string]bool{}}
	for _, r := range mod.Records {
		inf.records[r.Name] = true
	}
	out := &mir.Module{
		Records:     mod.Records,
		Foreign:     mod.Foreign,
		ForeignDefs: mod.ForeignDefs,
		FuncDecls:   mod.FuncDecls,
	}
	for _, d := range mod.FuncDefs {
		env := (*tenv)(nil)
		for _, a := range d.Args {
			env = env.bind(a.Name, a.Type)
		}
		out.FuncDefs = append(out.FuncDefs, &mir.FuncDef{
			Name:        d.Name,
			Environment: nil,
			Args:        d.Args,
			Body:        inf.walk(d.Body, env),
			ResultType:  d.ResultType,
			IsThunk:     d.IsThunk,
		})
	}
	return out
}

func (inf *inferer) walk(e mir.Expr, env *tenv) mir.Expr {
	switch n := e.(type) {
	case *mir.Literal, *mir.Variable:
		return n

	case *mir.Operation:
		return &mir.Operation{ArithOp: n.ArithOp, OrderOp: n.OrderOp, Left: inf.walk(n.Left, env), Right: inf.walk(n.Right, env)}

	case *mir.If:
		return &mir.If{Condition: inf.walk(n.Condition, env), Then: inf.walk(n.Then, env), Else: inf.walk(n.Else, env)}

	case *mir.Case:
		return inf.walkCase(n, env)

	case *mir.Let:
		bound := inf.walk(n.Bound, env)
		body := inf.walk(n.Body, env.bind(n.Binder, n.Type))
		return &mir.Let{Binder: n.Binder, Type: n.Type, Bound: bound, Body: body}

	case *mir.LetRecursive:
		return inf.walkLetRecursive(n, env)

	case *mir.Call:
		args := make([]mir.Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = inf.walk(a, env)
		}
		return &mir.Call{FunctionType: n.FunctionType, Function: inf.walk(n.Function, env), Arguments: args}

	case *mir.Record:
		fields := make([]mir.Expr, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = inf.walk(f, env)
		}
		return &mir.Record{RecordType: n.RecordType, Fields: fields}

	case *mir.RecordField:
		return &mir.RecordField{RecordType: n.RecordType, Index: n.Index, Record: inf.walk(n.Record, env)}

	case *mir.RecordUpdate:
		fields := make([]mir.FieldUpdate, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = mir.FieldUpdate{Index: f.Index, Value: inf.walk(f.Value, env)}
		}
		return &mir.RecordUpdate{RecordType: n.RecordType, Record: inf.walk(n.Record, env), Fields: fields}

	case *mir.Variant:
		return &mir.Variant{PayloadType: n.PayloadType, Payload: inf.walk(n.Payload, env)}

	case *mir.TryOperation:
		operand := inf.walk(n.Operand, env)
		then := inf.walk(n.Then, env.bind(n.SuccessBinder, n.SuccessType))
		return &mir.TryOperation{Operand: operand, SuccessBinder: n.SuccessBinder, SuccessType: n.SuccessType, Then: then}

	case *mir.StringConcatenation:
		ops := make([]mir.Expr, len(n.Operands))
		for i, o := range n.Operands {
			ops[i] = inf.walk(o, env)
		}
		return &mir.StringConcatenation{Operands: ops}

	case *mir.Synchronize:
		return &mir.Synchronize{Type: n.Type, Expression: inf.walk(n.Expression, env)}

	case *mir.TypeInformationFunction:
		return &mir.TypeInformationFunction{Variant: inf.walk(n.Variant, env)}

	default:
		return e
	}
}

func (inf *inferer) walkLetRecursive(n *mir.LetRecursive, env *tenv) *mir.LetRecursive {
	d := n.Definition
	argNames := map[string]bool{}
	for _, a := range d.Args {
		argNames[a.Name] = true
	}
	captured := freeVars(d.Body)
	for name := range argNames {
		delete(captured, name)
	}
	names := make([]string, 0, len(captured))
	for name := range captured {
		names = append(names, name)
	}
	sort.Strings(names)

	var params []mir.Param
	bodyEnv := env
	for _, a := range d.Args {
		bodyEnv = bodyEnv.bind(a.Name, a.Type)
	}
	for _, name := range names {
		// Global function/foreign names are never bound in env (section
		// 4.8: "Global function names are not considered free"), so a
		// miss here means the reference is to module scope, not capture.
		t, ok := env.lookup(name)
		if !ok {
			continue
		}
		params = append(params, mir.Param{Name: name, Type: t})
		bodyEnv = bodyEnv.bind(name, t)
	}

	newDef := &mir.FuncDef{
		Name:        d.Name,
		Environment: params,
		Args:        d.Args,
		Body:        inf.walk(d.Body, bodyEnv),
		ResultType:  d.ResultType,
		IsThunk:     d.IsThunk,
	}

	argTypes := make([]mir.Type, len(d.Args))
	for i, a := range d.Args {
		argTypes[i] = a.Type
	}
	selfEnv := env.bind(d.Name, &mir.TFunction{Args: argTypes, Result: d.ResultType})
	return &mir.LetRecursive{Definition: newDef, Body: inf.walk(n.Body, selfEnv)}
}

func (inf *inferer) walkCase(n *mir.Case, env *tenv) *mir.Case {
	arg := inf.walk(n.Argument, env)
	alts := make([]mir.Alternative, len(n.Alternatives))
	for i, a := range n.Alternatives {
		t := mir.TypeForTags(a.Tags, inf.records)
		alts[i] = mir.Alternative{Tags: a.Tags, Binder: a.Binder, Body: inf.walk(a.Body, env.bind(a.Binder, t))}
	}
	var def *mir.DefaultAlternative
	if n.Default != nil {
		// The default arm's residual type is, in general, a union of
		// whatever tags were not explicitly matched; this core has no
		// way to recover that precise residual at the MIR layer, so the
		// default binder is given the unconstrained top type. This only
		// affects diagnostic/debugging precision for a captured free
		// variable bound to a default arm, never soundness: refcount
		// annotation (section 4.9) and the MIR checker (section 4.11)
		// both treat every owned binder uniformly regardless of its
		// exact declared type.
		def = &mir.DefaultAlternative{Binder: n.Default.Binder, Body: inf.walk(n.Default.Body, env.bind(n.Default.Binder, mir.TVariant{Tag: "Any"}))}
	}
	return &mir.Case{Argument: arg, Alternatives: alts, Default: def}
}

// freeVars computes the set of variable names referenced in e that are not
// bound by a binder introduced within e itself. Since alpha conversion
// (section 4.7) has already run, every binder name is module-wide unique,
// so "not bound within e" is equivalent to "free with respect to e's
// enclosing scope."
func freeVars(e mir.Expr) map[string]bool {
	switch n := e.(type) {
	case *mir.Literal:
		return map[string]bool{}

	case *mir.Variable:
		return map[string]bool{n.Name: true}

	case *mir.Operation:
		return union(freeVars(n.Left), freeVars(n.Right))

	case *mir.If:
		return union(freeVars(n.Condition), freeVars(n.Then), freeVars(n.Else))

	case *mir.Case:
		out := freeVars(n.Argument)
		for _, a := range n.Alternatives {
			out = union(out, without(freeVars(a.Body), a.Binder))
		}
		if n.Default != nil {
			out = union(out, without(freeVars(n.Default.Body), n.Default.Binder))
		}
		return out

	case *mir.Let:
		return union(freeVars(n.Bound), without(freeVars(n.Body), n.Binder))

	case *mir.LetRecursive:
		inner := freeVars(n.Definition.Body)
		for _, a := range n.Definition.Args {
			delete(inner, a.Name)
		}
		return union(inner, without(freeVars(n.Body), n.Definition.Name))

	case *mir.Call:
		out := freeVars(n.Function)
		for _, a := range n.Arguments {
			out = union(out, freeVars(a))
		}
		return out

	case *mir.Record:
		out := map[string]bool{}
		for _, f := range n.Fields {
			out = union(out, freeVars(f))
		}
		return out

	case *mir.RecordField:
		return freeVars(n.Record)

	case *mir.RecordUpdate:
		out := freeVars(n.Record)
		for _, f := range n.Fields {
			out = union(out, freeVars(f.Value))
		}
		return out

	case *mir.Variant:
		return freeVars(n.Payload)

	case *mir.TryOperation:
		return union(freeVars(n.Operand), without(freeVars(n.Then), n.SuccessBinder))

	case *mir.StringConcatenation:
		out := map[string]bool{}
		for _, o := range n.Operands {
			out = union(out, freeVars(o))
		}
		return out

	case *mir.Synchronize:
		return freeVars(n.Expression)

	case *mir.TypeInformationFunction:
		return freeVars(n.Variant)

	default:
		return map[string]bool{}
	}
}

func union(sets ...map[string]bool) map[string]bool {
	out := map[string]bool{}
	for _, s := range sets {
		for k := range s {
			out[k] = true
		}
	}
	return out
}

func without(s map[string]bool, name string) map[string]bool {
	out := map[string]bool{}
	for k := range s {
		if k != name {
			out[k] = true
		}
	}
	return out
}
