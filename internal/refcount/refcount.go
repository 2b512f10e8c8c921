// Package refcount implements the reference-count annotator of section
// 4.9, the core algorithm of the pipeline: it inserts clone/drop nodes so
// that every owned variable is consumed exactly once on every control-flow
// path, analysing the alpha-converted, environment-inferred MIR bottom-up
// while threading, in evaluation order, the set of variables already moved
// on the current path.
package refcount

import (
	"sort"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

// tenv is a chained name -> declared-type environment, mirroring
// internal/envinfer's, used here to recover the type of an already-bound
// owned variable when building a Clone or Drop node.
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

// moved is the set of owned variables consumed so far on the current
// evaluation path. It is passed by value (a fresh map) at every branch
// point so sibling branches never see each other's moves.
type moved map[string]bool

func (m moved) has(name string) bool { return m[name] }

func (m moved) with(name string) moved {
	out := make(moved, len(m)+1)
	for k := range m {
		out[k] = true
	}
	out[name] = true
	return out
}

func (m moved) union(other moved) moved {
	out := make(moved, len(m)+len(other))
	for k := range m {
		out[k] = true
	}
	for k := range other {
		out[k] = true
	}
	return out
}

func (m moved) without(name string) moved {
	if !m[name] {
		return m
	}
	out := make(moved, len(m))
	for k := range m {
		if k != name {
			out[k] = true
		}
	}
	return out
}

// isOwned reports whether a value of type t is reference-counted (section
// 3.4/4.9: "records, lists, maps, strings, variants, closures; primitives
// are by-value copies"). Lists and maps are represented in this core's MIR
// as synthesized Cons/Entry records (internal/lower), so TRecord already
// covers them.
func isOwned(t mir.Type) bool {
	switch t.(type) {
	case mir.TString, mir.TRecord, mir.TVariant, *mir.TFunction:
		return true
	default:
		return false
	}
}

type annotator struct {
	records map[string]bool
	foreign map[string]bool
}

// Annotate inserts clone/drop/synchronize nodes into every function
// definition of mod (section 4.9). mod must already be alpha-converted
// (section 4.7) and environment-inferred (section 4.8).
func Annotate(mod *mir.Module) *mir.Module {
	ann := &annotator{records: map[string]bool{}, foreign: map[string]bool{}}
	for _, r := range mod.Records {
		ann.records[r.Name] = true
	}
	for _, f := range mod.Foreign {
		ann.foreign[f.Name] = true
	}
	out := &mir.Module{
		Records:     mod.Records,
		Foreign:     mod.Foreign,
		ForeignDefs: mod.ForeignDefs,
		FuncDecls:   mod.FuncDecls,
	}
	for _, d := range mod.FuncDefs {
		out.FuncDefs = append(out.FuncDefs, ann.annotateFuncDef(d))
	}
	return out
}

// annotateFuncDef runs the bottom-up pass over one function body, then
// drops every owned argument/environment variable the body left unmoved
// (section 4.9: "if not moved by the body, drop them before returning").
func (ann *annotator) annotateFuncDef(d *mir.FuncDef) *mir.FuncDef {
	var env *tenv
	for _, p := range d.Environment {
		env = env.bind(p.Name, p.Type)
	}
	for _, p := range d.Args {
		env = env.bind(p.Name, p.Type)
	}
	body, m := ann.process(d.Body, env, moved{})

	unused := map[string]mir.Type{}
	for _, p := range d.Environment {
		if isOwned(p.Type) && !m.has(p.Name) {
			unused[p.Name] = p.Type
		}
	}
	for _, p := range d.Args {
		if isOwned(p.Type) && !m.has(p.Name) {
			unused[p.Name] = p.Type
		}
	}
	if len(unused) > 0 {
		body = &mir.Drop{Vars: unused, Body: body}
	}
	return &mir.FuncDef{
		Name: d.Name, Environment: d.Environment, Args: d.Args,
		Body: body, ResultType: d.ResultType, IsThunk: d.IsThunk,
	}
}

func (ann *annotator) process(e mir.Expr, env *tenv, m moved) (mir.Expr, moved) {
	switch n := e.(type) {
	case *mir.Literal:
		return n, m

	case *mir.Variable:
		t, ok := env.lookup(n.Name)
		if !ok || !isOwned(t) {
			return n, m
		}
		if m.has(n.Name) {
			return &mir.Clone{Vars: map[string]mir.Type{n.Name: t}, Body: &mir.Variable{Name: n.Name}}, m
		}
		return n, m.with(n.Name)

	case *mir.Operation:
		// Binary operations evaluate right-to-left (section 4.9): the
		// right operand is analysed first and preferentially moves a
		// shared variable, leaving the left operand to clone.
		right, m1 := ann.process(n.Right, env, m)
		left, m2 := ann.process(n.Left, env, m1)
		return &mir.Operation{ArithOp: n.ArithOp, OrderOp: n.OrderOp, Left: left, Right: right}, m2

	case *mir.If:
		cond, m1 := ann.process(n.Condition, env, m)
		thenE, mThen := ann.process(n.Then, env, m1)
		elseE, mElse := ann.process(n.Else, env, m1)
		joined := mThen.union(mElse)
		thenE = ann.dropDiff(thenE, joined, mThen, env)
		elseE = ann.dropDiff(elseE, joined, mElse, env)
		return &mir.If{Condition: cond, Then: thenE, Else: elseE}, joined

	case *mir.Case:
		return ann.processCase(n, env, m)

	case *mir.Let:
		return ann.processLet(n, env, m)

	case *mir.LetRecursive:
		return ann.processLetRecursive(n, env, m)

	case *mir.Call:
		// Function and arguments: evaluate right-to-left, arguments first
		// (last to first), the called function expression last.
		args := make([]mir.Expr, len(n.Arguments))
		cur := m
		for i := len(n.Arguments) - 1; i >= 0; i-- {
			args[i], cur = ann.process(n.Arguments[i], env, cur)
		}
		fn, cur := ann.process(n.Function, env, cur)
		ann.synchronizeForeignArgs(n, args)
		return &mir.Call{FunctionType: n.FunctionType, Function: fn, Arguments: args}, cur

	case *mir.Record:
		fields := make([]mir.Expr, len(n.Fields))
		cur := m
		for i := len(n.Fields) - 1; i >= 0; i-- {
			fields[i], cur = ann.process(n.Fields[i], env, cur)
		}
		return &mir.Record{RecordType: n.RecordType, Fields: fields}, cur

	case *mir.RecordField:
		rec, cur := ann.process(n.Record, env, m)
		return &mir.RecordField{RecordType: n.RecordType, Index: n.Index, Record: rec}, cur

	case *mir.RecordUpdate:
		fields := make([]mir.FieldUpdate, len(n.Fields))
		cur := m
		for i := len(n.Fields) - 1; i >= 0; i-- {
			var v mir.Expr
			v, cur = ann.process(n.Fields[i].Value, env, cur)
			fields[i] = mir.FieldUpdate{Index: n.Fields[i].Index, Value: v}
		}
		rec, cur := ann.process(n.Record, env, cur)
		return &mir.RecordUpdate{RecordType: n.RecordType, Record: rec, Fields: fields}, cur

	case *mir.Variant:
		payload, cur := ann.process(n.Payload, env, m)
		return &mir.Variant{PayloadType: n.PayloadType, Payload: payload}, cur

	case *mir.TryOperation:
		return ann.processTry(n, env, m)

	case *mir.StringConcatenation:
		ops := make([]mir.Expr, len(n.Operands))
		cur := m
		for i := len(n.Operands) - 1; i >= 0; i-- {
			ops[i], cur = ann.process(n.Operands[i], env, cur)
		}
		return &mir.StringConcatenation{Operands: ops}, cur

	case *mir.Synchronize:
		expr, cur := ann.process(n.Expression, env, m)
		return &mir.Synchronize{Type: n.Type, Expression: expr}, cur

	case *mir.TypeInformationFunction:
		v, cur := ann.process(n.Variant, env, m)
		return &mir.TypeInformationFunction{Variant: v}, cur

	default:
		return e, m
	}
}

// synchronizeForeignArgs wraps each owned argument of a call to a
// foreign-declared function in a Synchronize node (section 5: refcount
// operations on a value crossing a foreign-call argument boundary must be
// atomic from that point on).
func (ann *annotator) synchronizeForeignArgs(call *mir.Call, args []mir.Expr) {
	v, ok := call.Function.(*mir.Variable)
	if !ok || !ann.foreign[v.Name] || call.FunctionType == nil {
		return
	}
	for i := range args {
		if i >= len(call.FunctionType.Args) {
			break
		}
		if t := call.FunctionType.Args[i]; isOwned(t) {
			args[i] = &mir.Synchronize{Type: t, Expression: args[i]}
		}
	}
}

// dropDiff wraps branchExpr with a Drop of every variable present in the
// joined moved-set but absent from that branch's own moved-set, so both
// arms of a conditional leave the same set of consumed owned variables
// before the values join (section 4.9's If/Case rule).
func (ann *annotator) dropDiff(branchExpr mir.Expr, joined, own moved, env *tenv) mir.Expr {
	vars := map[string]mir.Type{}
	names := make([]string, 0)
	for name := range joined {
		if !own[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return branchExpr
	}
	sort.Strings(names)
	for _, name := range names {
		if t, ok := env.lookup(name); ok {
			vars[name] = t
		}
	}
	return &mir.Drop{Vars: vars, Body: branchExpr}
}

func (ann *annotator) processLet(n *mir.Let, env *tenv, m moved) (mir.Expr, moved) {
	bound, m1 := ann.process(n.Bound, env, m)
	bodyEnv := env.bind(n.Binder, n.Type)
	body, m2 := ann.process(n.Body, bodyEnv, m1)
	if isOwned(n.Type) && !m2.has(n.Binder) {
		body = &mir.Drop{Vars: map[string]mir.Type{n.Binder: n.Type}, Body: body}
	}
	return &mir.Let{Binder: n.Binder, Type: n.Type, Bound: bound, Body: body}, m2.without(n.Binder)
}

func (ann *annotator) processTry(n *mir.TryOperation, env *tenv, m moved) (mir.Expr, moved) {
	operand, m1 := ann.process(n.Operand, env, m)
	thenEnv := env.bind(n.SuccessBinder, n.SuccessType)
	then, m2 := ann.process(n.Then, thenEnv, m1)
	// The error-tagged path returns the operand's variant unchanged
	// through the enclosing function (internal/lower's Try row) without
	// binding SuccessBinder at all, so it never owns a copy to drop on
	// that path; dropping the success binder only applies to the
	// success path modeled here when Then leaves it unconsumed.
	if isOwned(n.SuccessType) && !m2.has(n.SuccessBinder) {
		then = &mir.Drop{Vars: map[string]mir.Type{n.SuccessBinder: n.SuccessType}, Body: then}
	}
	return &mir.TryOperation{Operand: operand, SuccessBinder: n.SuccessBinder, SuccessType: n.SuccessType, Then: then},
		m2.without(n.SuccessBinder)
}

func (ann *annotator) processCase(n *mir.Case, env *tenv, m moved) (mir.Expr, moved) {
	arg, m1 := ann.process(n.Argument, env, m)

	type branch struct {
		expr mir.Expr
		own  moved
	}
	branches := make([]branch, 0, len(n.Alternatives)+1)
	alts := make([]mir.Alternative, len(n.Alternatives))
	for i, a := range n.Alternatives {
		t := mir.TypeForTags(a.Tags, ann.records)
		altEnv := env.bind(a.Binder, t)
		body, mb := ann.process(a.Body, altEnv, m1)
		if isOwned(t) && !mb.has(a.Binder) {
			body = &mir.Drop{Vars: map[string]mir.Type{a.Binder: t}, Body: body}
		}
		prop := mb.without(a.Binder)
		alts[i] = mir.Alternative{Tags: a.Tags, Binder: a.Binder, Body: body}
		branches = append(branches, branch{expr: body, own: prop})
	}
	var def *mir.DefaultAlternative
	if n.Default != nil {
		t := mir.TVariant{Tag: "Any"}
		defEnv := env.bind(n.Default.Binder, t)
		body, mb := ann.process(n.Default.Body, defEnv, m1)
		if isOwned(t) && !mb.has(n.Default.Binder) {
			body = &mir.Drop{Vars: map[string]mir.Type{n.Default.Binder: t}, Body: body}
		}
		prop := mb.without(n.Default.Binder)
		def = &mir.DefaultAlternative{Binder: n.Default.Binder, Body: body}
		branches = append(branches, branch{expr: body, own: prop})
	}

	joined := moved{}
	for _, b := range branches {
		joined = joined.union(b.own)
	}
	idx := 0
	for i := range alts {
		alts[i].Body = ann.dropDiff(branches[idx].expr, joined, branches[idx].own, env)
		idx++
	}
	if def != nil {
		def.Body = ann.dropDiff(branches[idx].expr, joined, branches[idx].own, env)
	}
	return &mir.Case{Argument: arg, Alternatives: alts, Default: def}, joined
}

// processLetRecursive handles closure creation (section 4.9): the nested
// function body is analysed as its own function-level pass (owned
// arguments/environment dropped if unused at its own return), then every
// captured environment variable is cloned at the point of closure creation
// so the closure retains an owned copy while the enclosing scope's
// variable remains available.
func (ann *annotator) processLetRecursive(n *mir.LetRecursive, env *tenv, m moved) (mir.Expr, moved) {
	newDef := ann.annotateFuncDef(n.Definition)

	argTypes := make([]mir.Type, len(newDef.Args))
	for i, a := range newDef.Args {
		argTypes[i] = a.Type
	}
	closureType := &mir.TFunction{Args: argTypes, Result: newDef.ResultType}
	bodyEnv := env.bind(newDef.Name, closureType)
	body, m1 := ann.process(n.Body, bodyEnv, m)
	if isOwned(closureType) && !m1.has(newDef.Name) {
		body = &mir.Drop{Vars: map[string]mir.Type{newDef.Name: closureType}, Body: body}
	}

	result := mir.Expr(&mir.LetRecursive{Definition: newDef, Body: body})
	cloneVars := map[string]mir.Type{}
	for _, p := range newDef.Environment {
		if isOwned(p.Type) {
			cloneVars[p.Name] = p.Type
		}
	}
	if len(cloneVars) > 0 {
		result = &mir.Clone{Vars: cloneVars, Body: result}
	}
	return result, m1.without(newDef.Name)
}
