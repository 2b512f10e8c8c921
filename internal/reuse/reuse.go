// Package reuse implements the heap-reuse rewriter of section 4.10: an
// optional pass over the reference-count-annotated MIR that rewrites a
// freshly allocated record of the same shape as a just-dropped one into an
// in-place reuse of the freed block, avoiding a fresh heap allocation.
package reuse

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

// pool tracks, per record type name, the reuse tokens currently retained
// (freed but not yet reused) on the current evaluation path, in the order
// their originating Drop was encountered.
type pool struct {
	byType map[string][]string
}

func emptyPool() pool { return pool{byType: map[string][]string{}} }

func (p pool) clone() pool {
	np := pool{byType: make(map[string][]string, len(p.byType))}
	for k, v := range p.byType {
		np.byType[k] = append([]string(nil), v...)
	}
	return np
}

func (p pool) push(typeName, id string) pool {
	np := p.clone()
	np.byType[typeName] = append(np.byType[typeName], id)
	return np
}

func (p pool) pop(typeName string) (string, pool, bool) {
	ids := p.byType[typeName]
	if len(ids) == 0 {
		return "", p, false
	}
	np := p.clone()
	np.byType[typeName] = ids[:len(ids)-1]
	return ids[len(ids)-1], np, true
}

func (p pool) allIDs() []string {
	var out []string
	for _, ids := range p.byType {
		out = append(out, ids...)
	}
	sort.Strings(out)
	return out
}

func (p pool) idSet() map[string]bool {
	s := map[string]bool{}
	for _, ids := range p.byType {
		for _, id := range ids {
			s[id] = true
		}
	}
	return s
}

// intersect keeps only the tokens present, unconsumed, in every given
// pool — the only ones valid to carry forward past a join point, since a
// token reused on one path no longer exists there (section 4.9's If/Case
// join, applied here to retained heap blocks instead of moved variables).
func intersect(pools []pool) pool {
	if len(pools) == 0 {
		return emptyPool()
	}
	common := pools[0].idSet()
	for _, pl := range pools[1:] {
		s := pl.idSet()
		for id := range common {
			if !s[id] {
				delete(common, id)
			}
		}
	}
	out := emptyPool()
	for _, pl := range pools {
		for typeName, ids := range pl.byType {
			for _, id := range ids {
				if !common[id] {
					continue
				}
				dup := false
				for _, existing := range out.byType[typeName] {
					if existing == id {
						dup = true
						break
					}
				}
				if !dup {
					out.byType[typeName] = append(out.byType[typeName], id)
				}
			}
		}
	}
	return out
}

// discardIDs returns, sorted for determinism, every token present in
// branchPool but not carried forward in joined — the blocks this branch
// must free with an explicit DiscardHeap since no later point on this path
// will reuse them (section 4.10: "a branch that does not reach the reuse
// site").
func discardIDs(branchPool, joined pool) []string {
	allowed := joined.idSet()
	var out []string
	for _, id := range branchPool.allIDs() {
		if !allowed[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func wrapDiscard(expr mir.Expr, ids []string) mir.Expr {
	if len(ids) == 0 {
		return expr
	}
	return &mir.DiscardHeap{IDs: ids, Body: expr}
}

type rewriter struct {
	counters map[string]int
}

// Rewrite runs the heap-reuse pass over mod, which must already carry the
// clone/drop annotations of section 4.9.
func Rewrite(mod *mir.Module) *mir.Module {
	r := &rewriter{counters: map[string]int{}}
	out := &mir.Module{
		Records:     mod.Records,
		Foreign:     mod.Foreign,
		ForeignDefs: mod.ForeignDefs,
		FuncDecls:   mod.FuncDecls,
	}
	for _, d := range mod.FuncDefs {
		out.FuncDefs = append(out.FuncDefs, r.rewriteFuncDef(d))
	}
	return out
}

// rewriteFuncDef rewrites one function body and, since the function is
// about to return, discards any retained block that was never reused on
// the path actually taken.
func (r *rewriter) rewriteFuncDef(d *mir.FuncDef) *mir.FuncDef {
	body, final := r.rewrite(d.Body, emptyPool())
	body = wrapDiscard(body, final.allIDs())
	return &mir.FuncDef{
		Name: d.Name, Environment: d.Environment, Args: d.Args,
		Body: body, ResultType: d.ResultType, IsThunk: d.IsThunk,
	}
}

func (r *rewriter) newToken(typeName string) string {
	n := r.counters[typeName]
	r.counters[typeName] = n + 1
	h := fnv.New64a()
	_, _ = h.Write([]byte(typeName))
	return fmt.Sprintf("%x-%d", h.Sum64(), n)
}

func (r *rewriter) rewrite(e mir.Expr, p pool) (mir.Expr, pool) {
	switch n := e.(type) {
	case *mir.Literal, *mir.Variable:
		return n, p

	case *mir.Operation:
		right, p1 := r.rewrite(n.Right, p)
		left, p2 := r.rewrite(n.Left, p1)
		return &mir.Operation{ArithOp: n.ArithOp, OrderOp: n.OrderOp, Left: left, Right: right}, p2

	case *mir.If:
		cond, p1 := r.rewrite(n.Condition, p)
		thenE, pThen := r.rewrite(n.Then, p1)
		elseE, pElse := r.rewrite(n.Else, p1)
		joined := intersect([]pool{pThen, pElse})
		thenE = wrapDiscard(thenE, discardIDs(pThen, joined))
		elseE = wrapDiscard(elseE, discardIDs(pElse, joined))
		return &mir.If{Condition: cond, Then: thenE, Else: elseE}, joined

	case *mir.Case:
		return r.rewriteCase(n, p)

	case *mir.Let:
		bound, p1 := r.rewrite(n.Bound, p)
		body, p2 := r.rewrite(n.Body, p1)
		return &mir.Let{Binder: n.Binder, Type: n.Type, Bound: bound, Body: body}, p2

	case *mir.LetRecursive:
		newDef := r.rewriteFuncDef(n.Definition)
		body, p1 := r.rewrite(n.Body, p)
		return &mir.LetRecursive{Definition: newDef, Body: body}, p1

	case *mir.Call:
		args := make([]mir.Expr, len(n.Arguments))
		cur := p
		for i := len(n.Arguments) - 1; i >= 0; i-- {
			args[i], cur = r.rewrite(n.Arguments[i], cur)
		}
		fn, cur := r.rewrite(n.Function, cur)
		return &mir.Call{FunctionType: n.FunctionType, Function: fn, Arguments: args}, cur

	case *mir.Record:
		return r.rewriteRecord(n, p)

	case *mir.RecordField:
		rec, cur := r.rewrite(n.Record, p)
		return &mir.RecordField{RecordType: n.RecordType, Index: n.Index, Record: rec}, cur

	case *mir.RecordUpdate:
		fields := make([]mir.FieldUpdate, len(n.Fields))
		cur := p
		for i := len(n.Fields) - 1; i >= 0; i-- {
			var v mir.Expr
			v, cur = r.rewrite(n.Fields[i].Value, cur)
			fields[i] = mir.FieldUpdate{Index: n.Fields[i].Index, Value: v}
		}
		rec, cur := r.rewrite(n.Record, cur)
		return &mir.RecordUpdate{RecordType: n.RecordType, Record: rec, Fields: fields}, cur

	case *mir.Variant:
		payload, cur := r.rewrite(n.Payload, p)
		return &mir.Variant{PayloadType: n.PayloadType, Payload: payload}, cur

	case *mir.TryOperation:
		operand, p1 := r.rewrite(n.Operand, p)
		then, p2 := r.rewrite(n.Then, p1)
		return &mir.TryOperation{Operand: operand, SuccessBinder: n.SuccessBinder, SuccessType: n.SuccessType, Then: then}, p2

	case *mir.StringConcatenation:
		ops := make([]mir.Expr, len(n.Operands))
		cur := p
		for i := len(n.Operands) - 1; i >= 0; i-- {
			ops[i], cur = r.rewrite(n.Operands[i], cur)
		}
		return &mir.StringConcatenation{Operands: ops}, cur

	case *mir.Synchronize:
		expr, cur := r.rewrite(n.Expression, p)
		return &mir.Synchronize{Type: n.Type, Expression: expr}, cur

	case *mir.TypeInformationFunction:
		v, cur := r.rewrite(n.Variant, p)
		return &mir.TypeInformationFunction{Variant: v}, cur

	case *mir.Clone:
		body, cur := r.rewrite(n.Body, p)
		return &mir.Clone{Vars: n.Vars, Body: body}, cur

	case *mir.Drop:
		return r.rewriteDrop(n, p)

	default:
		panic(fmt.Sprintf("reuse: unhandled MIR expression %T", e))
	}
}

// rewriteRecord is the reuse site: a record literal of a type with an
// available retained block consumes that block instead of a fresh
// allocation (section 4.10).
func (r *rewriter) rewriteRecord(n *mir.Record, p pool) (mir.Expr, pool) {
	fields := make([]mir.Expr, len(n.Fields))
	cur := p
	for i := len(n.Fields) - 1; i >= 0; i-- {
		fields[i], cur = r.rewrite(n.Fields[i], cur)
	}
	literal := &mir.Record{RecordType: n.RecordType, Fields: fields}
	if id, next, ok := cur.pop(n.RecordType); ok {
		return &mir.ReuseRecord{ID: id, Literal: literal}, next
	}
	return literal, cur
}

// rewriteDrop is the block-freeing site: a dropped record-typed variable's
// block becomes available for reuse for the remainder of Body, wrapped in
// a RetainHeap around the originating Drop so the block stays alive until
// either a reuse site or a later DiscardHeap (section 4.10).
func (r *rewriter) rewriteDrop(n *mir.Drop, p pool) (mir.Expr, pool) {
	reuseMap := map[string]string{}
	startPool := p
	names := make([]string, 0, len(n.Vars))
	for name := range n.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec, ok := n.Vars[name].(mir.TRecord)
		if !ok {
			continue
		}
		id := r.newToken(rec.Name)
		reuseMap[name] = id
		startPool = startPool.push(rec.Name, id)
	}
	body, after := r.rewrite(n.Body, startPool)
	newDrop := &mir.Drop{Vars: n.Vars, Body: body}
	if len(reuseMap) == 0 {
		return newDrop, after
	}
	return &mir.RetainHeap{ReuseMap: reuseMap, Body: newDrop}, after
}

func (r *rewriter) rewriteCase(n *mir.Case, p pool) (mir.Expr, pool) {
	arg, p1 := r.rewrite(n.Argument, p)

	bodies := make([]mir.Expr, len(n.Alternatives))
	pools := make([]pool, len(n.Alternatives))
	for i, a := range n.Alternatives {
		bodies[i], pools[i] = r.rewrite(a.Body, p1)
	}
	var defBody mir.Expr
	var defPool pool
	if n.Default != nil {
		defBody, defPool = r.rewrite(n.Default.Body, p1)
	}

	all := append([]pool(nil), pools...)
	if n.Default != nil {
		all = append(all, defPool)
	}
	joined := intersect(all)

	alts := make([]mir.Alternative, len(n.Alternatives))
	for i, a := range n.Alternatives {
		alts[i] = mir.Alternative{Tags: a.Tags, Binder: a.Binder, Body: wrapDiscard(bodies[i], discardIDs(pools[i], joined))}
	}
	var def *mir.DefaultAlternative
	if n.Default != nil {
		def = &mir.DefaultAlternative{Binder: n.Default.Binder, Body: wrapDiscard(defBody, discardIDs(defPool, joined))}
	}
	return &mir.Case{Argument: arg, Alternatives: alts, Default: def}, joined
}
