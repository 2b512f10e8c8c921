// Package alpha implements the alpha conversion of section 4.7: every
// binder in the MIR is renamed so that, after conversion, distinct binders
// carry distinct names module-wide. Collisions are resolved by suffixing
// ":1", ":2", ... onto the original spelling.
package alpha

import (
	"fmt"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

// scope chains local_name -> fresh_name bindings the way internal/types.Env
// chains variable types, so a binder's rename is visible only inside its
// own scope.
type scope struct {
	names  map[string]string
	parent *scope
}

func (s *scope) child() *scope { return &scope{names: map[string]string{}, parent: s} }

func (s *scope) bind(local, fresh string) *scope {
	c := s.child()
	c.names[local] = fresh
	return c
}

func (s *scope) lookup(local string) string {
	for e := s; e != nil; e = e.parent {
		if f, ok := e.names[local]; ok {
			return f
		}
	}
	return local // unresolved names are left untouched (e.g. runtime helper calls)
}

// converter mints fresh names: the first mint of a given original spelling
// returns it unchanged; every subsequent mint of the same spelling appends
// the next suffix (section 4.7: "original, or original:k where k is the
// next suffix for original").
type converter struct {
	counter map[string]int
}

// Convert renames every binder in mod so that the module-wide invariant
// "distinct binders have distinct names" holds (section 4.7, section 8
// item 6). Top-level function names and foreign declarations are counted
// so that a local binder which would otherwise collide with one is
// renamed, but the top-level names themselves are left unchanged.
func Convert(mod *mir.Module) *mir.Module {
	c := &converter{counter: map[string]int{}}
	for _, d := range mod.FuncDecls {
		c.counter[d.Name] = 1
	}
	for _, d := range mod.FuncDefs {
		c.counter[d.Name] = 1
	}
	for _, f := range mod.Foreign {
		c.counter[f.Name] = 1
	}
	for _, f := range mod.ForeignDefs {
		c.counter[f.SourceName] = 1
	}

	out := &mir.Module{
		Records:     mod.Records,
		Foreign:     mod.Foreign,
		ForeignDefs: mod.ForeignDefs,
		FuncDecls:   mod.FuncDecls,
	}
	root := &scope{names: map[string]string{}}
	for _, d := range mod.FuncDefs {
		out.FuncDefs = append(out.FuncDefs, c.convertFuncDef(d, root))
	}
	return out
}

func (c *converter) mint(original string) string {
	n := c.counter[original]
	c.counter[original] = n + 1
	if n == 0 {
		return original
	}
	return fmt.Sprintf("%s:%d", original, n)
}

func (c *converter) convertFuncDef(d *mir.FuncDef, s *scope) *mir.FuncDef {
	env := make([]mir.Param, len(d.Environment))
	for i, p := range d.Environment {
		fresh := c.mint(p.Name)
		s = s.bind(p.Name, fresh)
		env[i] = mir.Param{Name: fresh, Type: p.Type}
	}
	args := make([]mir.Param, len(d.Args))
	for i, p := range d.Args {
		fresh := c.mint(p.Name)
		s = s.bind(p.Name, fresh)
		args[i] = mir.Param{Name: fresh, Type: p.Type}
	}
	return &mir.FuncDef{
		Name:        d.Name,
		Environment: env,
		Args:        args,
		Body:        c.convertExpr(d.Body, s),
		ResultType:  d.ResultType,
		IsThunk:     d.IsThunk,
	}
}

func (c *converter) convertExpr(e mir.Expr, s *scope) mir.Expr {
	switch n := e.(type) {
	case *mir.Literal:
		return n

	case *mir.Variable:
		return &mir.Variable{Name: s.lookup(n.Name)}

	case *mir.Operation:
		return &mir.Operation{
			ArithOp: n.ArithOp, OrderOp: n.OrderOp,
			Left: c.convertExpr(n.Left, s), Right: c.convertExpr(n.Right, s),
		}

	case *mir.If:
		return &mir.If{
			Condition: c.convertExpr(n.Condition, s),
			Then:      c.convertExpr(n.Then, s),
			Else:      c.convertExpr(n.Else, s),
		}

	case *mir.Case:
		return c.convertCase(n, s)

	case *mir.Let:
		bound := c.convertExpr(n.Bound, s)
		fresh := c.mint(n.Binder)
		inner := s.bind(n.Binder, fresh)
		return &mir.Let{Binder: fresh, Type: n.Type, Bound: bound, Body: c.convertExpr(n.Body, inner)}

	case *mir.LetRecursive:
		fresh := c.mint(n.Definition.Name)
		inner := s.bind(n.Definition.Name, fresh)
		def := c.convertFuncDef(n.Definition, inner)
		def.Name = fresh
		return &mir.LetRecursive{Definition: def, Body: c.convertExpr(n.Body, inner)}

	case *mir.Call:
		args := make([]mir.Expr, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = c.convertExpr(a, s)
		}
		return &mir.Call{FunctionType: n.FunctionType, Function: c.convertExpr(n.Function, s), Arguments: args}

	case *mir.Record:
		fields := make([]mir.Expr, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = c.convertExpr(f, s)
		}
		return &mir.Record{RecordType: n.RecordType, Fields: fields}

	case *mir.RecordField:
		return &mir.RecordField{RecordType: n.RecordType, Index: n.Index, Record: c.convertExpr(n.Record, s)}

	case *mir.RecordUpdate:
		fields := make([]mir.FieldUpdate, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = mir.FieldUpdate{Index: f.Index, Value: c.convertExpr(f.Value, s)}
		}
		return &mir.RecordUpdate{RecordType: n.RecordType, Record: c.convertExpr(n.Record, s), Fields: fields}

	case *mir.Variant:
		return &mir.Variant{PayloadType: n.PayloadType, Payload: c.convertExpr(n.Payload, s)}

	case *mir.TryOperation:
		operand := c.convertExpr(n.Operand, s)
		fresh := c.mint(n.SuccessBinder)
		inner := s.bind(n.SuccessBinder, fresh)
		return &mir.TryOperation{
			Operand: operand, SuccessBinder: fresh, SuccessType: n.SuccessType,
			Then: c.convertExpr(n.Then, inner),
		}

	case *mir.StringConcatenation:
		ops := make([]mir.Expr, len(n.Operands))
		for i, o := range n.Operands {
			ops[i] = c.convertExpr(o, s)
		}
		return &mir.StringConcatenation{Operands: ops}

	case *mir.Synchronize:
		return &mir.Synchronize{Type: n.Type, Expression: c.convertExpr(n.Expression, s)}

	case *mir.TypeInformationFunction:
		return &mir.TypeInformationFunction{Variant: c.convertExpr(n.Variant, s)}

	default:
		// Clone/Drop/RetainHeap/ReuseRecord/DiscardHeap are inserted by
		// later passes (4.9/4.10) and never appear in a tree reaching
		// alpha conversion (section 2, step 8 precedes step 10).
		panic(fmt.Sprintf("alpha: unhandled MIR expression %T", e))
	}
}

func (c *converter) convertCase(n *mir.Case, s *scope) *mir.Case {
	alts := make([]mir.Alternative, len(n.Alternatives))
	for i, a := range n.Alternatives {
		fresh := c.mint(a.Binder)
		inner := s.bind(a.Binder, fresh)
		alts[i] = mir.Alternative{Tags: a.Tags, Binder: fresh, Body: c.convertExpr(a.Body, inner)}
	}
	var def *mir.DefaultAlternative
	if n.Default != nil {
		fresh := c.mint(n.Default.Binder)
		inner := s.bind(n.Default.Binder, fresh)
		def = &mir.DefaultAlternative{Binder: fresh, Body: c.convertExpr(n.Default.Body, inner)}
	}
	return &mir.Case{Argument: c.convertExpr(n.Argument, s), Alternatives: alts, Default: def}
}
