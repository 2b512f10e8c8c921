// Package mircheck implements the MIR type checker of section 4.11: the
// final, stricter soundness pass run after reference-count annotation and
// heap-reuse rewriting, enforcing the invariants a correct upstream
// pipeline should already guarantee (section 7: a violation found here is
// an internal-consistency bug, reported as TypesNotMatched where the
// violation is a genuine type mismatch rather than a structural one).
package mircheck

import (
	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/mir"
	"github.com/pen-lang/pen-sub002/internal/position"
)

const phase = "mircheck"

// tenv is a chained name -> declared-type environment.
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

type checker struct {
	records map[string]*mir.RecordDef
	funcs   map[string]bool // declared or defined top-level function names
	globals *tenv           // module-scope bindings every function body can see
}

// Check verifies mod, which must already be alpha-converted, environment-
// inferred, reference-counted, and (optionally) heap-reuse rewritten.
func Check(mod *mir.Module) error {
	c := &checker{records: map[string]*mir.RecordDef{}, funcs: map[string]bool{}}
	for _, r := range mod.Records {
		c.records[r.Name] = r
	}
	for _, d := range mod.FuncDecls {
		c.funcs[d.Name] = true
		c.globals = c.globals.bind(d.Name, d.Type)
	}
	for _, f := range mod.Foreign {
		c.funcs[f.Name] = true
		c.globals = c.globals.bind(f.Name, f.Signature)
	}
	for _, d := range mod.FuncDefs {
		c.funcs[d.Name] = true
		argTypes := make([]mir.Type, len(d.Args))
		for i, a := range d.Args {
			argTypes[i] = a.Type
		}
		c.globals = c.globals.bind(d.Name, &mir.TFunction{Args: argTypes, Result: d.ResultType})
	}
	for _, fd := range mod.ForeignDefs {
		if !c.funcs[fd.SourceName] {
			return errAt(diag.ForeignDefinitionNotFound, position.Position{}, "foreign definition %q has no matching declaration or definition", fd.SourceName)
		}
	}
	for _, d := range mod.FuncDefs {
		if err := c.checkFuncDef(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkFuncDef(d *mir.FuncDef) error {
	env := c.globals
	for _, p := range d.Environment {
		env = env.bind(p.Name, p.Type)
	}
	for _, p := range d.Args {
		env = env.bind(p.Name, p.Type)
	}
	_, err := c.checkExpr(d.Body, env)
	return err
}

func (c *checker) checkExpr(e mir.Expr, env *tenv) (mir.Type, error) {
	switch n := e.(type) {
	case *mir.Literal:
		return literalType(n.Kind), nil

	case *mir.Variable:
		t, ok := env.lookup(n.Name)
		if !ok {
			return nil, errAt(diag.VariableOutOfScope, position.Position{}, "variable %q is out of scope", n.Name)
		}
		return t, nil

	case *mir.Operation:
		if _, err := c.checkExpr(n.Left, env); err != nil {
			return nil, err
		}
		if _, err := c.checkExpr(n.Right, env); err != nil {
			return nil, err
		}
		if n.OrderOp != nil {
			return mir.TBoolean{}, nil
		}
		return mir.TNumber{}, nil

	case *mir.If:
		if _, err := c.checkExpr(n.Condition, env); err != nil {
			return nil, err
		}
		thenT, err := c.checkExpr(n.Then, env)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkExpr(n.Else, env); err != nil {
			return nil, err
		}
		return thenT, nil

	case *mir.Case:
		return c.checkCase(n, env)

	case *mir.Let:
		if _, err := c.checkExpr(n.Bound, env); err != nil {
			return nil, err
		}
		return c.checkExpr(n.Body, env.bind(n.Binder, n.Type))

	case *mir.LetRecursive:
		if err := c.checkFuncDef(n.Definition); err != nil {
			return nil, err
		}
		argTypes := make([]mir.Type, len(n.Definition.Args))
		for i, a := range n.Definition.Args {
			argTypes[i] = a.Type
		}
		closureType := &mir.TFunction{Args: argTypes, Result: n.Definition.ResultType}
		return c.checkExpr(n.Body, env.bind(n.Definition.Name, closureType))

	case *mir.Call:
		if n.FunctionType == nil {
			return nil, errAt(diag.FunctionExpected, position.Position{}, "call has no function type")
		}
		if len(n.Arguments) != len(n.FunctionType.Args) {
			return nil, errAt(diag.WrongArgumentCount, position.Position{}, "expected %d arguments, got %d", len(n.FunctionType.Args), len(n.Arguments))
		}
		got, err := c.checkExpr(n.Function, env)
		if err != nil {
			return nil, err
		}
		if gotFn, ok := got.(*mir.TFunction); ok && !compatible(gotFn, n.FunctionType) {
			return nil, diag.Mismatch(phase, diag.TypesNotMatched, position.Position{}, gotFn, n.FunctionType, "call's annotated function type does not match its function")
		}
		for _, a := range n.Arguments {
			if _, err := c.checkExpr(a, env); err != nil {
				return nil, err
			}
		}
		return n.FunctionType.Result, nil

	case *mir.Record:
		return c.checkRecord(n, env)

	case *mir.RecordField:
		rec, ok := c.records[n.RecordType]
		if !ok {
			return nil, errAt(diag.UnknownRecordType, position.Position{}, "unknown record type %q", n.RecordType)
		}
		if n.Index < 0 || n.Index >= len(rec.Fields) {
			return nil, errAt(diag.IndexOutOfRange, position.Position{}, "field index %d out of range for record %q", n.Index, n.RecordType)
		}
		if _, err := c.checkExpr(n.Record, env); err != nil {
			return nil, err
		}
		return rec.Fields[n.Index], nil

	case *mir.RecordUpdate:
		rec, ok := c.records[n.RecordType]
		if !ok {
			return nil, errAt(diag.UnknownRecordType, position.Position{}, "unknown record type %q", n.RecordType)
		}
		for _, f := range n.Fields {
			if f.Index < 0 || f.Index >= len(rec.Fields) {
				return nil, errAt(diag.IndexOutOfRange, position.Position{}, "field index %d out of range for record %q", f.Index, n.RecordType)
			}
			if _, err := c.checkExpr(f.Value, env); err != nil {
				return nil, err
			}
		}
		if _, err := c.checkExpr(n.Record, env); err != nil {
			return nil, err
		}
		return mir.TRecord{Name: n.RecordType}, nil

	case *mir.Variant:
		if _, nested := n.PayloadType.(mir.TVariant); nested {
			return nil, errAt(diag.VariantInVariant, position.Position{}, "variant payload type is itself a variant")
		}
		if _, err := c.checkExpr(n.Payload, env); err != nil {
			return nil, err
		}
		return mir.TVariant{Tag: ""}, nil

	case *mir.TryOperation:
		if _, err := c.checkExpr(n.Operand, env); err != nil {
			return nil, err
		}
		return c.checkExpr(n.Then, env.bind(n.SuccessBinder, n.SuccessType))

	case *mir.StringConcatenation:
		for _, o := range n.Operands {
			if _, err := c.checkExpr(o, env); err != nil {
				return nil, err
			}
		}
		return mir.TString{}, nil

	case *mir.Synchronize:
		return c.checkExpr(n.Expression, env)

	case *mir.TypeInformationFunction:
		if _, err := c.checkExpr(n.Variant, env); err != nil {
			return nil, err
		}
		// The dispatched per-type equality is only known at runtime; its
		// static shape is the boxed two-in/one-out signature.
		anyT := mir.TVariant{Tag: "Any"}
		return &mir.TFunction{Args: []mir.Type{anyT, anyT}, Result: anyT}, nil

	case *mir.Clone:
		if err := c.checkVars(n.Vars, env); err != nil {
			return nil, err
		}
		return c.checkExpr(n.Body, env)

	case *mir.Drop:
		if err := c.checkVars(n.Vars, env); err != nil {
			return nil, err
		}
		return c.checkExpr(n.Body, env)

	case *mir.RetainHeap:
		return c.checkExpr(n.Body, env)

	case *mir.ReuseRecord:
		return c.checkRecord(n.Literal, env)

	case *mir.DiscardHeap:
		return c.checkExpr(n.Body, env)

	default:
		return nil, errAt(diag.TypesNotMatched, position.Position{}, "unhandled MIR expression %T", n)
	}
}

// compatible reports whether a function's checked type matches a call's
// annotated function type. variant<Any> is the unconstrained top at this
// layer and matches anything on either side: module-scope runtime helpers
// and the type-information equality dispatch carry that boxed signature
// while their call sites carry concrete per-element types.
func compatible(a, b mir.Type) bool {
	if a == nil || b == nil {
		return true
	}
	if va, ok := a.(mir.TVariant); ok && va.Tag == "Any" {
		return true
	}
	if vb, ok := b.(mir.TVariant); ok && vb.Tag == "Any" {
		return true
	}
	fa, aok := a.(*mir.TFunction)
	fb, bok := b.(*mir.TFunction)
	if aok != bok {
		return false
	}
	if aok {
		if len(fa.Args) != len(fb.Args) {
			return false
		}
		for i := range fa.Args {
			if !compatible(fa.Args[i], fb.Args[i]) {
				return false
			}
		}
		return compatible(fa.Result, fb.Result)
	}
	return a.String() == b.String()
}

func (c *checker) checkVars(vars map[string]mir.Type, env *tenv) error {
	for name, t := range vars {
		declared, ok := env.lookup(name)
		if !ok {
			return errAt(diag.VariableOutOfScope, position.Position{}, "clone/drop target %q is out of scope", name)
		}
		if declared.String() != t.String() {
			return diag.Mismatch(phase, diag.TypesNotMatched, position.Position{}, declared, t, "clone/drop target %q type mismatch", name)
		}
	}
	return nil
}

func (c *checker) checkRecord(n *mir.Record, env *tenv) (mir.Type, error) {
	rec, ok := c.records[n.RecordType]
	if !ok {
		return nil, errAt(diag.UnknownRecordType, position.Position{}, "unknown record type %q", n.RecordType)
	}
	if len(n.Fields) != len(rec.Fields) {
		return nil, errAt(diag.WrongFieldCount, position.Position{}, "record %q expects %d fields, got %d", n.RecordType, len(rec.Fields), len(n.Fields))
	}
	for _, f := range n.Fields {
		if _, err := c.checkExpr(f, env); err != nil {
			return nil, err
		}
	}
	return mir.TRecord{Name: n.RecordType}, nil
}

func (c *checker) checkCase(n *mir.Case, env *tenv) (mir.Type, error) {
	if _, err := c.checkExpr(n.Argument, env); err != nil {
		return nil, err
	}
	var result mir.Type
	for _, a := range n.Alternatives {
		t := mir.TypeForTags(a.Tags, recordNames(c.records))
		bt, err := c.checkExpr(a.Body, env.bind(a.Binder, t))
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = bt
		}
	}
	if n.Default != nil {
		bt, err := c.checkExpr(n.Default.Body, env.bind(n.Default.Binder, mir.TVariant{Tag: "Any"}))
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = bt
		}
	}
	return result, nil
}

func recordNames(records map[string]*mir.RecordDef) map[string]bool {
	out := make(map[string]bool, len(records))
	for name := range records {
		out[name] = true
	}
	return out
}

func literalType(k mir.LiteralKind) mir.Type {
	switch k {
	case mir.LiteralBoolean:
		return mir.TBoolean{}
	case mir.LiteralNumber:
		return mir.TNumber{}
	case mir.LiteralString:
		return mir.TString{}
	default:
		return mir.TNone{}
	}
}

func errAt(code diag.Code, pos position.Position, format string, args ...interface{}) error {
	return diag.New(phase, code, pos, format, args...)
}
