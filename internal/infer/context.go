// Package infer implements the type inferrer of section 4.2: a single
// bottom-up pass over a HIR module that fills every optional type slot
// (call function type, equality operand type, let-binding type,
// try-operand success type, if-list/if-map bindings, thunk payload type,
// else-branch residual type).
package infer

import (
	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/position"
	"github.com/pen-lang/pen-sub002/internal/types"
)

// Phase is the diagnostic phase name attached to every Report this
// package produces.
const Phase = "infer"

// Context carries the module-wide tables every node needs to resolve a
// name: the record definitions (for field lookups and canonical record
// construction) and the alias/record table used to canonicalize types.
type Context struct {
	Records map[string]*hir.RecordDef
	Aliases map[string]types.Type
}

// NewContext builds a Context from a module's own definitions, which by
// this point (after internal/link.Merge) already include the imported and
// prelude entities this module can see.
func NewContext(mod *hir.Module) *Context {
	records := make(map[string]*hir.RecordDef, len(mod.Records))
	aliases := make(map[string]types.Type, len(mod.Records)+len(mod.Aliases))
	for _, r := range mod.Records {
		records[r.Name] = r
		aliases[r.Name] = &types.TRecord{Name: r.Name}
	}
	for _, a := range mod.Aliases {
		aliases[a.Name] = a.Target
	}
	return &Context{Records: records, Aliases: aliases}
}

// GlobalEnv builds the root variable environment from the module's
// function declarations and definitions (imported and local alike).
func (c *Context) GlobalEnv(mod *hir.Module) *types.Env {
	globals := make(map[string]types.Type, len(mod.FuncDecls)+len(mod.FuncDefs))
	for _, d := range mod.FuncDecls {
		globals[d.Name] = d.Type
	}
	for _, d := range mod.FuncDefs {
		globals[d.Name] = lambdaType(d.Lambda)
	}
	return types.NewRootEnv(c.Aliases, globals)
}

func lambdaType(l *hir.Lambda) *types.TFunction {
	args := make([]types.Type, len(l.Args))
	for i, a := range l.Args {
		args[i] = a.Type
	}
	return &types.TFunction{Args: args, Result: l.ResultType}
}

func errAt(code diag.Code, pos position.Position, format string, args ...interface{}) error {
	return diag.New(Phase, code, pos, format, args...)
}
