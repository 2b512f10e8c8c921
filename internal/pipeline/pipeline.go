// Package pipeline orchestrates the full twelve-step core pipeline of
// section 2: import merging, inference, coercion, checking, variant
// collection, HIR->MIR lowering, alpha conversion, environment inference,
// reference-count annotation, (optional) heap-reuse rewriting, and a final
// MIR type recheck, producing either a compiled MIR module plus the fresh
// interface this module exports, or the first structured error any stage
// raised (section 7: the pipeline short-circuits on the first failure).
package pipeline

import (
	"github.com/pen-lang/pen-sub002/internal/alpha"
	"github.com/pen-lang/pen-sub002/internal/check"
	"github.com/pen-lang/pen-sub002/internal/coerce"
	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/envinfer"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/iface"
	"github.com/pen-lang/pen-sub002/internal/infer"
	"github.com/pen-lang/pen-sub002/internal/link"
	"github.com/pen-lang/pen-sub002/internal/lower"
	"github.com/pen-lang/pen-sub002/internal/mir"
	"github.com/pen-lang/pen-sub002/internal/mircheck"
	"github.com/pen-lang/pen-sub002/internal/refcount"
	"github.com/pen-lang/pen-sub002/internal/reuse"
	"github.com/pen-lang/pen-sub002/internal/variants"
)

// Options configures one Compile call: the module's own path (used to
// build its exported interface), the interfaces it imports, and the
// always-in-scope prelude interfaces. Heap-reuse rewriting is optional per
// section 4.10 ("Optional but specified") and defaults to enabled.
type Options struct {
	ModulePath string
	Imports    []link.Import
	Prelude    []*iface.Interface
	SkipReuse  bool
	Trace      *diag.Trace
}

// Result is the successful output of Compile: the compiled MIR module plus
// the fresh interface this module exports to later compilations (section
// 2's pipeline outputs (a) and (b)).
type Result struct {
	MIR   *mir.Module
	Iface *iface.Interface
}

// Compile runs every stage of the pipeline in sequence over mod (a HIR
// module already structurally translated from the external parser's
// tree — step 1 of section 2 is the identity transformation on an
// already-structural tree). Each stage is a pure, total function from
// module-in to module-or-error-out; no stage mutates a shared structure on
// failure (section 7).
func Compile(mod *hir.Module, opts Options) (*Result, error) {
	t := opts.Trace

	t.Stage("link")
	merged := link.Merge(mod, opts.Imports, opts.Prelude)

	t.Stage("infer")
	inferred, err := infer.Infer(merged)
	if err != nil {
		return nil, err
	}

	t.Stage("coerce")
	coerced, err := coerce.Coerce(inferred)
	if err != nil {
		return nil, err
	}

	t.Stage("check")
	if err := check.Check(coerced); err != nil {
		return nil, err
	}

	t.Stage("variants")
	collection, err := variants.Collect(coerced)
	if err != nil {
		return nil, err
	}

	t.Stage("lower")
	lowered := lower.Lower(coerced, collection)

	t.Stage("alpha")
	alphaConverted := alpha.Convert(lowered)

	t.Stage("envinfer")
	withEnvs := envinfer.Infer(alphaConverted)

	t.Stage("refcount")
	annotated := refcount.Annotate(withEnvs)

	final := annotated
	if !opts.SkipReuse {
		t.Stage("reuse")
		final = reuse.Rewrite(annotated)
	}

	t.Stage("mircheck")
	if err := mircheck.Check(final); err != nil {
		return nil, err
	}

	return &Result{MIR: final, Iface: iface.FromModule(opts.ModulePath, coerced)}, nil
}
