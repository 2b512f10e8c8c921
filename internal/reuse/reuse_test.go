package reuse

import (
	"testing"

	"github.com/pen-lang/pen-sub002/internal/mir"
)

func TestRewriteReusesBlockFreedByPrecedingDrop(t *testing.T) {
	// f(p: Point) = drop(p: Point) { Point(1, 2) }
	inner := &mir.Record{RecordType: "Point", Fields: []mir.Expr{
		&mir.Literal{Kind: mir.LiteralNumber, Value: 1.0},
		&mir.Literal{Kind: mir.LiteralNumber, Value: 2.0},
	}}
	drop := &mir.Drop{Vars: map[string]mir.Type{"p": mir.TRecord{Name: "Point"}}, Body: inner}
	mod := &mir.Module{
		Records: []*mir.RecordDef{{Name: "Point", Fields: []mir.Type{mir.TNumber{}, mir.TNumber{}}}},
		FuncDefs: []*mir.FuncDef{{
			Name:       "f",
			Args:       []mir.Param{{Name: "p", Type: mir.TRecord{Name: "Point"}}},
			Body:       drop,
			ResultType: mir.TRecord{Name: "Point"},
		}},
	}

	out := Rewrite(mod)
	retain, ok := out.FuncDefs[0].Body.(*mir.RetainHeap)
	if !ok {
		t.Fatalf("expected the Drop to be wrapped in a RetainHeap, got %T", out.FuncDefs[0].Body)
	}
	id, ok := retain.ReuseMap["p"]
	if !ok {
		t.Fatalf("expected p's freed block retained under a reuse token, got %+v", retain.ReuseMap)
	}
	newDrop, ok := retain.Body.(*mir.Drop)
	if !ok {
		t.Fatalf("expected the original Drop preserved inside RetainHeap, got %T", retain.Body)
	}
	reused, ok := newDrop.Body.(*mir.ReuseRecord)
	if !ok {
		t.Fatalf("expected the new Point record to reuse the freed block, got %T", newDrop.Body)
	}
	if reused.ID != id {
		t.Fatalf("expected the reuse site to consume token %q, got %q", id, reused.ID)
	}
}

func TestRewriteDiscardsUnreusedBlockAtFunctionExit(t *testing.T) {
	// f(p: Point) = drop(p: Point) { 1 } -- no record of the same shape is
	// ever built, so the retained block must be explicitly discarded.
	drop := &mir.Drop{Vars: map[string]mir.Type{"p": mir.TRecord{Name: "Point"}}, Body: &mir.Literal{Kind: mir.LiteralNumber, Value: 1.0}}
	mod := &mir.Module{
		Records: []*mir.RecordDef{{Name: "Point", Fields: []mir.Type{mir.TNumber{}, mir.TNumber{}}}},
		FuncDefs: []*mir.FuncDef{{
			Name:       "f",
			Args:       []mir.Param{{Name: "p", Type: mir.TRecord{Name: "Point"}}},
			Body:       drop,
			ResultType: mir.TNumber{},
		}},
	}

	out := Rewrite(mod)
	// No reuse site consumed the retained block on this path, so the
	// function-exit pass wraps the whole expression in a trailing
	// DiscardHeap for it (section 4.10).
	discard, ok := out.FuncDefs[0].Body.(*mir.DiscardHeap)
	if !ok {
		t.Fatalf("expected a trailing DiscardHeap, got %T", out.FuncDefs[0].Body)
	}
	if len(discard.IDs) != 1 {
		t.Fatalf("expected exactly one discarded id, got %v", discard.IDs)
	}
	retain, ok := discard.Body.(*mir.RetainHeap)
	if !ok {
		t.Fatalf("expected RetainHeap nested inside the DiscardHeap, got %T", discard.Body)
	}
	if _, ok := retain.Body.(*mir.Drop); !ok {
		t.Fatalf("expected the original Drop preserved inside RetainHeap, got %T", retain.Body)
	}
}

func TestNewTokenIsDeterministicPerTypeAndCount(t *testing.T) {
	r := &rewriter{counters: map[string]int{}}
	a := r.newToken("Point")
	b := r.newToken("Point")
	if a == b {
		t.Fatalf("expected successive tokens for the same type to differ, got %q twice", a)
	}
	r2 := &rewriter{counters: map[string]int{}}
	a2 := r2.newToken("Point")
	if a != a2 {
		t.Fatalf("expected the first token minted for a type to be deterministic, got %q != %q", a, a2)
	}
}
