package types

import "testing"

func TestCanonicalizeFlattensAndDedupsUnions(t *testing.T) {
	env := MapEnvironment{}
	u := &TUnion{Left: TNumber{}, Right: &TUnion{Left: TNumber{}, Right: TBoolean{}}}
	c, err := Canonicalize(u, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	members := unionMembers(c)
	if len(members) != 2 {
		t.Fatalf("expected 2 members after dedup, got %d (%s)", len(members), c)
	}
}

func TestCanonicalizeAnyAbsorbsUnion(t *testing.T) {
	env := MapEnvironment{}
	u := &TUnion{Left: TNumber{}, Right: TAny{}}
	c, err := Canonicalize(u, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*TAny); !ok {
		t.Fatalf("expected Any to absorb the union, got %s", c)
	}
}

func TestCanonicalizeResolvesReference(t *testing.T) {
	env := MapEnvironment{"MyAlias": TNumber{}}
	c, err := Canonicalize(&TReference{Name: "MyAlias"}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*TNumber); !ok {
		t.Fatalf("expected Number, got %s", c)
	}
}

func TestCanonicalizeDetectsCycle(t *testing.T) {
	env := MapEnvironment{"A": &TReference{Name: "B"}, "B": &TReference{Name: "A"}}
	_, err := Canonicalize(&TReference{Name: "A"}, env)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected *CycleError, got %T", err)
	}
}

func TestSubtypeUnionMembership(t *testing.T) {
	env := MapEnvironment{}
	u := &TUnion{Left: TNumber{}, Right: TNone{}}
	ok, err := Subtype(TNumber{}, u, env)
	if err != nil || !ok {
		t.Fatalf("expected Number <: Number|None, got %v, err=%v", ok, err)
	}
	ok, err = Subtype(TString{}, u, env)
	if err != nil || ok {
		t.Fatalf("expected String not <: Number|None, got %v", ok)
	}
}

func TestSubtypeAny(t *testing.T) {
	env := MapEnvironment{}
	ok, err := Subtype(&TList{Element: TNumber{}}, TAny{}, env)
	if err != nil || !ok {
		t.Fatalf("expected anything <: Any, got %v, err=%v", ok, err)
	}
}

func TestDifferenceRemovesMembers(t *testing.T) {
	env := MapEnvironment{}
	t3 := &TUnion{Left: TNumber{}, Right: &TUnion{Left: TBoolean{}, Right: TNone{}}}
	u := &TUnion{Left: TNumber{}, Right: TBoolean{}}
	diff, err := Difference(t3, u, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := diff.(*TNone); !ok {
		t.Fatalf("expected residual None, got %s", diff)
	}
}

func TestDifferenceEmpty(t *testing.T) {
	env := MapEnvironment{}
	diff, err := Difference(TError{}, TError{}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsEmpty(diff) {
		t.Fatalf("expected empty difference, got %s", diff)
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	cases := []Type{
		TNumber{},
		&TList{Element: TString{}},
		&TMap{Key: TString{}, Value: TNumber{}},
		&TFunction{Args: []Type{TNumber{}, TBoolean{}}, Result: TString{}},
		&TUnion{Left: TNumber{}, Right: TNone{}},
		&TReference{Name: "Widget"},
	}
	for _, c := range cases {
		parsed, err := ParseType(c.String())
		if err != nil {
			t.Fatalf("ParseType(%q): %v", c.String(), err)
		}
		if parsed.String() != c.String() {
			t.Fatalf("round trip mismatch: %q -> %q", c.String(), parsed.String())
		}
	}
}
