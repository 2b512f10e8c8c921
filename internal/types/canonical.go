package types

import (
	"fmt"
	"sort"
)

// CycleError is returned by Canonicalize when a chain of TReference values
// refers back to itself.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic type reference: %v", e.Chain)
}

// Canonicalize resolves every TReference through env (detecting cycles),
// flattens and deduplicates every TUnion, and lets Any absorb any union it
// appears in. Two types are equal (Equal) iff their canonical forms are
// structurally identical.
func Canonicalize(t Type, env Environment) (Type, error) {
	return canon(t, env, nil)
}

func canon(t Type, env Environment, seen []string) (Type, error) {
	switch v := t.(type) {
	case *TReference:
		for _, s := range seen {
			if s == v.Name {
				return nil, &CycleError{Chain: append(append([]string{}, seen...), v.Name)}
			}
		}
		target, ok := env.Resolve(v.Name)
		if !ok {
			// An unresolved reference canonicalizes to itself; callers
			// surface this as a later type-check failure, not here.
			return v, nil
		}
		return canon(target, env, append(seen, v.Name))
	case *TRecord:
		// A record name is canonical on its own; it need not be resolved
		// further (its fields are looked up separately, never its shape).
		return v, nil
	case *TFunction:
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			ca, err := canon(a, env, seen)
			if err != nil {
				return nil, err
			}
			args[i] = ca
		}
		result, err := canon(v.Result, env, seen)
		if err != nil {
			return nil, err
		}
		return &TFunction{Args: args, Result: result}, nil
	case *TList:
		elem, err := canon(v.Element, env, seen)
		if err != nil {
			return nil, err
		}
		return &TList{Element: elem}, nil
	case *TMap:
		key, err := canon(v.Key, env, seen)
		if err != nil {
			return nil, err
		}
		val, err := canon(v.Value, env, seen)
		if err != nil {
			return nil, err
		}
		return &TMap{Key: key, Value: val}, nil
	case *TUnion:
		members, err := flattenUnion(v, env, seen)
		if err != nil {
			return nil, err
		}
		return buildUnion(members), nil
	default:
		// Primitives are already canonical, but may have been constructed
		// either as bare values (TNumber{}) or as pointers (&TNumber{}) —
		// both satisfy Type, and every other package in the tree builds
		// them as pointers (infer, check, coerce, variants, lower all
		// construct &types.TNumber{} etc.). Normalize to that pointer form
		// so every later comparison (structEqual, buildUnion's Any check,
		// the downstream *types.TAny assertions in infer/check/lower) sees
		// one consistent representation regardless of how the caller built
		// the original type.
		return normalizePrimitive(v), nil
	}
}

// normalizePrimitive folds either construction of a primitive type (value or
// pointer) to its canonical pointer form. Non-primitive types pass through
// unchanged.
func normalizePrimitive(t Type) Type {
	switch t.(type) {
	case TNone, *TNone:
		return &TNone{}
	case TBoolean, *TBoolean:
		return &TBoolean{}
	case TNumber, *TNumber:
		return &TNumber{}
	case TString, *TString:
		return &TString{}
	case TError, *TError:
		return &TError{}
	case TAny, *TAny:
		return &TAny{}
	default:
		return t
	}
}

// flattenUnion canonicalizes both sides of a union tree and collects every
// non-union leaf, recursing into nested unions on either side.
func flattenUnion(t Type, env Environment, seen []string) ([]Type, error) {
	u, ok := t.(*TUnion)
	if !ok {
		c, err := canon(t, env, seen)
		if err != nil {
			return nil, err
		}
		if cu, ok := c.(*TUnion); ok {
			return flattenUnion(cu, env, seen)
		}
		return []Type{c}, nil
	}
	left, err := flattenUnion(u.Left, env, seen)
	if err != nil {
		return nil, err
	}
	right, err := flattenUnion(u.Right, env, seen)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// buildUnion deduplicates members (by canonical String form) and folds them
// back into a left-associated TUnion chain in a deterministic order. Any
// absorbs the whole union; a single remaining member is returned bare.
func buildUnion(members []Type) Type {
	dedup := make(map[string]Type, len(members))
	for _, m := range members {
		if _, ok := m.(*TAny); ok {
			return &TAny{}
		}
		dedup[m.String()] = m
	}
	keys := make([]string, 0, len(dedup))
	for k := range dedup {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return emptyUnion{}
	}
	if len(keys) == 1 {
		return dedup[keys[0]]
	}
	result := dedup[keys[0]]
	for _, k := range keys[1:] {
		result = &TUnion{Left: result, Right: dedup[k]}
	}
	return result
}

// emptyUnion is the internal sentinel produced when a difference removes
// every member of a union; it is never valid as a surface type and is
// always caught by IsEmpty before escaping this package.
type emptyUnion struct{}

func (emptyUnion) typeNode()      {}
func (emptyUnion) String() string { return "None/*empty*/" }

// IsEmpty reports whether t is the empty-union sentinel produced by
// Difference, per section 3.2: "Returns None-of-empty if the result is
// empty".
func IsEmpty(t Type) bool {
	_, ok := t.(emptyUnion)
	return ok
}

// unionMembers returns the canonical members of t, treating a non-union
// type as a singleton set.
func unionMembers(t Type) []Type {
	if u, ok := t.(*TUnion); ok {
		return append(unionMembers(u.Left), unionMembers(u.Right)...)
	}
	if _, ok := t.(emptyUnion); ok {
		return nil
	}
	return []Type{t}
}

// Equal reports whether a and b are the same type once both are
// canonicalized through env.
func Equal(a, b Type, env Environment) (bool, error) {
	ca, err := Canonicalize(a, env)
	if err != nil {
		return false, err
	}
	cb, err := Canonicalize(b, env)
	if err != nil {
		return false, err
	}
	return structEqual(ca, cb), nil
}

func structEqual(a, b Type) bool {
	switch av := a.(type) {
	case *TNone:
		_, ok := b.(*TNone)
		return ok
	case *TBoolean:
		_, ok := b.(*TBoolean)
		return ok
	case *TNumber:
		_, ok := b.(*TNumber)
		return ok
	case *TString:
		_, ok := b.(*TString)
		return ok
	case *TError:
		_, ok := b.(*TError)
		return ok
	case *TAny:
		_, ok := b.(*TAny)
		return ok
	case *TRecord:
		bv, ok := b.(*TRecord)
		return ok && av.Name == bv.Name
	case *TReference:
		bv, ok := b.(*TReference)
		return ok && av.Name == bv.Name
	case *TFunction:
		bv, ok := b.(*TFunction)
		if !ok || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !structEqual(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return structEqual(av.Result, bv.Result)
	case *TList:
		bv, ok := b.(*TList)
		return ok && structEqual(av.Element, bv.Element)
	case *TMap:
		bv, ok := b.(*TMap)
		return ok && structEqual(av.Key, bv.Key) && structEqual(av.Value, bv.Value)
	case *TUnion:
		bv, ok := b.(*TUnion)
		if !ok {
			return false
		}
		am, bm := unionMembers(av), unionMembers(bv)
		if len(am) != len(bm) {
			return false
		}
		sort.Slice(am, func(i, j int) bool { return am[i].String() < am[j].String() })
		sort.Slice(bm, func(i, j int) bool { return bm[i].String() < bm[j].String() })
		for i := range am {
			if !structEqual(am[i], bm[i]) {
				return false
			}
		}
		return true
	case emptyUnion:
		_, ok := b.(emptyUnion)
		return ok
	default:
		return false
	}
}

// Subtype reports T <: U: after canonicalization either T = U, or U = Any,
// or T is a member of the union U, or T and U are functions/lists/maps
// whose components are pairwise equal (invariant, no structural subtyping
// inside constructors).
func Subtype(t, u Type, env Environment) (bool, error) {
	ct, err := Canonicalize(t, env)
	if err != nil {
		return false, err
	}
	cu, err := Canonicalize(u, env)
	if err != nil {
		return false, err
	}
	if structEqual(ct, cu) {
		return true, nil
	}
	if _, ok := cu.(*TAny); ok {
		return true, nil
	}
	for _, m := range unionMembers(cu) {
		if structEqual(ct, m) {
			return true, nil
		}
	}
	return false, nil
}

// Difference returns T \ U: the canonical members of T with exactly those
// equal to canonical members of U removed. Returns the empty-union
// sentinel (see IsEmpty) if nothing remains.
func Difference(t, u Type, env Environment) (Type, error) {
	ct, err := Canonicalize(t, env)
	if err != nil {
		return nil, err
	}
	cu, err := Canonicalize(u, env)
	if err != nil {
		return nil, err
	}
	uMembers := unionMembers(cu)
	var remaining []Type
	for _, m := range unionMembers(ct) {
		removed := false
		for _, um := range uMembers {
			if structEqual(m, um) {
				removed = true
				break
			}
		}
		if !removed {
			remaining = append(remaining, m)
		}
	}
	return buildUnion(remaining), nil
}
