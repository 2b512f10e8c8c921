package iface

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pen-lang/pen-sub002/internal/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	i := New("math/gcd")
	i.Functions = append(i.Functions, FuncDecl{
		Canonical: "math'gcd", Original: "gcd",
		Type: &types.TFunction{Args: []types.Type{types.TNumber{}, types.TNumber{}}, Result: types.TNumber{}},
	})
	i.Types = append(i.Types, TypeDef{
		Canonical: "math'Fraction", Original: "Fraction",
		Fields: []FieldSig{{Name: "numerator", Type: types.TNumber{}}, {Name: "denominator", Type: types.TNumber{}}},
		Public: true,
	})

	data, err := i.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Module != i.Module {
		t.Fatalf("module mismatch: %q != %q", decoded.Module, i.Module)
	}
	if len(decoded.Functions) != 1 || decoded.Functions[0].Canonical != "math'gcd" {
		t.Fatalf("unexpected functions: %+v", decoded.Functions)
	}
	if diff := cmp.Diff(i.Types[0].Fields[0].Type.String(), decoded.Types[0].Fields[0].Type.String()); diff != "" {
		t.Fatalf("field type mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	i := New("m")
	i.Functions = append(i.Functions,
		FuncDecl{Canonical: "m'z", Original: "z", Type: &types.TFunction{Result: types.TNone{}}},
		FuncDecl{Canonical: "m'a", Original: "a", Type: &types.TFunction{Result: types.TNone{}}},
	)
	first, err := i.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := i.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("encoding is not deterministic")
	}
}
