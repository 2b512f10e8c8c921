// Package diag is the structured error taxonomy of section 6/7: every pass
// in this core returns either a transformed tree or a single *Report, never
// both, and never mutates its input on failure.
package diag

// Code enumerates the error taxonomy of section 6. Names match the spec's
// error kinds exactly so a driver can match on them without translation.
type Code string

const (
	TypeNotInferred           Code = "TypeNotInferred"
	TypeMismatch              Code = "TypeMismatch"
	FunctionExpected          Code = "FunctionExpected"
	ListExpected              Code = "ListExpected"
	MapExpected               Code = "MapExpected"
	UnionTypeExpected         Code = "UnionTypeExpected"
	UnreachableCode           Code = "UnreachableCode"
	RecordFieldUnknown        Code = "RecordFieldUnknown"
	VariantInVariant          Code = "VariantInVariant"
	WrongFieldCount           Code = "WrongFieldCount"
	WrongArgumentCount        Code = "WrongArgumentCount"
	ForeignDefinitionNotFound Code = "ForeignDefinitionNotFound"
	DuplicateFunctionName     Code = "DuplicateFunctionName"
	UnboundVariable           Code = "UnboundVariable"
	UnknownRecordType         Code = "UnknownRecordType"
	ForeignSignatureInvalid   Code = "ForeignSignatureInvalid"
	IndexOutOfRange           Code = "IndexOutOfRange"
	VariableOutOfScope        Code = "VariableOutOfScope"
	ReuseNotAvailable         Code = "ReuseNotAvailable"

	// TypesNotMatched is never expected on a well-typed input; it signals an
	// internal-consistency violation — the MIR checker (section 4.11)
	// finding a tree that the coercer (section 4.3) should already have
	// made consistent. Section 7 calls this out explicitly as a bug.
	TypesNotMatched           Code = "TypesNotMatched"
)
