package diag

import (
	"fmt"

	"github.com/pen-lang/pen-sub002/internal/position"
)

// Report is the single structured error value a pass returns. It carries
// the diagnostic position unchanged from the input node that triggered it
// (section 7: "Diagnostic positions are propagated unchanged from input to
// error").
type Report struct {
	Code     Code
	Phase    string
	Message  string
	Pos      position.Position
	Expected string
	Actual   string
}

func (r *Report) Error() string {
	if r.Expected != "" || r.Actual != "" {
		return fmt.Sprintf("%s: %s at %s (expected %s, got %s)", r.Code, r.Message, r.Pos, r.Expected, r.Actual)
	}
	return fmt.Sprintf("%s: %s at %s", r.Code, r.Message, r.Pos)
}

// New builds a Report for a given phase, code and position.
func New(phase string, code Code, pos position.Position, format string, args ...interface{}) *Report {
	return &Report{Phase: phase, Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Mismatch builds a TypeMismatch-shaped report carrying both sides of the
// comparison for debugging, per section 7's TypesNotMatched convention.
func Mismatch(phase string, code Code, pos position.Position, expected, actual fmt.Stringer, format string, args ...interface{}) *Report {
	r := New(phase, code, pos, format, args...)
	if expected != nil {
		r.Expected = expected.String()
	}
	if actual != nil {
		r.Actual = actual.String()
	}
	return r
}
