package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/width"
)

// Printer renders a Report for a human reading a terminal, colorizing the
// code and right-padding the phase gutter so multi-report output lines up
// even when phase names mix full-width and half-width runes (module paths
// may be copied from sources using either).
type Printer struct {
	Out     io.Writer
	NoColor bool
	gutter  int // widest phase name seen so far, in display columns
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out, gutter: len("typecheck")}
}

// Print writes a single report, e.g.:
//
//	[coerce   ] TypeMismatch: ... at module.pn:12:4 (expected Number, got String)
func (p *Printer) Print(r *Report) {
	phase := r.Phase
	if w := displayWidth(phase); w > p.gutter {
		p.gutter = w
	}
	padded := phase + strings.Repeat(" ", p.gutter-displayWidth(phase))

	codeColor := color.New(color.FgRed, color.Bold)
	phaseColor := color.New(color.FgCyan)
	if p.NoColor || p.Out == nil {
		codeColor.DisableColor()
		phaseColor.DisableColor()
	}

	fmt.Fprintf(p.Out, "[%s] %s: %s at %s",
		phaseColor.Sprint(padded),
		codeColor.Sprint(string(r.Code)),
		r.Message,
		r.Pos,
	)
	if r.Expected != "" || r.Actual != "" {
		fmt.Fprintf(p.Out, " (expected %s, got %s)", r.Expected, r.Actual)
	}
	fmt.Fprintln(p.Out)
}

// displayWidth measures a string in terminal columns, treating East Asian
// wide/fullwidth runes as two columns, matching golang.org/x/text/width's
// classification.
func displayWidth(s string) int {
	cols := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cols += 2
		default:
			cols++
		}
	}
	return cols
}
