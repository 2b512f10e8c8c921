// Command pencore is a thin demonstration driver (section 1: "CLI driver
// beyond a thin demonstration command" is explicitly out of scope). It
// hand-constructs one small hir.Module -- the parser that would normally
// produce this tree is external to the core -- wires spf13/pflag flags into
// pipeline.Options, compiles the module, and prints either the resulting
// interface or the first diagnostic raised.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/pen-lang/pen-sub002/internal/diag"
	"github.com/pen-lang/pen-sub002/internal/hir"
	"github.com/pen-lang/pen-sub002/internal/pipeline"
	"github.com/pen-lang/pen-sub002/internal/types"
)

func main() {
	modulePath := flag.StringP("module", "m", "main", "canonical path of the compiled module")
	skipReuse := flag.Bool("skip-reuse", false, "disable heap-reuse rewriting (section 4.10)")
	verbose := flag.BoolP("verbose", "v", false, "trace each pipeline stage to stderr")
	noColor := flag.Bool("no-color", false, "disable diagnostic colorizing")
	flag.Parse()

	mod := demoModule()

	opts := pipeline.Options{
		ModulePath: *modulePath,
		SkipReuse:  *skipReuse,
		Trace:      &diag.Trace{Verbose: *verbose},
	}

	result, err := pipeline.Compile(mod, opts)
	if err != nil {
		if report, ok := err.(*diag.Report); ok {
			p := diag.NewPrinter(os.Stderr)
			p.NoColor = *noColor
			p.Print(report)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	fmt.Printf("compiled %s: %d records, %d functions\n",
		result.Iface.Module, len(result.Iface.Types), len(result.Iface.Functions))
	for _, f := range result.Iface.Functions {
		fmt.Printf("  %s : %s\n", f.Canonical, f.Type)
	}
}

// demoModule builds `add(x: Number, y: Number): Number = x + y`, exercising
// every pipeline stage on a minimal module. Its arguments are Numbers,
// which are unowned, so no reference-counting path is involved; the demo
// shows the wiring only (cmd/pencore is not a test harness).
func demoModule() *hir.Module {
	numT := &types.TNumber{}

	body := &hir.Arithmetic{
		Op:    hir.OpAdd,
		Left:  &hir.Variable{Name: "x"},
		Right: &hir.Variable{Name: "y"},
	}

	return &hir.Module{
		FuncDefs: []*hir.FuncDef{
			{
				Name:     "add",
				Original: "add",
				Public:   true,
				Lambda: &hir.Lambda{
					Args:       []hir.Param{{Name: "x", Type: numT}, {Name: "y", Type: numT}},
					ResultType: numT,
					Body:       body,
				},
			},
		},
	}
}
