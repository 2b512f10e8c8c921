package diag

import "log"

// Trace records pipeline progress, one line per stage, when verbose mode
// is on. A nil *Trace silently discards every call, so passing one through
// is optional for callers that do not want -v output.
type Trace struct {
	Verbose bool
	Logger  *log.Logger
}

// Stage logs that a pipeline stage ran, when tracing is enabled.
func (t *Trace) Stage(name string) {
	if t == nil || !t.Verbose {
		return
	}
	if t.Logger != nil {
		t.Logger.Printf("stage: %s", name)
		return
	}
	log.Printf("stage: %s", name)
}
