package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"imgconform/internal/domain"
	"imgconform/internal/execution"
)

// ConsoleReporter prints one line per case as the run progresses:
//
//	rotate: ok. (640x480 -> 480x640 took 0.041s)
//	crop: fail (output mismatch (...) [left result in crop.got] took 0.012s)
//	1/2 tests completed successfully
type ConsoleReporter struct {
	w     io.Writer
	cases bool
	ok    *color.Color
	fail  *color.Color
	muted *color.Color
}

// NewConsoleReporter creates a reporter writing to w (stdout when nil)
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleReporter{
		w:     w,
		cases: true,
		ok:    color.New(color.FgGreen),
		fail:  color.New(color.FgRed),
		muted: color.New(color.FgHiBlack),
	}
}

// NewSummaryReporter prints only the final summary line, for use next to
// a progress bar
func NewSummaryReporter(w io.Writer) *ConsoleReporter {
	r := NewConsoleReporter(w)
	r.cases = false
	return r
}

func (r *ConsoleReporter) RunStarted(total int) {}

func (r *ConsoleReporter) CaseStarted(tc domain.TestCase) {
	if !r.cases {
		return
	}
	fmt.Fprintf(r.w, "%s: ", tc.Name)
}

func (r *ConsoleReporter) CaseFinished(res domain.CaseResult) {
	if !r.cases {
		return
	}
	took := fmt.Sprintf("took %.3fs", res.Duration.Seconds())

	if res.Verdict.Passed() {
		r.ok.Fprint(r.w, "ok.")
		if res.Response != nil && res.Response.HasDimensions() {
			p := res.Response
			r.muted.Fprintf(r.w, " (%dx%d -> %dx%d %s)\n", p.OrigWidth, p.OrigHeight, p.Width, p.Height, took)
		} else {
			r.muted.Fprintf(r.w, " (%s)\n", took)
		}
		return
	}

	reason := res.Verdict.Reason
	if res.Verdict.DiagnosticPath != "" {
		reason += fmt.Sprintf(" [left result in %s]", filepath.Base(res.Verdict.DiagnosticPath))
	}
	r.fail.Fprint(r.w, "fail")
	fmt.Fprintf(r.w, " (%s %s)\n", reason, took)
}

func (r *ConsoleReporter) RunFinished(s domain.RunSummary) {
	if s.Total == 0 {
		color.New(color.FgYellow).Fprintln(r.w, "No test cases selected")
	}
	c := r.ok
	if s.Failed() > 0 {
		c = r.fail
	}
	c.Fprintf(r.w, "%d/%d tests completed successfully\n", s.Passed, s.Total)
}

// MultiReporter fans events out to several reporters in order
type MultiReporter []execution.Reporter

func (m MultiReporter) RunStarted(total int) {
	for _, r := range m {
		r.RunStarted(total)
	}
}

func (m MultiReporter) CaseStarted(tc domain.TestCase) {
	for _, r := range m {
		r.CaseStarted(tc)
	}
}

func (m MultiReporter) CaseFinished(res domain.CaseResult) {
	for _, r := range m {
		r.CaseFinished(res)
	}
}

func (m MultiReporter) RunFinished(s domain.RunSummary) {
	for _, r := range m {
		r.RunFinished(s)
	}
}
