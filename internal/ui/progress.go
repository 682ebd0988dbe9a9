package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"imgconform/internal/domain"
)

// ProgressBar creates and manages progress bars
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewProgressBar creates a new progress bar writing to w
func NewProgressBar(count int, w io.Writer) *ProgressBar {
	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription(describe(0, 0)),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &ProgressBar{bar: bar}
}

func describe(passed, failed int) string {
	return color.CyanString("Running cases: ") +
		color.GreenString("[passed: %d", passed) +
		" | " +
		color.RedString("failed: %d]", failed)
}

// Update updates the progress bar with pass and failure counts
func (p *ProgressBar) Update(passed, failed int) {
	p.bar.Describe(describe(passed, failed))
	_ = p.bar.Set(passed + failed)
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}

// ProgressReporter drives a progress bar from run events
type ProgressReporter struct {
	w              io.Writer
	bar            *ProgressBar
	passed, failed int
}

// NewProgressReporter creates a reporter drawing on w (stderr when nil)
func NewProgressReporter(w io.Writer) *ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressReporter{w: w}
}

func (p *ProgressReporter) RunStarted(total int) {
	p.passed, p.failed = 0, 0
	p.bar = NewProgressBar(total, p.w)
}

func (p *ProgressReporter) CaseStarted(domain.TestCase) {}

func (p *ProgressReporter) CaseFinished(res domain.CaseResult) {
	if res.Verdict.Passed() {
		p.passed++
	} else {
		p.failed++
	}
	if p.bar != nil {
		p.bar.Update(p.passed, p.failed)
	}
}

func (p *ProgressReporter) RunFinished(domain.RunSummary) {
	if p.bar != nil {
		p.bar.Finish()
	}
}
