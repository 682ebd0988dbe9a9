package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"

	"imgconform/internal/config"
	"imgconform/internal/discovery"
	"imgconform/internal/domain"
	"imgconform/internal/history"
)

// Formatter formats and displays stored results, case lists and history
type Formatter struct {
	config *config.Config
	parser *discovery.Parser
	w      io.Writer
}

// NewFormatter creates a new Formatter writing to w (stdout when nil)
func NewFormatter(cfg *config.Config, parser *discovery.Parser, w io.Writer) *Formatter {
	if w == nil {
		w = os.Stdout
	}
	return &Formatter{
		config: cfg,
		parser: parser,
		w:      w,
	}
}

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	white  = color.New(color.FgWhite)
	gray   = color.New(color.FgHiBlack)
)

const (
	tableTop    = "┌─────────────────────────────────┬─────────────────────────────┐"
	tableMiddle = "├─────────────────────────────────┼─────────────────────────────┤"
	tableBottom = "└─────────────────────────────────┴─────────────────────────────┘"
)

func (f *Formatter) row(label string, c *color.Color, value any) {
	fmt.Fprintf(f.w, "│ %-31s │ ", label)
	c.Fprintf(f.w, "%-27v", value)
	fmt.Fprintln(f.w, " │")
}

// PrintMetaStats displays the statistics of a stored run and its failures
func (f *Formatter) PrintMetaStats(output *domain.RunOutput) {
	meta := output.Meta

	fmt.Fprintln(f.w)
	cyan.Fprintln(f.w, "╔═══════════════════════════════════════════════════════════════╗")
	cyan.Fprintln(f.w, "║                     Conformance Run Statistics                ║")
	cyan.Fprintln(f.w, "╚═══════════════════════════════════════════════════════════════╝")

	fmt.Fprintln(f.w, tableTop)
	f.row("Total Cases", white, meta.TotalCases)
	fmt.Fprintln(f.w, tableMiddle)
	f.row("Passed Cases", green, meta.PassedCases)
	fmt.Fprintln(f.w, tableMiddle)
	f.row("Failed Cases", red, meta.FailedCases)
	fmt.Fprintln(f.w, tableMiddle)
	f.row("Duration", white, fmt.Sprintf("%.2fs", meta.DurationSeconds))
	fmt.Fprintln(f.w, tableMiddle)
	f.row("Transport", white, meta.Transport)
	fmt.Fprintln(f.w, tableMiddle)
	f.row("Timestamp", white, meta.Timestamp)
	fmt.Fprintln(f.w, tableBottom)

	fmt.Fprintln(f.w)
	if meta.FailedCases == 0 {
		green.Fprintln(f.w, "✓ All cases passed!")
		return
	}
	red.Fprintf(f.w, "✗ %d case(s) failed\n", meta.FailedCases)
	fmt.Fprintln(f.w)
	f.printFailureTree(output.Details)
}

// printFailureTree groups failures by kind:
//
//	mismatch
//	  |_crop
//	missing_expected
//	  |_scale_half
func (f *Formatter) printFailureTree(failures []domain.CaseFailure) {
	byKind := make(map[string][]domain.CaseFailure)
	for _, failure := range failures {
		byKind[failure.Kind] = append(byKind[failure.Kind], failure)
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		yellow.Fprintln(f.w, kind)
		for _, failure := range byKind[kind] {
			if failure.Resolved {
				gray.Fprintf(f.w, "  |_%s (resolved)\n", failure.CaseName)
				continue
			}
			red.Fprintf(f.w, "  |_%s\n", failure.CaseName)
		}
	}
}

// PrintCaseList prints descriptor paths, optionally with each case's asset
// and golden status. Cases in failed are marked [F] (from the last run).
func (f *Formatter) PrintCaseList(paths []string, showDetails bool, failed map[string]struct{}) {
	green.Fprintf(f.w, "Found %d case(s):\n", len(paths))

	for i, p := range paths {
		name := domain.CaseName(p)
		marker := ""
		if _, ok := failed[name]; ok {
			marker = " " + red.Sprint("[F]")
		}

		isLast := i == len(paths)-1
		branch, indent := "├── ", "│   "
		if isLast {
			branch, indent = "└── ", "    "
		}
		fmt.Fprintf(f.w, "%s%s%s\n", branch, cyan.Sprint(f.relative(p)), marker)

		if showDetails {
			f.printCaseDetails(p, indent)
		}
	}
}

func (f *Formatter) printCaseDetails(path, indent string) {
	d, err := f.parser.ParseDescriptor(path)
	if err != nil {
		fmt.Fprintf(f.w, "%s└── %s\n", indent, red.Sprint(err))
		return
	}

	golden := green.Sprint("present")
	if _, err := os.Stat(domain.NewTestCase(path, d).ExpectedPath()); err != nil {
		golden = red.Sprint("missing")
	}

	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		if k != "file" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fmt.Fprintf(f.w, "%s├── file: %s\n", indent, yellow.Sprint(d.File))
	fmt.Fprintf(f.w, "%s├── params: %s\n", indent, strings.Join(keys, ", "))
	fmt.Fprintf(f.w, "%s└── golden: %s\n", indent, golden)
}

func (f *Formatter) relative(path string) string {
	if rel, err := filepath.Rel(f.config.Root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// PrintHistory lists recorded runs, newest first, and the cases whose
// verdict flipped between the two latest runs
func (f *Formatter) PrintHistory(runs []history.Run, flips []history.Flip) {
	if len(runs) == 0 {
		yellow.Fprintln(f.w, "No recorded runs")
		return
	}

	for _, r := range runs {
		c := green
		if r.Passed != r.Total || r.Total == 0 {
			c = red
		}
		fmt.Fprintf(f.w, "%s  %s  ", gray.Sprint(r.StartedAt.Format("2006-01-02 15:04:05")), r.ID)
		c.Fprintf(f.w, "%d/%d", r.Passed, r.Total)
		fmt.Fprintf(f.w, "  %.2fs  %s", r.Duration.Seconds(), r.Transport)
		if r.Filter != "" {
			fmt.Fprintf(f.w, "  -t %s", r.Filter)
		}
		fmt.Fprintln(f.w)
	}

	if len(runs) < 2 {
		return
	}
	fmt.Fprintln(f.w)
	if len(flips) == 0 {
		green.Fprintln(f.w, "✓ Verdicts are stable across the last two runs")
		return
	}
	red.Fprintf(f.w, "✗ %d case(s) changed verdict since the previous run:\n", len(flips))
	for _, fl := range flips {
		fmt.Fprintf(f.w, "  %s: %s -> %s\n", fl.CaseName, fl.From, fl.To)
	}
}
