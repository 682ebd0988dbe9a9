package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"imgconform/internal/domain"
	"imgconform/internal/execution"
)

func init() {
	color.NoColor = true
}

func caseResult(name string, v domain.Verdict, d time.Duration, resp *domain.TransformResponse) domain.CaseResult {
	return domain.CaseResult{
		Case:     domain.NewTestCase("/cases/"+name+".json", domain.Descriptor{File: "sample.jpg"}),
		Verdict:  v,
		Duration: d,
		Response: resp,
	}
}

func mixedResults() []domain.CaseResult {
	mismatch := domain.FailVerdict(&domain.ArtifactMismatchError{ProducedSize: 3, ExpectedSize: 4, Offset: 1})
	mismatch.DiagnosticPath = "/cases/crop.got"

	return []domain.CaseResult{
		caseResult("rotate", domain.PassVerdict(), 41*time.Millisecond,
			&domain.TransformResponse{OrigWidth: 640, OrigHeight: 480, Width: 480, Height: 640}),
		caseResult("blur", domain.PassVerdict(), 100*time.Millisecond, &domain.TransformResponse{}),
		caseResult("crop", mismatch, 12*time.Millisecond, &domain.TransformResponse{}),
		caseResult("scale", domain.FailVerdict(&domain.MissingExpectedArtifactError{Path: "/cases/scale.out"}), 0, nil),
	}
}

func replay(r execution.Reporter, results []domain.CaseResult) {
	var summary domain.RunSummary
	r.RunStarted(len(results))
	for _, res := range results {
		r.CaseStarted(res.Case)
		r.CaseFinished(res)
		summary.Add(res)
	}
	r.RunFinished(summary)
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestConsoleReporter(t *testing.T) {
	tests := []struct {
		name    string
		results []domain.CaseResult
		summary bool
	}{
		{name: "console_mixed", results: mixedResults()},
		{name: "console_empty", results: nil},
		{name: "console_summary_only", results: mixedResults(), summary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			var r *ConsoleReporter
			if tt.summary {
				r = NewSummaryReporter(&buf)
			} else {
				r = NewConsoleReporter(&buf)
			}
			replay(r, tt.results)

			newGoldie(t).Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewProgressReporter(&buf)

	replay(r, mixedResults())

	assert.Equal(t, 2, r.passed)
	assert.Equal(t, 2, r.failed)
	assert.Contains(t, buf.String(), "failed: 2]")
}

type countingReporter struct {
	calls []string
}

func (c *countingReporter) RunStarted(int)                 { c.calls = append(c.calls, "run") }
func (c *countingReporter) CaseStarted(domain.TestCase)    { c.calls = append(c.calls, "start") }
func (c *countingReporter) CaseFinished(domain.CaseResult) { c.calls = append(c.calls, "finish") }
func (c *countingReporter) RunFinished(domain.RunSummary)  { c.calls = append(c.calls, "done") }

func TestMultiReporter(t *testing.T) {
	a, b := &countingReporter{}, &countingReporter{}
	replay(MultiReporter{a, b}, mixedResults()[:1])

	want := []string{"run", "start", "finish", "done"}
	assert.Equal(t, want, a.calls)
	assert.Equal(t, want, b.calls)
}
