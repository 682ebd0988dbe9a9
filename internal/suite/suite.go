// Package suite runs the conformance cases from a Go test, one subtest per
// case:
//
//	func TestImageAlter(t *testing.T) {
//		cfg, err := config.Load("", "../test")
//		require.NoError(t, err)
//		suite.Run(t, cfg)
//	}
package suite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"imgconform/internal/config"
	"imgconform/internal/domain"
	"imgconform/internal/execution"
	"imgconform/internal/service"
)

// TB is the part of *testing.T the suite needs
type TB interface {
	Helper()
	Run(name string, f func(t *testing.T)) bool
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

type options struct {
	open service.Opener
	ctx  context.Context
}

// Option configures Run
type Option func(*options)

// WithOpener replaces the session opener derived from the config
func WithOpener(open service.Opener) Option {
	return func(o *options) { o.open = open }
}

// WithContext sets the context of the run
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Run executes every selected case of cfg on one session and reports each
// verdict as a subtest. Session acquisition failure and an empty selection
// (unless run.allow_empty is set) fail t.
func Run(t TB, cfg *config.Config, opts ...Option) domain.RunSummary {
	t.Helper()

	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.open == nil {
		o.open = service.NewOpener(service.OptionsFromConfig(cfg))
	}

	runner := execution.NewFromConfig(cfg, o.open, &Reporter{t: t}, execution.OptionsFromConfig(cfg))
	summary, err := runner.Run(o.ctx)
	if err != nil {
		t.Fatalf("conformance run: %v", err)
		return summary
	}
	if summary.Total == 0 && cfg.EmptyRunPolicy() == domain.EmptyRunFails {
		t.Fatalf("no test cases selected in %s", cfg.GetCasesPath())
	}
	return summary
}

// Reporter turns case verdicts into subtests
type Reporter struct {
	t TB
}

func (r *Reporter) RunStarted(total int) {
	r.t.Logf("running %d case(s)", total)
}

func (r *Reporter) CaseStarted(domain.TestCase) {}

func (r *Reporter) CaseFinished(res domain.CaseResult) {
	r.t.Run(res.Case.Name, func(t *testing.T) {
		if p := res.Response; p != nil && p.HasDimensions() {
			t.Logf("%dx%d -> %dx%d took %s", p.OrigWidth, p.OrigHeight, p.Width, p.Height, res.Duration)
		}
		assert.Truef(t, res.Verdict.Passed(), "%s", res.Verdict.Reason)
		if res.Verdict.DiagnosticPath != "" {
			t.Logf("produced output left in %s", res.Verdict.DiagnosticPath)
		}
	})
}

func (r *Reporter) RunFinished(s domain.RunSummary) {
	r.t.Logf("%d/%d tests completed successfully", s.Passed, s.Total)
}
