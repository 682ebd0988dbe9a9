package execution

import (
	"context"

	"imgconform/internal/domain"
)

// Executor executes a suite and returns its summary
type Executor interface {
	Run(ctx context.Context) (domain.RunSummary, error)
}

// Reporter observes a run. Calls arrive sequentially from the goroutine
// that called Run.
type Reporter interface {
	RunStarted(total int)
	CaseStarted(tc domain.TestCase)
	CaseFinished(r domain.CaseResult)
	RunFinished(s domain.RunSummary)
}

// NopReporter ignores every event
type NopReporter struct{}

func (NopReporter) RunStarted(int)                 {}
func (NopReporter) CaseStarted(domain.TestCase)    {}
func (NopReporter) CaseFinished(domain.CaseResult) {}
func (NopReporter) RunFinished(domain.RunSummary)  {}
