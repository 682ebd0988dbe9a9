package execution

import (
	"context"
	"fmt"
	"time"

	"imgconform/internal/compare"
	"imgconform/internal/discovery"
	"imgconform/internal/domain"
	"imgconform/internal/locator"
	"imgconform/internal/service"
)

// CaseRunner executes a single test case on a session
type CaseRunner struct {
	resolver   *discovery.Resolver
	comparator *compare.Comparator
}

// NewCaseRunner creates a new CaseRunner
func NewCaseRunner(resolver *discovery.Resolver, comparator *compare.Comparator) *CaseRunner {
	return &CaseRunner{
		resolver:   resolver,
		comparator: comparator,
	}
}

// Run transforms tc's asset and compares the produced artifact with the
// golden file. A transform error fails the case without a comparison.
func (r *CaseRunner) Run(ctx context.Context, s service.Session, tc domain.TestCase) domain.CaseResult {
	result := domain.CaseResult{Case: tc}

	req, err := r.resolver.Request(tc)
	if err != nil {
		result.Verdict = domain.FailVerdict(err)
		return result
	}

	start := time.Now()
	resp, err := s.Transform(ctx, req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Verdict = domain.FailVerdict(err)
		return result
	}

	result.Response = &resp
	produced, err := locator.Decode(resp.File)
	if err != nil {
		result.Verdict = domain.FailVerdict(fmt.Errorf("%w: %w", domain.ErrUnreadableOutput, err))
		return result
	}
	result.Verdict = r.comparator.Compare(produced, tc.ExpectedPath(), tc.DiagnosticPath())
	return result
}
