package domain

import "time"

// Status is the outcome of a single case
type Status int

const (
	Fail Status = iota
	Pass
)

func (s Status) String() string {
	if s == Pass {
		return "pass"
	}
	return "fail"
}

// Verdict is the result of comparing a case's output with its golden file.
// It is Pass iff both artifacts exist and their bytes are identical.
type Verdict struct {
	Status         Status
	Reason         string // Human readable failure reason
	Err            error  // Typed cause, nil on pass
	DiagnosticPath string // Set when mismatched output was saved
}

// PassVerdict returns a passing verdict
func PassVerdict() Verdict {
	return Verdict{Status: Pass}
}

// FailVerdict returns a failing verdict whose reason is err's message
func FailVerdict(err error) Verdict {
	return Verdict{Status: Fail, Reason: err.Error(), Err: err}
}

// Passed reports whether the verdict is Pass
func (v Verdict) Passed() bool {
	return v.Status == Pass
}

// CaseResult is the verdict of one case plus reporting data
type CaseResult struct {
	Case     TestCase
	Verdict  Verdict
	Duration time.Duration      // Wall clock of the transform, reporting only
	Response *TransformResponse // Nil when the transform failed
}

// EmptyRunPolicy decides the outcome of a run that selected no cases
type EmptyRunPolicy int

const (
	// EmptyRunFails treats a run with zero selected cases as a failure
	EmptyRunFails EmptyRunPolicy = iota
	// EmptyRunPasses treats a run with zero selected cases as vacuously successful
	EmptyRunPasses
)

// RunSummary aggregates the results of a run
type RunSummary struct {
	Total    int
	Passed   int
	Duration time.Duration
	Results  []CaseResult
}

// Add records a case result
func (s *RunSummary) Add(r CaseResult) {
	s.Total++
	if r.Verdict.Passed() {
		s.Passed++
	}
	s.Results = append(s.Results, r)
}

// Failed returns the number of failed cases
func (s RunSummary) Failed() int {
	return s.Total - s.Passed
}

// Succeeded reports whether the process should exit with status 0
func (s RunSummary) Succeeded(policy EmptyRunPolicy) bool {
	if s.Total == 0 {
		return policy == EmptyRunPasses
	}
	return s.Passed == s.Total
}

// Failures returns the failed case results
func (s RunSummary) Failures() []CaseResult {
	var out []CaseResult
	for _, r := range s.Results {
		if !r.Verdict.Passed() {
			out = append(out, r)
		}
	}
	return out
}

// RunMeta contains metadata about a stored run
type RunMeta struct {
	RunID           string  `json:"run_id"`
	Filter          string  `json:"filter,omitempty"`
	TotalCases      int     `json:"total_cases"`
	PassedCases     int     `json:"passed_cases"`
	FailedCases     int     `json:"failed_cases"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Transport       string  `json:"transport"`
	Timestamp       string  `json:"timestamp"`
}

// RunOutput is the complete stored structure for the last run
type RunOutput struct {
	Meta    RunMeta       `json:"meta"`
	Details []CaseFailure `json:"details"`
}

// FailedNames returns the names of the unresolved failed cases
func (o *RunOutput) FailedNames() map[string]struct{} {
	names := make(map[string]struct{}, len(o.Details))
	for _, f := range o.Details {
		if !f.Resolved {
			names[f.CaseName] = struct{}{}
		}
	}
	return names
}
