package domain

import (
	"errors"
	"testing"
)

func TestRunSummary_Succeeded(t *testing.T) {
	tests := []struct {
		name     string
		summary  RunSummary
		policy   EmptyRunPolicy
		expected bool
	}{
		{name: "all passed", summary: RunSummary{Total: 3, Passed: 3}, policy: EmptyRunFails, expected: true},
		{name: "one failed", summary: RunSummary{Total: 3, Passed: 2}, policy: EmptyRunPasses, expected: false},
		{name: "empty run fails by policy", summary: RunSummary{}, policy: EmptyRunFails, expected: false},
		{name: "empty run passes by policy", summary: RunSummary{}, policy: EmptyRunPasses, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.summary.Succeeded(tt.policy); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRunSummary_Add(t *testing.T) {
	var s RunSummary
	s.Add(CaseResult{Verdict: PassVerdict()})
	s.Add(CaseResult{Verdict: FailVerdict(&TransformError{Code: "bp.transformFailed", Message: "boom"})})

	if s.Total != 2 || s.Passed != 1 || s.Failed() != 1 {
		t.Errorf("unexpected tally: total=%d passed=%d failed=%d", s.Total, s.Passed, s.Failed())
	}
	if len(s.Failures()) != 1 {
		t.Errorf("expected 1 failure, got %d", len(s.Failures()))
	}
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{&MalformedCaseError{Path: "x.json", Err: errors.New("bad json")}, "malformed_case"},
		{&TransformError{Message: "boom"}, "transform"},
		{&MissingExpectedArtifactError{Path: "x.out"}, "missing_expected"},
		{&ArtifactMismatchError{ProducedSize: 1, ExpectedSize: 2}, "mismatch"},
		{ErrSessionClosed, "session_closed"},
		{errors.New("other"), "error"},
	}

	for _, tt := range tests {
		if got := FailureKind(tt.err); got != tt.expected {
			t.Errorf("FailureKind(%v): expected %q, got %q", tt.err, tt.expected, got)
		}
	}
}

func TestNewTransformRequest_DoesNotMutateDescriptor(t *testing.T) {
	d := Descriptor{
		File:   "sample.png",
		Params: map[string]any{"file": "sample.png", "quality": float64(80)},
	}

	req := NewTransformRequest(d, "path:/abs/sample.png")

	if req["file"] != "path:/abs/sample.png" {
		t.Errorf("expected rewritten file, got %v", req["file"])
	}
	if d.Params["file"] != "sample.png" {
		t.Errorf("descriptor params were mutated: %v", d.Params["file"])
	}
	if req["quality"] != float64(80) {
		t.Errorf("expected pass-through quality, got %v", req["quality"])
	}
}
