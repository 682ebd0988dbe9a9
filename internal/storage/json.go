package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"imgconform/internal/domain"
)

// NewRunOutput fills meta's counters from summary and lists its failures
func NewRunOutput(meta domain.RunMeta, summary domain.RunSummary) *domain.RunOutput {
	meta.TotalCases = summary.Total
	meta.PassedCases = summary.Passed
	meta.FailedCases = summary.Failed()
	meta.Duration = summary.Duration.String()
	meta.DurationSeconds = summary.Duration.Seconds()
	if meta.Timestamp == "" {
		meta.Timestamp = time.Now().Format(time.RFC3339)
	}

	details := make([]domain.CaseFailure, 0, summary.Failed())
	for _, r := range summary.Failures() {
		details = append(details, domain.CaseFailure{
			CaseName:       r.Case.Name,
			DescriptorPath: r.Case.DescriptorPath,
			ExpectedPath:   r.Case.ExpectedPath(),
			DiagnosticPath: r.Verdict.DiagnosticPath,
			Kind:           domain.FailureKind(r.Verdict.Err),
			Reason:         r.Verdict.Reason,
			DurationSecs:   r.Duration.Seconds(),
		})
	}
	return &domain.RunOutput{Meta: meta, Details: details}
}

// Save writes the run summary and its failures to the configured JSON output file.
func (s *JSONStorage) Save(meta domain.RunMeta, summary domain.RunSummary) (*domain.RunOutput, error) {
	output := NewRunOutput(meta, summary)
	if err := s.SaveOutput(output); err != nil {
		return nil, err
	}
	return output, nil
}

// Load reads the last run from the configured JSON output file.
func (s *JSONStorage) Load() (*domain.RunOutput, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoResults, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	var output domain.RunOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return &output, nil
}

// SaveOutput writes the full output to the configured JSON file.
func (s *JSONStorage) SaveOutput(output *domain.RunOutput) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	path := s.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
