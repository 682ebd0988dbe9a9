package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"imgconform/internal/config"
	"imgconform/internal/domain"
)

func newTestStorage(t *testing.T) *JSONStorage {
	t.Helper()
	cfg := config.New()
	cfg.Root = t.TempDir()
	return NewJSONStorage(cfg)
}

func sampleSummary() domain.RunSummary {
	var s domain.RunSummary
	s.Add(domain.CaseResult{
		Case:    domain.NewTestCase("/cases/rotate.json", domain.Descriptor{File: "a.jpg"}),
		Verdict: domain.PassVerdict(),
	})
	mismatch := domain.FailVerdict(&domain.ArtifactMismatchError{ProducedSize: 3, ExpectedSize: 4, Offset: 1})
	mismatch.DiagnosticPath = "/cases/crop.got"
	s.Add(domain.CaseResult{
		Case:     domain.NewTestCase("/cases/crop.json", domain.Descriptor{File: "a.jpg"}),
		Verdict:  mismatch,
		Duration: 1500 * time.Millisecond,
	})
	s.Duration = 2 * time.Second
	return s
}

func TestJSONStorage_SaveLoad(t *testing.T) {
	st := newTestStorage(t)

	saved, err := st.Save(domain.RunMeta{RunID: "run-1", Transport: "stdio"}, sampleSummary())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Meta.FailedCases != 1 || saved.Meta.PassedCases != 1 || saved.Meta.TotalCases != 2 {
		t.Errorf("Save() meta counters = %+v", saved.Meta)
	}

	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Meta.RunID != "run-1" || loaded.Meta.Timestamp == "" {
		t.Errorf("Load() meta = %+v", loaded.Meta)
	}
	if loaded.Meta.DurationSeconds != 2 {
		t.Errorf("DurationSeconds = %v, want 2", loaded.Meta.DurationSeconds)
	}
	if len(loaded.Details) != 1 {
		t.Fatalf("Load() details = %d, want 1", len(loaded.Details))
	}

	f := loaded.Details[0]
	if f.CaseName != "crop" || f.Kind != "mismatch" || f.DiagnosticPath != "/cases/crop.got" {
		t.Errorf("failure = %+v", f)
	}
	if f.ExpectedPath != filepath.Join("/cases", "crop.out") {
		t.Errorf("ExpectedPath = %q", f.ExpectedPath)
	}
	if f.DurationSecs != 1.5 {
		t.Errorf("DurationSecs = %v, want 1.5", f.DurationSecs)
	}
}

func TestJSONStorage_SaveOutputKeepsResolved(t *testing.T) {
	st := newTestStorage(t)

	out, err := st.Save(domain.RunMeta{RunID: "run-2"}, sampleSummary())
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	out.Details[0].Resolved = true
	if err := st.SaveOutput(out); err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}

	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.Details[0].Resolved {
		t.Error("Resolved flag was not persisted")
	}
	if names := loaded.FailedNames(); len(names) != 0 {
		t.Errorf("FailedNames() = %v, want none once resolved", names)
	}
}

func TestJSONStorage_LoadMissing(t *testing.T) {
	st := newTestStorage(t)

	_, err := st.Load()
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Load() error = %v, want ErrNoResults", err)
	}
}
