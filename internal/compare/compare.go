// Package compare checks produced artifacts against golden files byte for byte.
package compare

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"imgconform/internal/domain"
	"imgconform/internal/logging"
)

// Comparator produces verdicts for produced/expected artifact pairs
type Comparator struct {
	updateGolden bool
	logger       *slog.Logger
}

// Option configures a Comparator
type Option func(*Comparator)

// WithUpdateGolden makes failing comparisons overwrite the golden file
// with the produced bytes. The verdict for that run stays Fail.
func WithUpdateGolden(update bool) Option {
	return func(c *Comparator) { c.updateGolden = update }
}

// WithLogger sets the logger used for best-effort write failures
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparator) { c.logger = l }
}

// NewComparator creates a new Comparator
func NewComparator(opts ...Option) *Comparator {
	c := &Comparator{logger: logging.L()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compare reads both artifacts fully and requires exact byte equality.
// When the produced artifact was readable and the verdict is Fail, it is
// saved to diagnosticPath; a failure to save never changes the verdict.
func (c *Comparator) Compare(producedPath, expectedPath, diagnosticPath string) domain.Verdict {
	got, err := os.ReadFile(producedPath)
	if err != nil {
		return domain.FailVerdict(fmt.Errorf("%w %s: %w", domain.ErrUnreadableOutput, producedPath, err))
	}

	verdict := c.check(got, expectedPath)
	if verdict.Passed() {
		c.removeStale(diagnosticPath)
		return verdict
	}

	if c.updateGolden {
		if err := os.WriteFile(expectedPath, got, 0o644); err != nil {
			c.logger.Warn("could not update golden artifact", "path", expectedPath, "err", err)
			verdict.Reason += fmt.Sprintf(" (golden update failed: %v)", err)
		} else {
			verdict.Reason += " (golden updated)"
		}
		return verdict
	}

	if diagnosticPath == "" {
		return verdict
	}
	if err := os.WriteFile(diagnosticPath, got, 0o644); err != nil {
		c.logger.Warn("could not save diagnostic artifact", "path", diagnosticPath, "err", err)
		verdict.Reason += fmt.Sprintf(" (could not save %s: %v)", filepath.Base(diagnosticPath), err)
		return verdict
	}
	verdict.DiagnosticPath = diagnosticPath
	return verdict
}

func (c *Comparator) check(got []byte, expectedPath string) domain.Verdict {
	want, err := os.ReadFile(expectedPath)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.FailVerdict(&domain.MissingExpectedArtifactError{Path: expectedPath})
	}
	if err != nil {
		return domain.FailVerdict(fmt.Errorf("cannot read expected artifact: %w", err))
	}

	if bytes.Equal(got, want) {
		return domain.PassVerdict()
	}
	return domain.FailVerdict(&domain.ArtifactMismatchError{
		ProducedSize: len(got),
		ExpectedSize: len(want),
		Offset:       firstDifference(got, want),
	})
}

// removeStale deletes a diagnostic file left by an earlier failing run
func (c *Comparator) removeStale(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("could not remove stale diagnostic artifact", "path", path, "err", err)
	}
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
