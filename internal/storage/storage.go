package storage

import (
	"errors"

	"imgconform/internal/config"
	"imgconform/internal/domain"
)

// ErrNoResults is returned by Load when no run has been stored yet
var ErrNoResults = errors.New("no stored run results")

// Storage persists and loads the last run (for --failed, list and the failures viewer).
type Storage interface {
	Save(meta domain.RunMeta, summary domain.RunSummary) (*domain.RunOutput, error)
	Load() (*domain.RunOutput, error)
	// SaveOutput writes the full output (e.g. after marking failures resolved).
	SaveOutput(output *domain.RunOutput) error
}

// JSONStorage stores results in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// Path returns the JSON file location
func (s *JSONStorage) Path() string {
	return s.cfg.GetOutputPath()
}
