package history

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"imgconform/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		started_ms BIGINT NOT NULL,
		name_filter VARCHAR(255) NOT NULL,
		transport VARCHAR(16) NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS verdicts (
		run_id VARCHAR(36) NOT NULL,
		case_name VARCHAR(255) NOT NULL,
		status VARCHAR(8) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		reason TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		PRIMARY KEY (run_id, case_name)
	)`,
}

// Run is one recorded run
type Run struct {
	ID        string
	StartedAt time.Time
	Filter    string
	Transport string
	Total     int
	Passed    int
	Duration  time.Duration
}

// Flip is a case whose verdict differs between two runs
type Flip struct {
	CaseName string
	From     string
	To       string
}

// Store reads and writes run history
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the history database and creates its tables
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := openDB(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create history schema: %w", err)
		}
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and one verdict row per case in a transaction
func (s *Store) Record(ctx context.Context, meta domain.RunMeta, summary domain.RunSummary) error {
	started := time.Now()
	if ts, err := time.Parse(time.RFC3339, meta.Timestamp); err == nil {
		started = ts
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_ms, name_filter, transport, total, passed, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.RunID, started.UnixMilli(), meta.Filter, meta.Transport, summary.Total, summary.Passed, summary.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", meta.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verdicts (run_id, case_name, status, kind, reason, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range summary.Results {
		_, err := stmt.ExecContext(ctx, meta.RunID, r.Case.Name, r.Verdict.Status.String(),
			domain.FailureKind(r.Verdict.Err), r.Verdict.Reason, r.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("insert verdict %s: %w", r.Case.Name, err)
		}
	}
	return tx.Commit()
}

// Recent returns the latest runs, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_ms, name_filter, transport, total, passed, duration_ms FROM runs ORDER BY started_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                     Run
			startedMs, durationMs int64
		)
		if err := rows.Scan(&r.ID, &startedMs, &r.Filter, &r.Transport, &r.Total, &r.Passed, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMs)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Verdicts returns case name -> status for a run
func (s *Store) Verdicts(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT case_name, status FROM verdicts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, status string
		if err := rows.Scan(&name, &status); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		out[name] = status
	}
	return out, rows.Err()
}

// Flips compares the two most recent runs and returns the cases present in
// both whose status changed, sorted by name
func (s *Store) Flips(ctx context.Context) ([]Flip, error) {
	runs, err := s.Recent(ctx, 2)
	if err != nil || len(runs) < 2 {
		return nil, err
	}
	latest, err := s.Verdicts(ctx, runs[0].ID)
	if err != nil {
		return nil, err
	}
	previous, err := s.Verdicts(ctx, runs[1].ID)
	if err != nil {
		return nil, err
	}

	var flips []Flip
	for name, to := range latest {
		if from, ok := previous[name]; ok && from != to {
			flips = append(flips, Flip{CaseName: name, From: from, To: to})
		}
	}
	slices.SortFunc(flips, func(a, b Flip) int { return strings.Compare(a.CaseName, b.CaseName) })
	return flips, nil
}
