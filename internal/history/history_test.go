package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgconform/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func summaryOf(verdicts map[string]bool) domain.RunSummary {
	var s domain.RunSummary
	for name, pass := range verdicts {
		v := domain.PassVerdict()
		if !pass {
			v = domain.FailVerdict(&domain.ArtifactMismatchError{ProducedSize: 1, ExpectedSize: 2})
		}
		s.Add(domain.CaseResult{
			Case:     domain.NewTestCase("/cases/"+name+".json", domain.Descriptor{}),
			Verdict:  v,
			Duration: 10 * time.Millisecond,
		})
	}
	s.Duration = time.Second
	return s
}

func record(t *testing.T, s *Store, id string, at time.Time, verdicts map[string]bool) {
	t.Helper()
	meta := domain.RunMeta{RunID: id, Transport: "stdio", Filter: "rot", Timestamp: at.Format(time.RFC3339)}
	require.NoError(t, s.Record(context.Background(), meta, summaryOf(verdicts)))
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	record(t, s, "run-a", base, map[string]bool{"rotate": true, "crop": false})
	record(t, s, "run-b", base.Add(time.Minute), map[string]bool{"rotate": true, "crop": true})

	runs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, 2, runs[0].Passed)
	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, 1, runs[1].Passed)
	assert.Equal(t, 2, runs[1].Total)
	assert.Equal(t, "rot", runs[1].Filter)
	assert.Equal(t, time.Second, runs[1].Duration)
	assert.True(t, runs[1].StartedAt.Equal(base))

	verdicts, err := s.Verdicts(context.Background(), "run-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"rotate": "pass", "crop": "fail"}, verdicts)
}

func TestStore_Flips(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	flips, err := s.Flips(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flips, "no flips without two runs")

	record(t, s, "run-a", base, map[string]bool{"rotate": true, "crop": false, "scale": true})
	record(t, s, "run-b", base.Add(time.Minute), map[string]bool{"rotate": false, "crop": true, "blur": true})

	flips, err = s.Flips(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Flip{
		{CaseName: "crop", From: "fail", To: "pass"},
		{CaseName: "rotate", From: "pass", To: "fail"},
	}, flips)
}

func TestStore_IdenticalRunsDoNotFlip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verdicts := map[string]bool{"rotate": true, "crop": false}

	record(t, s, "run-a", base, verdicts)
	record(t, s, "run-b", base.Add(time.Second), verdicts)

	flips, err := s.Flips(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flips)
}

func TestStore_DuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	record(t, s, "run-a", now, map[string]bool{"rotate": true})

	meta := domain.RunMeta{RunID: "run-a", Timestamp: now.Format(time.RFC3339)}
	assert.Error(t, s.Record(context.Background(), meta, summaryOf(nil)))

	runs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "x")
	assert.ErrorContains(t, err, "unknown history driver")
}

func TestMySQLDSNFromEnv(t *testing.T) {
	tests := []struct {
		name                       string
		env                        map[string]string
		user, passwd, addr, dbName string
	}{
		{
			name:   "defaults",
			env:    map[string]string{"DB_HOST": "", "DB_PORT": "", "DB_USERNAME": "", "DB_PASSWORD": "", "DB_DATABASE": ""},
			user:   "root",
			addr:   "127.0.0.1:3306",
			dbName: "imgconform",
		},
		{
			name:   "from env",
			env:    map[string]string{"DB_HOST": "db", "DB_PORT": "3307", "DB_USERNAME": "ci", "DB_PASSWORD": "secret", "DB_DATABASE": "conform_history"},
			user:   "ci",
			passwd: "secret",
			addr:   "db:3307",
			dbName: "conform_history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c, err := mysql.ParseDSN(MySQLDSNFromEnv())
			require.NoError(t, err)
			assert.Equal(t, tt.user, c.User)
			assert.Equal(t, tt.passwd, c.Passwd)
			assert.Equal(t, "tcp", c.Net)
			assert.Equal(t, tt.addr, c.Addr)
			assert.Equal(t, tt.dbName, c.DBName)
		})
	}
}

func TestIsValidDatabaseName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"imgconform", true},
		{"conform_history-2", true},
		{"", false},
		{"bad`name", false},
		{"x; DROP DATABASE y", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidDatabaseName(tt.name))
		})
	}
}
