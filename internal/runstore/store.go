package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// Store provides SQLite-backed run history. It records what happened to
// each repository across migration runs so status queries work without
// touching any working copy.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one recorded invocation, single-repo or batch.
type Run struct {
	ID         string
	Kind       string // "single" or "batch"
	Registry   string
	StartedAt  time.Time
	FinishedAt time.Time
	Completed  int
	Failed     int
	Skipped    int
}

// RepoRun is the recorded outcome for one repository within a run.
type RepoRun struct {
	Repo       string
	URL        string
	State      domain.State
	Error      string
	FinishedAt time.Time
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(kind, registry string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, kind, registry, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, registry, time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun records the aggregate counts and completion time of a run.
func (s *Store) FinishRun(runID string, completed, failed, skipped int) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, completed = ?, failed = ?, skipped = ? WHERE id = ?`,
		time.Now().UTC(), completed, failed, skipped, runID,
	)
	return err
}

// RecordRepoRun stores the final state of one repository in a run. The
// error message is empty for successful and skipped repositories.
func (s *Store) RecordRepoRun(runID string, rr RepoRun) error {
	_, err := s.db.Exec(
		`INSERT INTO repo_runs (run_id, repo, url, state, error, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rr.Repo, rr.URL, string(rr.State), rr.Error, time.Now().UTC(),
	)
	return err
}

// LatestRepoStates returns the most recent recorded state per repository,
// newest first.
func (s *Store) LatestRepoStates() ([]RepoRun, error) {
	rows, err := s.db.Query(`
		SELECT repo, url, state, error, finished_at FROM repo_runs
		WHERE id IN (SELECT MAX(id) FROM repo_runs GROUP BY repo)
		ORDER BY finished_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RepoRun
	for rows.Next() {
		var rr RepoRun
		var state, errMsg sql.NullString
		if err := rows.Scan(&rr.Repo, &rr.URL, &state, &errMsg, &rr.FinishedAt); err != nil {
			return nil, err
		}
		rr.State = domain.State(state.String)
		rr.Error = errMsg.String
		result = append(result, rr)
	}
	return result, rows.Err()
}

// RecentRuns returns the last n runs, newest first.
func (s *Store) RecentRuns(n int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, registry, started_at, finished_at, completed, failed, skipped
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var registry sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Kind, &registry, &r.StartedAt, &finished, &r.Completed, &r.Failed, &r.Skipped); err != nil {
			return nil, err
		}
		r.Registry = registry.String
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
