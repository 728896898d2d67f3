package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pgstart/pgstart/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the run journal
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore creates a new SQLite journal
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL plus a busy timeout so the daemon and the history CLI can share
	// the journal without SQLITE_BUSY errors
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the journal schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		dbname TEXT NOT NULL,
		status TEXT NOT NULL,
		statements INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS statements (
		run_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		text TEXT NOT NULL,
		origin TEXT NOT NULL,
		tag TEXT,
		rows_affected INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		executed_at DATETIME NOT NULL,
		PRIMARY KEY (run_id, ordinal),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_statements_run_id ON statements(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records the start of a run
func (s *SQLiteStore) CreateRun(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, dbname, status, statements, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Database, run.Status, run.Statements, run.Error, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun transitions a run to a terminal state
func (s *SQLiteStore) FinishRun(id string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.getRun(id)
	if err != nil {
		return err
	}

	if err := models.ValidateTransition(run.Status, status); err != nil {
		return err
	}

	result, err := s.db.Exec(`
		UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, errorMsg, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRun(id)
}

func (s *SQLiteStore) getRun(id string) (*models.Run, error) {
	var run models.Run
	var finishedAt sql.NullTime
	var errorMsg sql.NullString

	err := s.db.QueryRow(`
		SELECT id, dbname, status, statements, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Database, &run.Status, &run.Statements, &errorMsg,
		&run.StartedAt, &finishedAt)

	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if errorMsg.Valid {
		run.Error = errorMsg.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first
func (s *SQLiteStore) ListRuns(limit int) ([]*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, dbname, status, statements, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		var finishedAt sql.NullTime
		var errorMsg sql.NullString

		if err := rows.Scan(&run.ID, &run.Database, &run.Status, &run.Statements,
			&errorMsg, &run.StartedAt, &finishedAt); err != nil {
			return nil, err
		}

		if errorMsg.Valid {
			run.Error = errorMsg.String
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// AppendStatement records one statement execution and bumps the run's counter
func (s *SQLiteStore) AppendStatement(rec *models.StatementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO statements
		(run_id, ordinal, text, origin, tag, rows_affected, status, error, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Ordinal, rec.Text, rec.Origin, rec.Tag, rec.RowsAffected,
		rec.Status, rec.Error, rec.DurationMs, rec.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to append statement: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE runs SET statements = statements + 1 WHERE id = ?
	`, rec.RunID)
	return err
}

// ListStatements returns the statements of a run in execution order
func (s *SQLiteStore) ListStatements(runID string) ([]*models.StatementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT run_id, ordinal, text, origin, tag, rows_affected, status, error, duration_ms, executed_at
		FROM statements WHERE run_id = ? ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.StatementRecord
	for rows.Next() {
		var rec models.StatementRecord
		var tag, errorMsg sql.NullString

		if err := rows.Scan(&rec.RunID, &rec.Ordinal, &rec.Text, &rec.Origin, &tag,
			&rec.RowsAffected, &rec.Status, &errorMsg, &rec.DurationMs, &rec.ExecutedAt); err != nil {
			return nil, err
		}

		if tag.Valid {
			rec.Tag = tag.String
		}
		if errorMsg.Valid {
			rec.Error = errorMsg.String
		}

		recs = append(recs, &rec)
	}

	return recs, rows.Err()
}

// PruneRuns deletes runs (and their statements) started before the given time
func (s *SQLiteStore) PruneRuns(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM statements WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)
	`, before)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rows), nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies database connectivity
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}
