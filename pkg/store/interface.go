package store

import (
	"errors"
	"time"

	"github.com/pgstart/pgstart/pkg/models"
)

var (
	ErrRunNotFound = errors.New("run not found")
)

// Store defines the interface for the run-history journal.
// Both the SQLite and in-memory implementations satisfy it.
type Store interface {
	// Run operations
	CreateRun(run *models.Run) error
	FinishRun(id string, status models.RunStatus, errorMsg string) error
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]*models.Run, error)

	// Statement operations
	AppendStatement(rec *models.StatementRecord) error
	ListStatements(runID string) ([]*models.StatementRecord, error)

	// Maintenance
	PruneRuns(before time.Time) (int, error)

	// Lifecycle
	Close() error
	HealthCheck() error
}

// Config holds journal configuration
type Config struct {
	Path string // SQLite database path; empty selects the in-memory journal
}

// NewStore creates a journal store based on configuration
func NewStore(config Config) (Store, error) {
	if config.Path == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(config.Path)
}
