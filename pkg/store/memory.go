package store

import (
	"sort"
	"sync"
	"time"

	"github.com/pgstart/pgstart/pkg/models"
)

// MemoryStore is an in-memory implementation of the run journal.
// Used when no journal path is configured, and by tests.
type MemoryStore struct {
	mu         sync.RWMutex
	runs       map[string]*models.Run
	statements map[string][]*models.StatementRecord
}

// NewMemoryStore creates a new in-memory journal
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:       make(map[string]*models.Run),
		statements: make(map[string][]*models.StatementRecord),
	}
}

// CreateRun records the start of a run
func (s *MemoryStore) CreateRun(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

// FinishRun transitions a run to a terminal state
func (s *MemoryStore) FinishRun(id string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}

	if err := models.ValidateTransition(run.Status, status); err != nil {
		return err
	}

	now := time.Now()
	run.Status = status
	run.Error = errorMsg
	run.FinishedAt = &now
	return nil
}

// GetRun retrieves a run by ID
func (s *MemoryStore) GetRun(id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}

	copied := *run
	return &copied, nil
}

// ListRuns returns the most recent runs, newest first
func (s *MemoryStore) ListRuns(limit int) ([]*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	runs := make([]*models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		runs = append(runs, &copied)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

// AppendStatement records one statement execution and bumps the run's counter
func (s *MemoryStore) AppendStatement(rec *models.StatementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	s.statements[rec.RunID] = append(s.statements[rec.RunID], &copied)
	if run, ok := s.runs[rec.RunID]; ok {
		run.Statements++
	}
	return nil
}

// ListStatements returns the statements of a run in execution order
func (s *MemoryStore) ListStatements(runID string) ([]*models.StatementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*models.StatementRecord, 0, len(s.statements[runID]))
	for _, rec := range s.statements[runID] {
		copied := *rec
		recs = append(recs, &copied)
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Ordinal < recs[j].Ordinal
	})

	return recs, nil
}

// PruneRuns deletes runs (and their statements) started before the given time
func (s *MemoryStore) PruneRuns(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, run := range s.runs {
		if run.StartedAt.Before(before) {
			delete(s.runs, id)
			delete(s.statements, id)
			pruned++
		}
	}

	return pruned, nil
}

// Close is a no-op for the in-memory journal
func (s *MemoryStore) Close() error {
	return nil
}

// HealthCheck always succeeds for the in-memory journal
func (s *MemoryStore) HealthCheck() error {
	return nil
}
