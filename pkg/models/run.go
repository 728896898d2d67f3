package models

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle state of one initialization run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"   // Run is executing statements
	RunStatusCompleted RunStatus = "completed" // All statements executed, transaction committed
	RunStatusFailed    RunStatus = "failed"    // A statement failed, transaction rolled back
	RunStatusCanceled  RunStatus = "canceled"  // Terminated between statements, transaction rolled back
)

// StatementStatus represents the outcome of a single statement execution
type StatementStatus string

const (
	StatementStatusOK     StatementStatus = "ok"
	StatementStatusFailed StatementStatus = "failed"
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[RunStatus]map[RunStatus]bool{
	RunStatusRunning: {
		RunStatusCompleted: true,
		RunStatusFailed:    true,
		RunStatusCanceled:  true,
	},
	// Terminal states (no transitions allowed)
	RunStatusCompleted: {},
	RunStatusFailed:    {},
	RunStatusCanceled:  {},
}

// ValidateTransition checks if a run state transition is valid
func ValidateTransition(from, to RunStatus) error {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	if !allowedStates[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}

	return nil
}

// IsTerminalState returns true if the state is terminal (no further transitions)
func IsTerminalState(state RunStatus) bool {
	allowed, exists := validTransitions[state]
	return exists && len(allowed) == 0
}

// Run is the journal record for one initialization run
type Run struct {
	ID         string     `json:"id"`
	Database   string     `json:"database"`
	Status     RunStatus  `json:"status"`
	Statements int        `json:"statements"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatementRecord is the journal record for one executed statement
type StatementRecord struct {
	RunID        string          `json:"run_id"`
	Ordinal      int             `json:"ordinal"` // 1-based execution order within the run
	Text         string          `json:"text"`
	Origin       string          `json:"origin"` // "stmt" or "<file>:<line>"
	Tag          string          `json:"tag"`    // command tag, e.g. SELECT, CREATE
	RowsAffected int64           `json:"rows_affected"`
	Status       StatementStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
	DurationMs   int64           `json:"duration_ms"`
	ExecutedAt   time.Time       `json:"executed_at"`
}
