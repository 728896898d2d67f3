package metrics

import (
	"sync"
	"time"
)

// Activity states reported by the runner, mirrored into pg_stat-style
// monitoring output
const (
	StateIdle    = "idle"
	StateRunning = "running"
)

// ActivityReporter tracks what the statement runner is currently doing
type ActivityReporter struct {
	mu        sync.RWMutex
	state     string
	statement string
	changedAt time.Time
}

// NewActivityReporter creates a reporter in the idle state
func NewActivityReporter() *ActivityReporter {
	return &ActivityReporter{
		state:     StateIdle,
		changedAt: time.Now(),
	}
}

// SetRunning reports that the given statement is executing
func (a *ActivityReporter) SetRunning(statement string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateRunning
	a.statement = statement
	a.changedAt = time.Now()
}

// SetIdle reports that no statement is executing
func (a *ActivityReporter) SetIdle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateIdle
	a.statement = ""
	a.changedAt = time.Now()
}

// Snapshot returns the current state, statement and time of last change
func (a *ActivityReporter) Snapshot() (state, statement string, changedAt time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state, a.statement, a.changedAt
}
