package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/pgstart/pgstart/pkg/logging"
	"github.com/pgstart/pgstart/pkg/store"
)

// Config defines retention policy for the run journal
type Config struct {
	Enabled          bool
	RunRetentionDays int
	Interval         time.Duration
}

// DefaultConfig returns sensible defaults for journal retention
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		RunRetentionDays: 30,
		Interval:         24 * time.Hour,
	}
}

// Manager prunes old runs from the journal on a fixed interval
type Manager struct {
	config Config
	store  store.Store
	log    *logging.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// Stats tracks cleanup operations
type Stats struct {
	LastRunTime      time.Time
	TotalRunsDeleted int64
}

// NewManager creates a cleanup manager for the given journal
func NewManager(config Config, s store.Store, log *logging.Logger) *Manager {
	return &Manager{
		config: config,
		store:  s,
		log:    log,
	}
}

// Start begins periodic pruning. No-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	if !m.config.Enabled {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.Interval)
		defer ticker.Stop()

		// Prune once at startup, then on the interval
		m.prune()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.prune()
			}
		}
	}()
}

// Stop stops periodic pruning and waits for any in-flight prune
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Prune removes runs older than the retention window
func (m *Manager) Prune() (int, error) {
	cutoff := time.Now().AddDate(0, 0, -m.config.RunRetentionDays)
	deleted, err := m.store.PruneRuns(cutoff)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.stats.LastRunTime = time.Now()
	m.stats.TotalRunsDeleted += int64(deleted)
	m.mu.Unlock()

	return deleted, nil
}

// GetStats returns a copy of the cleanup statistics
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Manager) prune() {
	deleted, err := m.Prune()
	if err != nil {
		m.log.Error("Journal cleanup failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if deleted > 0 {
		m.log.Info("Journal cleanup complete", map[string]interface{}{"runs_deleted": deleted})
	}
}
