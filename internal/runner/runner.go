package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgstart/pgstart/internal/engine"
	"github.com/pgstart/pgstart/internal/metrics"
	"github.com/pgstart/pgstart/pkg/config"
	"github.com/pgstart/pgstart/pkg/logging"
	"github.com/pgstart/pgstart/pkg/models"
	"github.com/pgstart/pgstart/pkg/store"
)

// StatementError reports a failed statement execution with enough context
// for an operator to diagnose it
type StatementError struct {
	Stmt string
	Err  error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("pgstart: %s failed: %v", e.Stmt, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Runner executes the configured statements exactly once inside one
// transaction. It is the supervisor's task entry point.
type Runner struct {
	cfg      *config.Settings
	eng      engine.Engine
	log      *logging.Logger
	journal  store.Store
	activity *metrics.ActivityReporter
	exporter *metrics.Exporter
}

// New creates a runner. Journal, activity and exporter are optional.
func New(cfg *config.Settings, eng engine.Engine, log *logging.Logger) *Runner {
	return &Runner{
		cfg: cfg,
		eng: eng,
		log: log,
	}
}

// WithJournal attaches a run-history journal
func (r *Runner) WithJournal(s store.Store) *Runner {
	r.journal = s
	return r
}

// WithObservability attaches activity reporting and metrics
func (r *Runner) WithObservability(activity *metrics.ActivityReporter, exporter *metrics.Exporter) *Runner {
	r.activity = activity
	r.exporter = exporter
	return r
}

// Run executes the inline statement (if set) and then every non-blank line of
// the statement file (if set), each as an independent execution inside one
// shared transaction. Straight-line, run-once: there is no loop, no retry,
// and no partial-success accounting. The context is consulted between
// statements; cancellation rolls back and aborts the run.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info(fmt.Sprintf("pgstart: initialized in database %s", r.cfg.DBName))

	run := &models.Run{
		ID:        fmt.Sprintf("run-%d", time.Now().UnixNano()),
		Database:  r.cfg.DBName,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}
	r.recordRunStart(run)

	if err := r.eng.Begin(ctx); err != nil {
		r.finishRun(run.ID, models.RunStatusFailed, err)
		return err
	}

	r.setRunning(r.cfg.Stmt)

	ordinal := 0

	// Inline statement always executes before any file-sourced statements
	if r.cfg.Stmt != "" {
		ordinal++
		if err := r.execute(ctx, run.ID, ordinal, Statement{Text: r.cfg.Stmt, Origin: "stmt"}); err != nil {
			r.abort(run.ID, err)
			return err
		}
	}

	if r.cfg.File != "" {
		statements, err := ReadStatementFile(r.cfg.File)
		if err != nil {
			r.abort(run.ID, err)
			return err
		}

		for _, stmt := range statements {
			ordinal++
			if err := r.execute(ctx, run.ID, ordinal, stmt); err != nil {
				r.abort(run.ID, err)
				return err
			}
		}
	}

	if err := r.eng.Commit(); err != nil {
		r.abort(run.ID, err)
		return err
	}

	r.setIdle()
	r.finishRun(run.ID, models.RunStatusCompleted, nil)
	r.log.Info("pgstart: exiting")
	return nil
}

// execute runs one statement, recording the outcome in the journal and
// metrics. A context cancelled between statements aborts before executing.
func (r *Runner) execute(ctx context.Context, runID string, ordinal int, stmt Statement) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", stmt.Origin, err)
	}

	if stmt.Truncated {
		r.log.Warn(fmt.Sprintf("pgstart: statement at %s truncated to %d bytes", stmt.Origin, MaxLineBytes))
	}

	r.setRunning(stmt.Text)
	r.log.Info(fmt.Sprintf("pgstart: running %s", stmt.Text))

	start := time.Now()
	result, err := r.eng.Execute(ctx, stmt.Text)
	duration := time.Since(start)

	rec := &models.StatementRecord{
		RunID:        runID,
		Ordinal:      ordinal,
		Text:         stmt.Text,
		Origin:       stmt.Origin,
		Tag:          result.Tag,
		RowsAffected: result.RowsAffected,
		Status:       models.StatementStatusOK,
		DurationMs:   duration.Milliseconds(),
		ExecutedAt:   start,
	}

	if err != nil {
		rec.Status = models.StatementStatusFailed
		rec.Error = err.Error()
		r.recordStatement(rec)
		return &StatementError{Stmt: stmt.Text, Err: err}
	}

	r.recordStatement(rec)
	return nil
}

// abort rolls back the transaction and marks the run failed or canceled
func (r *Runner) abort(runID string, cause error) {
	if rbErr := r.eng.Rollback(); rbErr != nil {
		r.log.Error(fmt.Sprintf("pgstart: rollback failed: %v", rbErr))
	}

	status := models.RunStatusFailed
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		status = models.RunStatusCanceled
	}

	r.setIdle()
	r.finishRun(runID, status, cause)
	r.log.Error(fmt.Sprintf("pgstart: run aborted: %v", cause))
}

func (r *Runner) setRunning(stmt string) {
	if r.activity != nil {
		r.activity.SetRunning(stmt)
	}
}

func (r *Runner) setIdle() {
	if r.activity != nil {
		r.activity.SetIdle()
	}
}

func (r *Runner) recordRunStart(run *models.Run) {
	if r.journal == nil {
		return
	}
	if err := r.journal.CreateRun(run); err != nil {
		r.log.Warn(fmt.Sprintf("pgstart: failed to journal run start: %v", err))
	}
}

func (r *Runner) finishRun(id string, status models.RunStatus, cause error) {
	if r.exporter != nil {
		r.exporter.RecordRun(string(status))
	}
	if r.journal == nil {
		return
	}
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	if err := r.journal.FinishRun(id, status, errMsg); err != nil {
		r.log.Warn(fmt.Sprintf("pgstart: failed to journal run finish: %v", err))
	}
}

func (r *Runner) recordStatement(rec *models.StatementRecord) {
	if r.exporter != nil {
		r.exporter.RecordStatement(string(rec.Status))
	}
	if r.journal == nil {
		return
	}
	if err := r.journal.AppendStatement(rec); err != nil {
		r.log.Warn(fmt.Sprintf("pgstart: failed to journal statement: %v", err))
	}
}
