package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pgstart/pgstart/internal/engine"
	"github.com/pgstart/pgstart/internal/metrics"
	"github.com/pgstart/pgstart/internal/runner"
	"github.com/pgstart/pgstart/internal/supervisor"
	"github.com/pgstart/pgstart/pkg/config"
	"github.com/pgstart/pgstart/pkg/logging"
	"github.com/pgstart/pgstart/pkg/retry"
	"github.com/pgstart/pgstart/pkg/shutdown"
	"github.com/pgstart/pgstart/pkg/store"
	"github.com/spf13/cobra"
)

var (
	runWait    bool
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured statements now",
	Long: `Executes the configured statements immediately through the same code
path the daemon uses. With --wait, blocks until the instance accepts
connections and has left recovery before executing.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runWait, "wait", false, "wait for the instance to leave recovery before executing")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "overall timeout for the run (0 = no timeout)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)

	eng, err := engine.Open(cfg.DSN())
	if err != nil {
		return err
	}
	defer eng.Close()

	journal, err := store.NewStore(store.Config{Path: cfg.HistoryPath})
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}
	defer journal.Close()

	mgr := shutdown.New(5 * time.Second)
	ctx, cancel := mgr.Context(context.Background())
	defer cancel()
	go mgr.Wait()

	if runTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, runTimeout)
		defer timeoutCancel()
	}

	activity := metrics.NewActivityReporter()
	task := runner.New(cfg, eng, logger).
		WithJournal(journal).
		WithObservability(activity, nil)

	trigger := supervisor.StartImmediately
	if runWait {
		trigger = supervisor.StartAfterRecovery
	}

	sup := supervisor.New(eng, readyRetryConfig(cfg), logger)
	if err := sup.Register(supervisor.Descriptor{
		Name:          "pgstart_worker",
		StartTrigger:  trigger,
		RestartPolicy: supervisor.RestartNever,
		Main:          task.Run,
	}); err != nil {
		return err
	}

	return sup.Run(ctx)
}

func readyRetryConfig(cfg *config.Settings) retry.Config {
	return retry.Config{
		MaxRetries:     cfg.ReadyMaxRetries,
		InitialBackoff: cfg.ReadyInitialBackoff,
		MaxBackoff:     cfg.ReadyMaxBackoff,
		Multiplier:     2.0,
	}
}
