package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/pgstart/pgstart/internal/engine"
	"github.com/pgstart/pgstart/internal/hostinfo"
	"github.com/pgstart/pgstart/internal/metrics"
	"github.com/pgstart/pgstart/internal/runner"
	"github.com/pgstart/pgstart/internal/supervisor"
	"github.com/pgstart/pgstart/pkg/cleanup"
	"github.com/pgstart/pgstart/pkg/config"
	"github.com/pgstart/pgstart/pkg/logging"
	"github.com/pgstart/pgstart/pkg/retry"
	"github.com/pgstart/pgstart/pkg/shutdown"
	"github.com/pgstart/pgstart/pkg/store"
	pgtls "github.com/pgstart/pgstart/pkg/tls"
)

var logger *logging.Logger

func main() {
	cfgFile := flag.String("config", "", "config file (default: /etc/pgstart/pgstart.yaml)")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// Settings are captured once here; changing them requires a restart
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err = logging.NewFileLogger("daemon", logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	// A misconfigured instance must not start: neither statement source set
	// means initialization would be silently skipped
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err.Error())
	}

	logger.Info("Starting pgstart daemon")
	logger.Info(fmt.Sprintf("Host: %s", hostinfo.Detect()))
	logger.Info(fmt.Sprintf("Target database: %s on %s:%d", cfg.DBName, cfg.Host, cfg.Port))

	mgr := shutdown.New(15 * time.Second)
	mgr.OnHangup(func() {
		logger.Info("SIGHUP received; pgstart settings are restart-only, ignoring")
	})

	// Run journal
	journal, err := store.NewStore(store.Config{Path: cfg.HistoryPath})
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to open run journal: %v", err))
	}
	mgr.Register(shutdown.CloseResource(journal, "run journal"))

	cleaner := cleanup.NewManager(cleanup.DefaultConfig(), journal, logger)

	// SQL execution engine
	eng, err := engine.Open(cfg.DSN())
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to open engine: %v", err))
	}
	mgr.Register(shutdown.CloseResource(eng, "engine"))

	// Observability endpoints
	activity := metrics.NewActivityReporter()
	exporter := metrics.NewExporter(activity)

	router := mux.NewRouter()
	router.Handle("/metrics", exporter).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	}).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	if cfg.MetricsTLSCert != "" {
		tlsCfg, err := pgtls.LoadServerConfig(cfg.MetricsTLSCert, cfg.MetricsTLSKey, cfg.MetricsTLSCA)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to load metrics TLS config: %v", err))
		}
		srv.TLSConfig = tlsCfg
	}
	go func() {
		logger.Info(fmt.Sprintf("Metrics listening on :%s", cfg.MetricsPort))
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("Metrics server error: %v", err))
		}
	}()
	mgr.Register(shutdown.StopHTTPServer(srv, "metrics"))

	// Register the statement runner as a run-once background task that
	// starts after the instance finishes recovery
	retryCfg := retry.Config{
		MaxRetries:     cfg.ReadyMaxRetries,
		InitialBackoff: cfg.ReadyInitialBackoff,
		MaxBackoff:     cfg.ReadyMaxBackoff,
		Multiplier:     2.0,
	}

	task := runner.New(cfg, eng, logger).
		WithJournal(journal).
		WithObservability(activity, exporter)

	sup := supervisor.New(eng, retryCfg, logger)
	if err := sup.Register(supervisor.Descriptor{
		Name:          "pgstart_worker",
		StartTrigger:  supervisor.StartAfterRecovery,
		RestartPolicy: supervisor.RestartNever,
		Main:          task.Run,
	}); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to register task: %v", err))
	}

	// SIGTERM/SIGINT cancel the run between statements
	ctx, cancel := mgr.Context(context.Background())
	defer cancel()
	go mgr.Wait()

	cleaner.Start(ctx)

	runErr := sup.Run(ctx)

	cleaner.Stop()
	mgr.Shutdown()

	if runErr != nil {
		// Fatal-severity error surfaced through the standard log channel;
		// the instance keeps running, initialization is left incomplete
		logger.Error(fmt.Sprintf("pgstart: %v", runErr))
		os.Exit(1)
	}
}
