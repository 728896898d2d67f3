package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgstart.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "stmt: SELECT 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBName != DefaultDatabase {
		t.Errorf("Expected default dbname %q, got %q", DefaultDatabase, cfg.DBName)
	}
	if cfg.Stmt != "SELECT 1" {
		t.Errorf("Expected stmt 'SELECT 1', got %q", cfg.Stmt)
	}
	if cfg.Port != 5432 {
		t.Errorf("Expected default port 5432, got %d", cfg.Port)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("Expected default sslmode disable, got %q", cfg.SSLMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
dbname: appdb
stmt: CREATE ROLE app_ro
file: /etc/init.sql
host: db.internal
port: 5433
log_level: debug
history_path: /var/lib/pgstart/history.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBName != "appdb" {
		t.Errorf("Expected dbname appdb, got %q", cfg.DBName)
	}
	if cfg.File != "/etc/init.sql" {
		t.Errorf("Expected file /etc/init.sql, got %q", cfg.File)
	}
	if cfg.Host != "db.internal" || cfg.Port != 5433 {
		t.Errorf("Expected db.internal:5433, got %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.HistoryPath != "/var/lib/pgstart/history.db" {
		t.Errorf("Expected history path, got %q", cfg.HistoryPath)
	}
}

func TestValidateNoStatementSource(t *testing.T) {
	cfg := &Settings{DBName: DefaultDatabase}

	err := cfg.Validate()
	if !errors.Is(err, ErrNoStatementSource) {
		t.Fatalf("Expected ErrNoStatementSource, got %v", err)
	}
}

func TestValidateOneSourceSuffices(t *testing.T) {
	stmtOnly := &Settings{Stmt: "SELECT 1"}
	if err := stmtOnly.Validate(); err != nil {
		t.Errorf("stmt-only config should validate: %v", err)
	}

	fileOnly := &Settings{File: "/etc/init.sql"}
	if err := fileOnly.Validate(); err != nil {
		t.Errorf("file-only config should validate: %v", err)
	}
}

func TestValidateHalfConfiguredTLS(t *testing.T) {
	cfg := &Settings{Stmt: "SELECT 1", MetricsTLSCert: "/etc/pgstart/tls/server.crt"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for cert without key")
	}

	cfg.MetricsTLSKey = "/etc/pgstart/tls/server.key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected cert+key pair to validate: %v", err)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Settings{
		DBName:  "appdb",
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		SSLMode: "disable",
	}

	dsn := cfg.DSN()

	for _, want := range []string{"dbname=appdb", "host=localhost", "port=5432", "application_name=pgstart"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN missing %q: %s", want, dsn)
		}
	}
	if strings.Contains(dsn, "password") {
		t.Errorf("DSN should omit empty password: %s", dsn)
	}
}

func TestDSNQuotesSpaces(t *testing.T) {
	cfg := &Settings{
		DBName:   "appdb",
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p ss'word",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	if !strings.Contains(dsn, `password='p ss\'word'`) {
		t.Errorf("Expected quoted password in DSN: %s", dsn)
	}
}
