package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultDatabase is the database pgstart connects to when dbname is not set
const DefaultDatabase = "postgres"

var (
	// ErrNoStatementSource is returned when neither stmt nor file is configured.
	// This is fatal at startup: a misconfigured instance must not silently
	// skip initialization.
	ErrNoStatementSource = errors.New("pgstart.stmt and pgstart.file are not set")
)

// Settings holds the pgstart configuration, captured once at startup.
// All values are restart-only: changing them requires restarting the daemon.
type Settings struct {
	// Statement sources
	DBName string // database to connect to (default "postgres")
	Stmt   string // single SQL statement executed first
	File   string // path to newline-delimited SQL statements executed after Stmt

	// Connection
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string

	// Readiness probing (wait for the instance to leave recovery)
	ReadyMaxRetries     int
	ReadyInitialBackoff time.Duration
	ReadyMaxBackoff     time.Duration

	// Ambient
	LogLevel    string
	LogJSON     bool
	MetricsPort string
	HistoryPath string // SQLite run journal path; empty disables persistence

	// TLS for the metrics endpoint; both cert and key must be set to enable.
	// MetricsTLSCA additionally requires client certificates.
	MetricsTLSCert string
	MetricsTLSKey  string
	MetricsTLSCA   string
}

// Load reads configuration from the given file (optional) and PGSTART_*
// environment variables. Defaults are applied for everything except the
// statement sources.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("dbname", DefaultDatabase)
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 5432)
	v.SetDefault("user", "postgres")
	v.SetDefault("sslmode", "disable")
	v.SetDefault("ready_max_retries", 30)
	v.SetDefault("ready_initial_backoff", "1s")
	v.SetDefault("ready_max_backoff", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("metrics_port", "9187")
	v.SetDefault("history_path", "")
	v.SetDefault("metrics_tls_cert", "")
	v.SetDefault("metrics_tls_key", "")
	v.SetDefault("metrics_tls_ca", "")

	v.SetEnvPrefix("PGSTART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("pgstart")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/pgstart")
		v.AddConfigPath(".")
		// Missing default config file is fine; env vars may carry everything
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	s := &Settings{
		DBName:              v.GetString("dbname"),
		Stmt:                v.GetString("stmt"),
		File:                v.GetString("file"),
		Host:                v.GetString("host"),
		Port:                v.GetInt("port"),
		User:                v.GetString("user"),
		Password:            v.GetString("password"),
		SSLMode:             v.GetString("sslmode"),
		ReadyMaxRetries:     v.GetInt("ready_max_retries"),
		ReadyInitialBackoff: v.GetDuration("ready_initial_backoff"),
		ReadyMaxBackoff:     v.GetDuration("ready_max_backoff"),
		LogLevel:            v.GetString("log_level"),
		LogJSON:             v.GetBool("log_json"),
		MetricsPort:         v.GetString("metrics_port"),
		HistoryPath:         v.GetString("history_path"),
		MetricsTLSCert:      v.GetString("metrics_tls_cert"),
		MetricsTLSKey:       v.GetString("metrics_tls_key"),
		MetricsTLSCA:        v.GetString("metrics_tls_ca"),
	}

	if s.DBName == "" {
		s.DBName = DefaultDatabase
	}

	return s, nil
}

// Validate checks that at least one statement source is configured
func (s *Settings) Validate() error {
	if s.Stmt == "" && s.File == "" {
		return ErrNoStatementSource
	}
	if (s.MetricsTLSCert == "") != (s.MetricsTLSKey == "") {
		return errors.New("metrics_tls_cert and metrics_tls_key must both be set")
	}
	return nil
}

// DSN builds a lib/pq connection string for the configured database
func (s *Settings) DSN() string {
	params := map[string]string{
		"dbname":           s.DBName,
		"host":             s.Host,
		"port":             fmt.Sprintf("%d", s.Port),
		"user":             s.User,
		"sslmode":          s.SSLMode,
		"application_name": "pgstart",
	}
	if s.Password != "" {
		params["password"] = s.Password
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(params))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, quoteDSNValue(params[k])))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a DSN value if it contains spaces or is empty
func quoteDSNValue(v string) string {
	if v == "" || strings.ContainsAny(v, " '\\") {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		return "'" + v + "'"
	}
	return v
}
