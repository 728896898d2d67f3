package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Exporter exports Prometheus metrics for the pgstart daemon
type Exporter struct {
	activity  *ActivityReporter
	startTime time.Time

	statementsTotal *promclient.CounterVec
	runsTotal       *promclient.CounterVec
}

// NewExporter creates a Prometheus exporter and registers its counters with
// the default registry
func NewExporter(activity *ActivityReporter) *Exporter {
	e := &Exporter{
		activity:  activity,
		startTime: time.Now(),
		statementsTotal: promclient.NewCounterVec(
			promclient.CounterOpts{
				Name: "pgstart_statements_total",
				Help: "Total statements executed by outcome",
			},
			[]string{"status"},
		),
		runsTotal: promclient.NewCounterVec(
			promclient.CounterOpts{
				Name: "pgstart_runs_total",
				Help: "Total initialization runs by outcome",
			},
			[]string{"status"},
		),
	}

	promclient.MustRegister(e.statementsTotal, e.runsTotal)
	return e
}

// RecordStatement records one statement execution outcome ("ok" or "failed")
func (e *Exporter) RecordStatement(status string) {
	e.statementsTotal.WithLabelValues(status).Inc()
}

// RecordRun records one run outcome ("completed", "failed" or "canceled")
func (e *Exporter) RecordRun(status string) {
	e.runsTotal.WithLabelValues(status).Inc()
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// pgstart_uptime_seconds
	fmt.Fprintf(w, "# HELP pgstart_uptime_seconds Daemon uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE pgstart_uptime_seconds gauge\n")
	fmt.Fprintf(w, "pgstart_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	// pgstart_activity_state: 1 for the current state, 0 otherwise
	state, _, changedAt := e.activity.Snapshot()
	fmt.Fprintf(w, "\n# HELP pgstart_activity_state Runner activity state\n")
	fmt.Fprintf(w, "# TYPE pgstart_activity_state gauge\n")
	for _, s := range []string{StateIdle, StateRunning} {
		val := 0
		if s == state {
			val = 1
		}
		fmt.Fprintf(w, "pgstart_activity_state{state=\"%s\"} %d\n", s, val)
	}

	fmt.Fprintf(w, "\n# HELP pgstart_activity_changed_timestamp_seconds Time of last activity change\n")
	fmt.Fprintf(w, "# TYPE pgstart_activity_changed_timestamp_seconds gauge\n")
	fmt.Fprintf(w, "pgstart_activity_changed_timestamp_seconds %d\n", changedAt.Unix())

	// Append the registry-managed metrics (statement/run counters)
	fmt.Fprintf(w, "\n")
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
