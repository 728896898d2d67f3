package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestActivityReporterTransitions(t *testing.T) {
	activity := NewActivityReporter()

	state, stmt, _ := activity.Snapshot()
	if state != StateIdle || stmt != "" {
		t.Errorf("Expected initial idle state, got %s / %q", state, stmt)
	}

	activity.SetRunning("SELECT 1;")
	state, stmt, _ = activity.Snapshot()
	if state != StateRunning || stmt != "SELECT 1;" {
		t.Errorf("Expected running state with statement, got %s / %q", state, stmt)
	}

	activity.SetIdle()
	state, stmt, _ = activity.Snapshot()
	if state != StateIdle || stmt != "" {
		t.Errorf("Expected idle state after SetIdle, got %s / %q", state, stmt)
	}
}

// NewExporter registers with the default Prometheus registry, so this test
// constructs the single exporter used across the test binary.
func TestExporterServeHTTP(t *testing.T) {
	activity := NewActivityReporter()
	exporter := NewExporter(activity)

	exporter.RecordStatement("ok")
	exporter.RecordStatement("ok")
	exporter.RecordStatement("failed")
	exporter.RecordRun("completed")
	activity.SetRunning("CREATE TABLE t (id int);")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	exporter.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	body := string(raw)

	for _, want := range []string{
		"pgstart_uptime_seconds",
		`pgstart_activity_state{state="running"} 1`,
		`pgstart_activity_state{state="idle"} 0`,
		"pgstart_activity_changed_timestamp_seconds",
		`pgstart_statements_total{status="ok"} 2`,
		`pgstart_statements_total{status="failed"} 1`,
		`pgstart_runs_total{status="completed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics output to contain %q\nGot:\n%s", want, body)
		}
	}
}
