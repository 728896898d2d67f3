package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pgstart/pgstart/pkg/models"
	"github.com/pgstart/pgstart/pkg/store"
)

func seedJournal(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemoryStore()

	err := s.CreateRun(&models.Run{
		ID:        "run-1",
		Database:  "postgres",
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to seed run: %v", err)
	}
	err = s.AppendStatement(&models.StatementRecord{
		RunID:   "run-1",
		Ordinal: 1,
		Text:    "SELECT 1;",
		Origin:  "stmt",
		Tag:     "SELECT",
		Status:  models.StatementStatusOK,
	})
	if err != nil {
		t.Fatalf("Failed to seed statement: %v", err)
	}
	if err := s.FinishRun("run-1", models.RunStatusCompleted, ""); err != nil {
		t.Fatalf("Failed to finish run: %v", err)
	}
	return s
}

func withOutputFormat(t *testing.T, format string) {
	t.Helper()
	prev := outputFormat
	outputFormat = format
	t.Cleanup(func() { outputFormat = prev })
}

func TestShowRunsYAML(t *testing.T) {
	withOutputFormat(t, "yaml")
	journal := seedJournal(t)

	var buf bytes.Buffer
	if err := showRuns(&buf, journal); err != nil {
		t.Fatalf("showRuns failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"id: run-1", "database: postgres", "status: completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected yaml output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestShowStatementsYAML(t *testing.T) {
	withOutputFormat(t, "yaml")
	journal := seedJournal(t)

	var buf bytes.Buffer
	if err := showStatements(&buf, journal, "run-1"); err != nil {
		t.Fatalf("showStatements failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ordinal: 1", "origin: stmt", "tag: SELECT"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected yaml output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestShowRunsJSON(t *testing.T) {
	withOutputFormat(t, "json")
	journal := seedJournal(t)

	var buf bytes.Buffer
	if err := showRuns(&buf, journal); err != nil {
		t.Fatalf("showRuns failed: %v", err)
	}

	if !strings.Contains(buf.String(), `"id": "run-1"`) {
		t.Errorf("Expected json output to contain the run, got:\n%s", buf.String())
	}
}
