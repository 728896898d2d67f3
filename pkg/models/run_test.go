package models

import "testing"

func TestValidTransitions(t *testing.T) {
	valid := []struct{ from, to RunStatus }{
		{RunStatusRunning, RunStatusCompleted},
		{RunStatusRunning, RunStatusFailed},
		{RunStatusRunning, RunStatusCanceled},
	}

	for _, tr := range valid {
		if err := ValidateTransition(tr.from, tr.to); err != nil {
			t.Errorf("Expected %s -> %s to be valid: %v", tr.from, tr.to, err)
		}
	}
}

func TestInvalidTransitions(t *testing.T) {
	invalid := []struct{ from, to RunStatus }{
		{RunStatusCompleted, RunStatusRunning},
		{RunStatusFailed, RunStatusCompleted},
		{RunStatusCanceled, RunStatusRunning},
		{RunStatusCompleted, RunStatusFailed},
	}

	for _, tr := range invalid {
		if err := ValidateTransition(tr.from, tr.to); err == nil {
			t.Errorf("Expected %s -> %s to be rejected", tr.from, tr.to)
		}
	}
}

func TestUnknownSourceState(t *testing.T) {
	if err := ValidateTransition(RunStatus("bogus"), RunStatusCompleted); err == nil {
		t.Error("Expected unknown source state to be rejected")
	}
}

func TestIsTerminalState(t *testing.T) {
	if IsTerminalState(RunStatusRunning) {
		t.Error("running should not be terminal")
	}
	for _, s := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCanceled} {
		if !IsTerminalState(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
}
