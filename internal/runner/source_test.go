package runner

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStatementFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "init.sql")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write statement file: %v", err)
	}
	return path
}

func TestReadStatementFileOrder(t *testing.T) {
	path := writeStatementFile(t, "SELECT 1;\nSELECT 2;\nSELECT 3;\n")

	statements, err := ReadStatementFile(path)
	if err != nil {
		t.Fatalf("ReadStatementFile failed: %v", err)
	}

	want := []string{"SELECT 1;", "SELECT 2;", "SELECT 3;"}
	if len(statements) != len(want) {
		t.Fatalf("Expected %d statements, got %d", len(want), len(statements))
	}
	for i, stmt := range statements {
		if stmt.Text != want[i] {
			t.Errorf("Statement %d: expected %q, got %q", i, want[i], stmt.Text)
		}
	}
}

func TestReadStatementFileSkipsBlankLines(t *testing.T) {
	path := writeStatementFile(t, "SELECT 1;\n\n   \n\t\nSELECT 2;\n")

	statements, err := ReadStatementFile(path)
	if err != nil {
		t.Fatalf("ReadStatementFile failed: %v", err)
	}

	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(statements))
	}
	if statements[0].Text != "SELECT 1;" || statements[1].Text != "SELECT 2;" {
		t.Errorf("Unexpected statements: %q, %q", statements[0].Text, statements[1].Text)
	}
}

func TestReadStatementFileOriginsAreLineNumbers(t *testing.T) {
	path := writeStatementFile(t, "SELECT 1;\n\nSELECT 2;\n")

	statements, err := ReadStatementFile(path)
	if err != nil {
		t.Fatalf("ReadStatementFile failed: %v", err)
	}

	if !strings.HasSuffix(statements[0].Origin, ":1") {
		t.Errorf("Expected first origin to reference line 1, got %q", statements[0].Origin)
	}
	if !strings.HasSuffix(statements[1].Origin, ":3") {
		t.Errorf("Expected second origin to reference line 3, got %q", statements[1].Origin)
	}
}

func TestReadStatementFileNoTrailingNewline(t *testing.T) {
	path := writeStatementFile(t, "SELECT 1;\nSELECT 2;")

	statements, err := ReadStatementFile(path)
	if err != nil {
		t.Fatalf("ReadStatementFile failed: %v", err)
	}

	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(statements))
	}
}

func TestReadStatementFileTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("a", MaxLineBytes+1000)
	path := writeStatementFile(t, long+"\nSELECT 1;\n")

	statements, err := ReadStatementFile(path)
	if err != nil {
		t.Fatalf("ReadStatementFile failed: %v", err)
	}

	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(statements))
	}
	if len(statements[0].Text) != MaxLineBytes {
		t.Errorf("Expected first statement truncated to %d bytes, got %d", MaxLineBytes, len(statements[0].Text))
	}
	if !statements[0].Truncated {
		t.Error("Expected truncated statement to be flagged")
	}
	if statements[1].Text != "SELECT 1;" {
		t.Errorf("Expected statement after long line intact, got %q", statements[1].Text)
	}
	if statements[1].Truncated {
		t.Error("Expected bounded statement not to be flagged as truncated")
	}
}

// failingReader returns some data, then an I/O error.
type failingReader struct {
	data []byte
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, r.err
}

func TestReadStatementsMidFileError(t *testing.T) {
	readErr := errors.New("input/output error")
	r := &failingReader{data: []byte("SELECT 1;\nSELECT 2"), err: readErr}

	_, err := readStatements(r, "/etc/init.sql")
	if err == nil {
		t.Fatal("Expected mid-file read error to fail the parse")
	}
	if !errors.Is(err, readErr) {
		t.Errorf("Expected read error to propagate, got %v", err)
	}
	if !strings.Contains(err.Error(), "/etc/init.sql") {
		t.Errorf("Expected error to name the path: %v", err)
	}
}

func TestReadStatementsEOFIsNotAnError(t *testing.T) {
	r := &failingReader{data: []byte("SELECT 1;\nSELECT 2;"), err: io.EOF}

	statements, err := readStatements(r, "init.sql")
	if err != nil {
		t.Fatalf("readStatements failed: %v", err)
	}
	if len(statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(statements))
	}
}

func TestReadStatementFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sql")

	_, err := ReadStatementFile(path)
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("Expected error to name the path %q: %v", path, err)
	}
}
