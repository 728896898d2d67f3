package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxLineBytes bounds the length of a single statement line read from the
// statement file. Longer lines are truncated, not rejected.
const MaxLineBytes = 4096

// Statement is one unit of execution with its provenance for error messages
// and the journal
type Statement struct {
	Text      string
	Origin    string // "stmt" for the inline statement, "<path>:<line>" for file lines
	Truncated bool   // line exceeded MaxLineBytes and was cut short
}

// ReadStatementFile reads a newline-delimited statement file. Blank lines are
// skipped; every other line becomes one statement, in file order.
func ReadStatementFile(path string) ([]Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %q: %w", path, err)
	}
	defer f.Close()

	return readStatements(f, path)
}

// readStatements parses statements from r, attributing origins to path. A
// read error mid-file fails the whole parse; a partial statement list must
// never look like a complete one.
func readStatements(r io.Reader, path string) ([]Statement, error) {
	reader := bufio.NewReader(r)
	var statements []Statement
	lineNo := 0

	for {
		line, truncated, err := readBoundedLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		lineNo++

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		statements = append(statements, Statement{
			Text:      text,
			Origin:    fmt.Sprintf("%s:%d", path, lineNo),
			Truncated: truncated,
		})
	}

	return statements, nil
}

// readBoundedLine reads one line, reporting whether it exceeded MaxLineBytes.
// The remainder of an over-long line is consumed and discarded.
func readBoundedLine(r *bufio.Reader) (string, bool, error) {
	var buf []byte
	truncated := false

	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return string(buf), truncated, nil
			}
			return "", false, err
		}

		if len(buf) < MaxLineBytes {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineBytes {
				buf = buf[:MaxLineBytes]
				truncated = true
			}
		} else {
			truncated = true
		}

		if !isPrefix {
			return string(buf), truncated, nil
		}
	}
}
