package engine

import (
	"context"
	"strings"
)

// Result describes a completed statement execution.
//
// Any execution that returns without error is a success, regardless of the
// command tag; SELECT, DDL and DML are all accepted. The tag and row count
// are recorded for the journal and logs.
type Result struct {
	Tag          string
	RowsAffected int64
}

// Engine is the SQL execution interface consumed by the runner. The runner
// always brackets Execute calls with Begin and Commit/Rollback; every
// statement runs inside one shared transaction.
type Engine interface {
	// Ping verifies the instance accepts connections
	Ping(ctx context.Context) error
	// InRecovery reports whether the instance is still replaying WAL
	InRecovery(ctx context.Context) (bool, error)

	Begin(ctx context.Context) error
	Execute(ctx context.Context, stmt string) (Result, error)
	Commit() error
	Rollback() error

	Close() error
}

// CommandTag derives the command tag from the leading keywords of a
// statement. database/sql does not surface the server's tag, so this is a
// client-side approximation used for logging and the journal only.
func CommandTag(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return ""
	}

	first := strings.ToUpper(fields[0])
	switch first {
	case "CREATE", "DROP", "ALTER":
		if len(fields) > 1 {
			return first + " " + strings.ToUpper(strings.TrimRight(fields[1], ";"))
		}
	}
	return strings.TrimRight(first, ";")
}
