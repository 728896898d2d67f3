package engine

import "testing"

func TestCommandTag(t *testing.T) {
	tests := []struct {
		stmt string
		want string
	}{
		{"SELECT 1;", "SELECT"},
		{"select now()", "SELECT"},
		{"INSERT INTO t VALUES (1);", "INSERT"},
		{"CREATE TABLE t (id int);", "CREATE TABLE"},
		{"CREATE EXTENSION pg_stat_statements;", "CREATE EXTENSION"},
		{"DROP TABLE t;", "DROP TABLE"},
		{"ALTER SYSTEM SET shared_buffers = '1GB';", "ALTER SYSTEM"},
		{"VACUUM;", "VACUUM"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CommandTag(tt.stmt); got != tt.want {
			t.Errorf("CommandTag(%q) = %q, want %q", tt.stmt, got, tt.want)
		}
	}
}
