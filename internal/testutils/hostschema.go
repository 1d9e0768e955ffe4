package testutils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// HostSchemaPath is the host table fixture, relative to the project root.
var HostSchemaPath = filepath.Join("internal", "platform", "sqlstore", "testdata", "host_schema.sql")

// ApplyHostSchema creates the host application's users, tasks,
// user_settings and sessions tables in db.
func ApplyHostSchema(t *testing.T, db *sqlx.DB) {
	t.Helper()

	root, err := FindProjectRoot()
	require.NoError(t, err)

	schema, err := os.ReadFile(filepath.Join(root, HostSchemaPath))
	require.NoError(t, err)

	for _, stmt := range SplitStatements(string(schema)) {
		_, err := db.ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

// SplitStatements breaks a SQL script on semicolons, dropping "--" comment
// lines and empty statements. It does not understand quoted semicolons.
func SplitStatements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Exec runs query after rebinding its placeholders for db's driver.
func Exec(t *testing.T, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(db.Rebind(query), args...)
	require.NoError(t, err, query)
}
