package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTest opens an empty SQLite database in a temp directory.
func openTest(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := Open("sqlite://" + filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{"sqlite://catalog.db", "sqlite3", "catalog.db?_busy_timeout=5000&_foreign_keys=on", false},
		{"sqlite:///var/lib/extgen/catalog.db", "sqlite3", "/var/lib/extgen/catalog.db?_busy_timeout=5000&_foreign_keys=on", false},
		{"sqlite://catalog.db?_busy_timeout=100", "sqlite3", "catalog.db?_busy_timeout=100&_foreign_keys=on", false},
		{"postgres://u:p@localhost:5432/extgen?sslmode=disable", "postgres", "postgres://u:p@localhost:5432/extgen?sslmode=disable", false},
		{"mysql://localhost/extgen", "", "", true},
		{"sqlite://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, source, err := parseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(`-- header
CREATE TABLE a (x TEXT);

-- second
CREATE INDEX i ON a (x);
`)
	assert.Equal(t, []string{"CREATE TABLE a (x TEXT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestMigrateUp(t *testing.T) {
	conn := openTest(t)

	ran, err := MigrateUp(conn)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial_schema.sql"}, ran)

	ran, err = MigrateUp(conn)
	require.NoError(t, err)
	assert.Empty(t, ran, "second run applies nothing")

	statuses, err := MigrateStatus(conn)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)
	assert.NotNil(t, statuses[0].AppliedAt)
	assert.Len(t, statuses[0].Checksum, 64)

	for _, table := range []string{"build_runs", "snippets", "api_keys"} {
		var n int
		require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM "+table), table)
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	conn := openTest(t)
	_, err := MigrateUp(conn)
	require.NoError(t, err)

	_, err = conn.Exec("UPDATE migrations SET checksum = 'tampered'")
	require.NoError(t, err)

	_, err = MigrateUp(conn)
	assert.ErrorContains(t, err, "checksum mismatch")
}

func TestMigrateStatus_Pending(t *testing.T) {
	conn := openTest(t)

	statuses, err := MigrateStatus(conn)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Applied)
	assert.Nil(t, statuses[0].AppliedAt)
}

func TestQueries(t *testing.T) {
	conn := openTest(t)
	_, err := MigrateUp(conn)
	require.NoError(t, err)

	q, err := LoadQueries(conn)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = q.Exec(ctx, "insert-run", "run-1", "ws", 2, "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	var status string
	require.NoError(t, conn.Get(&status, "SELECT status FROM build_runs WHERE run_id = 'run-1'"))
	assert.Equal(t, "running", status)

	_, err = q.Exec(ctx, "no-such-query")
	assert.ErrorContains(t, err, "query not found")
}
