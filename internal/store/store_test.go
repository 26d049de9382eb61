package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestOpen_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "vault.db")

	repos, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	_, err = os.Stat(path)
	require.NoError(t, err, "database file should exist")

	for _, table := range []string{"goose_db_version", "accounts", "vaults", "entries", "access_restrictions"} {
		assert.True(t, tableExists(t, repos.DB, table), "missing table %s", table)
	}

	assert.NotNil(t, repos.Accounts)
	assert.NotNil(t, repos.Vaults)
	assert.NotNil(t, repos.Entries)
	assert.NotNil(t, repos.Restrictions)
}

func TestOpen_EnablesForeignKeys(t *testing.T) {
	repos, err := Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	var on int
	require.NoError(t, repos.DB.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
	assert.Equal(t, 1, on)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	db, err := sql.Open(driverName, DSN(path))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db), "second run should be a no-op")
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")

	repos, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = repos.DB.Exec(`INSERT INTO accounts(id, username, password_hash, salt, role, kdf_iterations, created_at)
		VALUES ('a1', 'admin', 'h', 's', 'Admin', 10000, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, repos.Close())

	repos, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	var n int
	require.NoError(t, repos.DB.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_FailsWhenParentIsFile(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "blocker"), []byte("x"), 0o600))

	_, err := Open(context.Background(), filepath.Join(tmp, "blocker", "vault.db"))
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/v.db?"+pragmas, DSN("/tmp/v.db"))
	assert.Equal(t, "file:/tmp/v.db?mode=ro&"+pragmas, DSN("/tmp/v.db?mode=ro"))
}
