// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/lockbox/internal/migrations"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// OpenDB returns a migrated SQLite database in a temp dir, closed when the
// test ends. Foreign keys are enforced.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

// InsertAccount adds a bare account row and returns its id.
func InsertAccount(t *testing.T, db *sql.DB, id, username, role string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO accounts(id, username, password_hash, salt, role, kdf_iterations, created_at)
		VALUES (?, ?, 'hash', 'salt', ?, 10000, CURRENT_TIMESTAMP)`, id, username, role)
	require.NoError(t, err)
	return id
}

// InsertVault adds a vault row owned by userID.
func InsertVault(t *testing.T, db *sql.DB, id, userID, name string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO vaults(id, user_id, name, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`, id, userID, name)
	require.NoError(t, err)
	return id
}

// InsertEntry adds a minimal login entry row.
func InsertEntry(t *testing.T, db *sql.DB, id, vaultID, title string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO entries(id, vault_id, type, title, created_at) VALUES (?, ?, 'Login', ?, CURRENT_TIMESTAMP)`, id, vaultID, title)
	require.NoError(t, err)
	return id
}
