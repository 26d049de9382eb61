// Package store opens the SQLite vault database, applies the embedded goose
// migrations, and wires the repositories over the resulting *sql.DB.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/filex"
	"github.com/dmitrijs2005/lockbox/internal/migrations"
	"github.com/dmitrijs2005/lockbox/internal/repositories/accounts"
	"github.com/dmitrijs2005/lockbox/internal/repositories/entries"
	"github.com/dmitrijs2005/lockbox/internal/repositories/restrictions"
	"github.com/dmitrijs2005/lockbox/internal/repositories/vaults"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const driverName = "sqlite"

// Pragmas applied to every pooled connection.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Repositories groups the persistence layer handed to services.
type Repositories struct {
	DB           *sql.DB
	Accounts     accounts.Repository
	Vaults       vaults.Repository
	Entries      entries.Repository
	Restrictions restrictions.Repository
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// DSN turns a database file path into a modernc.org/sqlite DSN with the
// connection pragmas lockbox relies on.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + pragmas
}

// RunMigrations applies every pending migration from the embedded FS.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.Up(ctx, db)
}

// New builds repositories over an already opened database.
func New(db *sql.DB) *Repositories {
	return &Repositories{
		DB:           db,
		Accounts:     accounts.NewSQLiteRepository(db),
		Vaults:       vaults.NewSQLiteRepository(db),
		Entries:      entries.NewSQLiteRepository(db),
		Restrictions: restrictions.NewSQLiteRepository(db),
	}
}

// Open creates the parent directory for path if needed, opens the database,
// migrates it and returns the wired repositories.
func Open(ctx context.Context, path string) (*Repositories, error) {
	if _, err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db), nil
}
