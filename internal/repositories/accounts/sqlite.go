package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/google/uuid"
)

const selectColumns = `id, username, password_hash, salt, role, kdf_iterations, created_at, last_login_at`

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to db (either *sql.DB or *sql.Tx).
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create assigns an id and creation time when missing and inserts the row.
func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO accounts (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Username, a.PasswordHash, a.Salt, string(a.Role), a.KDFIterations, a.CreatedAt, nullTime(a.LastLoginAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", a.Username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE username = ? COLLATE NOCASE`
	return r.getOne(ctx, query, username)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts ORDER BY username`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateCredentials(ctx context.Context, id, salt, hash string, iterations int) error {
	query := `UPDATE accounts SET salt = ?, password_hash = ?, kdf_iterations = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, salt, hash, iterations, id)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLiteRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*models.Account, error) {
	var (
		a     models.Account
		role  string
		login sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Salt, &role, &a.KDFIterations, &a.CreatedAt, &login); err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	if login.Valid {
		t := login.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
