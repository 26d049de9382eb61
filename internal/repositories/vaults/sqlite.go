package vaults

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

const selectColumns = `id, user_id, name, description, created_at, modified_at`

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, v *models.Vault) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO vaults (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, v.ID, v.UserID, v.Name, v.Description, v.CreatedAt, modified(v.ModifiedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("vault %q: %w", v.Name, common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert vault: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Vault, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM vaults WHERE id = ?`, id)
	v, err := scanVault(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]models.Vault, error) {
	query := `SELECT ` + selectColumns + ` FROM vaults WHERE user_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vaults: %w", err)
	}
	defer rows.Close()

	var result []models.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM vaults WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vault: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVault(s scanner) (*models.Vault, error) {
	var (
		v   models.Vault
		mod sql.NullTime
	)
	if err := s.Scan(&v.ID, &v.UserID, &v.Name, &v.Description, &v.CreatedAt, &mod); err != nil {
		return nil, err
	}
	if mod.Valid {
		t := mod.Time
		v.ModifiedAt = &t
	}
	return &v, nil
}

func modified(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
