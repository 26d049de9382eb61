package restrictions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository over a dbx.DBTX.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Replace is a full replace, never a diff. Duplicate ids in userIDs are
// absorbed by the (entry_id, restricted_user_id) unique key.
func (r *SQLiteRepository) Replace(ctx context.Context, entryID string, userIDs []string, createdBy string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM access_restrictions WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("failed to clear restrictions: %w", err)
	}

	query := `INSERT OR IGNORE INTO access_restrictions
		(id, entry_id, restricted_user_id, created_by_user_id, created_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	for _, uid := range userIDs {
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), entryID, uid, createdBy, now); err != nil {
			return fmt.Errorf("failed to insert restriction for %s: %w", uid, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListByEntry(ctx context.Context, entryID string) ([]models.AccessRestriction, error) {
	query := `SELECT id, entry_id, restricted_user_id, created_by_user_id, created_at
		FROM access_restrictions WHERE entry_id = ? ORDER BY created_at, restricted_user_id`
	rows, err := r.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to select restrictions: %w", err)
	}
	defer rows.Close()

	var result []models.AccessRestriction
	for rows.Next() {
		var ar models.AccessRestriction
		if err := rows.Scan(&ar.ID, &ar.EntryID, &ar.RestrictedUserID, &ar.CreatedByUserID, &ar.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
