package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/google/uuid"
)

// Column order shared by INSERT, UPDATE and scanEntry.
var columns = []string{
	"id", "vault_id", "type", "title",
	"username", "email", "url", "encrypted_password",
	"cardholder_name", "expiry_date", "encrypted_card_number", "encrypted_cvv",
	"category", "notes", "file_name", "file_data",
	"rp_id", "rp_name", "user_handle", "credential_id", "public_key_pem", "encrypted_private_key", "counter",
	"is_favorite", "created_at", "modified_at",
}

var selectEntry = `SELECT e.` + strings.Join(columns, ", e.") + `,
	(SELECT group_concat(ar.restricted_user_id, ',') FROM access_restrictions ar WHERE ar.entry_id = e.id)
	FROM entries e`

const orderBy = ` ORDER BY e.is_favorite DESC, e.title COLLATE NOCASE, e.id`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func values(e *models.Entry) []any {
	var modified sql.NullTime
	if e.ModifiedAt != nil {
		modified = sql.NullTime{Time: *e.ModifiedAt, Valid: true}
	}
	return []any{
		e.ID, e.VaultID, string(e.Type), e.Title,
		e.Username, e.Email, e.URL, e.EncryptedPassword,
		e.CardholderName, e.ExpiryDate, e.EncryptedCardNumber, e.EncryptedCVV,
		e.Category, e.Notes, e.FileName, e.FileData,
		e.RelyingPartyID, e.RelyingPartyName, e.UserHandle, e.CredentialID, e.PublicKeyPEM, e.EncryptedPrivateKey, e.Counter,
		e.IsFavorite, e.CreatedAt, modified,
	}
}

// Create inserts e.
func (r *SQLiteRepository) Create(ctx context.Context, e *models.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := `INSERT INTO entries (` + strings.Join(columns, ", ") + `) VALUES (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, values(e)...); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Update rewrites all columns except id, vault and creation time.
func (r *SQLiteRepository) Update(ctx context.Context, e *models.Entry) error {
	now := time.Now().UTC()
	e.ModifiedAt = &now

	var set []string
	var args []any
	all := values(e)
	for i, c := range columns {
		switch c {
		case "id", "vault_id", "created_at":
			continue
		}
		set = append(set, c+" = ?")
		args = append(args, all[i])
	}
	args = append(args, e.ID)

	query := `UPDATE entries SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// GetByID returns one entry.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectEntry+` WHERE e.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListByVault(ctx context.Context, vaultID string) ([]models.Entry, error) {
	return r.list(ctx, selectEntry+` WHERE e.vault_id = ?`+orderBy, vaultID)
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, userID string) ([]models.Entry, error) {
	query := selectEntry + ` JOIN vaults v ON v.id = e.vault_id WHERE v.user_id = ?` + orderBy
	return r.list(ctx, query, userID)
}

// Search does a case-insensitive substring match. LIKE wildcards in text
// are matched literally.
func (r *SQLiteRepository) Search(ctx context.Context, vaultID, text string) ([]models.Entry, error) {
	pattern := "%" + escapeLike(text) + "%"
	query := selectEntry + ` WHERE e.vault_id = ? AND (
		e.title LIKE ? ESCAPE '\' OR e.username LIKE ? ESCAPE '\' OR
		e.email LIKE ? ESCAPE '\' OR e.url LIKE ? ESCAPE '\')` + orderBy
	return r.list(ctx, query, vaultID, pattern, pattern, pattern, pattern)
}

func (r *SQLiteRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE entries SET is_favorite = ?, modified_at = ? WHERE id = ?`,
		favorite, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update favorite: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var result []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var (
		e          models.Entry
		typ        string
		modified   sql.NullTime
		restricted sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.VaultID, &typ, &e.Title,
		&e.Username, &e.Email, &e.URL, &e.EncryptedPassword,
		&e.CardholderName, &e.ExpiryDate, &e.EncryptedCardNumber, &e.EncryptedCVV,
		&e.Category, &e.Notes, &e.FileName, &e.FileData,
		&e.RelyingPartyID, &e.RelyingPartyName, &e.UserHandle, &e.CredentialID, &e.PublicKeyPEM, &e.EncryptedPrivateKey, &e.Counter,
		&e.IsFavorite, &e.CreatedAt, &modified,
		&restricted,
	)
	if err != nil {
		return nil, err
	}
	e.Type = models.EntryType(typ)
	if modified.Valid {
		t := modified.Time
		e.ModifiedAt = &t
	}
	if restricted.Valid && restricted.String != "" {
		e.RestrictedUserIDs = strings.Split(restricted.String, ",")
	}
	return &e, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
