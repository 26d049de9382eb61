package entries

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/models"
)

// Repository describes storage operations for entries.
type Repository interface {
	// Create inserts a new entry, assigning an id and creation time if unset.
	Create(ctx context.Context, e *models.Entry) error

	// Update overwrites every stored column of an existing entry and stamps
	// its modification time.
	Update(ctx context.Context, e *models.Entry) error

	// GetByID returns a single entry with its restriction list.
	GetByID(ctx context.Context, id string) (*models.Entry, error)

	// ListByVault returns the vault's entries, favorites first, then by title.
	ListByVault(ctx context.Context, vaultID string) ([]models.Entry, error)

	// ListByOwner returns entries across all vaults owned by userID.
	ListByOwner(ctx context.Context, userID string) ([]models.Entry, error)

	// Search matches text against title, username, email and url.
	Search(ctx context.Context, vaultID, text string) ([]models.Entry, error)

	// SetFavorite updates the favorite flag.
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// Delete removes the entry and its restriction rows.
	Delete(ctx context.Context, id string) error
}
