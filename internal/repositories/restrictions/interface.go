// Package restrictions persists access restriction rows: (entry, account)
// pairs that hide an entry from a Child account.
package restrictions

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/models"
)

// Repository describes storage operations for access restrictions.
type Repository interface {
	// Replace deletes every restriction of entryID and inserts one row per
	// user in userIDs. Run it on a transaction handle so the swap is atomic.
	Replace(ctx context.Context, entryID string, userIDs []string, createdBy string) error

	// ListByEntry returns the entry's restriction rows ordered by creation.
	ListByEntry(ctx context.Context, entryID string) ([]models.AccessRestriction, error)
}
