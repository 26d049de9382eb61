// Package accounts persists local identities (username, salted password
// hash, role) in the accounts table.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/models"
)

// Repository describes storage operations for accounts.
type Repository interface {
	// Create inserts a new account. A duplicate username yields
	// common.ErrAlreadyExists.
	Create(ctx context.Context, a *models.Account) error

	// GetByUsername looks an account up case-insensitively.
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	GetByID(ctx context.Context, id string) (*models.Account, error)

	// List returns every account ordered by username.
	List(ctx context.Context) ([]models.Account, error)

	// UpdateCredentials replaces salt, hash and iteration count together.
	UpdateCredentials(ctx context.Context, id, salt, hash string, iterations int) error

	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
