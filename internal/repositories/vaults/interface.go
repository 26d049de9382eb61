// Package vaults persists the named containers each account keeps its
// entries in.
package vaults

import (
	"context"

	"github.com/dmitrijs2005/lockbox/internal/models"
)

// Repository describes storage operations for vaults.
type Repository interface {
	// Create inserts v. A second vault with the same name for the same user
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, v *models.Vault) error
	GetByID(ctx context.Context, id string) (*models.Vault, error)
	// ListByUser returns the user's vaults ordered by name.
	ListByUser(ctx context.Context, userID string) ([]models.Vault, error)
	// Delete removes the vault and, by cascade, its entries.
	Delete(ctx context.Context, id string) error
}
