package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/repositories/vaults"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
)

// VaultService manages the logged-in account's vaults. Accounts only ever
// see and touch vaults they own; Child accounts can list and select vaults
// but not create or delete them.
type VaultService interface {
	Create(ctx context.Context, sess *session.Session, name, description string) (*models.Vault, error)
	List(ctx context.Context, sess *session.Session) ([]models.Vault, error)
	// Use selects a vault by id or case-insensitive name.
	Use(ctx context.Context, sess *session.Session, ref string) (*models.Vault, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
}

type vaultService struct {
	vaults vaults.Repository
	log    logging.Logger
}

func NewVaultService(repos *store.Repositories, log logging.Logger) VaultService {
	return &vaultService{vaults: repos.Vaults, log: log}
}

func (s *vaultService) Create(ctx context.Context, sess *session.Session, name, description string) (*models.Vault, error) {
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	if err := requireWrite(acc); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: vault name is required", common.ErrValidation)
	}

	v := &models.Vault{UserID: acc.ID, Name: name, Description: strings.TrimSpace(description)}
	if err := s.vaults.Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "vault created", "username", acc.Username, "vault", v.Name)
	return v, nil
}

func (s *vaultService) List(ctx context.Context, sess *session.Session) ([]models.Vault, error) {
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	return s.vaults.ListByUser(ctx, acc.ID)
}

func (s *vaultService) Use(ctx context.Context, sess *session.Session, ref string) (*models.Vault, error) {
	list, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	for i := range list {
		if list[i].ID == ref || strings.EqualFold(list[i].Name, ref) {
			if err := sess.UseVault(list[i].ID); err != nil {
				return nil, err
			}
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("vault %q: %w", ref, common.ErrNotFound)
}

func (s *vaultService) Delete(ctx context.Context, sess *session.Session, id string) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	if err := requireWrite(acc); err != nil {
		return err
	}
	v, err := s.vaults.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if v.UserID != acc.ID {
		return common.ErrForbidden
	}
	if err := s.vaults.Delete(ctx, id); err != nil {
		return err
	}
	if cur, err := sess.VaultID(); err == nil && cur == id {
		_ = sess.UseVault("")
	}
	s.log.Info(ctx, "vault deleted", "username", acc.Username, "vault", v.Name)
	return nil
}
