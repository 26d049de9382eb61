package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
)

// DemoAccount is one of the accounts SeedService creates.
type DemoAccount struct {
	Username string
	Password string
	Role     models.Role
}

// DemoAccounts are created in order; the first becomes the Admin.
var DemoAccounts = []DemoAccount{
	{Username: "admin", Password: "Admin123!", Role: models.RoleAdmin},
	{Username: "john", Password: "John123!", Role: models.RoleUser},
	{Username: "sarah", Password: "Sarah123!", Role: models.RoleChild},
}

// SeedService populates an empty database with demo data.
type SeedService struct {
	repos   *store.Repositories
	auth    AuthService
	vaults  VaultService
	entries EntryService
	log     logging.Logger
}

func NewSeedService(repos *store.Repositories, auth AuthService, vaults VaultService, entries EntryService, log logging.Logger) *SeedService {
	return &SeedService{repos: repos, auth: auth, vaults: vaults, entries: entries, log: log}
}

// Seed creates the demo accounts, a Work vault for every non-Child account,
// sample entries for the Admin and a note in the Child's personal vault. It refuses to run on a database that
// already has accounts.
func (s *SeedService) Seed(ctx context.Context) error {
	existing, err := s.auth.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("seed: database already has accounts: %w", common.ErrAlreadyExists)
	}

	var admin *models.Account
	for _, d := range DemoAccounts {
		acc, err := s.auth.Register(ctx, RegisterRequest{
			Username: d.Username,
			Password: []byte(d.Password),
			Role:     d.Role,
			Creator:  admin,
		})
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if admin == nil {
			admin = acc
		}
		sess, err := s.auth.Login(ctx, d.Username, []byte(d.Password))
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if d.Role == models.RoleChild {
			err = s.seedChildNote(ctx, sess)
			s.auth.Logout(ctx, sess)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			continue
		}
		work, err := s.vaults.Create(ctx, sess, "Work", "Work credentials")
		if err == nil && d.Role == models.RoleAdmin {
			err = s.seedAdminEntries(ctx, sess, work.ID)
		}
		s.auth.Logout(ctx, sess)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	s.log.Info(ctx, "demo data seeded", "accounts", len(DemoAccounts))
	return nil
}

func (s *SeedService) seedAdminEntries(ctx context.Context, sess *session.Session, workVaultID string) error {
	personal, err := s.vaults.Use(ctx, sess, DefaultVaultName)
	if err != nil {
		return err
	}

	items := []struct {
		entry   models.Entry
		secrets models.Secrets
	}{
		{
			entry: models.Entry{
				VaultID: personal.ID, Type: models.EntryTypeLogin, Title: "GitHub",
				Username: "admin_user", Email: "admin@example.com", URL: "https://github.com",
				Category: "Development", Notes: "Demo GitHub account", IsFavorite: true,
			},
			secrets: models.Secrets{Password: "DemoPass123!"},
		},
		{
			entry: models.Entry{
				VaultID: personal.ID, Type: models.EntryTypeCreditCard, Title: "Visa Card",
				CardholderName: "Admin User", ExpiryDate: "12/27", Category: "Finance",
			},
			secrets: models.Secrets{CardNumber: "4532123456789012", CVV: "123"},
		},
		{
			entry: models.Entry{
				VaultID: workVaultID, Type: models.EntryTypeSecureNote, Title: "Server Credentials",
				Notes:    "Production server: 192.168.1.1\nUser: deploy\nKey: ~/.ssh/prod_key",
				Category: "Infrastructure",
			},
		},
	}
	for i := range items {
		if err := s.entries.Add(ctx, sess, &items[i].entry, items[i].secrets); err != nil {
			return err
		}
	}
	return nil
}

// seedChildNote writes straight to the repository since Child accounts are
// read-only. The note carries no secrets, so no key is involved.
func (s *SeedService) seedChildNote(ctx context.Context, sess *session.Session) error {
	personal, err := s.vaults.Use(ctx, sess, DefaultVaultName)
	if err != nil {
		return err
	}
	return s.repos.Entries.Create(ctx, &models.Entry{
		VaultID: personal.ID, Type: models.EntryTypeSecureNote, Title: "Homework Portal",
		Notes: "Ask a parent for the login", Category: "School",
	})
}
