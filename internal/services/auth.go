package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/repositories/accounts"
	"github.com/dmitrijs2005/lockbox/internal/repositories/entries"
	"github.com/dmitrijs2005/lockbox/internal/repositories/vaults"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
)

// DefaultVaultName is the vault created for every new account.
const DefaultVaultName = "Personal"

// RegisterRequest describes a new account. Creator is the logged-in account
// performing the registration, or nil for self-registration.
type RegisterRequest struct {
	Username string
	Password []byte
	Role     models.Role
	Creator  *models.Account
}

// AuthService manages accounts and unlocks sessions.
//
// Contract:
//   - Register: validate and create an account with a default vault. The first
//     account of an empty database is always an Admin; only Admins may create
//     Admin or Child accounts.
//   - Login: verify the password and return an unlocked session. Unknown user
//     and wrong password both yield cryptox.ErrAuthentication.
//   - ChangePassword: rotate salt, hash and master key and re-encrypt every
//     secret field the account owns, atomically.
//   - Logout: lock the session, wiping its key.
//   - Accounts: list all accounts.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, username string, password []byte) (*session.Session, error)
	ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword []byte) error
	Logout(ctx context.Context, sess *session.Session)
	Accounts(ctx context.Context) ([]models.Account, error)
}

type authService struct {
	db       *sql.DB
	accounts accounts.Repository
	kdf      cryptox.KDF
	cipher   cryptox.Cipher
	autoLock time.Duration
	log      logging.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService. kdf sets the iteration count for
// new hashes; existing accounts keep the count they were created with.
func NewAuthService(repos *store.Repositories, kdf cryptox.KDF, autoLock time.Duration, log logging.Logger) AuthService {
	return &authService{
		db:       repos.DB,
		accounts: repos.Accounts,
		kdf:      kdf,
		cipher:   cryptox.DefaultCipher,
		autoLock: autoLock,
		log:      log,
		now:      time.Now,
	}
}

func (a *authService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	username, err := ValidateUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := a.kdf.HashPassword(req.Password, salt)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		Username:      username,
		PasswordHash:  hash,
		Salt:          salt,
		KDFIterations: a.kdf.Iterations,
		CreatedAt:     a.now().UTC(),
	}

	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		existing, err := accounts.NewSQLiteRepository(tx).List(ctx)
		if err != nil {
			return err
		}
		role, err := resolveRole(len(existing) == 0, req.Role, req.Creator)
		if err != nil {
			return err
		}
		acc.Role = role

		if err := accounts.NewSQLiteRepository(tx).Create(ctx, acc); err != nil {
			return err
		}
		return vaults.NewSQLiteRepository(tx).Create(ctx, &models.Vault{
			UserID:      acc.ID,
			Name:        DefaultVaultName,
			Description: "Personal vault for " + acc.Username,
			CreatedAt:   acc.CreatedAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}

	a.log.Info(ctx, "account registered", "username", acc.Username, "role", acc.Role)
	return acc, nil
}

func resolveRole(first bool, requested models.Role, creator *models.Account) (models.Role, error) {
	if first {
		return models.RoleAdmin, nil
	}
	if requested == "" {
		requested = models.RoleUser
	}
	if !requested.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, requested)
	}
	if requested != models.RoleUser && (creator == nil || creator.Role != models.RoleAdmin) {
		return "", fmt.Errorf("%w: only an admin can create %s accounts", common.ErrForbidden, requested)
	}
	return requested, nil
}

// dummySalt keeps the unknown-user path doing the same PBKDF2 work as a
// real verification.
const dummySalt = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

func (a *authService) Login(ctx context.Context, username string, password []byte) (*session.Session, error) {
	acc, err := a.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_, _ = a.kdf.Unlock(password, dummySalt, "")
			a.log.Warn(ctx, "login failed", "username", username)
			return nil, cryptox.ErrAuthentication
		}
		return nil, err
	}

	key, ok := cryptox.NewKDF(acc.KDFIterations).Unlock(password, acc.Salt, acc.PasswordHash)
	if !ok {
		a.log.Warn(ctx, "login failed", "username", username)
		return nil, cryptox.ErrAuthentication
	}

	at := a.now().UTC()
	if err := a.accounts.TouchLastLogin(ctx, acc.ID, at); err != nil {
		common.WipeByteArray(key)
		return nil, err
	}
	acc.LastLoginAt = &at

	a.log.Info(ctx, "login", "username", acc.Username, "role", acc.Role)
	return session.New(*acc, key, a.autoLock), nil
}

func (a *authService) ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword []byte) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	oldKDF := cryptox.NewKDF(acc.KDFIterations)
	if !oldKDF.VerifyPassword(oldPassword, acc.Salt, acc.PasswordHash) {
		return cryptox.ErrAuthentication
	}
	oldKey, err := sess.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldKey)

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return err
	}
	hash, newKey, err := a.kdf.Credentials(newPassword, salt)
	if err != nil {
		return err
	}

	log := a.log.With("username", acc.Username)
	var rotated int
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		entryRepo := entries.NewSQLiteRepository(tx)
		list, err := entryRepo.ListByOwner(ctx, acc.ID)
		if err != nil {
			return err
		}
		for i := range list {
			if err := reencrypt(a.cipher, &list[i], oldKey, newKey); err != nil {
				return fmt.Errorf("entry %s: %w", list[i].ID, err)
			}
			if err := entryRepo.Update(ctx, &list[i]); err != nil {
				return err
			}
			log.Debug(ctx, "entry re-encrypted", "id", list[i].ID, "type", list[i].Type)
			rotated++
		}
		return accounts.NewSQLiteRepository(tx).UpdateCredentials(ctx, acc.ID, salt, hash, a.kdf.Iterations)
	})
	if err != nil {
		common.WipeByteArray(newKey)
		return fmt.Errorf("change password: %w", err)
	}

	acc.Salt = salt
	acc.PasswordHash = hash
	acc.KDFIterations = a.kdf.Iterations
	if err := sess.ReplaceKey(acc, newKey); err != nil {
		common.WipeByteArray(newKey)
		return err
	}

	log.Info(ctx, "master password changed", "entries", rotated)
	return nil
}

// reencrypt moves every secret field of e from oldKey to newKey.
func reencrypt(c cryptox.Cipher, e *models.Entry, oldKey, newKey []byte) error {
	for _, f := range []*string{&e.EncryptedPassword, &e.EncryptedCardNumber, &e.EncryptedCVV, &e.EncryptedPrivateKey} {
		plain, err := c.DecryptField(*f, oldKey)
		if err != nil {
			return err
		}
		blob, err := c.EncryptField(plain, newKey)
		if err != nil {
			return err
		}
		*f = blob
	}
	return nil
}

func (a *authService) Logout(ctx context.Context, sess *session.Session) {
	if sess == nil {
		return
	}
	if acc, err := sess.Account(); err == nil {
		a.log.Info(ctx, "logout", "username", acc.Username)
	}
	sess.Lock()
}

func (a *authService) Accounts(ctx context.Context) ([]models.Account, error) {
	return a.accounts.List(ctx)
}
