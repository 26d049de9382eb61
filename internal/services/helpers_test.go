package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
	"github.com/dmitrijs2005/lockbox/internal/testutil"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db      *sql.DB
	repos   *store.Repositories
	auth    AuthService
	vaults  VaultService
	entries EntryService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithLog(t, logging.Nop())
}

func newEnvWithLog(t *testing.T, log logging.Logger) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	repos := store.New(db)
	return &testEnv{
		db:      db,
		repos:   repos,
		auth:    NewAuthService(repos, cryptox.DefaultKDF, 0, log),
		vaults:  NewVaultService(repos, log),
		entries: NewEntryService(repos, log),
	}
}

// register creates an account; the first call produces the Admin, which is
// then used as creator for the rest.
func (e *testEnv) register(t *testing.T, username, password string, role models.Role) *models.Account {
	t.Helper()
	var creator *models.Account
	list, err := e.auth.Accounts(context.Background())
	require.NoError(t, err)
	for i := range list {
		if list[i].Role == models.RoleAdmin {
			creator = &list[i]
			break
		}
	}
	acc, err := e.auth.Register(context.Background(), RegisterRequest{
		Username: username, Password: []byte(password), Role: role, Creator: creator,
	})
	require.NoError(t, err)
	return acc
}

func (e *testEnv) login(t *testing.T, username, password string) *session.Session {
	t.Helper()
	sess, err := e.auth.Login(context.Background(), username, []byte(password))
	require.NoError(t, err)
	t.Cleanup(sess.Lock)
	return sess
}

func (e *testEnv) usePersonal(t *testing.T, sess *session.Session) *models.Vault {
	t.Helper()
	v, err := e.vaults.Use(context.Background(), sess, DefaultVaultName)
	require.NoError(t, err)
	return v
}

// plantEntry writes a secret-free note straight into vaultID, the way content
// lands in a read-only Child vault.
func (e *testEnv) plantEntry(t *testing.T, vaultID, title string) *models.Entry {
	t.Helper()
	entry := &models.Entry{VaultID: vaultID, Type: models.EntryTypeSecureNote, Title: title}
	require.NoError(t, e.repos.Entries.Create(context.Background(), entry))
	return entry
}
