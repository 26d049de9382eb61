package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/config"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/services"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
)

// watchInterval is how often the auto-lock watcher polls the session.
var watchInterval = time.Second

// App wires configuration, storage and services for the interactive shell
// and holds the session of the logged-in account.
type App struct {
	cfg     *config.Config
	repos   *store.Repositories
	auth    services.AuthService
	vaults  services.VaultService
	entries services.EntryService
	seed    *services.SeedService
	log     logging.Logger

	mu        sync.Mutex
	sess      *session.Session
	vaultName string
	stopWatch context.CancelFunc

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the database named by cfg and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	repos, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return newApp(cfg, repos, log, in, out), nil
}

func newApp(cfg *config.Config, repos *store.Repositories, log logging.Logger, in io.Reader, out io.Writer) *App {
	auth := services.NewAuthService(repos, cryptox.NewKDF(cfg.KDFIterations), cfg.AutoLockAfter, log)
	vaults := services.NewVaultService(repos, log)
	entries := services.NewEntryService(repos, log)

	return &App{
		cfg:     cfg,
		repos:   repos,
		auth:    auth,
		vaults:  vaults,
		entries: entries,
		seed:    services.NewSeedService(repos, auth, vaults, entries, log),
		log:     log,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Close locks any open session and releases the database.
func (a *App) Close() error {
	a.endSession(context.Background())
	return a.repos.Close()
}

// Run starts the interactive shell and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to lockbox (type 'help' for commands)")
	runREPL(ctx, a, a.reader, a.out)
}

// session returns the current unlocked session or nil.
func (a *App) session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sess == nil || a.sess.Locked() {
		return nil
	}
	return a.sess
}

func (a *App) isLoggedIn() bool {
	return a.session() != nil
}

func (a *App) status() string {
	sess := a.session()
	if sess == nil {
		return ""
	}
	acc, err := sess.Account()
	if err != nil {
		return ""
	}
	a.mu.Lock()
	vault := a.vaultName
	a.mu.Unlock()
	if vault == "" {
		return fmt.Sprintf(" (%s)", acc.Username)
	}
	return fmt.Sprintf(" (%s:%s)", acc.Username, vault)
}

// startSession installs sess and, when auto-lock is enabled, a watcher that
// reports the lock.
func (a *App) startSession(ctx context.Context, sess *session.Session) {
	a.endSession(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.sess = sess
	a.vaultName = ""

	if a.cfg.AutoLockAfter <= 0 {
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	go sess.Watch(watchCtx, watchInterval, func() {
		fmt.Fprintln(a.out)
		printHint(a.out, "session locked after %s of inactivity, please login again", a.cfg.AutoLockAfter)
	})
}

func (a *App) endSession(ctx context.Context) {
	a.mu.Lock()
	sess, stop := a.sess, a.stopWatch
	a.sess, a.stopWatch, a.vaultName = nil, nil, ""
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	if sess != nil {
		a.auth.Logout(ctx, sess)
	}
}

func (a *App) setVaultName(name string) {
	a.mu.Lock()
	a.vaultName = name
	a.mu.Unlock()
}

func (a *App) commands() []replCommand {
	return []replCommand{
		{name: "register", help: "create an account", run: a.cmdRegister},
		{name: "login", help: "unlock an account", run: a.cmdLogin},
		{name: "genpass", usage: "[length]", help: "generate a password", run: a.cmdGenpass},
		{name: "logout", help: "lock the session", auth: true, run: a.cmdLogout},
		{name: "passwd", help: "change the master password", auth: true, run: a.cmdPasswd},
		{name: "accounts", help: "list accounts (admin)", auth: true, run: a.cmdAccounts},
		{name: "vaults", help: "list your vaults", auth: true, run: a.cmdVaults},
		{name: "addvault", usage: "[name]", help: "create a vault", auth: true, run: a.cmdAddVault},
		{name: "use", usage: "<vault>", help: "select a vault", auth: true, run: a.cmdUse},
		{name: "delvault", usage: "<vault>", help: "delete a vault and its entries", auth: true, run: a.cmdDelVault},
		{name: "list", help: "list entries in the vault", auth: true, run: a.cmdList},
		{name: "search", usage: "<text>", help: "search title, username, email, url", auth: true, run: a.cmdSearch},
		{name: "show", usage: "<id> [reveal]", help: "show an entry", auth: true, run: a.cmdShow},
		{name: "addlogin", help: "add a login", auth: true, run: a.cmdAddLogin},
		{name: "addcard", help: "add a credit card", auth: true, run: a.cmdAddCard},
		{name: "addnote", help: "add a secure note", auth: true, run: a.cmdAddNote},
		{name: "addfile", help: "add a file attachment", auth: true, run: a.cmdAddFile},
		{name: "addpasskey", help: "create a passkey", auth: true, run: a.cmdAddPasskey},
		{name: "edit", usage: "<id>", help: "edit an entry", auth: true, run: a.cmdEdit},
		{name: "savefile", usage: "<id> <path>", help: "write an attachment to disk", auth: true, run: a.cmdSaveFile},
		{name: "favorite", usage: "<id>", help: "toggle favorite", auth: true, run: a.cmdFavorite},
		{name: "delete", usage: "<id>", help: "delete an entry", auth: true, run: a.cmdDelete},
		{name: "copy", usage: "<id>", help: "copy password or card number", auth: true, run: a.cmdCopy},
		{name: "browse", usage: "<username>", help: "list another account's entries (admin)", auth: true, run: a.cmdBrowse},
		{name: "restrict", usage: "<id> [user...]", help: "replace who an entry is hidden from (admin)", auth: true, run: a.cmdRestrict},
	}
}
