package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/access"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/dbx"
	"github.com/dmitrijs2005/lockbox/internal/filex"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/passkey"
	"github.com/dmitrijs2005/lockbox/internal/repositories/accounts"
	"github.com/dmitrijs2005/lockbox/internal/repositories/entries"
	"github.com/dmitrijs2005/lockbox/internal/repositories/restrictions"
	"github.com/dmitrijs2005/lockbox/internal/repositories/vaults"
	"github.com/dmitrijs2005/lockbox/internal/session"
	"github.com/dmitrijs2005/lockbox/internal/store"
)

// Secret field names used as FieldErrors keys.
const (
	FieldPassword   = "password"
	FieldCardNumber = "card_number"
	FieldCVV        = "cvv"
	FieldPrivateKey = "private_key"
)

// ErrNoVault is returned by vault-scoped operations before a vault is selected.
var ErrNoVault = errors.New("no vault selected")

// DecryptedEntry is an entry together with its plaintext secrets. A field
// that failed to decrypt is left empty and its error recorded in FieldErrors.
type DecryptedEntry struct {
	models.Entry
	Secrets     models.Secrets
	FieldErrors map[string]error
}

// PasskeyRequest describes a passkey to mint and store.
type PasskeyRequest struct {
	VaultID          string
	Title            string
	RelyingPartyID   string
	RelyingPartyName string
	Username         string
	UserHandle       string
}

// EntryService stores and reads credential entries for the session account.
//
// Secret fields are encrypted with the session master key before they reach
// the repository. Reads are filtered through the access policy: an entry
// hidden from the viewer behaves exactly like a missing one.
type EntryService interface {
	Add(ctx context.Context, sess *session.Session, e *models.Entry, secrets models.Secrets) error
	// Update rewrites the plain fields of e. A secret left empty in secrets
	// keeps its stored value. The type and passkey identity never change.
	Update(ctx context.Context, sess *session.Session, e *models.Entry, secrets models.Secrets) error
	Get(ctx context.Context, sess *session.Session, id string) (*DecryptedEntry, error)
	List(ctx context.Context, sess *session.Session) ([]models.Entry, error)
	Search(ctx context.Context, sess *session.Session, text string) ([]models.Entry, error)
	AddPasskey(ctx context.Context, sess *session.Session, req PasskeyRequest) (*models.Entry, error)
	ToggleFavorite(ctx context.Context, sess *session.Session, id string) (bool, error)
	// VerifyPasskey checks that a passkey entry's sealed private key opens
	// with the session key and pairs with its stored public key.
	VerifyPasskey(ctx context.Context, sess *session.Session, id string) error
	Delete(ctx context.Context, sess *session.Session, id string) error

	// SetRestrictions replaces the set of accounts entryID is hidden from.
	// Admin only, and every target must be a Child account.
	SetRestrictions(ctx context.Context, sess *session.Session, entryID string, userIDs []string) (added, removed []string, err error)
	// Browse lists another account's entries without secrets so an Admin can
	// pick entries to restrict. Admin only.
	Browse(ctx context.Context, sess *session.Session, ownerID string) ([]models.Entry, error)
	// RestrictedUsers returns the ids of the accounts entryID is hidden
	// from. Admin only.
	RestrictedUsers(ctx context.Context, sess *session.Session, entryID string) ([]string, error)
}

type entryService struct {
	db           *sql.DB
	entries      entries.Repository
	vaults       vaults.Repository
	restrictions restrictions.Repository
	cipher       cryptox.Cipher
	issuer       *passkey.Issuer
	log          logging.Logger
}

func NewEntryService(repos *store.Repositories, log logging.Logger) EntryService {
	c := cryptox.DefaultCipher
	return &entryService{
		db:           repos.DB,
		entries:      repos.Entries,
		vaults:       repos.Vaults,
		restrictions: repos.Restrictions,
		cipher:       c,
		issuer:       passkey.NewIssuer(c),
		log:          log,
	}
}

func requireWrite(acc models.Account) error {
	if !access.CanWrite(acc) {
		return fmt.Errorf("%s accounts are read-only: %w", acc.Role, common.ErrForbidden)
	}
	return nil
}

// ownedVault resolves vaultID (or the session's selected vault when empty)
// and checks that acc owns it.
func (s *entryService) ownedVault(ctx context.Context, sess *session.Session, acc models.Account, vaultID string) (string, error) {
	if vaultID == "" {
		id, err := sess.VaultID()
		if err != nil {
			return "", err
		}
		if id == "" {
			return "", ErrNoVault
		}
		vaultID = id
	}
	v, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return "", err
	}
	if v.UserID != acc.ID {
		return "", fmt.Errorf("vault %s: %w", vaultID, common.ErrNotFound)
	}
	return v.ID, nil
}

// load fetches an entry the viewer may see.
func (s *entryService) load(ctx context.Context, acc models.Account, id string) (*models.Entry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := s.vaults.GetByID(ctx, e.VaultID)
	if err != nil {
		return nil, err
	}
	if v.UserID != acc.ID || !access.IsVisible(*e, acc) {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrNotFound)
	}
	return e, nil
}

func (s *entryService) loadEditable(ctx context.Context, acc models.Account, id string) (*models.Entry, error) {
	e, err := s.load(ctx, acc, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit(*e, acc) {
		return nil, common.ErrForbidden
	}
	return e, nil
}

func validateEntry(e *models.Entry) error {
	e.Title = strings.TrimSpace(e.Title)
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown entry type %q", common.ErrValidation, e.Type)
	}
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if len(e.FileData) > filex.MaxAttachmentSize {
		return fmt.Errorf("%w: attachment exceeds %d bytes", common.ErrValidation, filex.MaxAttachmentSize)
	}
	return nil
}

// seal encrypts secrets into e.
func (s *entryService) seal(e *models.Entry, secrets models.Secrets, key []byte) error {
	fields := []struct {
		plain string
		dst   *string
	}{
		{secrets.Password, &e.EncryptedPassword},
		{secrets.CardNumber, &e.EncryptedCardNumber},
		{secrets.CVV, &e.EncryptedCVV},
		{secrets.PrivateKeyPEM, &e.EncryptedPrivateKey},
	}
	for _, f := range fields {
		blob, err := s.cipher.EncryptField(f.plain, key)
		if err != nil {
			return err
		}
		*f.dst = blob
	}
	return nil
}

func (s *entryService) Add(ctx context.Context, sess *session.Session, e *models.Entry, secrets models.Secrets) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	if err := requireWrite(acc); err != nil {
		return err
	}
	if err := validateEntry(e); err != nil {
		return err
	}
	vaultID, err := s.ownedVault(ctx, sess, acc, e.VaultID)
	if err != nil {
		return err
	}
	e.VaultID = vaultID

	key, err := sess.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	if err := s.seal(e, secrets, key); err != nil {
		return err
	}
	if err := s.entries.Create(ctx, e); err != nil {
		return err
	}
	s.log.Info(ctx, "entry added", "username", acc.Username, "type", e.Type, "id", e.ID)
	return nil
}

// Update keeps the vault, creation time, type and passkey identity from
// storage. An attachment is kept unless e carries new file data.
func (s *entryService) Update(ctx context.Context, sess *session.Session, e *models.Entry, secrets models.Secrets) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	cur, err := s.loadEditable(ctx, acc, e.ID)
	if err != nil {
		return err
	}
	e.Type = cur.Type
	if err := validateEntry(e); err != nil {
		return err
	}
	e.VaultID = cur.VaultID
	e.CreatedAt = cur.CreatedAt
	e.RelyingPartyID = cur.RelyingPartyID
	e.UserHandle = cur.UserHandle
	e.CredentialID = cur.CredentialID
	e.PublicKeyPEM = cur.PublicKeyPEM
	e.Counter = cur.Counter
	if len(e.FileData) == 0 {
		e.FileName, e.FileData = cur.FileName, cur.FileData
	}
	// The private key only ever comes from the issuer.
	secrets.PrivateKeyPEM = ""

	key, err := sess.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	if err := s.seal(e, secrets, key); err != nil {
		return err
	}
	keepSealed(e, cur, secrets)
	if err := s.entries.Update(ctx, e); err != nil {
		return err
	}
	s.log.Info(ctx, "entry updated", "username", acc.Username, "id", e.ID)
	return nil
}

// keepSealed restores the stored blob of every secret the caller left empty.
func keepSealed(e, cur *models.Entry, secrets models.Secrets) {
	if secrets.Password == "" {
		e.EncryptedPassword = cur.EncryptedPassword
	}
	if secrets.CardNumber == "" {
		e.EncryptedCardNumber = cur.EncryptedCardNumber
	}
	if secrets.CVV == "" {
		e.EncryptedCVV = cur.EncryptedCVV
	}
	if secrets.PrivateKeyPEM == "" {
		e.EncryptedPrivateKey = cur.EncryptedPrivateKey
	}
}

func (s *entryService) Get(ctx context.Context, sess *session.Session, id string) (*DecryptedEntry, error) {
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	e, err := s.load(ctx, acc, id)
	if err != nil {
		return nil, err
	}

	key, err := sess.Key()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	out := &DecryptedEntry{Entry: *e, FieldErrors: map[string]error{}}
	fields := []struct {
		name string
		blob string
		dst  *string
	}{
		{FieldPassword, e.EncryptedPassword, &out.Secrets.Password},
		{FieldCardNumber, e.EncryptedCardNumber, &out.Secrets.CardNumber},
		{FieldCVV, e.EncryptedCVV, &out.Secrets.CVV},
		{FieldPrivateKey, e.EncryptedPrivateKey, &out.Secrets.PrivateKeyPEM},
	}
	log := s.log.With("username", acc.Username, "id", e.ID)
	for _, f := range fields {
		plain, err := s.cipher.DecryptField(f.blob, key)
		if err != nil {
			out.FieldErrors[f.name] = err
			log.Warn(ctx, "field decryption failed", "field", f.name)
			continue
		}
		*f.dst = plain
	}
	return out, nil
}

func (s *entryService) List(ctx context.Context, sess *session.Session) ([]models.Entry, error) {
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	vaultID, err := s.ownedVault(ctx, sess, acc, "")
	if err != nil {
		return nil, err
	}
	list, err := s.entries.ListByVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	return access.Filter(list, acc), nil
}

func (s *entryService) Search(ctx context.Context, sess *session.Session, text string) ([]models.Entry, error) {
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	vaultID, err := s.ownedVault(ctx, sess, acc, "")
	if err != nil {
		return nil, err
	}
	list, err := s.entries.Search(ctx, vaultID, strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	return access.Filter(list, acc), nil
}

func (s *entryService) AddPasskey(ctx context.Context, sess *session.Session, req PasskeyRequest) (*models.Entry, error) {
	if strings.TrimSpace(req.RelyingPartyID) == "" {
		return nil, fmt.Errorf("%w: relying party id is required", common.ErrValidation)
	}
	acc, err := sess.Account()
	if err != nil {
		return nil, err
	}
	if err := requireWrite(acc); err != nil {
		return nil, err
	}
	key, err := sess.Key()
	if err != nil {
		return nil, err
	}
	gen, err := s.issuer.Generate(key, req.UserHandle)
	common.WipeByteArray(key)
	if err != nil {
		return nil, err
	}

	title := req.Title
	if strings.TrimSpace(title) == "" {
		title = req.RelyingPartyName
		if title == "" {
			title = req.RelyingPartyID
		}
	}
	e := &models.Entry{
		VaultID:             req.VaultID,
		Type:                models.EntryTypePasskey,
		Title:               title,
		Username:            req.Username,
		RelyingPartyID:      strings.TrimSpace(req.RelyingPartyID),
		RelyingPartyName:    req.RelyingPartyName,
		UserHandle:          gen.UserHandle,
		CredentialID:        gen.CredentialID,
		PublicKeyPEM:        gen.PublicKeyPEM,
		EncryptedPrivateKey: gen.EncryptedPrivateKey,
		Counter:             gen.Counter,
	}

	if err := validateEntry(e); err != nil {
		return nil, err
	}
	vaultID, err := s.ownedVault(ctx, sess, acc, e.VaultID)
	if err != nil {
		return nil, err
	}
	e.VaultID = vaultID

	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "passkey created", "username", acc.Username, "rp", e.RelyingPartyID, "id", e.ID)
	return e, nil
}

func (s *entryService) ToggleFavorite(ctx context.Context, sess *session.Session, id string) (bool, error) {
	acc, err := sess.Account()
	if err != nil {
		return false, err
	}
	e, err := s.loadEditable(ctx, acc, id)
	if err != nil {
		return false, err
	}
	fav := !e.IsFavorite
	if err := s.entries.SetFavorite(ctx, id, fav); err != nil {
		return false, err
	}
	s.log.Debug(ctx, "favorite toggled", "username", acc.Username, "id", id, "favorite", fav)
	return fav, nil
}

func (s *entryService) VerifyPasskey(ctx context.Context, sess *session.Session, id string) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	e, err := s.load(ctx, acc, id)
	if err != nil {
		return err
	}
	if e.Type != models.EntryTypePasskey {
		return fmt.Errorf("%w: entry is not a passkey", common.ErrValidation)
	}
	key, err := sess.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)
	return s.issuer.Verify(e.EncryptedPrivateKey, e.PublicKeyPEM, key)
}

func (s *entryService) Delete(ctx context.Context, sess *session.Session, id string) error {
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	if _, err := s.loadEditable(ctx, acc, id); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "entry deleted", "username", acc.Username, "id", id)
	return nil
}

func (s *entryService) requireAdmin(sess *session.Session) (models.Account, error) {
	acc, err := sess.Account()
	if err != nil {
		return models.Account{}, err
	}
	if !access.CanManageRestrictions(acc) {
		return models.Account{}, common.ErrForbidden
	}
	return acc, nil
}

func (s *entryService) SetRestrictions(ctx context.Context, sess *session.Session, entryID string, userIDs []string) ([]string, []string, error) {
	admin, err := s.requireAdmin(sess)
	if err != nil {
		return nil, nil, err
	}

	var added, removed []string
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := entries.NewSQLiteRepository(tx).GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		accRepo := accounts.NewSQLiteRepository(tx)
		for _, uid := range userIDs {
			target, err := accRepo.GetByID(ctx, uid)
			if err != nil {
				return fmt.Errorf("account %s: %w", uid, err)
			}
			if target.Role != models.RoleChild {
				return fmt.Errorf("%w: only child accounts can be restricted, %s is %s",
					common.ErrValidation, target.Username, target.Role)
			}
		}
		added, removed = access.Diff(e.RestrictedUserIDs, userIDs)
		return restrictions.NewSQLiteRepository(tx).Replace(ctx, entryID, userIDs, admin.ID)
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info(ctx, "restrictions replaced", "admin", admin.Username, "entry", entryID,
		"added", len(added), "removed", len(removed))
	return added, removed, nil
}

func (s *entryService) Browse(ctx context.Context, sess *session.Session, ownerID string) ([]models.Entry, error) {
	if _, err := s.requireAdmin(sess); err != nil {
		return nil, err
	}
	return s.entries.ListByOwner(ctx, ownerID)
}

func (s *entryService) RestrictedUsers(ctx context.Context, sess *session.Session, entryID string) ([]string, error) {
	if _, err := s.requireAdmin(sess); err != nil {
		return nil, err
	}
	rows, err := s.restrictions.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.RestrictedUserID)
	}
	return ids, nil
}
