package models

import "time"

// EntryType classifies an entry.
type EntryType string

const (
	EntryTypeLogin      EntryType = "Login"
	EntryTypeCreditCard EntryType = "CreditCard"
	EntryTypeSecureNote EntryType = "SecureNote"
	EntryTypeCustomFile EntryType = "CustomFile"
	EntryTypePasskey    EntryType = "Passkey"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeLogin, EntryTypeCreditCard, EntryTypeSecureNote, EntryTypeCustomFile, EntryTypePasskey:
		return true
	}
	return false
}

// Entry is a stored credential record. Fields prefixed with Encrypted hold
// cipher blobs (or are empty) and are never plaintext.
type Entry struct {
	ID         string
	VaultID    string
	Type       EntryType
	Title      string
	IsFavorite bool
	CreatedAt  time.Time
	ModifiedAt *time.Time

	// Login
	Username          string
	Email             string
	URL               string
	EncryptedPassword string

	// Credit card
	CardholderName      string
	ExpiryDate          string
	EncryptedCardNumber string
	EncryptedCVV        string

	// Common
	Category string
	Notes    string

	// File attachment
	FileName string
	FileData []byte

	// Passkey
	RelyingPartyID      string
	RelyingPartyName    string
	UserHandle          string
	CredentialID        string
	PublicKeyPEM        string
	EncryptedPrivateKey string
	Counter             int64

	// RestrictedUserIDs lists accounts the entry is hidden from. It is
	// loaded from access_restrictions, not stored on the entry row.
	RestrictedUserIDs []string
}

// Secrets is the plaintext form of an entry's secret fields. It exists only
// between the presentation layer and the entry service.
type Secrets struct {
	Password      string
	CardNumber    string
	CVV           string
	PrivateKeyPEM string
}
