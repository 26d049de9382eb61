// Package models defines the records lockbox persists: accounts, vaults,
// credential entries and access restrictions.
package models

import "time"

// Role is the permission level of an account.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
	RoleChild Role = "Child"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleChild:
		return true
	}
	return false
}

// Account is a local identity. PasswordHash is always the hash of the
// account password under Salt and KDFIterations.
type Account struct {
	ID            string
	Username      string
	PasswordHash  string
	Salt          string
	Role          Role
	KDFIterations int
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// Vault is a named container of entries owned by one account.
type Vault struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	ModifiedAt  *time.Time
}

// AccessRestriction hides EntryID from RestrictedUserID.
type AccessRestriction struct {
	ID               string
	EntryID          string
	RestrictedUserID string
	CreatedByUserID  string
	CreatedAt        time.Time
}
