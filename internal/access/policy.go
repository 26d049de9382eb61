// Package access decides which entries an account may see or change.
//
// Only Child accounts are affected by access restrictions. Admin and User
// accounts see every entry in the vaults they own. Child accounts are
// read-only: they never create, edit or delete vaults or entries.
package access

import (
	"slices"

	"github.com/dmitrijs2005/lockbox/internal/models"
)

// IsVisible reports whether viewer may see entry.
func IsVisible(entry models.Entry, viewer models.Account) bool {
	if viewer.Role != models.RoleChild {
		return true
	}
	return !slices.Contains(entry.RestrictedUserIDs, viewer.ID)
}

// CanWrite reports whether viewer may create or change anything at all.
// Child accounts are read-only.
func CanWrite(viewer models.Account) bool {
	return viewer.Role != models.RoleChild
}

// CanEdit reports whether viewer may modify entry.
func CanEdit(entry models.Entry, viewer models.Account) bool {
	return CanWrite(viewer) && IsVisible(entry, viewer)
}

// CanManageRestrictions reports whether viewer may change restriction sets.
func CanManageRestrictions(viewer models.Account) bool {
	return viewer.Role == models.RoleAdmin
}

// Filter returns the entries visible to viewer, preserving order.
func Filter(entries []models.Entry, viewer models.Account) []models.Entry {
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if IsVisible(e, viewer) {
			out = append(out, e)
		}
	}
	return out
}

// Diff compares an entry's current restriction set with a new selection and
// returns the users that would be added and removed. Saving always replaces
// the full set; Diff only feeds log lines and confirmations.
func Diff(current, selected []string) (added, removed []string) {
	for _, id := range selected {
		if !slices.Contains(current, id) && !slices.Contains(added, id) {
			added = append(added, id)
		}
	}
	for _, id := range current {
		if !slices.Contains(selected, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}
