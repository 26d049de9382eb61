package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/session"
)

// accountIndex loads every account keyed by lower-cased username.
func (a *App) accountIndex(ctx context.Context) (map[string]models.Account, error) {
	list, err := a.auth.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]models.Account, len(list))
	for _, acc := range list {
		idx[strings.ToLower(acc.Username)] = acc
	}
	return idx, nil
}

func (a *App) cmdBrowse(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: browse <username>", common.ErrValidation)
	}
	idx, err := a.accountIndex(ctx)
	if err != nil {
		return err
	}
	owner, ok := idx[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("account %s: %w", args[0], common.ErrNotFound)
	}
	list, err := a.entries.Browse(ctx, sess, owner.ID)
	if err != nil {
		return err
	}
	if err := printEntries(a.out, list); err != nil {
		return err
	}

	names := make(map[string]string, len(idx))
	for _, acc := range idx {
		names[acc.ID] = acc.Username
	}
	for _, e := range list {
		if len(e.RestrictedUserIDs) == 0 {
			continue
		}
		hidden := make([]string, 0, len(e.RestrictedUserIDs))
		for _, id := range e.RestrictedUserIDs {
			hidden = append(hidden, names[id])
		}
		printHint(a.out, "%s hidden from %s", shortID(e.ID), strings.Join(hidden, ", "))
	}
	return nil
}

// browseAll collects every account's entries for id resolution.
func (a *App) browseAll(ctx context.Context, sess *session.Session, idx map[string]models.Account) ([]models.Entry, error) {
	var all []models.Entry
	for _, acc := range idx {
		list, err := a.entries.Browse(ctx, sess, acc.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return all, nil
}

// cmdRestrict replaces the accounts an entry is hidden from. With no
// usernames every restriction on the entry is lifted.
func (a *App) cmdRestrict(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: restrict <id> [user...]", common.ErrValidation)
	}
	idx, err := a.accountIndex(ctx)
	if err != nil {
		return err
	}

	userIDs := make([]string, 0, len(args)-1)
	for _, name := range args[1:] {
		acc, ok := idx[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("account %s: %w", name, common.ErrNotFound)
		}
		userIDs = append(userIDs, acc.ID)
	}

	all, err := a.browseAll(ctx, sess, idx)
	if err != nil {
		return err
	}
	entryID, err := matchEntry(all, args[0])
	if err != nil {
		return err
	}

	added, removed, err := a.entries.SetRestrictions(ctx, sess, entryID, userIDs)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(idx))
	for _, acc := range idx {
		names[acc.ID] = acc.Username
	}
	for _, id := range added {
		printSuccess(a.out, "hidden from %s", names[id])
	}
	for _, id := range removed {
		printSuccess(a.out, "visible to %s again", names[id])
	}
	if len(added) == 0 && len(removed) == 0 {
		printHint(a.out, "restrictions unchanged")
	}

	hidden, err := a.entries.RestrictedUsers(ctx, sess, entryID)
	if err != nil {
		return err
	}
	if len(hidden) == 0 {
		printHint(a.out, "%s is visible to everyone", shortID(entryID))
		return nil
	}
	who := make([]string, 0, len(hidden))
	for _, id := range hidden {
		who = append(who, names[id])
	}
	printHint(a.out, "%s now hidden from: %s", shortID(entryID), strings.Join(who, ", "))
	return nil
}
