package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/models"
)

func (a *App) cmdVaults(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	list, err := a.vaults.List(ctx, sess)
	if err != nil {
		return err
	}
	current, err := sess.VaultID()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tDESCRIPTION")
	for _, v := range list {
		mark := ""
		if v.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, v.Name, v.Description)
	}
	return tw.Flush()
}

func (a *App) cmdAddVault(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	name := strings.Join(args, " ")
	var err error
	if name == "" {
		if name, err = GetSimpleText(a.reader, "Vault name", a.out); err != nil {
			return err
		}
	}
	desc, err := GetSimpleText(a.reader, "Description (optional)", a.out)
	if err != nil {
		return err
	}
	v, err := a.vaults.Create(ctx, sess, name, desc)
	if err != nil {
		return err
	}
	printSuccess(a.out, "vault %s created", v.Name)
	printHint(a.out, "use %s to switch to it", v.Name)
	return nil
}

func (a *App) cmdUse(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: use <vault>", common.ErrValidation)
	}
	v, err := a.vaults.Use(ctx, sess, strings.Join(args, " "))
	if err != nil {
		return err
	}
	a.setVaultName(v.Name)
	printSuccess(a.out, "using vault %s", v.Name)
	return nil
}

func (a *App) cmdDelVault(ctx context.Context, args []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: delvault <vault>", common.ErrValidation)
	}
	ref := strings.Join(args, " ")
	list, err := a.vaults.List(ctx, sess)
	if err != nil {
		return err
	}
	var target *models.Vault
	for i := range list {
		if list[i].ID == ref || strings.EqualFold(list[i].Name, ref) {
			target = &list[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("vault %q: %w", ref, common.ErrNotFound)
	}

	ok, err := Confirm(a.reader, "Delete vault "+target.Name+" and all its entries?", a.out)
	if err != nil || !ok {
		return err
	}
	current, err := sess.VaultID()
	if err != nil {
		return err
	}
	if err := a.vaults.Delete(ctx, sess, target.ID); err != nil {
		return err
	}
	if current == target.ID {
		a.setVaultName("")
	}
	printSuccess(a.out, "vault %s deleted", target.Name)
	return nil
}
