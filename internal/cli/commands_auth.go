package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/models"
	"github.com/dmitrijs2005/lockbox/internal/services"
	"github.com/dmitrijs2005/lockbox/internal/session"
)

func parseRole(s string) (models.Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return models.RoleUser, nil
	case "admin":
		return models.RoleAdmin, nil
	case "child":
		return models.RoleChild, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, s)
}

// readNewPassword asks for a password twice.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	pw, err := GetPassword(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	confirm, err := GetPassword(a.reader, "Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)
	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrValidation)
	}
	return pw, nil
}

func (a *App) cmdRegister(ctx context.Context, _ []string) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := a.readNewPassword("Master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	req := services.RegisterRequest{Username: username, Password: password}
	if sess := a.session(); sess != nil {
		acc, err := sess.Account()
		if err != nil {
			return err
		}
		req.Creator = &acc
		if acc.Role == models.RoleAdmin {
			r, err := GetSimpleText(a.reader, "Role (admin, user, child) [user]", a.out)
			if err != nil {
				return err
			}
			if req.Role, err = parseRole(r); err != nil {
				return err
			}
		}
	}

	var acc *models.Account
	err = withSpinner(a.out, "Creating account...", func() error {
		acc, err = a.auth.Register(ctx, req)
		return err
	})
	if err != nil {
		return err
	}
	printSuccess(a.out, "account %s created (%s)", acc.Username, acc.Role)
	if a.session() == nil {
		printHint(a.out, "type 'login' to unlock it")
	}
	return nil
}

func (a *App) cmdLogin(ctx context.Context, _ []string) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, "Master password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var sess *session.Session
	err = withSpinner(a.out, "Unlocking...", func() error {
		sess, err = a.auth.Login(ctx, username, password)
		return err
	})
	if err != nil {
		return err
	}
	a.startSession(ctx, sess)

	acc, err := sess.Account()
	if err != nil {
		return err
	}
	printSuccess(a.out, "welcome, %s (%s)", acc.Username, acc.Role)

	if v, err := a.vaults.Use(ctx, sess, services.DefaultVaultName); err == nil {
		a.setVaultName(v.Name)
	} else if list, lerr := a.vaults.List(ctx, sess); lerr == nil && len(list) > 0 {
		if v, err := a.vaults.Use(ctx, sess, list[0].ID); err == nil {
			a.setVaultName(v.Name)
		}
	}
	return nil
}

func (a *App) cmdLogout(ctx context.Context, _ []string) error {
	a.endSession(ctx)
	printSuccess(a.out, "logged out")
	return nil
}

func (a *App) cmdPasswd(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	old, err := GetPassword(a.reader, "Current password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(old)
	next, err := a.readNewPassword("New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	err = withSpinner(a.out, "Re-encrypting vault...", func() error {
		return a.auth.ChangePassword(ctx, sess, old, next)
	})
	if err != nil {
		return err
	}
	printSuccess(a.out, "master password changed")
	return nil
}

func (a *App) cmdAccounts(ctx context.Context, _ []string) error {
	sess := a.session()
	if sess == nil {
		return common.ErrLocked
	}
	acc, err := sess.Account()
	if err != nil {
		return err
	}
	if acc.Role != models.RoleAdmin {
		return common.ErrForbidden
	}
	list, err := a.auth.Accounts(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tLAST LOGIN")
	for _, u := range list {
		last := "never"
		if u.LastLoginAt != nil {
			last = u.LastLoginAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Username, u.Role, last)
	}
	return tw.Flush()
}
