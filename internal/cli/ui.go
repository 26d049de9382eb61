package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/filex"
	"github.com/dmitrijs2005/lockbox/internal/passgen"
	"github.com/dmitrijs2005/lockbox/internal/services"
	"github.com/fatih/color"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

func printFailure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.RedString("✗")+" "+fmt.Sprintf(format, args...))
}

func printHint(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.CyanString("→")+" "+fmt.Sprintf(format, args...))
}

// withSpinner runs fn while a spinner with suffix is shown on w. The spinner
// stays silent when w is not a terminal.
func withSpinner(w io.Writer, suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

// strengthLabel renders a score with its label, coloured by band.
func strengthLabel(score int) string {
	label := fmt.Sprintf("%s (%d/100)", passgen.Label(score), score)
	switch {
	case score < 50:
		return color.RedString(label)
	case score < 70:
		return color.YellowString(label)
	default:
		return color.GreenString(label)
	}
}

// describeError turns service errors into short user-facing text.
func describeError(err error) string {
	switch {
	case errors.Is(err, cryptox.ErrAuthentication):
		return "invalid username or password"
	case errors.Is(err, common.ErrLocked):
		return "session is locked, please login again"
	case errors.Is(err, services.ErrNoVault):
		return "no vault selected, use 'vaults' and 'use <vault>'"
	case errors.Is(err, common.ErrForbidden):
		return "not allowed for this account"
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrAlreadyExists):
		return "already exists"
	case errors.Is(err, filex.ErrTooLarge):
		return err.Error()
	case errors.Is(err, common.ErrValidation), errors.Is(err, cryptox.ErrInvalidInput):
		return err.Error()
	}
	return "error: " + err.Error()
}
