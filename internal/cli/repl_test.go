package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShell struct {
	loggedIn bool
	calls    []string
	args     [][]string
}

func (f *fakeShell) isLoggedIn() bool { return f.loggedIn }
func (f *fakeShell) status() string   { return "" }

func (f *fakeShell) record(name string) func(context.Context, []string) error {
	return func(_ context.Context, args []string) error {
		f.calls = append(f.calls, name)
		f.args = append(f.args, args)
		return nil
	}
}

func (f *fakeShell) commands() []replCommand {
	return []replCommand{
		{name: "login", help: "unlock", run: func(ctx context.Context, args []string) error {
			f.calls = append(f.calls, "login")
			f.loggedIn = true
			return nil
		}},
		{name: "list", help: "list entries", auth: true, run: f.record("list")},
		{name: "show", usage: "<id>", help: "show entry", auth: true, run: f.record("show")},
		{name: "broken", help: "always fails", run: func(context.Context, []string) error {
			return common.ErrForbidden
		}},
		{name: "bye", help: "leave", run: func(context.Context, []string) error { return errExit }},
	}
}

func TestRunREPL_DispatchAndAuthGate(t *testing.T) {
	sh := &fakeShell{}
	var out bytes.Buffer
	input := strings.Join([]string{
		"list",
		"help",
		"login",
		"",
		"help",
		"show abc 123",
		"foobar",
		"broken",
		"exit",
		"list",
	}, "\n")

	runREPL(context.Background(), sh, rdr(input), &out)

	assert.Equal(t, []string{"login", "show"}, sh.calls, "list before login is rejected, nothing after exit runs")
	assert.Equal(t, []string{"abc", "123"}, sh.args[0])

	text := out.String()
	assert.Contains(t, text, "please login first")
	assert.Contains(t, text, "unknown command: foobar")
	assert.Contains(t, text, "not allowed for this account")
	assert.Contains(t, text, "Bye!")
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	sh := &fakeShell{}
	var out bytes.Buffer
	runREPL(context.Background(), sh, rdr("help\n"), &out)

	text := out.String()
	assert.Contains(t, text, "login")
	assert.NotContains(t, text, "show <id>")

	sh.loggedIn = true
	out.Reset()
	runREPL(context.Background(), sh, rdr("help\n"), &out)
	assert.Contains(t, out.String(), "show <id>")
}

func TestRunREPL_StopsOnEOFAndExitError(t *testing.T) {
	sh := &fakeShell{}
	var out bytes.Buffer

	runREPL(context.Background(), sh, rdr("bye\nlogin\n"), &out)
	assert.Empty(t, sh.calls)

	runREPL(context.Background(), sh, rdr("login"), &out)
	assert.Equal(t, []string{"login"}, sh.calls, "last line without newline still runs")
}

func TestRunREPL_CancelledContext(t *testing.T) {
	sh := &fakeShell{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	runREPL(ctx, sh, rdr("login\n"), &out)
	require.Empty(t, sh.calls)
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "not found", describeError(common.ErrNotFound))
	assert.Equal(t, "error: boom", describeError(errors.New("boom")))
	assert.Equal(t, "not allowed for this account", describeError(fmt.Errorf("child accounts are read-only: %w", common.ErrForbidden)))

	long := fmt.Errorf("%w: length 2000 exceeds 1024", cryptox.ErrInvalidInput)
	assert.Equal(t, long.Error(), describeError(long))
}
