package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// errExit ends the REPL loop.
var errExit = errors.New("exit")

// replCommand is one shell command. Commands with auth set are only offered
// while a session is unlocked.
type replCommand struct {
	name  string
	usage string
	help  string
	auth  bool
	run   func(ctx context.Context, args []string) error
}

// shell is the minimal surface the REPL needs: a command table, a login
// check and a status for the prompt. App satisfies it; tests use a stub.
type shell interface {
	commands() []replCommand
	isLoggedIn() bool
	status() string
}

// runREPL reads commands line by line from reader and dispatches them.
//
// The first token selects the command, the rest are passed as arguments.
// Command errors are printed and the loop continues. The loop exits on EOF,
// on "exit"/"quit", or when ctx is cancelled.
func runREPL(ctx context.Context, sh shell, reader *bufio.Reader, w io.Writer) {
	table := map[string]replCommand{}
	for _, c := range sh.commands() {
		table[c.name] = c
	}

	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "lockbox%s> ", sh.status())

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		name, args := parts[0], parts[1:]

		switch name {
		case "help", "?":
			printHelp(w, sh)
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		cmd, ok := table[name]
		if !ok {
			printFailure(w, "unknown command: %s", name)
			printHint(w, "type 'help' for the list of commands")
			continue
		}
		if cmd.auth && !sh.isLoggedIn() {
			printFailure(w, "please login first")
			continue
		}
		if err := cmd.run(ctx, args); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			printFailure(w, "%s", describeError(err))
		}
	}
}

func printHelp(w io.Writer, sh shell) {
	loggedIn := sh.isLoggedIn()
	var lines []string
	for _, c := range sh.commands() {
		if c.auth && !loggedIn {
			continue
		}
		usage := c.name
		if c.usage != "" {
			usage += " " + c.usage
		}
		lines = append(lines, fmt.Sprintf("  %-28s %s", usage, c.help))
	}
	sort.Strings(lines)
	fmt.Fprintln(w, "Available commands:")
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintf(w, "  %-28s %s\n", "exit", "leave the shell")
}
