// Package cli provides the lockbox command-line interface.
//
// The cobra command tree (NewRootCmd) exposes one-shot commands (genpass,
// strength, seed, version) and the interactive shell. The shell is a small
// REPL over an App, which wires configuration, the SQLite store and the
// services, and keeps the unlocked session for the logged-in account.
//
// Typical flow inside the shell: register or login, pick a vault with
// "use", then add, list, search and show entries. The session locks itself
// after the configured idle period.
package cli
