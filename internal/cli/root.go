package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/lockbox/internal/buildinfo"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/config"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/dmitrijs2005/lockbox/internal/passgen"
	"github.com/dmitrijs2005/lockbox/internal/services"
	"github.com/spf13/cobra"
)

// setup loads configuration from cmd's flags and builds a logger writing to
// stderr.
func setup(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openApp(cmd *cobra.Command) (*App, error) {
	cfg, log, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return NewApp(cmd.Context(), cfg, log, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runShell(cmd *cobra.Command, _ []string) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Run(cmd.Context())
	return nil
}

// NewRootCmd builds the lockbox command tree. Running it without a
// subcommand starts the interactive shell.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lockbox",
		Short: "lockbox - a local-first password manager",
		Long: `lockbox keeps logins, cards, notes, files and passkeys in an encrypted
SQLite vault on this machine. Secrets are encrypted with a key derived from
your master password and never leave the device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runShell,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE:  runShell,
		},
		newGenpassCmd(),
		newStrengthCmd(),
		newSeedCmd(),
		newVersionCmd(),
	)
	return root
}

func newGenpassCmd() *cobra.Command {
	var (
		count                                 int
		length                                int
		noUpper, noLower, noNumbers, noSpecial bool
	)
	cmd := &cobra.Command{
		Use:   "genpass",
		Short: "Generate random passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			opts := cfg.Generator
			if cmd.Flags().Changed("length") {
				opts.Length = length
			}
			opts.Upper = opts.Upper && !noUpper
			opts.Lower = opts.Lower && !noLower
			opts.Numbers = opts.Numbers && !noNumbers
			opts.Special = opts.Special && !noSpecial
			if count < 1 {
				return fmt.Errorf("%w: count must be positive", common.ErrValidation)
			}

			w := cmd.OutOrStdout()
			for range count {
				pw, err := passgen.Generate(opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, pw)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&length, "length", "l", passgen.DefaultOptions.Length, "password length")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of passwords")
	cmd.Flags().BoolVar(&noUpper, "no-upper", false, "exclude uppercase letters")
	cmd.Flags().BoolVar(&noLower, "no-lower", false, "exclude lowercase letters")
	cmd.Flags().BoolVar(&noNumbers, "no-numbers", false, "exclude digits")
	cmd.Flags().BoolVar(&noSpecial, "no-special", false, "exclude special characters")
	return cmd
}

func newStrengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strength",
		Short: "Score a password without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			pw, err := GetPassword(bufio.NewReader(cmd.InOrStdin()), "Password", w)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			fmt.Fprintf(w, "Strength: %s\n", strengthLabel(passgen.Strength(string(pw))))
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo accounts and entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			w := cmd.OutOrStdout()
			if err := withSpinner(w, "Seeding demo data...", func() error {
				return app.seed.Seed(cmd.Context())
			}); err != nil {
				return err
			}
			printSuccess(w, "demo data created")
			for _, d := range services.DemoAccounts {
				printHint(w, "%s / %s (%s)", d.Username, d.Password, d.Role)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Execute runs the root command and reports a failure on stderr.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		printFailure(stderr, "%s", describeError(err))
		return 1
	}
	return 0
}
