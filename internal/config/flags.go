package config

import (
	"github.com/spf13/pflag"
)

const (
	FlagConfig     = "config"
	FlagDatabase   = "db"
	FlagIterations = "iterations"
	FlagAutoLock   = "auto-lock"
	FlagLogLevel   = "log-level"
)

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// come from LoadDefaults; only flags the user sets override the JSON file.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.StringP(FlagDatabase, "d", d.DatabasePath, "path to the vault database")
	fs.Int(FlagIterations, d.KDFIterations, "PBKDF2 iterations for new password hashes")
	fs.Duration(FlagAutoLock, d.AutoLockAfter, "lock the session after this much inactivity (0 disables)")
	fs.String(FlagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	if fs.Changed(FlagDatabase) {
		if cfg.DatabasePath, err = fs.GetString(FlagDatabase); err != nil {
			return err
		}
	}
	if fs.Changed(FlagIterations) {
		if cfg.KDFIterations, err = fs.GetInt(FlagIterations); err != nil {
			return err
		}
	}
	if fs.Changed(FlagAutoLock) {
		if cfg.AutoLockAfter, err = fs.GetDuration(FlagAutoLock); err != nil {
			return err
		}
	}
	if fs.Changed(FlagLogLevel) {
		if cfg.LogLevel, err = fs.GetString(FlagLogLevel); err != nil {
			return err
		}
	}
	return nil
}
