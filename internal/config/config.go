package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/cryptox"
	"github.com/dmitrijs2005/lockbox/internal/passgen"
	"github.com/spf13/pflag"
)

// Config holds runtime settings for the lockbox CLI.
type Config struct {
	// DatabasePath is the SQLite file holding all vaults.
	DatabasePath string
	// KDFIterations is used for new password hashes. Existing accounts keep
	// the count they were hashed with until their password changes.
	KDFIterations int
	// AutoLockAfter locks an idle session; zero disables auto-lock.
	AutoLockAfter time.Duration
	LogLevel      string
	Generator     passgen.Options
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = defaultDatabasePath()
	c.KDFIterations = cryptox.DefaultIterations
	c.AutoLockAfter = 5 * time.Minute
	c.LogLevel = "warn"
	c.Generator = passgen.DefaultOptions
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "vault.db"
	}
	return filepath.Join(home, ".lockbox", "vault.db")
}

// LoadConfig builds a Config by applying defaults, then the JSON file named
// by the --config flag (if any), then every flag in fs the user set.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}
