package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/lockbox/internal/passgen"
	"github.com/dmitrijs2005/lockbox/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-value fields that are absent from the file leave Config untouched.
type JsonConfig struct {
	DatabasePath  string           `json:"database_path"`
	KDFIterations int              `json:"kdf_iterations"`
	AutoLockAfter *timex.Duration  `json:"auto_lock_after"`
	LogLevel      string           `json:"log_level"`
	Generator     *passgen.Options `json:"generator"`
}

// parseJSON overlays cfg with values read from the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.KDFIterations != 0 {
		cfg.KDFIterations = jc.KDFIterations
	}
	if jc.AutoLockAfter != nil {
		cfg.AutoLockAfter = jc.AutoLockAfter.Duration
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.Generator != nil {
		if jc.Generator.Length > passgen.MaxLength {
			return fmt.Errorf("config %s: generator length %d exceeds %d", path, jc.Generator.Length, passgen.MaxLength)
		}
		cfg.Generator = *jc.Generator
	}
	return nil
}
