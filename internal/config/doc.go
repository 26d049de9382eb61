// Package config loads runtime configuration for the lockbox CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags, which override earlier values when set.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "5m" or
// integer nanoseconds:
//
//	{
//	  "database_path": "/home/me/.lockbox/vault.db",
//	  "kdf_iterations": 10000,
//	  "auto_lock_after": "5m",
//	  "log_level": "info",
//	  "generator": {"length": 20, "upper": true, "lower": true, "numbers": true, "special": false}
//	}
//
// Environment variables are not read.
package config
