package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const dbPathEnv = envPrefix + "DB_PATH"

// GetDBPath resolves the key registry path.
// Order of precedence:
// 1) CLI override (e.g. --db-path)
// 2) Environment variable: RANDKEY_DB_PATH
// 3) config.yaml: db_path
// 4) Default: ~/.config/randkey/keys.db
// Ensures the parent directory exists.
func GetDBPath() (string, error) {
	path, _, err := ResolveDBPathDetailed()
	return path, err
}

// ResolveDBPathDetailed returns the resolved DB path along with the source of that decision.
func ResolveDBPathDetailed() (path string, source string, err error) {
	if override := getDBPathOverride(); override != "" {
		resolvedPath, ensureErr := EnsureDBDir(override)
		return resolvedPath, "cli(--db-path)", ensureErr
	}

	if envPath := os.Getenv(dbPathEnv); envPath != "" {
		resolvedPath, ensureErr := EnsureDBDir(envPath)
		return resolvedPath, "env(" + dbPathEnv + ")", ensureErr
	}

	configPaths, err := settingsPaths()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}

	for _, p := range configPaths {
		s, loadErr := loadSettingsFile(p)
		if loadErr == nil {
			if s.DBPath != "" {
				resolvedPath, ensureErr := EnsureDBDir(s.DBPath)
				return resolvedPath, fmt.Sprintf("config(%s)", p), ensureErr
			}
			// Config order must match LoadSettings: the first file found wins.
			break
		}
		if errors.Is(loadErr, os.ErrNotExist) {
			continue
		}
		return "", "", fmt.Errorf("failed to load config %s: %w", p, loadErr)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	resolved, err := EnsureDBDir(filepath.Join(configDir, "keys.db"))
	return resolved, "default(~/.config/randkey/keys.db)", err
}

// EnsureDBDir creates the parent directory of dbPath and returns dbPath unchanged.
func EnsureDBDir(dbPath string) (string, error) {
	if dbPath == ":memory:" || len(dbPath) > 5 && dbPath[:5] == "file:" {
		return dbPath, nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return dbPath, nil
}
