package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/randkey/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "randkey"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# randkey configuration
# Run: randkey --help

# Optional: override the SQLite key registry location.
# Can also be set via RANDKEY_DB_PATH or --db-path.
# db_path: ~/.config/randkey/keys.db

# Default scheme for generate/allocate: binary, integer or uuid.
# scheme: binary

# binary_length: 16   # bytes
# integer_length: 12  # digits, at most 18

# Caller-level retries when another writer inserts the same key first.
# max_conflict_retries: 5

# log_level: info

# Bucket used by reserve-object. Credentials come from the AWS default chain.
# s3_bucket: my-keys
# s3_region: us-east-1
# s3_prefix: keys/
# s3_endpoint: http://localhost:9000
`
