package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml, then overlaid
// with RANDKEY_* environment variables. Field names match snake_case YAML keys.
type Settings struct {
	DBPath             string `yaml:"db_path" env:"DB_PATH, overwrite"`
	Scheme             string `yaml:"scheme" env:"SCHEME, overwrite" validate:"omitempty,oneof=binary integer uuid"`
	BinaryLength       int    `yaml:"binary_length" env:"BINARY_LENGTH, overwrite" validate:"omitempty,min=1,max=1024"`
	IntegerLength      int    `yaml:"integer_length" env:"INTEGER_LENGTH, overwrite" validate:"omitempty,min=1,max=18"`
	MaxConflictRetries int    `yaml:"max_conflict_retries" env:"MAX_CONFLICT_RETRIES, overwrite" validate:"omitempty,min=0,max=100"`
	LogLevel           string `yaml:"log_level" env:"LOG_LEVEL, overwrite" validate:"omitempty,oneof=debug info warn warning error"`

	S3Bucket   string `yaml:"s3_bucket" env:"S3_BUCKET, overwrite"`
	S3Region   string `yaml:"s3_region" env:"S3_REGION, overwrite"`
	S3Prefix   string `yaml:"s3_prefix" env:"S3_PREFIX, overwrite"`
	S3Endpoint string `yaml:"s3_endpoint" env:"S3_ENDPOINT, overwrite" validate:"omitempty,url"`
}

// envPrefix is prepended to every env tag on Settings.
const envPrefix = "RANDKEY_"

const (
	defaultScheme             = "binary"
	defaultMaxConflictRetries = 5
)

// AllocationSettings are effective runtime values used by generate/allocate.
type AllocationSettings struct {
	Scheme             string `json:"scheme"`
	BinaryLength       int    `json:"binary_length"`
	IntegerLength      int    `json:"integer_length"`
	MaxConflictRetries int    `json:"max_conflict_retries"`
}

// LengthFor returns the configured length for scheme, or 0 for the scheme default.
func (a AllocationSettings) LengthFor(scheme string) int {
	switch scheme {
	case "binary":
		return a.BinaryLength
	case "integer":
		return a.IntegerLength
	default:
		return 0
	}
}

// EffectiveAllocationSettings returns allocation settings with defaults.
// A config that fails to load or validate falls back to defaults.
func EffectiveAllocationSettings() AllocationSettings {
	cfg := AllocationSettings{
		Scheme:             defaultScheme,
		MaxConflictRetries: defaultMaxConflictRetries,
	}

	s, err := LoadSettings()
	if err != nil {
		return cfg
	}

	if s.Scheme != "" {
		cfg.Scheme = s.Scheme
	}
	if s.BinaryLength > 0 {
		cfg.BinaryLength = s.BinaryLength
	}
	if s.IntegerLength > 0 {
		cfg.IntegerLength = s.IntegerLength
	}
	if s.MaxConflictRetries > 0 {
		cfg.MaxConflictRetries = s.MaxConflictRetries
	}
	return cfg
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// dbPathOverrideMu and dbPathOverride implement a mutex-protected process-wide override for CLI --db-path.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	dbPathOverrideMu sync.RWMutex
	dbPathOverride   string

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// SetDBPathOverride sets a process-wide database path override.
// Intended for CLI flag support (e.g. --db-path).
func SetDBPathOverride(path string) {
	dbPathOverrideMu.Lock()
	dbPathOverride = path
	dbPathOverrideMu.Unlock()
}

func getDBPathOverride() string {
	dbPathOverrideMu.RLock()
	v := dbPathOverride
	dbPathOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/randkey/config.yaml
// 2) /etc/randkey/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// RANDKEY_* environment variables are applied on top of whichever file won,
// and the merged result is validated.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		s, err := loadFirstSettingsFile()
		if err != nil {
			settingsErr = err
			return
		}
		if err := applyEnv(context.Background(), &s, envconfig.OsLookuper()); err != nil {
			settingsErr = err
			return
		}
		if err := validateSettings(s); err != nil {
			settingsErr = err
			return
		}
		settings = s
	})

	return settings, settingsErr
}

func settingsPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "randkey", "config.yaml"),
		"config.yaml",
	}, nil
}

func loadFirstSettingsFile() (Settings, error) {
	paths, err := settingsPaths()
	if err != nil {
		return Settings{}, err
	}
	for _, p := range paths {
		s, err := loadSettingsFile(p)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, err
		}
	}
	return Settings{}, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func applyEnv(ctx context.Context, s *Settings, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   s,
		Lookuper: envconfig.PrefixLookuper(envPrefix, l),
	}); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	return nil
}

func validateSettings(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
