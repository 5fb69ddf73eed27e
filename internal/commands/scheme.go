package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/pkg/keyspace"
)

func addSchemeFlags(cmd *cobra.Command) {
	cmd.Flags().String("scheme", "", "Key scheme (default from config): binary|integer|uuid")
	cmd.Flags().Int("length", 0, "Key length in bytes (binary) or digits (integer); 0 uses the configured default")
}

// resolveScheme builds the scheme named by --scheme/--length, falling back to
// the configured allocation settings for anything left unset.
func resolveScheme(cmd *cobra.Command) (keyspace.Scheme, error) {
	cfg := app.EffectiveAllocationSettings()

	name, _ := cmd.Flags().GetString("scheme")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.Scheme
	}

	length, _ := cmd.Flags().GetInt("length")
	if length < 0 {
		return nil, fmt.Errorf("--length must be >= 0, got %d", length)
	}
	if length == 0 {
		length = cfg.LengthFor(name)
	}

	return keyspace.NewScheme(name, length)
}

// storageString renders the storage form of id: decimal for integers,
// lowercase hex of the raw bytes otherwise.
func storageString(scheme keyspace.Scheme, id keyspace.ID) (string, error) {
	v, err := scheme.Value(id)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case []byte:
		return hex.EncodeToString(v), nil
	default:
		return "", fmt.Errorf("%w: storage value %T", keyspace.ErrUnsupportedID, v)
	}
}

// parseStorage is the inverse of storageString.
func parseStorage(scheme keyspace.Scheme, s string) (keyspace.ID, error) {
	s = strings.TrimSpace(s)
	if scheme.Name() == keyspace.SchemeInteger {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer storage value %q: %w", s, err)
		}
		return n, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex storage value %q: %w", s, err)
	}
	return b, nil
}
