package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// resolveRequestID returns --request-id, falling back to $RANDKEY_REQUEST_ID.
// An empty result means the allocation is not idempotent.
func resolveRequestID(cmd *cobra.Command) string {
	if v, err := cmd.Flags().GetString("request-id"); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(os.Getenv("RANDKEY_REQUEST_ID"))
}
