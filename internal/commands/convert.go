package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/output"
)

type conversion struct {
	Scheme  string `json:"scheme"`
	Length  int    `json:"length"`
	Key     string `json:"key"`
	Storage string `json:"storage"`
}

// NewEncodeCmd creates the encode command.
func NewEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode VALUE",
		Short: "Render a storage value (hex bytes or decimal) in display form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheme, err := resolveScheme(cmd)
			if err != nil {
				return cmdErr(err)
			}
			id, err := parseStorage(scheme, args[0])
			if err != nil {
				return cmdErr(err)
			}
			display, err := scheme.Encode(id)
			if err != nil {
				return cmdErr(err)
			}
			storage, err := storageString(scheme, id)
			if err != nil {
				return cmdErr(err)
			}
			return output.PrintSuccess(conversion{
				Scheme:  scheme.Name(),
				Length:  scheme.Length(),
				Key:     display,
				Storage: storage,
			})
		},
	}

	addSchemeFlags(cmd)

	return cmd
}

// NewDecodeCmd creates the decode command.
func NewDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode KEY",
		Short: "Parse a display-form key and print its storage value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scheme, err := resolveScheme(cmd)
			if err != nil {
				return cmdErr(err)
			}
			id, canonical, err := canonicalKey(scheme, args[0])
			if err != nil {
				return cmdErr(err)
			}
			storage, err := storageString(scheme, id)
			if err != nil {
				return cmdErr(err)
			}
			return output.PrintSuccess(conversion{
				Scheme:  scheme.Name(),
				Length:  scheme.Length(),
				Key:     canonical,
				Storage: storage,
			})
		},
	}

	addSchemeFlags(cmd)

	return cmd
}
