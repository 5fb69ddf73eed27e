package commands

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/pkg/keyspace"
	"github.com/dotcommander/randkey/pkg/memory"
)

const maxGenerateCount = 10000

type generatedKey struct {
	Key     string `json:"key"`
	Storage string `json:"storage"`
}

// NewGenerateCmd creates the generate command.
func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random keys without consulting a key store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			unique, _ := cmd.Flags().GetBool("unique")

			if count < 1 || count > maxGenerateCount {
				return cmdErr(fmt.Errorf("--count must be between 1 and %d, got %d", maxGenerateCount, count))
			}

			scheme, err := resolveScheme(cmd)
			if err != nil {
				return cmdErr(err)
			}

			keys, err := generateKeys(cmd, scheme, count, unique)
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Scheme string         `json:"scheme"`
				Length int            `json:"length"`
				Unique bool           `json:"unique"`
				Count  int            `json:"count"`
				Keys   []generatedKey `json:"keys"`
			}
			return output.PrintSuccess(resp{
				Scheme: scheme.Name(),
				Length: scheme.Length(),
				Unique: unique,
				Count:  len(keys),
				Keys:   keys,
			})
		},
	}

	addSchemeFlags(cmd)
	cmd.Flags().IntP("count", "n", 1, "Number of keys to generate")
	cmd.Flags().Bool("unique", false, "Guarantee keys are distinct within this batch")

	return cmd
}

func generateKeys(cmd *cobra.Command, scheme keyspace.Scheme, count int, unique bool) ([]generatedKey, error) {
	ctx := commandContext(cmd)

	// A batch larger than the keyspace would never finish.
	if capacity := keyspace.Capacity(scheme); unique && capacity.Cmp(big.NewInt(int64(count))) < 0 {
		return nil, fmt.Errorf("--count %d exceeds the %s keyspace of %s keys", count, scheme.Name(), capacity)
	}

	batch := &memory.Keyspace{Store: memory.New(), Namespace: "generate", Scheme: scheme}

	keys := make([]generatedKey, 0, count)
	for range count {
		var (
			id  keyspace.ID
			err error
		)
		if unique {
			id, err = batch.Allocate(ctx)
		} else {
			id, err = scheme.Generate()
		}
		if err != nil {
			return nil, err
		}

		display, err := scheme.Encode(id)
		if err != nil {
			return nil, err
		}
		storage, err := storageString(scheme, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, generatedKey{Key: display, Storage: storage})
	}
	return keys, nil
}
