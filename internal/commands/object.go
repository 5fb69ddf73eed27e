package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/objectstore"
	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/pkg/keyspace"
)

// NewReserveObjectCmd creates the reserve-object command.
func NewReserveObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reserve-object",
		Short: "Allocate a key as an empty marker object in an S3 bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, scheme, err := objectTarget(cmd)
			if err != nil {
				return cmdErr(err)
			}
			label, _ := cmd.Flags().GetString("label")
			maxRetries, _ := cmd.Flags().GetInt("max-retries")
			if maxRetries < 0 {
				maxRetries = app.EffectiveAllocationSettings().MaxConflictRetries
			}

			ctx := commandContext(cmd)
			checker, err := openObjectChecker(ctx, cfg, scheme)
			if err != nil {
				return cmdErr(err)
			}
			res, err := checker.Allocate(ctx, label, maxRetries)
			if err != nil {
				return cmdErr(err)
			}
			return output.PrintSuccess(res)
		},
	}

	addSchemeFlags(cmd)
	addObjectFlags(cmd)
	cmd.Flags().String("label", "", "Optional label stored as object metadata")
	cmd.Flags().Int("max-retries", -1, "Retries after losing a reservation race (-1 = from config)")

	return cmd
}

// NewReleaseObjectCmd creates the release-object command.
func NewReleaseObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release-object KEY",
		Short: "Delete the marker object of a reserved key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, scheme, err := objectTarget(cmd)
			if err != nil {
				return cmdErr(err)
			}
			id, key, err := canonicalKey(scheme, args[0])
			if err != nil {
				return cmdErr(err)
			}

			ctx := commandContext(cmd)
			checker, err := openObjectChecker(ctx, cfg, scheme)
			if err != nil {
				return cmdErr(err)
			}
			objectKey, err := checker.ObjectKey(id)
			if err != nil {
				return cmdErr(err)
			}
			if err := checker.Release(ctx, id); err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Key       string `json:"key"`
				ObjectKey string `json:"object_key"`
				Bucket    string `json:"bucket"`
			}
			return output.PrintSuccess(resp{Key: key, ObjectKey: objectKey, Bucket: cfg.Bucket})
		},
	}

	addSchemeFlags(cmd)
	addObjectFlags(cmd)

	return cmd
}

func addObjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("bucket", "", "S3 bucket (default from config s3_bucket)")
	cmd.Flags().String("prefix", "", "Object key prefix (default from config s3_prefix)")
	cmd.Flags().String("region", "", "AWS region (default from config s3_region or the AWS environment)")
	cmd.Flags().String("endpoint", "", "Custom S3-compatible endpoint URL")
}

// objectTarget resolves the bucket settings and scheme without touching AWS.
func objectTarget(cmd *cobra.Command) (objectstore.Config, keyspace.Scheme, error) {
	cfg := objectConfig(cmd)
	if cfg.Bucket == "" {
		return cfg, nil, errors.New("--bucket is required (or set s3_bucket in config)")
	}
	scheme, err := resolveScheme(cmd)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, scheme, nil
}

func openObjectChecker(ctx context.Context, cfg objectstore.Config, scheme keyspace.Scheme) (*objectstore.Checker, error) {
	client, err := objectstore.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return objectstore.NewChecker(client, cfg.Bucket, cfg.Prefix, scheme), nil
}

// objectConfig merges S3 flags over config settings. Credentials come from
// the default AWS chain.
func objectConfig(cmd *cobra.Command) objectstore.Config {
	var cfg objectstore.Config
	if s, err := app.LoadSettings(); err == nil {
		cfg = objectstore.Config{
			Bucket:   s.S3Bucket,
			Region:   s.S3Region,
			Prefix:   s.S3Prefix,
			Endpoint: s.S3Endpoint,
		}
	}

	override := func(flag string, dst *string) {
		if v, _ := cmd.Flags().GetString(flag); strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override("bucket", &cfg.Bucket)
	override("prefix", &cfg.Prefix)
	override("region", &cfg.Region)
	override("endpoint", &cfg.Endpoint)
	return cfg
}
