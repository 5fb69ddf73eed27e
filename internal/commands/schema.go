package commands

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dotcommander/randkey/internal/output"
)

// NewSchemaCmd creates the schema command. root is walked to collect command schemas.
func NewSchemaCmd(root *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Describe command flags as JSON schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Commands []commandArgSchema `json:"commands"`
			}
			schemas := make([]commandArgSchema, 0)
			collectCommandSchemas(root, &schemas)
			return output.PrintSuccess(resp{Commands: schemas})
		},
	}
	return cmd
}

type commandArgSchema struct {
	Command     string         `json:"command"`
	Description string         `json:"description,omitempty"`
	Args        string         `json:"args,omitempty"`
	ArgsSchema  map[string]any `json:"args_schema"`
}

func collectCommandSchemas(cmd *cobra.Command, out *[]commandArgSchema) {
	if cmd.HasParent() && cmd.Name() != "schema" && !cmd.Hidden && cmd.Runnable() {
		*out = append(*out, buildCommandSchema(cmd))
	}

	for _, child := range cmd.Commands() {
		collectCommandSchemas(child, out)
	}
}

func buildCommandSchema(cmd *cobra.Command) commandArgSchema {
	properties := map[string]any{}
	required := make([]string, 0)
	seen := map[string]bool{}

	addFlag := func(f *pflag.Flag) {
		if f.Hidden || seen[f.Name] {
			return
		}
		seen[f.Name] = true

		properties[f.Name] = flagSchema(f)
		if isRequiredFlag(f) {
			required = append(required, f.Name)
		}
	}

	cmd.InheritedFlags().VisitAll(addFlag)
	cmd.NonInheritedFlags().VisitAll(addFlag)

	argsSchema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sort.Strings(required)
		argsSchema["required"] = required
	}

	// Positional arguments are only described by the usage line.
	var positional string
	if _, rest, ok := strings.Cut(cmd.Use, " "); ok {
		positional = rest
	}

	return commandArgSchema{
		Command:     cmd.CommandPath(),
		Description: cmd.Short,
		Args:        positional,
		ArgsSchema:  argsSchema,
	}
}

func flagSchema(f *pflag.Flag) map[string]any {
	s := map[string]any{
		"type":        normalizeFlagType(f.Value.Type()),
		"description": f.Usage,
	}
	if f.DefValue != "" {
		s["default"] = typedFlagDefault(f.Value.Type(), f.DefValue)
	}
	if enumValues := parseEnumValues(f.Usage); len(enumValues) > 0 {
		s["enum"] = enumValues
	}
	return s
}

func normalizeFlagType(flagType string) string {
	switch flagType {
	case "int", "int64", "int32", "uint", "uint64", "uint32", "count":
		return "integer"
	case "bool":
		return "boolean"
	default:
		// duration and friends are passed as strings ("5s").
		return "string"
	}
}

func typedFlagDefault(flagType, raw string) any {
	switch normalizeFlagType(flagType) {
	case "boolean":
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	case "integer":
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return raw
}

func isRequiredFlag(f *pflag.Flag) bool {
	if vals, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; ok && len(vals) > 0 && vals[0] == "true" {
		return true
	}
	return strings.Contains(strings.ToLower(f.Usage), "(required)")
}

// parseEnumValues extracts choices from usage text written as
// "Label: a|b|c" or "Label (a, b, c)".
func parseEnumValues(usage string) []string {
	usage = strings.TrimSpace(usage)
	if usage == "" {
		return nil
	}

	if idx := strings.LastIndex(usage, ":"); idx >= 0 {
		cand := strings.TrimSpace(usage[idx+1:])
		if strings.Contains(cand, "|") {
			return normalizeEnumParts(strings.Split(cand, "|"))
		}
	}

	open := strings.LastIndex(usage, "(")
	closing := strings.LastIndex(usage, ")")
	if open >= 0 && closing > open {
		cand := usage[open+1 : closing]
		if strings.Contains(strings.ToLower(cand), "e.g.") {
			return nil
		}
		if strings.Contains(cand, ",") {
			return normalizeEnumParts(strings.Split(cand, ","))
		}
	}

	return nil
}

func normalizeEnumParts(parts []string) []string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, "[]"))
		if p == "" || strings.ContainsAny(p, ". ") {
			continue
		}
		values = append(values, p)
	}
	if len(values) < 2 {
		return nil
	}
	return values
}
