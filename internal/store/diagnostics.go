package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Diagnostic represents a single consistency check finding.
type Diagnostic struct {
	Level           string `json:"level"` // "warning" or "error"
	Code            string `json:"code"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// Fill ratios above which allocation slows noticeably. At 0.5 every
// allocation averages two candidates; at 0.9, ten.
const (
	fillWarnRatio  = 0.5
	fillErrorRatio = 0.9
)

// RunDiagnostics performs consistency checks and returns findings.
func RunDiagnostics(ctx context.Context, db *sql.DB) ([]Diagnostic, error) {
	var diags []Diagnostic

	crowded, err := findCrowdedNamespaces(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("fill ratio check: %w", err)
	}
	diags = append(diags, crowded...)

	orphans, err := findOrphanKeys(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("orphan key check: %w", err)
	}
	diags = append(diags, orphans...)

	return diags, nil
}

// findCrowdedNamespaces flags namespaces whose keyspace is filling up. The
// allocator has no attempt cap, so a nearly full namespace makes it spin.
func findCrowdedNamespaces(ctx context.Context, db *sql.DB) ([]Diagnostic, error) {
	status, err := GetStatusCounts(ctx, db)
	if err != nil {
		return nil, err
	}

	var diags []Diagnostic
	for _, ns := range status.Namespaces {
		level := ""
		switch {
		case ns.FillRatio >= fillErrorRatio:
			level = "error"
		case ns.FillRatio >= fillWarnRatio:
			level = "warning"
		default:
			continue
		}
		diags = append(diags, Diagnostic{
			Level:           level,
			Code:            "KEYSPACE_CROWDED",
			Message:         fmt.Sprintf("namespace %s uses %d of %s %s keys (%.0f%%)", ns.Name, ns.Keys, ns.Capacity, ns.Scheme, ns.FillRatio*100),
			SuggestedAction: "move new records to a namespace with a longer key length",
		})
	}
	return diags, nil
}

// findOrphanKeys finds keys whose namespace row is missing, which only happens
// when foreign keys were disabled during a write.
func findOrphanKeys(ctx context.Context, db *sql.DB) ([]Diagnostic, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT k.namespace, COUNT(*)
		FROM keys k LEFT JOIN namespaces n ON n.name = k.namespace
		WHERE n.name IS NULL
		GROUP BY k.namespace
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var ns string
		var n int64
		if err := rows.Scan(&ns, &n); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:   "error",
			Code:    "ORPHAN_KEYS",
			Message: fmt.Sprintf("%d keys reference missing namespace %s", n, ns),
		})
	}
	return diags, rows.Err()
}
