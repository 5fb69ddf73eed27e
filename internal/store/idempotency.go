package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// lookupRequestTx returns the display form of the key previously allocated
// for (namespace, requestID), if any.
func lookupRequestTx(ctx context.Context, q Querier, namespace, requestID string) (display string, found bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT display FROM allocation_requests
		WHERE namespace = ? AND request_id = ?
	`, namespace, requestID).Scan(&display)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load allocation request: %w", err)
	}
	return display, true, nil
}

// recordRequestTx binds requestID to display. It must run in the same
// transaction as the key insert. A concurrent writer that recorded the same
// request id first surfaces as *UniquenessConflictError; rerunning the
// allocation then replays that writer's key.
func recordRequestTx(ctx context.Context, q Querier, namespace, requestID, display string) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO allocation_requests (namespace, request_id, display)
		VALUES (?, ?, ?)
	`, namespace, requestID, display); err != nil {
		if IsUniqueViolation(err) {
			return &UniquenessConflictError{Namespace: namespace, Key: display}
		}
		return fmt.Errorf("failed to record allocation request: %w", err)
	}
	return nil
}
