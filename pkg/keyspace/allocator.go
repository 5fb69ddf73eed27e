package keyspace

import (
	"context"
	"fmt"
	"log/slog"
)

// Allocator draws candidates from a scheme until a checker reports one free.
//
// There is no attempt cap: a keyspace that is nearly full makes Allocate spin.
// Bound the call with a context deadline when the key length is short.
type Allocator struct {
	// Logger receives a debug record per collision. Nil disables logging.
	Logger *slog.Logger
	// OnCollision, when set, is called with every candidate the checker rejected.
	OnCollision func(id ID)
}

// Stats describes one allocation.
type Stats struct {
	Attempts   int
	Collisions int
}

// Allocate returns the first candidate from scheme that checker reports as absent.
func Allocate(ctx context.Context, scheme Scheme, checker ExistenceChecker) (ID, error) {
	var a Allocator
	return a.Allocate(ctx, scheme, checker)
}

// Allocate returns the first candidate from scheme that checker reports as absent.
func (a *Allocator) Allocate(ctx context.Context, scheme Scheme, checker ExistenceChecker) (ID, error) {
	id, _, err := a.AllocateWithStats(ctx, scheme, checker)
	return id, err
}

// AllocateWithStats is Allocate plus the number of attempts it took.
// Checker errors end the call immediately; no further candidates are drawn.
func (a *Allocator) AllocateWithStats(ctx context.Context, scheme Scheme, checker ExistenceChecker) (ID, Stats, error) {
	var st Stats
	for {
		if err := ctx.Err(); err != nil {
			return nil, st, fmt.Errorf("allocate %s id after %d attempts: %w", scheme.Name(), st.Attempts, err)
		}

		id, err := scheme.Generate()
		if err != nil {
			return nil, st, fmt.Errorf("generate %s id: %w", scheme.Name(), err)
		}
		st.Attempts++

		taken, err := checker.Exists(ctx, id)
		if err != nil {
			return nil, st, fmt.Errorf("check %s id: %w", scheme.Name(), err)
		}
		if !taken {
			return id, st, nil
		}

		st.Collisions++
		if a.OnCollision != nil {
			a.OnCollision(id)
		}
		if a.Logger != nil {
			a.Logger.DebugContext(ctx, "id collision", "scheme", scheme.Name(), "attempt", st.Attempts)
		}
	}
}
