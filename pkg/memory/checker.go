package memory

import (
	"context"

	"github.com/dotcommander/randkey/pkg/keyspace"
)

// Keyspace binds a Store namespace to a scheme so it can serve as the
// existence check for keyspace.Allocate. Keys are stored in display form.
type Keyspace struct {
	Store     Store
	Namespace string
	Scheme    keyspace.Scheme
}

// Exists implements keyspace.ExistenceChecker.
func (k *Keyspace) Exists(_ context.Context, id keyspace.ID) (bool, error) {
	key, err := k.Scheme.Encode(id)
	if err != nil {
		return false, err
	}
	return k.Store.Contains(k.Namespace, key), nil
}

// Allocate draws a free id and registers it. Allocation and registration are
// separate steps, so a concurrent caller may register the same key first; that
// surfaces as ErrDuplicateKey and the caller should allocate again.
func (k *Keyspace) Allocate(ctx context.Context, opts ...Option) (keyspace.ID, error) {
	id, err := keyspace.Allocate(ctx, k.Scheme, k)
	if err != nil {
		return nil, err
	}
	key, err := k.Scheme.Encode(id)
	if err != nil {
		return nil, err
	}
	if err := k.Store.Insert(k.Namespace, key, opts...); err != nil {
		return nil, err
	}
	return id, nil
}
