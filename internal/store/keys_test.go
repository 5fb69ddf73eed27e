package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/randkey/pkg/keyspace"
)

func TestAllocateKey_PersistsEachScheme(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	schemes := map[string]keyspace.Scheme{
		"blobs": &keyspace.BinaryScheme{Len: 8},
		"ints":  &keyspace.IntegerScheme{Digits: 9},
		"guids": &keyspace.UUIDScheme{},
	}
	for ns, scheme := range schemes {
		alloc, err := AllocateKey(ctx, db, ns, scheme, AllocateOptions{Label: "first"})
		require.NoError(t, err, ns)
		assert.Equal(t, ns, alloc.Namespace)
		assert.Equal(t, scheme.Name(), alloc.Scheme)
		assert.Equal(t, "first", alloc.Label)
		assert.Equal(t, 1, alloc.Attempts)
		assert.Zero(t, alloc.Conflicts)
		assert.False(t, alloc.CreatedAt.IsZero())

		id, err := scheme.Decode(alloc.Display)
		require.NoError(t, err)
		exists, err := KeyExists(ctx, db, ns, scheme, id)
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := LookupKey(ctx, db, ns, alloc.Display)
		require.NoError(t, err)
		assert.Equal(t, alloc.Display, got.Display)
	}
}

func TestAllocateKey_ExhaustsSingleDigitKeyspace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.IntegerScheme{Digits: 1}

	seen := make(map[string]bool)
	for i := 0; i < 9; i++ {
		alloc, err := AllocateKey(ctx, db, "digits", scheme, AllocateOptions{})
		require.NoError(t, err)
		require.False(t, seen[alloc.Display], "duplicate %s", alloc.Display)
		seen[alloc.Display] = true
	}

	n, err := CountKeys(ctx, db, "digits")
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	// A full keyspace only ends on the caller's deadline.
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = AllocateKey(ctx, db, "digits", scheme, AllocateOptions{})
	require.Error(t, err)
}

func TestAllocateKey_RejectsSchemeChange(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := AllocateKey(ctx, db, "users", &keyspace.BinaryScheme{Len: 16}, AllocateOptions{})
	require.NoError(t, err)

	_, err = AllocateKey(ctx, db, "users", &keyspace.UUIDScheme{}, AllocateOptions{})
	require.ErrorIs(t, err, ErrSchemeMismatch)

	_, err = AllocateKey(ctx, db, "users", &keyspace.BinaryScheme{Len: 8}, AllocateOptions{})
	var me *SchemeMismatchError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 16, me.Length)
	assert.Equal(t, 8, me.RequestedLength)
}

func TestAllocateKey_RequiresNamespace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := AllocateKey(context.Background(), db, "", &keyspace.UUIDScheme{}, AllocateOptions{})
	require.Error(t, err)
}

func TestKeyStore_InsertDuplicateIsUniquenessConflict(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.BinaryScheme{Len: 4}

	_, err := EnsureNamespaceTx(ctx, db, "blobs", scheme)
	require.NoError(t, err)

	ks := NewKeyStore(db, "blobs", scheme)
	id := []byte{0xde, 0xad, 0xbe, 0xef}
	key, err := ks.Insert(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", key.Display)
	assert.Empty(t, key.Label)

	_, err = ks.Insert(ctx, bytes.Clone(id), "again")
	require.ErrorIs(t, err, ErrUniquenessConflict)
	var ce *UniquenessConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "deadbeef", ce.Key)
	assert.Equal(t, "blobs", ce.Namespace)
}

func TestKeyStore_ExistsIsPerNamespace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.IntegerScheme{Digits: 3}

	for _, ns := range []string{"a", "b"} {
		_, err := EnsureNamespaceTx(ctx, db, ns, scheme)
		require.NoError(t, err)
	}

	_, err := NewKeyStore(db, "a", scheme).Insert(ctx, int64(123), "")
	require.NoError(t, err)

	exists, err := NewKeyStore(db, "a", scheme).Exists(ctx, int64(123))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = NewKeyStore(db, "b", scheme).Exists(ctx, int64(123))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKeyStore_ExistsFailurePropagatesThroughAllocate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	require.NoError(t, db.Close())
	defer cleanup()

	scheme := &keyspace.UUIDScheme{}
	_, err := keyspace.Allocate(context.Background(), scheme, NewKeyStore(db, "users", scheme))
	require.Error(t, err)
}

func TestListAndDeleteKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.UUIDScheme{}

	var displays []string
	for i := 0; i < 3; i++ {
		alloc, err := AllocateKey(ctx, db, "guids", scheme, AllocateOptions{})
		require.NoError(t, err)
		displays = append(displays, alloc.Display)
	}

	keys, err := ListKeys(ctx, db, "guids", 0)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, displays[2], keys[0].Display)

	keys, err = ListKeys(ctx, db, "guids", 2)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	require.NoError(t, DeleteKey(ctx, db, "guids", displays[0]))
	_, err = LookupKey(ctx, db, "guids", displays[0])
	require.ErrorIs(t, err, ErrKeyNotFound)

	err = DeleteKey(ctx, db, "guids", displays[0])
	require.ErrorIs(t, err, ErrKeyNotFound)

	n, err := CountKeys(ctx, db, "guids")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAllocateKey_ConcurrentCallersGetDistinctKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.IntegerScheme{Digits: 2}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := AllocateKey(ctx, db, "pairs", scheme, AllocateOptions{MaxConflictRetries: 3})
			if err != nil {
				errs <- err
				return
			}
			results <- alloc.Display
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	for d := range results {
		require.False(t, seen[d], "duplicate %s", d)
		seen[d] = true
	}
	assert.Len(t, seen, workers)
}

func TestAllocateKey_RequestIDReplaysKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.IntegerScheme{Digits: 6}

	first, err := AllocateKey(ctx, db, "orders", scheme, AllocateOptions{RequestID: "req-1", Label: "a"})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := AllocateKey(ctx, db, "orders", scheme, AllocateOptions{RequestID: "req-1", Label: "ignored"})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Display, again.Display)
	assert.Equal(t, "a", again.Label)

	other, err := AllocateKey(ctx, db, "orders", scheme, AllocateOptions{RequestID: "req-2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Display, other.Display)

	n, err := CountKeys(ctx, db, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Releasing the key forgets the request, so the id allocates afresh.
	require.NoError(t, DeleteKey(ctx, db, "orders", first.Display))
	fresh, err := AllocateKey(ctx, db, "orders", scheme, AllocateOptions{RequestID: "req-1"})
	require.NoError(t, err)
	assert.False(t, fresh.Replayed)
}

func TestAllocateKey_RequestIDIsPerNamespace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.UUIDScheme{}

	a, err := AllocateKey(ctx, db, "left", scheme, AllocateOptions{RequestID: "same"})
	require.NoError(t, err)
	b, err := AllocateKey(ctx, db, "right", scheme, AllocateOptions{RequestID: "same"})
	require.NoError(t, err)
	assert.False(t, b.Replayed)
	assert.NotEqual(t, a.Display, b.Display)
}
