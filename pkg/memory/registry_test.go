package memory

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/randkey/pkg/keyspace"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newWithClock(c *fakeClock) *registry {
	return &registry{
		namespaces: make(map[string]*list.List),
		elements:   make(map[string]*list.Element),
		now:        c.Now,
	}
}

func TestInsertGetDelete(t *testing.T) {
	s := New()

	require.NoError(t, s.Insert("users", "abcd", WithLabel("alice")))

	entry, ok := s.Get("users", "abcd")
	require.True(t, ok)
	assert.Equal(t, "abcd", entry.Key)
	assert.Equal(t, "users", entry.Namespace)
	assert.Equal(t, "alice", entry.Label)
	assert.Nil(t, entry.ExpiresAt)
	assert.False(t, entry.CreatedAt.IsZero())

	// Same key in another namespace is independent.
	assert.False(t, s.Contains("orders", "abcd"))
	require.NoError(t, s.Insert("orders", "abcd"))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Delete("users", "abcd"))
	assert.False(t, s.Contains("users", "abcd"))
	assert.False(t, s.Delete("users", "abcd"))
}

func TestInsertDuplicateRejected(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert("users", "k1"))

	err := s.Insert("users", "k1")
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, 1, s.Len())
}

func TestTTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := newWithClock(clock)

	require.NoError(t, s.Insert("users", "k1", WithTTL(time.Minute)))
	require.NoError(t, s.Insert("users", "k2"))

	entry, ok := s.Get("users", "k1")
	require.True(t, ok)
	require.NotNil(t, entry.ExpiresAt)

	// Expired reservation cannot block a new insert.
	require.ErrorIs(t, s.Insert("users", "k1"), ErrDuplicateKey)
	clock.Advance(2 * time.Minute)
	assert.False(t, s.Contains("users", "k1"))
	require.NoError(t, s.Insert("users", "k1"))

	clock.Advance(time.Hour)
	assert.Len(t, s.List("users"), 2)
}

func TestListDropsExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := newWithClock(clock)

	require.NoError(t, s.Insert("ns", "a", WithTTL(time.Second)))
	require.NoError(t, s.Insert("ns", "b"))
	clock.Advance(time.Minute)

	entries := s.List("ns")
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Key)
	assert.Equal(t, 1, s.Len())
	assert.Nil(t, s.List("missing"))
}

func TestLenSkipsExpiredBeforeEviction(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := newWithClock(clock)

	require.NoError(t, s.Insert("ns", "a", WithTTL(time.Second)))
	require.NoError(t, s.Insert("other", "b", WithTTL(time.Second)))
	require.NoError(t, s.Insert("ns", "c"))
	assert.Equal(t, 3, s.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Contains("ns", "a"))
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentInsertsKeepOneWinner(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Insert("ns", "same"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestKeyspace_AllocateRegistersUniqueKeys(t *testing.T) {
	s := New()
	ks := &Keyspace{Store: s, Namespace: "digits", Scheme: &keyspace.IntegerScheme{Digits: 1}}

	seen := make(map[string]bool)
	for i := 0; i < 9; i++ {
		id, err := ks.Allocate(context.Background())
		require.NoError(t, err)
		key := fmt.Sprint(id)
		require.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	assert.Equal(t, 9, s.Len())

	taken, err := ks.Exists(context.Background(), int64(5))
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestKeyspace_ExistsRejectsForeignPayload(t *testing.T) {
	ks := &Keyspace{Store: New(), Namespace: "ns", Scheme: &keyspace.UUIDScheme{}}
	_, err := ks.Exists(context.Background(), int64(5))
	require.ErrorIs(t, err, keyspace.ErrUnsupportedID)
}
