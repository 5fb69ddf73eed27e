package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/randkey/pkg/keyspace"
)

func TestRunDiagnostics_FlagsCrowdedNamespace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	scheme := &keyspace.IntegerScheme{Digits: 1}

	diags, err := RunDiagnostics(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, diags)

	for i := 0; i < 5; i++ {
		_, err := AllocateKey(ctx, db, "digits", scheme, AllocateOptions{})
		require.NoError(t, err)
	}
	diags, err = RunDiagnostics(ctx, db)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "KEYSPACE_CROWDED", diags[0].Code)
	assert.Equal(t, "warning", diags[0].Level)

	for i := 0; i < 4; i++ {
		_, err := AllocateKey(ctx, db, "digits", scheme, AllocateOptions{})
		require.NoError(t, err)
	}
	diags, err = RunDiagnostics(ctx, db)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "error", diags[0].Level)
}

func TestRunDiagnostics_FindsOrphanKeys(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "PRAGMA foreign_keys=OFF")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO keys (namespace, key, display) VALUES ('ghost', X'01', '01')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	diags, err := RunDiagnostics(ctx, db)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "ORPHAN_KEYS", diags[0].Code)
}
