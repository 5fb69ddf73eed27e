package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/randkey/internal/models"
)

func TestKeyCommands_FlagSetup(t *testing.T) {
	allocate := NewAllocateCmd()
	requireFlagExists(t, allocate, "namespace")
	requireFlagExists(t, allocate, "scheme")
	requireFlagExists(t, allocate, "label")
	requireFlagExists(t, allocate, "timeout")
	requireFlagExists(t, allocate, "max-retries")

	requireFlagExists(t, NewExistsCmd(), "namespace")
	requireFlagExists(t, NewListCmd(), "limit")
	requireFlagExists(t, NewReleaseCmd(), "namespace")
	requireFlagExists(t, NewShowCmd(), "namespace")
}

func TestAllocateCmd_RequiresNamespaceBeforeDB(t *testing.T) {
	cmd := NewAllocateCmd()
	err := cmd.RunE(cmd, nil)
	require.Error(t, err)
	require.EqualError(t, err, "error already printed")
	require.IsType(t, printedError{}, err)
}

func TestKeyLifecycle(t *testing.T) {
	useTempDB(t)

	env, err := runCmd(t, NewAllocateCmd(), "--namespace", "orders", "--scheme", "integer", "--length", "6", "--label", "first")
	require.NoError(t, err)
	require.True(t, env.Success)

	var alloc models.Allocation
	decodeData(t, env, &alloc)
	require.Equal(t, "orders", alloc.Namespace)
	require.Equal(t, "integer", alloc.Scheme)
	require.Len(t, alloc.Display, 6)
	require.Equal(t, "first", alloc.Label)
	require.GreaterOrEqual(t, alloc.Attempts, 1)

	// Later allocations inherit the namespace scheme without flags.
	env, err = runCmd(t, NewAllocateCmd(), "--namespace", "orders")
	require.NoError(t, err)
	var second models.Allocation
	decodeData(t, env, &second)
	require.Equal(t, "integer", second.Scheme)
	require.Len(t, second.Display, 6)
	require.NotEqual(t, alloc.Display, second.Display)

	type existsResp struct {
		Key    string `json:"key"`
		Exists bool   `json:"exists"`
	}
	env, err = runCmd(t, NewExistsCmd(), "--namespace", "orders", alloc.Display)
	require.NoError(t, err)
	var ex existsResp
	decodeData(t, env, &ex)
	require.True(t, ex.Exists)

	env, err = runCmd(t, NewListCmd(), "--namespace", "orders")
	require.NoError(t, err)
	var list struct {
		Count int           `json:"count"`
		Total int64         `json:"total"`
		Keys  []*models.Key `json:"keys"`
	}
	decodeData(t, env, &list)
	require.Equal(t, 2, list.Count)
	require.EqualValues(t, 2, list.Total)

	env, err = runCmd(t, NewReleaseCmd(), "--namespace", "orders", alloc.Display)
	require.NoError(t, err)
	require.True(t, env.Success)

	env, err = runCmd(t, NewExistsCmd(), "--namespace", "orders", alloc.Display)
	require.NoError(t, err)
	decodeData(t, env, &ex)
	require.False(t, ex.Exists)

	env, err = runCmd(t, NewReleaseCmd(), "--namespace", "orders", alloc.Display)
	require.Error(t, err)
	require.Equal(t, "KEY_NOT_FOUND", env.ErrorCode)
}

func TestAllocateCmd_SchemeMismatch(t *testing.T) {
	useTempDB(t)

	_, err := runCmd(t, NewAllocateCmd(), "--namespace", "users", "--scheme", "uuid")
	require.NoError(t, err)

	env, err := runCmd(t, NewAllocateCmd(), "--namespace", "users", "--scheme", "binary", "--length", "8")
	require.Error(t, err)
	require.Equal(t, "SCHEME_MISMATCH", env.ErrorCode)
}

func TestExistsCmd_AcceptsUnhyphenatedUUID(t *testing.T) {
	useTempDB(t)

	env, err := runCmd(t, NewAllocateCmd(), "--namespace", "sessions", "--scheme", "uuid")
	require.NoError(t, err)
	var alloc models.Allocation
	decodeData(t, env, &alloc)

	env, err = runCmd(t, NewExistsCmd(), "--namespace", "sessions", strings.ReplaceAll(strings.ToUpper(alloc.Display), "-", ""))
	require.NoError(t, err)
	var ex struct {
		Key    string `json:"key"`
		Exists bool   `json:"exists"`
	}
	decodeData(t, env, &ex)
	require.True(t, ex.Exists)
	require.Equal(t, alloc.Display, ex.Key)
}

func TestExistsCmd_MalformedKey(t *testing.T) {
	useTempDB(t)

	_, err := runCmd(t, NewAllocateCmd(), "--namespace", "blobs", "--scheme", "binary", "--length", "4")
	require.NoError(t, err)

	env, err := runCmd(t, NewExistsCmd(), "--namespace", "blobs", "xyz")
	require.Error(t, err)
	require.Equal(t, "MALFORMED_ID", env.ErrorCode)
}

func TestExistsCmd_UnknownNamespace(t *testing.T) {
	useTempDB(t)

	env, err := runCmd(t, NewExistsCmd(), "--namespace", "nowhere", "123")
	require.Error(t, err)
	require.False(t, env.Success)
	require.Contains(t, env.Error, "nowhere")
}

func TestShowCmd_ReturnsStoredKey(t *testing.T) {
	useTempDB(t)

	env, err := runCmd(t, NewAllocateCmd(), "--namespace", "tokens", "--scheme", "uuid", "--label", "api")
	require.NoError(t, err)
	var alloc models.Allocation
	decodeData(t, env, &alloc)

	env, err = runCmd(t, NewShowCmd(), "--namespace", "tokens", strings.ReplaceAll(alloc.Display, "-", ""))
	require.NoError(t, err)
	require.True(t, env.Success)

	var key models.Key
	decodeData(t, env, &key)
	require.Equal(t, alloc.Display, key.Display)
	require.Equal(t, "tokens", key.Namespace)
	require.Equal(t, "uuid", key.Scheme)
	require.Equal(t, "api", key.Label)
	require.False(t, key.CreatedAt.IsZero())

	_, err = runCmd(t, NewReleaseCmd(), "--namespace", "tokens", alloc.Display)
	require.NoError(t, err)

	env, err = runCmd(t, NewShowCmd(), "--namespace", "tokens", alloc.Display)
	require.Error(t, err)
	require.Equal(t, "KEY_NOT_FOUND", env.ErrorCode)
}
