package test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLI_AllocateListRelease(t *testing.T) {
	h := newHarness(t)

	m := requireSuccess(t, h.run("allocate", "--namespace", "invoices", "--scheme", "integer", "--length", "8", "--label", "march"))
	key := getStr(m, "data", "key")
	require.Len(t, key, 8)
	require.Equal(t, "march", getStr(m, "data", "label"))

	m = requireSuccess(t, h.run("exists", "--namespace", "invoices", key))
	require.Equal(t, true, m["data"].(map[string]any)["exists"])

	m = requireSuccess(t, h.run("list", "--namespace", "invoices"))
	require.EqualValues(t, 1, m["data"].(map[string]any)["total"])

	requireSuccess(t, h.run("release", "--namespace", "invoices", key))

	m = mustJSON(t, h.run("release", "--namespace", "invoices", key))
	require.Equal(t, false, m["success"])
	require.Equal(t, "KEY_NOT_FOUND", m["error_code"])
}

func TestCLI_DBStatusReportsFill(t *testing.T) {
	h := newHarness(t)

	for range 3 {
		requireSuccess(t, h.run("allocate", "--namespace", "tiny", "--scheme", "integer", "--length", "1"))
	}

	m := requireSuccess(t, h.run("db", "status"))
	data := m["data"].(map[string]any)
	require.EqualValues(t, 3, data["total_keys"])
	require.Equal(t, data["schema_version"], data["latest_schema_version"])

	namespaces := data["namespaces"].([]any)
	require.Len(t, namespaces, 1)
	tiny := namespaces[0].(map[string]any)
	require.Equal(t, "tiny", tiny["name"])
	require.InDelta(t, 3.0/9.0, tiny["fill_ratio"], 1e-9)
}

// Several processes share one database and a keyspace of 90 values. Every
// allocation must succeed with a distinct key even though the processes race
// between the existence check and the insert.
func TestCLI_ConcurrentProcessesNeverDuplicate(t *testing.T) {
	h := newHarness(t)
	requireSuccess(t, h.run("db", "status"))

	const workers = 6
	const perWorker = 5

	var (
		mu      sync.Mutex
		outputs []string
		wg      sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				out := h.run("allocate", "--namespace", "race", "--scheme", "integer", "--length", "2", "--max-retries", "20")
				mu.Lock()
				outputs = append(outputs, out)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	keys := make([]string, 0, len(outputs))
	for _, out := range outputs {
		m := requireSuccess(t, out)
		keys = append(keys, getStr(m, "data", "key"))
	}

	seen := map[string]bool{}
	for _, k := range keys {
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	require.Len(t, seen, workers*perWorker)
}

func TestCLI_DecodeMalformedReportsFormatError(t *testing.T) {
	h := newHarness(t)

	m := mustJSON(t, h.run("decode", "--scheme", "uuid", "zz"))
	require.Equal(t, false, m["success"])
	require.Equal(t, "MALFORMED_ID", m["error_code"])
}
