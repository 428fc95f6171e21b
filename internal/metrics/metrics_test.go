package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpIncludesReconcilerCounters(t *testing.T) {
	Get().Passes.WithLabelValues("ok").Inc()
	Get().RecordFastPath(true)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf))

	out := buf.String()
	assert.Contains(t, out, "floe_passes_total")
	assert.Contains(t, out, `floe_fastpath_total{result="applied"}`)
}

func TestWriteFile(t *testing.T) {
	Get().RecordCommit(nil)

	path := filepath.Join(t.TempDir(), "floe.prom")
	require.NoError(t, WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `floe_zone_commits_total{status="ok"}`)
}
