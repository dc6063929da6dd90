// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTracer_Disabled(t *testing.T) {
	tr := newDataTracer("", "k", 1)
	require.Nil(t, tr)

	// A nil tracer ignores everything.
	tr.observe(100, 5, StateWarmup.traceCode())
	assert.NoError(t, tr.flush())
	assert.NoError(t, tr.close())
}

func TestDataTracer_WritesObservations(t *testing.T) {
	dir := t.TempDir()
	tr := newDataTracer(dir, "vector_add", 42)
	require.NotNil(t, tr)

	tr.observe(1500, 10, StateWarmup.traceCode())
	tr.observe(1200, 9, StateAdapt.traceCode())
	tr.observe(1000, 8, StateRun.traceCode())
	tr.observe(0, 8, malformedTraceCode)

	// No file before the first flush.
	path := filepath.Join(dir, "vector_add_42.wl")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, tr.flush())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1500 10 W\n1200 9 A\n1000 8 R\n0 8 M\n", string(data))

	// Flushing with nothing pending is a no-op; closing appends the rest.
	require.NoError(t, tr.flush())
	tr.observe(900, 8, StateRun.traceCode())
	require.NoError(t, tr.close())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1500 10 W\n1200 9 A\n1000 8 R\n0 8 M\n900 8 R\n", string(data))
}

func TestDataTracer_FlushErrorIsReported(t *testing.T) {
	tr := newDataTracer(filepath.Join(t.TempDir(), "missing", "sub"), "k", 1)
	tr.observe(1, 1, StateWarmup.traceCode())
	assert.Error(t, tr.flush())
}

func TestDataTracer_BoundsPendingBuffer(t *testing.T) {
	tr := newDataTracer(t.TempDir(), "k", 1)
	for i := 0; i < maxPendingObservations+10; i++ {
		tr.observe(uint64(i+1), 1, StateRun.traceCode())
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Len(t, tr.pending, maxPendingObservations)
	// Oldest observations were dropped first.
	assert.Equal(t, uint64(11), tr.pending[0].duration)
}
