// SPDX-License-Identifier: AGPL-3.0-only

package wavelimiter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// dataTracer buffers (duration, waves, state) observations in memory and
// appends them to a per-controller file when flushed. Observing is cheap and
// never performs IO; all IO happens in flush, off the dispatch-critical path.
//
// A nil tracer is valid and ignores all calls.
type dataTracer struct {
	path string

	mu      sync.Mutex
	pending []traceObservation
	file    *os.File
	w       *bufio.Writer
}

type traceObservation struct {
	duration uint64
	waves    uint32
	state    byte
}

// tracer buffer growth beyond this between flushes indicates a stalled
// flusher; older observations are dropped first.
const maxPendingObservations = 1 << 16

func newDataTracer(dir, kernel string, context ContextID) *dataTracer {
	if dir == "" {
		return nil
	}
	return &dataTracer{
		path: filepath.Join(dir, fmt.Sprintf("%s_%d.wl", kernel, context)),
	}
}

func (t *dataTracer) observe(duration uint64, waves uint32, code byte) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) >= maxPendingObservations {
		t.pending = t.pending[1:]
	}
	t.pending = append(t.pending, traceObservation{duration: duration, waves: waves, state: code})
}

// flush appends all buffered observations to the trace file, one per line:
// "<duration> <waves> <code>", where code is the controller state's trace
// code or malformedTraceCode. The file is opened lazily on first flush.
func (t *dataTracer) flush() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil
	}

	if t.file == nil {
		f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open trace file %s", t.path)
		}
		t.file = f
		t.w = bufio.NewWriter(f)
	}

	for _, o := range t.pending {
		if _, err := fmt.Fprintf(t.w, "%d %d %c\n", o.duration, o.waves, o.state); err != nil {
			return errors.Wrapf(err, "write trace file %s", t.path)
		}
	}
	t.pending = t.pending[:0]
	return errors.Wrapf(t.w.Flush(), "flush trace file %s", t.path)
}

// close flushes and releases the trace file.
func (t *dataTracer) close() error {
	if t == nil {
		return nil
	}
	flushErr := t.flush()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return flushErr
	}
	closeErr := errors.Wrapf(t.file.Close(), "close trace file %s", t.path)
	t.file = nil
	t.w = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
