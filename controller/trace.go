package controller

import (
	"bufio"
	"encoding/binary"
	"log"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

const traceRingSize = 10000

// traceEntry is one (line_addr, is_write) pair appended to the ring
// buffers, per spec.md §4's handle_trace_collection.
type traceEntry struct {
	lineAddr uint64
	isWrite  bool
}

// traceCollector implements spec.md §4's handle_trace_collection: one
// buffer of (address, isWrite) entries, flushed to <name>trace.bin as an
// address array followed by a uint32 array whenever full. Only
// the first controller instance ("mem-0") is wired to trace, per
// spec.md's "Only the first controller... records."
//
// The trace directory is namespaced by a per-run xid, so repeated runs
// against the same TraceDir never clobber a prior run's trace file —
// the role SPEC_FULL.md §3 assigns rs/xid in this module.
type traceCollector struct {
	path    string
	entries []traceEntry
}

// newTraceCollector builds a collector that writes to
// <dir>/<runID>/<name>trace.bin, creating the run directory immediately
// (filesystem errors here are fatal per spec.md §4) and writing the
// leading `uint32 num=0` header spec.md §6 documents: a placeholder
// entry count, written once up front, before any Address[N]/uint32[N]
// batch.
func newTraceCollector(dir, name string) *traceCollector {
	runDir := filepath.Join(dir, xid.New().String())

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		log.Panicf("controller: failed to create trace directory %s: %v", runDir, err)
	}

	path := filepath.Join(runDir, name+"trace.bin")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Panicf("controller: failed to create trace file %s: %v", path, err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(0)); err != nil {
		log.Panicf("controller: trace header write failed: %v", err)
	}

	return &traceCollector{
		path:    path,
		entries: make([]traceEntry, 0, traceRingSize),
	}
}

// Record appends one entry, flushing to disk once the ring fills.
func (t *traceCollector) Record(lineAddr uint64, isWrite bool) {
	t.entries = append(t.entries, traceEntry{lineAddr: lineAddr, isWrite: isWrite})

	if len(t.entries) >= traceRingSize {
		t.flush()
	}
}

// flush appends the current batch to the trace file as alternating
// Address[N]/uint32[N] records (1=write, 0=read), per spec.md §6's wire
// format, then clears the in-memory ring.
func (t *traceCollector) flush() {
	if len(t.entries) == 0 {
		return
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Panicf("controller: failed to open trace file %s: %v", t.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	for _, e := range t.entries {
		if err := binary.Write(w, binary.LittleEndian, e.lineAddr); err != nil {
			log.Panicf("controller: trace write failed: %v", err)
		}
	}

	for _, e := range t.entries {
		typeCode := uint32(0)
		if e.isWrite {
			typeCode = 1
		}

		if err := binary.Write(w, binary.LittleEndian, typeCode); err != nil {
			log.Panicf("controller: trace write failed: %v", err)
		}
	}

	if err := w.Flush(); err != nil {
		log.Panicf("controller: trace flush failed: %v", err)
	}

	t.entries = t.entries[:0]
}

// Close flushes any remaining buffered entries.
func (t *traceCollector) Close() {
	t.flush()
}
