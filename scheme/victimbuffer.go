package scheme

// victimEntry is one in-flight dirty line parked in a VictimBuffer,
// reserved until its writeback to far memory retires.
type victimEntry struct {
	lineAddr uint64
	reserved bool
}

// VictimBuffer is a small FIFO of dirty lines evicted from near memory,
// used by CopyCache and the victim-buffer NDC variant to defer far-memory
// writebacks off the critical path (spec.md §9 Open Question,
// original_source's ndc.cpp victim-buffer path).
type VictimBuffer struct {
	capacity int
	entries  []victimEntry
}

// NewVictimBuffer builds an empty buffer of the given capacity.
func NewVictimBuffer(capacity int) *VictimBuffer {
	if capacity <= 0 {
		capacity = 1
	}

	return &VictimBuffer{capacity: capacity}
}

// Lookup reports whether lineAddr is currently parked in the buffer,
// reserved or not.
func (v *VictimBuffer) Lookup(lineAddr uint64) bool {
	for _, e := range v.entries {
		if e.lineAddr == lineAddr {
			return true
		}
	}

	return false
}

// TryPush reserves a slot for lineAddr. Returns false if the buffer is
// full, in which case the caller must fall back to a synchronous
// writeback (VictimBufferOverflow).
func (v *VictimBuffer) TryPush(lineAddr uint64) bool {
	if len(v.entries) >= v.capacity {
		return false
	}

	v.entries = append(v.entries, victimEntry{lineAddr: lineAddr, reserved: true})

	return true
}

// Retire drops the oldest reserved entry for lineAddr once its writeback
// to far memory has completed, freeing the slot for reuse.
func (v *VictimBuffer) Retire(lineAddr uint64) {
	for i, e := range v.entries {
		if e.lineAddr == lineAddr {
			v.entries = append(v.entries[:i], v.entries[i+1:]...)
			return
		}
	}
}

// Len reports how many entries are currently parked.
func (v *VictimBuffer) Len() int { return len(v.entries) }
