package scheme

// tagBufferEntry is one {tag, remap, lru} slot of Banshee's tag buffer,
// per spec.md §3.
type tagBufferEntry struct {
	valid bool
	tag   uint64
	remap bool
	lru   uint64
}

// TagBuffer is the set-associative record of page placements that Banshee
// keeps (spec.md §3, §4.2.3). Banshee updates and flushes it but does not
// read it when resolving a hit or miss.
// num_ways is fixed at 8; num_sets = size/8.
type TagBuffer struct {
	numWays int
	numSets int
	sets    [][]tagBufferEntry
	clock   uint64

	occupied int // entries with remap=true
}

// NewTagBuffer builds a tag buffer holding size entries total.
func NewTagBuffer(size int) *TagBuffer {
	const numWays = 8

	numSets := size / numWays
	if numSets <= 0 {
		numSets = 1
	}

	sets := make([][]tagBufferEntry, numSets)
	for i := range sets {
		sets[i] = make([]tagBufferEntry, numWays)
	}

	return &TagBuffer{numWays: numWays, numSets: numSets, sets: sets}
}

func (tb *TagBuffer) setOf(tag uint64) int {
	return int(tag % uint64(tb.numSets))
}

// Lookup returns the way holding tag within its set, if any.
func (tb *TagBuffer) Lookup(tag uint64) (setIdx, way int, found bool) {
	setIdx = tb.setOf(tag)
	for w, e := range tb.sets[setIdx] {
		if e.valid && e.tag == tag {
			return setIdx, w, true
		}
	}

	return setIdx, 0, false
}

// CanInsert reports whether tag could be inserted into its set: either an
// existing entry already holds tag, or some way has remap=false (a
// non-placement entry that may be reused), per spec.md §3's invariant.
func (tb *TagBuffer) CanInsert(tag uint64) bool {
	setIdx := tb.setOf(tag)
	for _, e := range tb.sets[setIdx] {
		if !e.valid || !e.remap || e.tag == tag {
			return true
		}
	}

	return false
}

// Insert places tag with remap=true (a new placement) in an invalid way,
// or else over the set's LRU non-remap entry. If every way of the set
// holds another tag with remap=true (CanInsert is false), nothing is
// inserted and Insert returns true to signal a forced flush.
func (tb *TagBuffer) Insert(tag uint64) (forcedFlush bool) {
	setIdx, way, found := tb.Lookup(tag)
	if found {
		tb.markRemap(setIdx, way, tag)
		return false
	}

	if !tb.CanInsert(tag) {
		return true
	}

	set := tb.sets[setIdx]

	victimWay := -1
	for w, e := range set {
		if !e.valid {
			victimWay = w
			break
		}
	}

	if victimWay == -1 {
		victimWay = tb.lruNonRemapWay(setIdx)
	}

	tb.markRemap(setIdx, victimWay, tag)

	return false
}

func (tb *TagBuffer) markRemap(setIdx, way int, tag uint64) {
	set := tb.sets[setIdx]
	if set[way].valid && set[way].remap && set[way].tag == tag {
		set[way].lru = tb.nextClock()
		return
	}

	if set[way].valid && set[way].remap {
		tb.occupied--
	}

	set[way] = tagBufferEntry{valid: true, tag: tag, remap: true, lru: tb.nextClock()}
	tb.occupied++
}

func (tb *TagBuffer) lruNonRemapWay(setIdx int) int {
	set := tb.sets[setIdx]

	best := 0
	bestLRU := uint64(1<<63 - 1)

	for w, e := range set {
		if e.valid && e.remap {
			continue
		}

		if !e.valid {
			return w
		}

		if e.lru < bestLRU {
			bestLRU = e.lru
			best = w
		}
	}

	return best
}

func (tb *TagBuffer) nextClock() uint64 {
	tb.clock++
	return tb.clock
}

// Touch records a re-reference hint (remap=false) for tag, using LRU
// among non-remap entries per spec.md §4.2.3.
func (tb *TagBuffer) Touch(tag uint64) {
	setIdx, way, found := tb.Lookup(tag)
	if !found {
		return
	}

	set := tb.sets[setIdx]
	if set[way].remap {
		tb.occupied--
	}

	set[way].remap = false
	set[way].lru = tb.nextClock()
}

// Occupancy returns the fraction of entries currently marked remap=true.
func (tb *TagBuffer) Occupancy() float64 {
	total := tb.numWays * tb.numSets
	if total == 0 {
		return 0
	}

	return float64(tb.occupied) / float64(total)
}

// Flush clears every entry, resetting occupancy to 0.
func (tb *TagBuffer) Flush() {
	for i := range tb.sets {
		for w := range tb.sets[i] {
			tb.sets[i][w] = tagBufferEntry{}
		}
	}

	tb.occupied = 0
}
