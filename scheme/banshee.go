package scheme

import "github.com/sarchlab/mcdram/request"

// BansheeConfig configures a Banshee page cache.
type BansheeConfig struct {
	NumSets       int
	NumWays       int
	PageSize      uint64
	LineSize      uint64
	FootprintSize int // lines prefetched from external to near on a miss
	TagBufferSize int
	StepLength    uint64
	BWBalance     bool
}

// Banshee is the TLB-resident page cache of spec.md §4.2.3: unlike Unison
// it never probes near memory for a tag (the TLB alone resolves hit/miss).
// It keeps a TagBuffer of page placements: a miss that places a page
// inserts it, hits and clean (PutShared) writebacks touch it, and the
// buffer is flushed when it fills. The TagBuffer is not read when
// resolving a hit or miss, dirty writebacks included.
type Banshee struct {
	cfg      BansheeConfig
	backends Backends

	sets []Set
	tlb  map[uint64]*TLBEntry
	tb   *TagBuffer

	rrNextWay []int

	dsIndex  int
	counters slidingCounters
	stats    Stats
	util     *Utilization
}

// NewBanshee builds a Banshee scheme.
func NewBanshee(cfg BansheeConfig, backends Backends) *Banshee {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	sets := make([]Set, cfg.NumSets)
	for i := range sets {
		sets[i] = make(Set, cfg.NumWays)
	}

	return &Banshee{
		cfg:       cfg,
		backends:  backends,
		sets:      sets,
		tlb:       make(map[uint64]*TLBEntry),
		tb:        NewTagBuffer(cfg.TagBufferSize),
		rrNextWay: make([]int, cfg.NumSets),
		dsIndex:   cfg.NumSets,
		util:      NewUtilization(),
	}
}

func (b *Banshee) Name() string  { return "BansheeCache" }
func (b *Banshee) Stats() *Stats { return &b.stats }

func (b *Banshee) pageOf(lineAddr uint64) uint64 {
	linesPerPage := b.cfg.PageSize / b.cfg.LineSize
	if linesPerPage == 0 {
		linesPerPage = 1
	}

	return lineAddr / linesPerPage
}

func (b *Banshee) offsetInPage(lineAddr uint64) uint64 {
	linesPerPage := b.cfg.PageSize / b.cfg.LineSize
	if linesPerPage == 0 {
		linesPerPage = 1
	}

	return lineAddr % linesPerPage
}

func (b *Banshee) setOf(page uint64) int {
	return int(page % uint64(b.cfg.NumSets))
}

// Access implements spec.md §4.2.3: the TLB answers hit/miss with no near
// memory tag probe; only the data array (or, on a miss, external memory
// and then the data array) is touched.
func (b *Banshee) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return b.handleCleanWriteback(req)
	}

	page := b.pageOf(req.LineAddr)
	setIdx := b.setOf(page)

	b.util.Update(&b.stats, req.LineAddr, b.cfg.PageSize)

	entry, found := b.tlb[page]
	if found {
		return b.handleHit(req, setIdx, entry, req.Cycle)
	}

	return b.handleMiss(req, setIdx, page, req.Cycle)
}

// handleCleanWriteback implements the tag-buffer shortcut: a PutShared for
// a page the TLB no longer holds is answered from the TagBuffer without a
// data-array probe, per spec.md §4.2.3/original_source's banshee.cpp.
func (b *Banshee) handleCleanWriteback(req *request.Request) uint64 {
	page := b.pageOf(req.LineAddr)
	if _, found := b.tlb[page]; found {
		return req.Cycle
	}

	b.tb.Touch(tagOf(page))

	return req.Cycle
}

func tagOf(page uint64) uint64 { return page }

func (b *Banshee) handleHit(req *request.Request, setIdx int, entry *TLBEntry, cycle uint64) uint64 {
	b.recordHit(req)

	const bursts = uint64(4)

	cycle = b.backends.Near.Access(cycle, uint64(entry.Way), request.IsStore(req), bursts*b.cfg.LineSize, nil).RespCycle
	b.counters.McBW += bursts

	bit := bitForLine(b.offsetInPage(req.LineAddr))
	entry.TouchBitvec |= 1 << bit
	if request.IsStore(req) {
		entry.DirtyBitvec |= 1 << bit
	}

	entry.Count++

	b.sets[setIdx][entry.Way].Valid = true
	if request.IsStore(req) {
		b.sets[setIdx][entry.Way].Dirty = true
	}

	b.tb.Touch(tagOf(entry.Tag))

	return cycle
}

func (b *Banshee) handleMiss(req *request.Request, setIdx int, page uint64, cycle uint64) uint64 {
	b.recordMiss(req)

	way := b.choosePlacementVictim(setIdx)
	victim := b.sets[setIdx][way]

	if victim.Valid {
		cycle = b.evictPage(setIdx, way, victim, cycle)
	}

	loadBursts := uint64(b.cfg.FootprintSize) * 4
	cycle = b.backends.Far.Access(cycle, page, false, loadBursts*b.cfg.LineSize, nil).RespCycle
	b.counters.ExtBW += loadBursts

	cycle = b.backends.Near.Access(cycle, uint64(way), true, loadBursts*b.cfg.LineSize, nil).RespCycle
	b.counters.McBW += loadBursts

	b.sets[setIdx][way] = Way{Tag: page, Valid: true, Dirty: request.IsStore(req)}

	bit := bitForLine(b.offsetInPage(req.LineAddr))
	newEntry := &TLBEntry{Tag: page, Way: way, Count: 1, TouchBitvec: 1 << bit}
	if request.IsStore(req) {
		newEntry.DirtyBitvec = 1 << bit
	}

	b.tlb[page] = newEntry

	if forced := b.tb.Insert(tagOf(page)); forced {
		b.flushTagBuffer()
	}

	if b.tb.Occupancy() > 0.7 {
		b.flushTagBuffer()
	}

	return cycle
}

// flushTagBuffer implements spec.md §4.2.3's occupancy>0.7 flush trigger:
// the buffer is cleared and the flush is counted; no page data is moved
// or written back.
func (b *Banshee) flushTagBuffer() {
	b.tb.Flush()
	b.stats.TagBufferFlush++
}

func (b *Banshee) evictPage(setIdx, way int, victim Way, cycle uint64) uint64 {
	oldEntry := b.tlb[victim.Tag]
	if oldEntry == nil {
		return cycle
	}

	dirtyLines := popcount64(oldEntry.DirtyBitvec)
	if dirtyLines > 0 {
		bytes := uint64(dirtyLines) * 4 * b.cfg.LineSize
		cycle = b.backends.Near.Access(cycle, uint64(way), false, bytes, nil).RespCycle
		b.counters.McBW += uint64(dirtyLines) * 4

		cycle = b.backends.Far.Access(cycle, victim.Tag, true, bytes, nil).RespCycle
		b.counters.ExtBW += uint64(dirtyLines) * 4

		b.stats.DirtyEvict++
	} else {
		b.stats.CleanEvict++
	}

	delete(b.tlb, victim.Tag)

	return cycle
}

func (b *Banshee) choosePlacementVictim(setIdx int) int {
	way := b.rrNextWay[setIdx]
	b.rrNextWay[setIdx] = (way + 1) % len(b.sets[setIdx])

	return way
}

func (b *Banshee) recordHit(req *request.Request) {
	b.counters.Hits++
	if request.IsLoad(req) {
		b.stats.LoadHit++
	} else {
		b.stats.StoreHit++
	}
}

func (b *Banshee) recordMiss(req *request.Request) {
	b.counters.Miss++
	if request.IsLoad(req) {
		b.stats.LoadMiss++
	} else {
		b.stats.StoreMiss++
	}
}

// Period implements spec.md §4.2's smoothing/rebalancing hook.
func (b *Banshee) Period(req *request.Request) {
	b.counters.halve()

	if !b.cfg.BWBalance {
		return
	}

	balanceBandwidth(&b.counters, &b.dsIndex, b.cfg.NumSets, func(lo, hi int) {
		for i := lo; i < hi && i < len(b.sets); i++ {
			set := b.sets[i]
			for w := range set {
				if set[w].Valid {
					if set[w].Dirty {
						b.stats.DirtyEvict++
					}
					delete(b.tlb, set[w].Tag)
					set[w] = Way{}
				}
			}
		}
	})
}
