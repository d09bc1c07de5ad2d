package scheme

import "github.com/sarchlab/mcdram/request"

// TLBEntry is the per-page metadata Unison and Banshee maintain, per
// spec.md §3: one bit per 4 lines of touch/dirty state.
type TLBEntry struct {
	Tag          uint64
	Way          int
	Count        int
	TouchBitvec  uint64
	DirtyBitvec  uint64
}

func popcount64(x uint64) int {
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}

	return count
}

// bitForLine returns which of the 64 touch/dirty bits a line within a
// page maps to: one bit per 4 lines, per spec.md §3.
func bitForLine(lineOffsetInPage uint64) uint {
	return uint((lineOffsetInPage / 4) % 64)
}

// UnisonConfig configures a Unison page cache.
type UnisonConfig struct {
	NumSets       int
	NumWays       int
	PageSize      uint64
	LineSize      uint64
	FootprintSize int // lines prefetched from external to near on a miss
	StepLength    uint64
	BWBalance     bool
}

// Unison is the set-associative page cache with footprint prefetch of
// spec.md §4.2.2.
type Unison struct {
	cfg      UnisonConfig
	backends Backends

	sets []Set
	tlb  map[uint64]*TLBEntry

	rrNextWay []int // round-robin placement cursor per set

	dsIndex  int
	counters slidingCounters
	stats    Stats
	util     *Utilization
}

// NewUnison builds a Unison scheme.
func NewUnison(cfg UnisonConfig, backends Backends) *Unison {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	sets := make([]Set, cfg.NumSets)
	for i := range sets {
		sets[i] = make(Set, cfg.NumWays)
	}

	return &Unison{
		cfg:       cfg,
		backends:  backends,
		sets:      sets,
		tlb:       make(map[uint64]*TLBEntry),
		rrNextWay: make([]int, cfg.NumSets),
		dsIndex:   cfg.NumSets,
		util:      NewUtilization(),
	}
}

func (u *Unison) Name() string  { return "UnisonCache" }
func (u *Unison) Stats() *Stats { return &u.stats }

func (u *Unison) pageOf(lineAddr uint64) uint64 {
	linesPerPage := u.cfg.PageSize / u.cfg.LineSize
	if linesPerPage == 0 {
		linesPerPage = 1
	}

	return lineAddr / linesPerPage
}

func (u *Unison) offsetInPage(lineAddr uint64) uint64 {
	linesPerPage := u.cfg.PageSize / u.cfg.LineSize
	if linesPerPage == 0 {
		linesPerPage = 1
	}

	return lineAddr % linesPerPage
}

func (u *Unison) setOf(page uint64) int {
	return int(page % uint64(u.cfg.NumSets))
}

// Access implements spec.md §4.2.2.
func (u *Unison) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	page := u.pageOf(req.LineAddr)
	setIdx := u.setOf(page)

	u.util.Update(&u.stats, req.LineAddr, u.cfg.PageSize)

	probeBursts := uint64(6)
	if request.IsStore(req) {
		probeBursts = 2
	}

	cycle := u.backends.Near.Access(req.Cycle, page, false, probeBursts*u.cfg.LineSize, nil).RespCycle
	u.counters.McBW += probeBursts

	entry, found := u.tlb[page]
	if found {
		return u.handleHit(req, setIdx, entry, cycle)
	}

	return u.handleMiss(req, setIdx, page, cycle)
}

func (u *Unison) handleHit(req *request.Request, setIdx int, entry *TLBEntry, cycle uint64) uint64 {
	u.recordHit(req)

	if request.IsStore(req) {
		cycle = u.backends.Near.Access(cycle, uint64(entry.Way), true, 4*u.cfg.LineSize, nil).RespCycle
		u.counters.McBW += 4
	}

	bit := bitForLine(u.offsetInPage(req.LineAddr))
	entry.TouchBitvec |= 1 << bit
	if request.IsStore(req) {
		entry.DirtyBitvec |= 1 << bit
	}

	entry.Count++

	cycle = u.backends.Near.Access(cycle, uint64(entry.Way), true, 2*u.cfg.LineSize, nil).RespCycle
	u.counters.McBW += 2

	u.sets[setIdx][entry.Way].Valid = true
	if request.IsStore(req) {
		u.sets[setIdx][entry.Way].Dirty = true
	}

	return cycle
}

func (u *Unison) handleMiss(req *request.Request, setIdx int, page uint64, cycle uint64) uint64 {
	u.recordMiss(req)

	way := u.choosePlacementVictim(setIdx)
	victimWay := u.sets[setIdx][way]

	if victimWay.Valid {
		u.evictPage(setIdx, way, victimWay, cycle)
	}

	loadBursts := uint64(u.cfg.FootprintSize) * 4
	cycle = u.backends.Far.Access(cycle, page, false, loadBursts*u.cfg.LineSize, nil).RespCycle
	u.counters.ExtBW += loadBursts

	cycle = u.backends.Near.Access(cycle, uint64(way), true, loadBursts*u.cfg.LineSize, nil).RespCycle
	u.counters.McBW += loadBursts

	u.sets[setIdx][way] = Way{Tag: page, Valid: true, Dirty: request.IsStore(req)}

	bit := bitForLine(u.offsetInPage(req.LineAddr))
	newEntry := &TLBEntry{Tag: page, Way: way, Count: 1, TouchBitvec: 1 << bit}
	if request.IsStore(req) {
		newEntry.DirtyBitvec = 1 << bit
	}

	u.tlb[page] = newEntry

	return cycle
}

func (u *Unison) evictPage(setIdx, way int, victim Way, cycle uint64) uint64 {
	oldEntry := u.tlb[victim.Tag]
	if oldEntry == nil {
		return cycle
	}

	dirtyLines := popcount64(oldEntry.DirtyBitvec)
	if dirtyLines > 0 {
		bytes := uint64(dirtyLines) * 4 * u.cfg.LineSize
		cycle = u.backends.Near.Access(cycle, uint64(way), false, bytes, nil).RespCycle
		u.counters.McBW += uint64(dirtyLines) * 4

		cycle = u.backends.Far.Access(cycle, victim.Tag, true, bytes, nil).RespCycle
		u.counters.ExtBW += uint64(dirtyLines) * 4

		u.stats.DirtyEvict++
	} else {
		u.stats.CleanEvict++
	}

	delete(u.tlb, victim.Tag)

	return cycle
}

// choosePlacementVictim implements the round-robin placement_policy
// referenced in spec.md §4.2.2.
func (u *Unison) choosePlacementVictim(setIdx int) int {
	way := u.rrNextWay[setIdx]
	u.rrNextWay[setIdx] = (way + 1) % len(u.sets[setIdx])

	return way
}

func (u *Unison) recordHit(req *request.Request) {
	u.counters.Hits++
	if request.IsLoad(req) {
		u.stats.LoadHit++
	} else {
		u.stats.StoreHit++
	}
}

func (u *Unison) recordMiss(req *request.Request) {
	u.counters.Miss++
	if request.IsLoad(req) {
		u.stats.LoadMiss++
	} else {
		u.stats.StoreMiss++
	}
}

// Period implements spec.md §4.2's smoothing/rebalancing hook.
func (u *Unison) Period(req *request.Request) {
	u.counters.halve()

	if !u.cfg.BWBalance {
		return
	}

	balanceBandwidth(&u.counters, &u.dsIndex, u.cfg.NumSets, func(lo, hi int) {
		for i := lo; i < hi && i < len(u.sets); i++ {
			set := u.sets[i]
			for w := range set {
				if set[w].Valid {
					if set[w].Dirty {
						u.stats.DirtyEvict++
					}
					delete(u.tlb, set[w].Tag)
					set[w] = Way{}
				}
			}
		}
	})
}
