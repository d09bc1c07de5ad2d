package scheme

import (
	"github.com/sarchlab/mcdram/cuckoo"
	"github.com/sarchlab/mcdram/hashfn"
	"github.com/sarchlab/mcdram/request"
)

// CHAMOConfig configures a CHAMO scheme: a cuckoo-indexed base rank
// backed by a small overflow rank for footprints the cuckoo engine's
// bounded BFS could not place, per spec.md §4.2.7-§4.2.8. DramRatio and
// LoadRatio feed the overflow rank's own CXL-level/map-limit addressing,
// ported from original_source/src/cache/chamo.cpp.
type CHAMOConfig struct {
	HashAssoc       int
	NrBucket        int
	TargetLoadRatio int // percent
	OverflowLines   int // size of the overflow rank (chamo.cpp's nr_dram_cache_)
	LineSize        uint64
	DramRatio       int // cxl:dram capacity ratio, chamo.cpp's dram_ratio_ (default 4)
	LoadRatio       int // percent, chamo.cpp's load_ratio_ (default 95)
}

// CHAMO implements spec.md §4.2.7: the base rank is fully addressed by a
// cuckoo.Engine (self-contained: every resident line lives at a
// (hash-assoc slot, bucket) coordinate the engine alone determines), and
// the overflow rank is addressed by chamo.cpp's own CXL-level/base-rank/
// self-contain-rank/overflow-rank bookkeeping: a footprint's CXL level and
// column are derived by shuffling it through an LCG (GetAlterCxlLineAddr),
// then split as level = shuffled/nrDramCache, column = shuffled%nrDramCache
// (Index). The first touch of a (level, column) pair claims a slot —
// donating to the next column's overflow rank if it has budget, else
// claiming its own column's self-contain rank (UpdateMappingInfo) — and
// every access re-resolves the column's hash-function selection among
// next-line(skip 0), next-line(skip 1), and an XXHash fallback
// (CalculateRankToAddr/_RankToAddr/_HashIdxToAddr), gated by a map_limit
// recomputed from the count of mapping slots claimed so far
// (_UpdateMapLimit).
type CHAMO struct {
	cfg      CHAMOConfig
	backends Backends

	engine   *cuckoo.Engine
	dirty    map[uint64]bool
	overflow []Way

	nrDramCache     int
	dramRatio       int
	loadRatio       int
	mapLimit        uint64
	cuckooCnt       uint64
	selfContainRank []uint64
	overflowRank    []uint64
	touched         [][]bool // [level][column], chamo.cpp's access_bit_map_
	lcg             *hashfn.LCG

	stats Stats
	util  *Utilization
}

// NewCHAMO builds a CHAMO scheme.
func NewCHAMO(cfg CHAMOConfig, backends Backends) *CHAMO {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	if cfg.OverflowLines <= 0 {
		cfg.OverflowLines = 1
	}

	if cfg.DramRatio <= 0 {
		cfg.DramRatio = 4
	}

	if cfg.LoadRatio <= 0 {
		cfg.LoadRatio = 95
	}

	nrDramCache := cfg.OverflowLines

	touched := make([][]bool, cfg.DramRatio)
	for i := range touched {
		touched[i] = make([]bool, nrDramCache)
	}

	return &CHAMO{
		cfg:      cfg,
		backends: backends,
		engine:   cuckoo.NewEngine(cfg.HashAssoc, cfg.NrBucket, cfg.TargetLoadRatio),
		dirty:    make(map[uint64]bool),
		overflow: make([]Way, cfg.OverflowLines),

		nrDramCache:     nrDramCache,
		dramRatio:       cfg.DramRatio,
		loadRatio:       cfg.LoadRatio,
		mapLimit:        1,
		selfContainRank: make([]uint64, nrDramCache),
		overflowRank:    make([]uint64, nrDramCache),
		touched:         touched,
		lcg:             hashfn.NewLCG(64, 0x2545F4914F6CDD1D, 0x9E3779B97F4A7C15),

		util: NewUtilization(),
	}
}

func (c *CHAMO) Name() string  { return "CHAMO" }
func (c *CHAMO) Stats() *Stats { return &c.stats }

// updateMapLimit implements chamo.cpp's _UpdateMapLimit: the overflow
// rank's per-column budget tracks cuckooCnt, the number of mapping slots
// claimMappingSlot has claimed so far, clamped to [1, dramRatio].
func (c *CHAMO) updateMapLimit() {
	limit := ((c.cuckooCnt*100)/uint64(c.loadRatio) + uint64(c.nrDramCache) - 1) / uint64(c.nrDramCache)

	ceiling := uint64(c.dramRatio)
	if ceiling < 1 {
		ceiling = 1
	}

	if limit > ceiling {
		limit = ceiling
	}
	if limit < 1 {
		limit = 1
	}

	c.mapLimit = limit
}

// baseRank implements chamo.cpp's _GetBaseRank: the 1-indexed count of
// column's touched levels strictly below level.
func (c *CHAMO) baseRank(column, level int) uint64 {
	rank := uint64(1)

	for l := 0; l < level && l < c.dramRatio; l++ {
		if c.touched[l][column] {
			rank++
		}
	}

	return rank
}

// claimMappingSlot implements chamo.cpp's UpdateMappingInfo: on a
// column's first touch at some level, try to donate a slot from the next
// column's overflow rank, falling back to claiming the column's own
// self-contain rank.
func (c *CHAMO) claimMappingSlot(column int) {
	nextCol := (column + 1) % c.nrDramCache

	if c.selfContainRank[nextCol]+c.overflowRank[nextCol] < c.mapLimit {
		c.overflowRank[nextCol]++
		c.cuckooCnt++

		return
	}

	if c.selfContainRank[column]+c.overflowRank[column] < c.mapLimit {
		c.selfContainRank[column]++
		c.cuckooCnt++
	}
}

// selectOverflowSlot implements chamo.cpp's Index/CalculateRankToAddr/
// _RankToAddr/_HashIdxToAddr chain: shuffle footprint through the LCG
// (GetAlterCxlLineAddr) to split it into a CXL level and column, claim a
// mapping slot on first touch, then pick among next-line(skip 0),
// next-line(skip 1) and the XXHash fallback according to how the
// column's base/overflow/self-contain ranks compare to the current
// map_limit.
func (c *CHAMO) selectOverflowSlot(footprint uint64) int {
	if c.nrDramCache == 0 {
		return 0
	}

	shuffled := c.lcg.Forward(footprint)
	level := int((shuffled / uint64(c.nrDramCache)) % uint64(c.dramRatio))
	column := int(shuffled % uint64(c.nrDramCache))

	if !c.touched[level][column] {
		c.touched[level][column] = true
		c.claimMappingSlot(column)
	}

	c.updateMapLimit()

	base := c.baseRank(column, level)
	nextCol := (column + 1) % c.nrDramCache
	overflow := c.overflowRank[nextCol]

	switch {
	case base <= overflow:
		return int(hashfn.NextLine(uint64(nextCol), 0) % uint64(c.nrDramCache))
	case base-overflow <= c.selfContainRank[column]:
		return int(hashfn.NextLine(uint64(column), 0) % uint64(c.nrDramCache))
	default:
		return int(hashfn.XXHash(footprint) % uint64(c.nrDramCache))
	}
}

// Access implements spec.md §4.2.7's cuckoo-indexed placement.
func (c *CHAMO) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	footprint := req.LineAddr

	c.util.Update(&c.stats, footprint, 0)

	cycle := req.Cycle

	if setIdx, found := c.baseHit(footprint); found {
		c.recordHit(req)

		if request.IsStore(req) {
			c.dirty[footprint] = true
		}

		return c.backends.Near.Access(cycle, uint64(setIdx), request.IsStore(req), c.cfg.LineSize, nil).RespCycle
	}

	if slot, found := c.overflowHit(footprint); found {
		c.recordHit(req)

		if request.IsStore(req) {
			c.dirty[footprint] = true
			c.overflow[slot].Dirty = true
		}

		return c.backends.Near.Access(cycle, uint64(slot), request.IsStore(req), c.cfg.LineSize, nil).RespCycle
	}

	c.recordMiss(req)

	cycle = c.backends.Far.Access(cycle, footprint, false, 4*c.cfg.LineSize, nil).RespCycle

	kickOutBefore := c.engine.Metric.NrKickOut
	pathLenBefore := c.engine.Metric.CumCuckooPathLen

	setIdx, ok := c.engine.Insert(footprint)

	c.stats.CuckooKickOut += c.engine.Metric.NrKickOut - kickOutBefore
	c.stats.CuckooPathLen += c.engine.Metric.CumCuckooPathLen - pathLenBefore

	if ok {
		c.dirty[footprint] = request.IsStore(req)

		return c.backends.Near.Access(cycle, uint64(setIdx), true, 4*c.cfg.LineSize, nil).RespCycle
	}

	c.stats.DirectMapCount++

	slot := c.selectOverflowSlot(footprint)
	cycle = c.placeInOverflow(footprint, slot, req, cycle)

	return c.backends.Near.Access(cycle, uint64(slot), true, 4*c.cfg.LineSize, nil).RespCycle
}

// baseHit reports whether footprint currently lives in the cuckoo-indexed
// base rank, and if so at which bucket.
func (c *CHAMO) baseHit(footprint uint64) (setIdx int, found bool) {
	meta, ok := c.engine.Lookup(footprint)
	if !ok || !meta.IsCuckoo {
		return 0, false
	}

	return int(meta.WayIdx), true
}

func (c *CHAMO) overflowHit(footprint uint64) (slot int, found bool) {
	slot = c.selectOverflowSlot(footprint)
	if c.overflow[slot].Valid && c.overflow[slot].Tag == footprint {
		return slot, true
	}

	return slot, false
}

// placeInOverflow evicts the current occupant of slot (writing it back if
// dirty) and installs footprint in its place.
func (c *CHAMO) placeInOverflow(footprint uint64, slot int, req *request.Request, cycle uint64) uint64 {
	victim := c.overflow[slot]

	if victim.Valid {
		if victim.Dirty {
			c.stats.DirtyEvict++
			cycle = c.backends.Far.Access(cycle, victim.Tag, true, 4*c.cfg.LineSize, nil).RespCycle
			delete(c.dirty, victim.Tag)
		} else {
			c.stats.CleanEvict++
		}
	}

	c.overflow[slot] = Way{Tag: footprint, Valid: true, Dirty: request.IsStore(req)}
	c.dirty[footprint] = request.IsStore(req)

	return cycle
}

func (c *CHAMO) recordHit(req *request.Request) {
	if request.IsLoad(req) {
		c.stats.LoadHit++
	} else {
		c.stats.StoreHit++
	}
}

func (c *CHAMO) recordMiss(req *request.Request) {
	if request.IsLoad(req) {
		c.stats.LoadMiss++
	} else {
		c.stats.StoreMiss++
	}
}

// Period is a no-op: the cuckoo engine's load-factor growth is
// self-triggered on Insert, and CHAMO carries no separate smoothing
// counters of its own.
func (c *CHAMO) Period(req *request.Request) {}
