package scheme

import "github.com/sarchlab/mcdram/request"

// CopyCacheConfig configures a CopyCache line cache.
type CopyCacheConfig struct {
	NumSets          int
	Granularity      uint64
	LineSize         uint64
	VictimBufferSize int
	StepLength       uint64
	BWBalance        bool
}

// CopyCache is Alloy's direct-mapped line cache with dirty evictions
// parked in a VictimBuffer instead of written back on the critical path,
// per SPEC_FULL.md's supplemented deferred-writeback feature.
type CopyCache struct {
	cfg      CopyCacheConfig
	backends Backends

	sets []Set
	vb   *VictimBuffer

	dsIndex  int
	counters slidingCounters
	stats    Stats
	util     *Utilization
}

// NewCopyCache builds a CopyCache scheme.
func NewCopyCache(cfg CopyCacheConfig, backends Backends) *CopyCache {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	sets := make([]Set, cfg.NumSets)
	for i := range sets {
		sets[i] = make(Set, 1)
	}

	return &CopyCache{
		cfg:      cfg,
		backends: backends,
		sets:     sets,
		vb:       NewVictimBuffer(cfg.VictimBufferSize),
		dsIndex:  cfg.NumSets,
		util:     NewUtilization(),
	}
}

func (c *CopyCache) Name() string  { return "CopyCache" }
func (c *CopyCache) Stats() *Stats { return &c.stats }

func (c *CopyCache) tagOf(lineAddr uint64) uint64 {
	chunk := c.cfg.Granularity / c.cfg.LineSize
	if chunk == 0 {
		chunk = 1
	}

	return lineAddr / chunk
}

func (c *CopyCache) setOf(tag uint64) int {
	return int(tag % uint64(c.cfg.NumSets))
}

// Access implements the CopyCache placement: a direct-mapped near-memory
// probe, with dirty evictions handed to the victim buffer rather than
// written back inline.
func (c *CopyCache) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	tag := c.tagOf(req.LineAddr)
	setIdx := c.setOf(tag)
	set := c.sets[setIdx]

	c.util.Update(&c.stats, req.LineAddr, c.cfg.Granularity)

	cycle := c.backends.Near.Access(req.Cycle, tag, false, 6*c.cfg.LineSize, nil).RespCycle
	c.counters.McBW += 6

	way, found := set.Lookup(tag)
	if found && set[way].Valid {
		if request.IsStore(req) {
			set[way].Dirty = true
		}

		c.recordHit(req)

		return cycle
	}

	c.recordMiss(req)

	cycle = c.backends.Far.Access(cycle, req.LineAddr, false, 4*c.cfg.LineSize, nil).RespCycle
	c.counters.ExtBW += 4

	victim := set[0]
	if victim.Valid && victim.Dirty {
		c.evictToVictimBuffer(victim, cycle)
	} else if victim.Valid {
		c.stats.CleanEvict++
	}

	set[0] = Way{Tag: tag, Valid: true, Dirty: request.IsStore(req)}

	return cycle
}

// evictToVictimBuffer reserves a slot for the dirty victim line; if the
// buffer is full the writeback happens synchronously instead
// (VictimBufferOverflow, per spec.md §8 scenario S4's overflow case).
func (c *CopyCache) evictToVictimBuffer(victim Way, cycle uint64) {
	c.stats.DirtyEvict++

	if c.vb.TryPush(victim.Tag) {
		return
	}

	c.stats.VictimBufferOverflow++
	c.backends.Far.Access(cycle, victim.Tag, true, 4*c.cfg.LineSize, nil)
}

func (c *CopyCache) recordHit(req *request.Request) {
	c.counters.Hits++
	if request.IsLoad(req) {
		c.stats.LoadHit++
	} else {
		c.stats.StoreHit++
	}
}

func (c *CopyCache) recordMiss(req *request.Request) {
	c.counters.Miss++
	if request.IsLoad(req) {
		c.stats.LoadMiss++
	} else {
		c.stats.StoreMiss++
	}
}

// Period drains one victim-buffer entry to far memory (if any) in
// addition to the shared smoothing/rebalancing hook.
func (c *CopyCache) Period(req *request.Request) {
	c.counters.halve()

	c.drainVictimBuffer(req.Cycle)

	if !c.cfg.BWBalance {
		return
	}

	balanceBandwidth(&c.counters, &c.dsIndex, c.cfg.NumSets, func(lo, hi int) {
		for i := lo; i < hi && i < len(c.sets); i++ {
			set := c.sets[i]
			for w := range set {
				if set[w].Valid && set[w].Dirty {
					c.evictToVictimBuffer(set[w], req.Cycle)
				}
				set[w] = Way{}
			}
		}
	})
}

func (c *CopyCache) drainVictimBuffer(cycle uint64) {
	if c.vb.Len() == 0 {
		return
	}

	lineAddr := c.vb.entries[0].lineAddr
	c.backends.Far.Access(cycle, lineAddr, true, 4*c.cfg.LineSize, nil)
	c.vb.Retire(lineAddr)
}
