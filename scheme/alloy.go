package scheme

import (
	"github.com/sarchlab/mcdram/hashfn"
	"github.com/sarchlab/mcdram/request"
)

// AlloyConfig configures an Alloy direct-mapped line cache.
type AlloyConfig struct {
	NumSets      int
	Granularity  uint64 // bytes per tag entry, multiple of LineSize
	LineSize     uint64
	McdramPerMC  int
	SRAMTagArray bool // if true, tag probe and data fetch share one 4-burst access
	StepLength   uint64
	BWBalance    bool
}

// Alloy is the direct-mapped MCDRAM line cache of spec.md §4.2.1:
// num_ways=1, one tag per granularity-sized chunk of the line address
// space, banks selected by cache-line-granularity interleaving.
type Alloy struct {
	cfg      AlloyConfig
	backends Backends

	sets []Set // one way per set

	dsIndex   int
	counters  slidingCounters
	stats     Stats
	util      *Utilization
	stepCount uint64
}

// NewAlloy builds an Alloy scheme over the given backends.
func NewAlloy(cfg AlloyConfig, backends Backends) *Alloy {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	sets := make([]Set, cfg.NumSets)
	for i := range sets {
		sets[i] = make(Set, 1)
	}

	return &Alloy{
		cfg:      cfg,
		backends: backends,
		sets:     sets,
		dsIndex:  cfg.NumSets,
		util:     NewUtilization(),
	}
}

func (a *Alloy) Name() string { return "AlloyCache" }

func (a *Alloy) Stats() *Stats { return &a.stats }

func (a *Alloy) tagOf(lineAddr uint64) uint64 {
	chunk := a.cfg.Granularity / a.cfg.LineSize
	if chunk == 0 {
		chunk = 1
	}

	return lineAddr / chunk
}

func (a *Alloy) setOf(tag uint64) int {
	return int(tag % uint64(a.cfg.NumSets))
}

// bankOf scatters lineAddr across McdramPerMC banks via MagicOffset's
// light multiply-and-shift scrambling, rather than a plain modulo, so
// consecutive lines don't pile onto the same bank in lockstep.
func (a *Alloy) bankOf(lineAddr uint64) uint64 {
	if a.cfg.McdramPerMC <= 0 {
		return 0
	}

	return hashfn.MagicOffset(lineAddr) % uint64(a.cfg.McdramPerMC)
}

// Access implements spec.md §4.2.1.
func (a *Alloy) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	tag := a.tagOf(req.LineAddr)
	setIdx := a.setOf(tag)
	set := a.sets[setIdx]

	a.util.Update(&a.stats, req.LineAddr, a.cfg.Granularity)

	bankAddr := a.bankOf(req.LineAddr)

	tagDataBursts := uint64(6)
	if a.cfg.SRAMTagArray {
		tagDataBursts = 4
	}

	cycle := a.backends.Near.Access(
		req.Cycle, bankAddr, false, tagDataBursts*a.cfg.LineSize, nil).RespCycle
	a.counters.McBW += tagDataBursts

	way, found := set.Lookup(tag)
	if found && set[way].Valid {
		if request.IsStore(req) {
			set[way].Dirty = true
		}

		a.recordHit(req)

		return cycle
	}

	a.recordMiss(req)

	farCycle := a.backends.Far.Access(cycle, req.LineAddr, false, 4*a.cfg.LineSize, nil).RespCycle
	a.counters.ExtBW += 4

	victim := set[0]
	if victim.Valid && victim.Dirty {
		a.stats.DirtyEvict++
		wbCycle := a.backends.Far.Access(farCycle, victim.Tag, true, 4*a.cfg.LineSize, nil).RespCycle
		farCycle = wbCycle
	} else if victim.Valid {
		a.stats.CleanEvict++
	}

	set[0] = Way{Tag: tag, Valid: true, Dirty: request.IsStore(req)}

	return farCycle
}

func (a *Alloy) recordHit(req *request.Request) {
	a.counters.Hits++
	if request.IsLoad(req) {
		a.stats.LoadHit++
	} else {
		a.stats.StoreHit++
	}
}

func (a *Alloy) recordMiss(req *request.Request) {
	a.counters.Miss++
	if request.IsLoad(req) {
		a.stats.LoadMiss++
	} else {
		a.stats.StoreMiss++
	}
}

// Period implements spec.md §4.2's smoothing/rebalancing hook.
func (a *Alloy) Period(req *request.Request) {
	a.counters.halve()

	if !a.cfg.BWBalance {
		return
	}

	balanceBandwidth(&a.counters, &a.dsIndex, a.cfg.NumSets, func(lo, hi int) {
		for i := lo; i < hi && i < len(a.sets); i++ {
			set := a.sets[i]
			for w := range set {
				if set[w].Valid && set[w].Dirty {
					a.stats.DirtyEvict++
				}
				set[w] = Way{}
			}
		}
	})
}
