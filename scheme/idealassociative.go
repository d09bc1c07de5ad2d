package scheme

import "github.com/sarchlab/mcdram/request"

// IdealAssociativeConfig configures a set-associative near-memory cache
// with exact per-set LRU, as opposed to Alloy's single direct-mapped way.
type IdealAssociativeConfig struct {
	NumSets  int
	NumWays  int
	LineSize uint64
}

// IdealAssociative implements spec.md §4.2's IdealAssociative variant: a
// real set-index function with an idealized (exact LRU, zero-overhead)
// replacement policy within each set.
type IdealAssociative struct {
	cfg      IdealAssociativeConfig
	backends Backends

	sets  []*lruList
	stats Stats
	util  *Utilization
}

// NewIdealAssociative builds an IdealAssociative scheme.
func NewIdealAssociative(cfg IdealAssociativeConfig, backends Backends) *IdealAssociative {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	sets := make([]*lruList, cfg.NumSets)
	for i := range sets {
		sets[i] = newLRUList(cfg.NumWays)
	}

	return &IdealAssociative{cfg: cfg, backends: backends, sets: sets, util: NewUtilization()}
}

func (a *IdealAssociative) Name() string  { return "IdealAssociative" }
func (a *IdealAssociative) Stats() *Stats { return &a.stats }

func (a *IdealAssociative) setOf(lineAddr uint64) int {
	return int(lineAddr % uint64(a.cfg.NumSets))
}

// Access implements spec.md §4.2's IdealAssociative placement.
func (a *IdealAssociative) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	a.util.Update(&a.stats, req.LineAddr, 0)

	set := a.sets[a.setOf(req.LineAddr)]
	cycle := req.Cycle

	if n, found := set.lookup(req.LineAddr); found {
		if request.IsLoad(req) {
			a.stats.LoadHit++
		} else {
			a.stats.StoreHit++
		}

		if request.IsStore(req) {
			n.dirty = true
		}

		set.promote(n)

		return a.backends.Near.Access(cycle, req.LineAddr, request.IsStore(req), a.cfg.LineSize, nil).RespCycle
	}

	if request.IsLoad(req) {
		a.stats.LoadMiss++
	} else {
		a.stats.StoreMiss++
	}

	cycle = a.backends.Far.Access(cycle, req.LineAddr, false, 4*a.cfg.LineSize, nil).RespCycle

	evicted := set.insert(req.LineAddr, request.IsStore(req))
	if evicted != nil {
		if evicted.dirty {
			a.stats.DirtyEvict++
			cycle = a.backends.Far.Access(cycle, evicted.tag, true, 4*a.cfg.LineSize, nil).RespCycle
		} else {
			a.stats.CleanEvict++
		}
	}

	return a.backends.Near.Access(cycle, req.LineAddr, true, 4*a.cfg.LineSize, nil).RespCycle
}

// Period is a no-op: exact per-set LRU has no smoothing state to decay.
func (a *IdealAssociative) Period(req *request.Request) {}
