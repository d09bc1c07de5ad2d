package scheme

import "github.com/sarchlab/mcdram/request"

// IdealFullyConfig configures a fully-associative, exact-LRU near-memory
// cache: the upper bound on achievable hit rate for a given near-memory
// capacity, ignoring all real hardware associativity limits.
type IdealFullyConfig struct {
	NumLines int
	LineSize uint64
}

// IdealFully implements spec.md §4.2's IdealFully variant using a
// doubly-linked-list LRU over the whole near-memory capacity.
type IdealFully struct {
	cfg      IdealFullyConfig
	backends Backends

	lru   *lruList
	stats Stats
	util  *Utilization
}

// NewIdealFully builds an IdealFully scheme.
func NewIdealFully(cfg IdealFullyConfig, backends Backends) *IdealFully {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	return &IdealFully{
		cfg:      cfg,
		backends: backends,
		lru:      newLRUList(cfg.NumLines),
		util:     NewUtilization(),
	}
}

func (i *IdealFully) Name() string  { return "IdealFully" }
func (i *IdealFully) Stats() *Stats { return &i.stats }

// Access implements spec.md §4.2's IdealFully placement.
func (i *IdealFully) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	i.util.Update(&i.stats, req.LineAddr, 0)

	cycle := req.Cycle

	if n, found := i.lru.lookup(req.LineAddr); found {
		if request.IsLoad(req) {
			i.stats.LoadHit++
		} else {
			i.stats.StoreHit++
		}

		if request.IsStore(req) {
			n.dirty = true
		}

		i.lru.promote(n)

		return i.backends.Near.Access(cycle, req.LineAddr, request.IsStore(req), i.cfg.LineSize, nil).RespCycle
	}

	if request.IsLoad(req) {
		i.stats.LoadMiss++
	} else {
		i.stats.StoreMiss++
	}

	cycle = i.backends.Far.Access(cycle, req.LineAddr, false, 4*i.cfg.LineSize, nil).RespCycle

	evicted := i.lru.insert(req.LineAddr, request.IsStore(req))
	if evicted != nil {
		if evicted.dirty {
			i.stats.DirtyEvict++
			cycle = i.backends.Far.Access(cycle, evicted.tag, true, 4*i.cfg.LineSize, nil).RespCycle
		} else {
			i.stats.CleanEvict++
		}
	}

	return i.backends.Near.Access(cycle, req.LineAddr, true, 4*i.cfg.LineSize, nil).RespCycle
}

// Period is a no-op: exact LRU has no smoothing state to decay.
func (i *IdealFully) Period(req *request.Request) {}
