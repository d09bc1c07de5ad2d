package scheme

import "github.com/sarchlab/mcdram/request"

// IdealBalancedConfig configures a fully-associative LRU cache whose
// effective capacity is continuously trimmed toward the bandwidth
// balancer's target mc-share ratio, per spec.md §4.2's IdealBalanced
// variant: IdealFully's replacement quality with Alloy/Unison's dynamic
// capacity governor layered on top.
type IdealBalancedConfig struct {
	NumLines   int
	LineSize   uint64
	StepLength uint64
}

// IdealBalanced implements spec.md §4.2's IdealBalanced variant.
type IdealBalanced struct {
	cfg      IdealBalancedConfig
	backends Backends

	lru          *lruList
	effectiveCap int
	dsIndex      int
	counters     slidingCounters
	stats        Stats
	util         *Utilization
}

// NewIdealBalanced builds an IdealBalanced scheme.
func NewIdealBalanced(cfg IdealBalancedConfig, backends Backends) *IdealBalanced {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	return &IdealBalanced{
		cfg:          cfg,
		backends:     backends,
		lru:          newLRUList(cfg.NumLines),
		effectiveCap: cfg.NumLines,
		dsIndex:      cfg.NumLines,
		util:         NewUtilization(),
	}
}

func (b *IdealBalanced) Name() string  { return "IdealBalanced" }
func (b *IdealBalanced) Stats() *Stats { return &b.stats }

// Access implements spec.md §4.2's IdealBalanced placement.
func (b *IdealBalanced) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	b.util.Update(&b.stats, req.LineAddr, 0)

	cycle := req.Cycle

	if n, found := b.lru.lookup(req.LineAddr); found {
		b.counters.Hits++

		if request.IsLoad(req) {
			b.stats.LoadHit++
		} else {
			b.stats.StoreHit++
		}

		if request.IsStore(req) {
			n.dirty = true
		}

		b.lru.promote(n)
		b.counters.McBW += 4

		return b.backends.Near.Access(cycle, req.LineAddr, request.IsStore(req), b.cfg.LineSize, nil).RespCycle
	}

	b.counters.Miss++

	if request.IsLoad(req) {
		b.stats.LoadMiss++
	} else {
		b.stats.StoreMiss++
	}

	cycle = b.backends.Far.Access(cycle, req.LineAddr, false, 4*b.cfg.LineSize, nil).RespCycle
	b.counters.ExtBW += 4

	evicted := b.lru.insert(req.LineAddr, request.IsStore(req))
	if evicted != nil {
		cycle = b.writeback(evicted, cycle)
	}

	cycle = b.trimToCapacity(cycle)

	b.counters.McBW += 4

	return b.backends.Near.Access(cycle, req.LineAddr, true, 4*b.cfg.LineSize, nil).RespCycle
}

func (b *IdealBalanced) writeback(n *lruNode, cycle uint64) uint64 {
	if n.dirty {
		b.stats.DirtyEvict++
		return b.backends.Far.Access(cycle, n.tag, true, 4*b.cfg.LineSize, nil).RespCycle
	}

	b.stats.CleanEvict++

	return cycle
}

// trimToCapacity evicts LRU tail entries beyond effectiveCap, the
// mechanism by which the bandwidth balancer shrinks this scheme's
// footprint without a real associativity structure to invalidate ranges
// of.
func (b *IdealBalanced) trimToCapacity(cycle uint64) uint64 {
	for b.lru.len() > b.effectiveCap && b.lru.tail != nil {
		victim := b.lru.tail
		b.lru.remove(victim.tag)
		cycle = b.writeback(victim, cycle)
	}

	return cycle
}

// Period implements spec.md §4.2's smoothing/rebalancing hook, driving
// effectiveCap toward the balancer's target mc-share ratio.
func (b *IdealBalanced) Period(req *request.Request) {
	b.counters.halve()

	balanceBandwidth(&b.counters, &b.dsIndex, b.cfg.NumLines, func(lo, hi int) {})

	b.effectiveCap = b.dsIndex
	if b.effectiveCap > b.cfg.NumLines {
		b.effectiveCap = b.cfg.NumLines
	}
	if b.effectiveCap < 1 {
		b.effectiveCap = 1
	}

	b.trimToCapacity(req.Cycle)
}
