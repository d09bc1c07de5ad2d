// Package scheme implements the cache-scheme family of spec.md §4.2: one
// placement/replacement policy per zsim MCDRAM scheme (Alloy, Unison,
// Banshee, CacheOnly, NoCache, CopyCache, NDC, IdealBalanced,
// IdealAssociative, IdealFully, IdealHotness, CHAMO), all conforming to
// the shared CacheScheme contract below.
package scheme

import (
	"github.com/sarchlab/mcdram/ddr"
	"github.com/sarchlab/mcdram/request"
)

// CacheScheme is the contract every scheme implements, per spec.md §4.2.
type CacheScheme interface {
	// Access is the only mutator: tag lookup, near/far memory bursts,
	// placement/replacement, stats update. Returns the response cycle.
	Access(req *request.Request) uint64

	// Period is the smoothing/rebalancing hook, invoked by the
	// controller on each step_length boundary.
	Period(req *request.Request)

	// Stats returns the exported counters for this scheme instance.
	Stats() *Stats

	// Name identifies the scheme, for controller dispatch/logging.
	Name() string
}

// Backends bundles the near (MCDRAM) and far (external DRAM) timing
// models a scheme drives. A nil Near means the scheme allocates no near
// memory (NoCache).
type Backends struct {
	Near *ddr.MemorySystem
	Far  *ddr.MemorySystem
}

// Way is one cache tag entry, per spec.md §3.
type Way struct {
	Tag   uint64
	Valid bool
	Dirty bool
}

// Set is an ordered array of exactly NumWays Way entries; schemes impose
// their own way-selection semantics on top (LRU list, cuckoo map, random).
type Set []Way

// Lookup returns the way index holding tag in s, if any. Per spec.md §3's
// invariant, at most one way may hold a given tag.
func (s Set) Lookup(tag uint64) (way int, found bool) {
	for i, w := range s {
		if w.Valid && w.Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// Stats is the minimum exported counter set every scheme declares via
// init_stats, per spec.md §4.2, enriched per SPEC_FULL.md §6 with the
// scheme-specific counters recovered from original_source.
type Stats struct {
	LoadHit    uint64
	LoadMiss   uint64
	StoreHit   uint64
	StoreMiss  uint64
	CleanEvict uint64
	DirtyEvict uint64

	// Banshee-specific (original_source/src/cache/banshee.cpp).
	TagBufferFlush uint64
	TagBufferHit   uint64

	// NDC-specific (original_source/src/cache/ndc.cpp).
	VictimBufferHit      uint64
	VictimBufferOverflow uint64

	// CHAMO-specific (original_source/src/cache/chamo.cpp).
	CuckooKickOut  uint64
	CuckooPathLen  uint64
	DirectMapCount uint64

	// Shared utilization counters (spec.md §4.2's
	// update_utilization_stats).
	FirstAccessLines uint64
	ReAccessLines    uint64
}

// Utilization implements spec.md §4.2's shared
// update_utilization_stats(set, way): per-line access counts and
// accessed-line/page sets, via open-addressed (Go map) hash sets.
type Utilization struct {
	accessedLines map[uint64]bool
	accessedPages map[uint64]bool
	lineAccesses  map[uint64]uint64
}

// NewUtilization constructs an empty utilization tracker.
func NewUtilization() *Utilization {
	return &Utilization{
		accessedLines: make(map[uint64]bool),
		accessedPages: make(map[uint64]bool),
		lineAccesses:  make(map[uint64]uint64),
	}
}

// Update records an access to line (and the page it belongs to at the
// given page size), bumping the shared Stats' first-access/re-access
// counters.
func (u *Utilization) Update(stats *Stats, line uint64, pageSize uint64) {
	if !u.accessedLines[line] {
		u.accessedLines[line] = true
		stats.FirstAccessLines++
	} else {
		stats.ReAccessLines++
	}

	u.lineAccesses[line]++

	if pageSize > 0 {
		page := line / (pageSize / 64)
		u.accessedPages[page] = true
	}
}

// AccessedLineCount returns how many distinct external lines have ever
// been touched.
func (u *Utilization) AccessedLineCount() int { return len(u.accessedLines) }

// AccessedPageCount returns how many distinct external pages have ever
// been touched.
func (u *Utilization) AccessedPageCount() int { return len(u.accessedPages) }

// slidingCounters holds {num_hit_per_step, num_miss_per_step,
// mc_bw_per_step, ext_bw_per_step}; its halve method is the
// sliding-counter smoothing every scheme's Period hook performs.
type slidingCounters struct {
	Hits  uint64
	Miss  uint64
	McBW  uint64
	ExtBW uint64
}

func (s *slidingCounters) halve() {
	s.Hits /= 2
	s.Miss /= 2
	s.McBW /= 2
	s.ExtBW /= 2
}

// mcShareRatio returns the fraction of combined bandwidth attributed to
// the near-memory tier, used by the bandwidth balancer in Period.
func (s *slidingCounters) mcShareRatio() float64 {
	total := s.McBW + s.ExtBW
	if total == 0 {
		return 0.8
	}

	return float64(s.McBW) / float64(total)
}

// balanceBandwidth implements spec.md §4.2's bandwidth rebalancing hook:
// if the mc-share ratio deviates from 0.8 by more than 0.02, shift
// dsIndex by numSets/1000 * (ratio-0.8)/0.01 sets, invalidating (and
// writing back dirty) ways in the affected set range via invalidate.
func balanceBandwidth(
	counters *slidingCounters,
	dsIndex *int,
	numSets int,
	invalidate func(lo, hi int),
) {
	ratio := counters.mcShareRatio()
	delta := ratio - 0.8
	if delta < 0 {
		delta = -delta
	}

	if delta <= 0.02 {
		return
	}

	shift := int(float64(numSets) / 1000 * (ratio - 0.8) / 0.01)
	if shift == 0 {
		return
	}

	oldIndex := *dsIndex
	newIndex := oldIndex + shift

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex > numSets {
		newIndex = numSets
	}

	lo, hi := oldIndex, newIndex
	if lo > hi {
		lo, hi = hi, lo
	}

	if invalidate != nil && hi > lo {
		invalidate(lo, hi)
	}

	*dsIndex = newIndex
}
