package scheme

import (
	"math/bits"

	"github.com/sarchlab/mcdram/hashfn"
	"github.com/sarchlab/mcdram/request"
)

// NDCConfig configures an NDC (Near-memory Data Cache) scheme. NDC
// colocates a line's tag inside the same DRAM row as its data, so a hit
// or miss is resolved by the single row-buffer access that already
// fetches the data — no separate tag-array probe.
//
// The Ch/Ra/Bg/Ba/Ro/Co position and mask fields and IndexMask implement
// spec.md §4.2.4's configurable bit-gather, ported from
// original_source/src/cache/ndc.h's NDCScheme constructor and its
// mapAddress/getSetNum/getTag (the defaults below are that file's
// defaults).
type NDCConfig struct {
	NumGroups        int    // number of tag+data row groups
	LinesPerGroup    int    // lines sharing one row-group's tag entry
	LineSize         uint64
	SplitAddrs       bool // if true, group index is hashed rather than bit-gathered
	UseVictimBuffer  bool // supplemented variant: defer dirty group writebacks
	VictimBufferSize int
	StepLength       uint64
	BWBalance        bool

	ChPos, RaPos, BgPos, BaPos, RoPos, CoPos       uint
	ChMask, RaMask, BgMask, BaMask, RoMask, CoMask uint64

	// IndexMask selects, bit by bit, which positions of a group address
	// gather into GetSetNum's index; the remaining bits (below
	// maxAddrBits) gather into GetTag's tag. Zero means "use every bit",
	// which NewNDC then trims down to NumGroups's bit width, per ndc.h's
	// index_mask_upper/index_mask_lower adjustment.
	IndexMask uint64
}

// maxAddrBits bounds GetTag's bit-gather, per ndc.h's MAX_ADDR_BITS (64
// minus 6 cache-line-offset bits).
const maxAddrBits = 58

// DramAddress is the channel/rank/bank-group/bank/row/column coordinate
// a group address decomposes into, per ndc.h's mapAddress.
type DramAddress struct {
	Channel, Rank, BankGroup, Bank, Row, Column uint64
}

// ndcGroup is one in-row tag+data slot: LinesPerGroup lines share this
// entry's tag and dirty bit, per spec.md §4.2.4's canonical tag-in-row
// layout. groupAddr is the full group address (needed to address far
// memory on eviction); tag is the bit-gathered bits GetTag exposes,
// used only to recognize whether a group's current occupant is this
// group address.
type ndcGroup struct {
	groupAddr uint64
	tag       uint64
	valid     bool
	dirty     bool
}

// NDC implements spec.md §4.2.4. When UseVictimBuffer is set it follows
// the victim-buffer variant recovered from original_source (§9 Open
// Question) instead of the canonical inline writeback.
type NDC struct {
	cfg      NDCConfig
	backends Backends

	groups []ndcGroup
	vb     *VictimBuffer

	dsIndex  int
	counters slidingCounters
	stats    Stats
	util     *Utilization
}

// NewNDC builds an NDC scheme.
func NewNDC(cfg NDCConfig, backends Backends) *NDC {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	if cfg.LinesPerGroup <= 0 {
		cfg.LinesPerGroup = 1
	}

	if cfg.ChPos == 0 {
		cfg.ChPos = 12
	}
	if cfg.RaPos == 0 {
		cfg.RaPos = 11
	}
	if cfg.BgPos == 0 {
		cfg.BgPos = 7
	}
	if cfg.BaPos == 0 {
		cfg.BaPos = 9
	}
	if cfg.RoPos == 0 {
		cfg.RoPos = 13
	}
	if cfg.ChMask == 0 {
		cfg.ChMask = 1
	}
	if cfg.RaMask == 0 {
		cfg.RaMask = 1
	}
	if cfg.BgMask == 0 {
		cfg.BgMask = 3
	}
	if cfg.BaMask == 0 {
		cfg.BaMask = 3
	}
	if cfg.RoMask == 0 {
		cfg.RoMask = 16383
	}
	if cfg.CoMask == 0 {
		cfg.CoMask = 127
	}

	if cfg.IndexMask == 0 {
		cfg.IndexMask = ^uint64(0)
	}
	cfg.IndexMask = adjustIndexMask(cfg.IndexMask, cfg.NumGroups)

	n := &NDC{
		cfg:      cfg,
		backends: backends,
		groups:   make([]ndcGroup, cfg.NumGroups),
		dsIndex:  cfg.NumGroups,
		util:     NewUtilization(),
	}

	if cfg.UseVictimBuffer {
		n.vb = NewVictimBuffer(cfg.VictimBufferSize)
	}

	return n
}

func (n *NDC) Name() string  { return "NDC" }
func (n *NDC) Stats() *Stats { return &n.stats }

// groupAddrOf collapses the LinesPerGroup lines sharing one row-group
// down to that group's address.
func (n *NDC) groupAddrOf(lineAddr uint64) uint64 {
	return lineAddr / uint64(n.cfg.LinesPerGroup)
}

// adjustIndexMask trims mask down to exactly the number of bits needed
// to index NumGroups sets, keeping only its lowest set bits, per ndc.h's
// constructor-time index-mask adjustment (it warns and trims when the
// configured mask carries more bits than the cache needs for indexing).
func adjustIndexMask(mask uint64, numGroups int) uint64 {
	numSetBits := 0
	for (1 << uint(numSetBits)) < numGroups {
		numSetBits++
	}

	if bits.OnesCount64(mask) <= numSetBits {
		return mask
	}

	var trimmed uint64
	used := 0
	for bitPos := uint(0); bitPos < 64 && used < numSetBits; bitPos++ {
		if mask&(1<<bitPos) != 0 {
			trimmed |= 1 << bitPos
			used++
		}
	}

	return trimmed
}

// GetSetNum implements ndc.h's getSetNum: gather the address bits
// IndexMask selects, low bit position first, into a contiguous index.
func (n *NDC) GetSetNum(groupAddr uint64) uint64 {
	var index uint64
	indexPos := uint(0)

	for bitPos := uint(0); bitPos < maxAddrBits; bitPos++ {
		if n.cfg.IndexMask&(1<<bitPos) == 0 {
			continue
		}

		if groupAddr&(1<<bitPos) != 0 {
			index |= 1 << indexPos
		}
		indexPos++
	}

	return index % uint64(n.cfg.NumGroups)
}

// GetTag implements ndc.h's getTag: gather the address bits IndexMask
// does *not* select, low bit position first, into a contiguous tag.
func (n *NDC) GetTag(groupAddr uint64) uint64 {
	var tag uint64
	tagPos := uint(0)

	for bitPos := uint(0); bitPos < maxAddrBits; bitPos++ {
		if n.cfg.IndexMask&(1<<bitPos) != 0 {
			continue
		}

		if groupAddr&(1<<bitPos) != 0 {
			tag |= 1 << tagPos
		}
		tagPos++
	}

	return tag
}

// PhyAddrToCacheAddr implements ndc.h's mapAddress: decomposes a group
// address into the DRAM coordinate its configured channel/rank/
// bank-group/bank/row/column positions and masks select.
func (n *NDC) PhyAddrToCacheAddr(groupAddr uint64) DramAddress {
	return DramAddress{
		Channel:   (groupAddr >> n.cfg.ChPos) & n.cfg.ChMask,
		Rank:      (groupAddr >> n.cfg.RaPos) & n.cfg.RaMask,
		BankGroup: (groupAddr >> n.cfg.BgPos) & n.cfg.BgMask,
		Bank:      (groupAddr >> n.cfg.BaPos) & n.cfg.BaMask,
		Row:       (groupAddr >> n.cfg.RoPos) & n.cfg.RoMask,
		Column:    (groupAddr >> n.cfg.CoPos) & n.cfg.CoMask,
	}
}

// groupOf resolves a group address to its row-group index: the
// configurable bit-gather (GetSetNum) by default, or — under the
// split_addrs address splitter — a hashed index that decorrelates group
// assignment from row-buffer locality upstream.
func (n *NDC) groupOf(groupAddr uint64) int {
	if n.cfg.NumGroups == 0 {
		return 0
	}

	if n.cfg.SplitAddrs {
		return int(hashfn.XXHash(groupAddr) % uint64(n.cfg.NumGroups))
	}

	return int(n.GetSetNum(groupAddr))
}

// Access implements spec.md §4.2.4: a single near-memory access reads
// the row group's colocated tag and data together.
func (n *NDC) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	groupAddr := n.groupAddrOf(req.LineAddr)
	tag := n.GetTag(groupAddr)
	groupIdx := n.groupOf(groupAddr)

	n.util.Update(&n.stats, req.LineAddr, uint64(n.cfg.LinesPerGroup)*n.cfg.LineSize)

	bursts := uint64(n.cfg.LinesPerGroup) * 4
	cycle := n.backends.Near.Access(req.Cycle, uint64(groupIdx), request.IsStore(req), bursts*n.cfg.LineSize, nil).RespCycle
	n.counters.McBW += bursts

	group := &n.groups[groupIdx]
	if group.valid && group.tag == tag {
		if request.IsStore(req) {
			group.dirty = true
		}

		n.recordHit(req)

		return cycle
	}

	if n.vb != nil && n.vb.Lookup(groupAddr) {
		n.stats.VictimBufferHit++
		n.recordHit(req)

		return cycle
	}

	n.recordMiss(req)

	cycle = n.evictAndFill(group, groupAddr, tag, req, cycle)

	return cycle
}

func (n *NDC) evictAndFill(group *ndcGroup, groupAddr, tag uint64, req *request.Request, cycle uint64) uint64 {
	if group.valid && group.dirty {
		if n.vb != nil {
			n.evictToVictimBuffer(group.groupAddr, cycle)
		} else {
			n.stats.DirtyEvict++
			cycle = n.backends.Far.Access(cycle, group.groupAddr, true,
				uint64(n.cfg.LinesPerGroup)*n.cfg.LineSize, nil).RespCycle
			n.counters.ExtBW += uint64(n.cfg.LinesPerGroup) * 4
		}
	} else if group.valid {
		n.stats.CleanEvict++
	}

	bursts := uint64(n.cfg.LinesPerGroup) * 4
	cycle = n.backends.Far.Access(cycle, req.LineAddr, false, bursts*n.cfg.LineSize, nil).RespCycle
	n.counters.ExtBW += bursts

	group.groupAddr = groupAddr
	group.tag = tag
	group.valid = true
	group.dirty = request.IsStore(req)

	return cycle
}

func (n *NDC) evictToVictimBuffer(groupAddr uint64, cycle uint64) {
	n.stats.DirtyEvict++

	if n.vb.TryPush(groupAddr) {
		return
	}

	n.stats.VictimBufferOverflow++
	n.backends.Far.Access(cycle, groupAddr, true, uint64(n.cfg.LinesPerGroup)*n.cfg.LineSize, nil)
}

func (n *NDC) recordHit(req *request.Request) {
	n.counters.Hits++
	if request.IsLoad(req) {
		n.stats.LoadHit++
	} else {
		n.stats.StoreHit++
	}
}

func (n *NDC) recordMiss(req *request.Request) {
	n.counters.Miss++
	if request.IsLoad(req) {
		n.stats.LoadMiss++
	} else {
		n.stats.StoreMiss++
	}
}

// Period implements the shared smoothing hook, plus one victim-buffer
// drain per step when the victim-buffer variant is active.
func (n *NDC) Period(req *request.Request) {
	n.counters.halve()

	if n.vb != nil && n.vb.Len() > 0 {
		tag := n.vb.entries[0].lineAddr
		n.backends.Far.Access(req.Cycle, tag, true, uint64(n.cfg.LinesPerGroup)*n.cfg.LineSize, nil)
		n.vb.Retire(tag)
	}

	if !n.cfg.BWBalance {
		return
	}

	balanceBandwidth(&n.counters, &n.dsIndex, n.cfg.NumGroups, func(lo, hi int) {
		for i := lo; i < hi && i < len(n.groups); i++ {
			if n.groups[i].valid && n.groups[i].dirty {
				n.stats.DirtyEvict++
			}
			n.groups[i] = ndcGroup{}
		}
	})
}
