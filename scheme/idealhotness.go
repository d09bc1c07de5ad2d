package scheme

import "github.com/sarchlab/mcdram/request"

// IdealHotnessConfig configures a page-granular cache that places pages
// by a decaying access-frequency estimate rather than recency, per
// spec.md §4.2's IdealHotness variant.
type IdealHotnessConfig struct {
	NumPages   int
	PageSize   uint64
	LineSize   uint64
	DecayShift uint // frequency >>= DecayShift on each Period call
	StepLength uint64
}

// hotnessEntry tracks one resident page's decaying frequency counter.
type hotnessEntry struct {
	page  uint64
	freq  uint64
	dirty bool
}

// IdealHotness implements spec.md §4.2's IdealHotness variant: an
// idealized replacement policy that always evicts the coldest resident
// page by decayed frequency, an upper bound for frequency-based
// placement heuristics.
type IdealHotness struct {
	cfg      IdealHotnessConfig
	backends Backends

	resident map[uint64]*hotnessEntry
	freqAll  map[uint64]uint64 // frequency table for pages not currently resident

	stats Stats
	util  *Utilization
}

// NewIdealHotness builds an IdealHotness scheme.
func NewIdealHotness(cfg IdealHotnessConfig, backends Backends) *IdealHotness {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	return &IdealHotness{
		cfg:      cfg,
		backends: backends,
		resident: make(map[uint64]*hotnessEntry),
		freqAll:  make(map[uint64]uint64),
		util:     NewUtilization(),
	}
}

func (h *IdealHotness) Name() string  { return "IdealHotness" }
func (h *IdealHotness) Stats() *Stats { return &h.stats }

func (h *IdealHotness) pageOf(lineAddr uint64) uint64 {
	linesPerPage := h.cfg.PageSize / h.cfg.LineSize
	if linesPerPage == 0 {
		linesPerPage = 1
	}

	return lineAddr / linesPerPage
}

// Access implements spec.md §4.2's IdealHotness placement.
func (h *IdealHotness) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	page := h.pageOf(req.LineAddr)

	h.util.Update(&h.stats, req.LineAddr, h.cfg.PageSize)
	h.freqAll[page]++

	cycle := req.Cycle

	if entry, found := h.resident[page]; found {
		if request.IsLoad(req) {
			h.stats.LoadHit++
		} else {
			h.stats.StoreHit++
		}

		entry.freq++
		if request.IsStore(req) {
			entry.dirty = true
		}

		return h.backends.Near.Access(cycle, page, request.IsStore(req), h.cfg.LineSize, nil).RespCycle
	}

	if request.IsLoad(req) {
		h.stats.LoadMiss++
	} else {
		h.stats.StoreMiss++
	}

	cycle = h.backends.Far.Access(cycle, req.LineAddr, false, 4*h.cfg.LineSize, nil).RespCycle

	if len(h.resident) >= h.cfg.NumPages {
		cycle = h.evictColdest(cycle)
	}

	h.resident[page] = &hotnessEntry{page: page, freq: h.freqAll[page], dirty: request.IsStore(req)}

	return h.backends.Near.Access(cycle, page, true, 4*h.cfg.LineSize, nil).RespCycle
}

func (h *IdealHotness) evictColdest(cycle uint64) uint64 {
	var coldestPage uint64
	var coldest *hotnessEntry

	for _, e := range h.resident {
		if coldest == nil || e.freq < coldest.freq {
			coldest = e
			coldestPage = e.page
		}
	}

	if coldest == nil {
		return cycle
	}

	if coldest.dirty {
		h.stats.DirtyEvict++
		cycle = h.backends.Far.Access(cycle, coldestPage, true, 4*h.cfg.LineSize, nil).RespCycle
	} else {
		h.stats.CleanEvict++
	}

	delete(h.resident, coldestPage)

	return cycle
}

// Period implements the frequency decay: every resident and tracked
// page's counter is shifted right by DecayShift (1 when unset, i.e.
// halved), so hotness reflects recent
// behavior rather than all-time totals.
func (h *IdealHotness) Period(req *request.Request) {
	shift := h.cfg.DecayShift
	if shift == 0 {
		shift = 1
	}

	for page, freq := range h.freqAll {
		h.freqAll[page] = freq >> shift
	}

	for _, e := range h.resident {
		e.freq >>= shift
	}
}
