// Package controller implements the memory controller of spec.md §4:
// address translation, cache-scheme dispatch, periodic rebalancing, and
// trace collection, sitting between the CPU/LLC model and the near/far
// ddr.MemorySystem back-ends.
package controller

import "github.com/sarchlab/mcdram/ddr"

// PagemapScheme selects how a virtual line address is translated to a
// physical far-memory line address, per spec.md §4's map_page.
type PagemapScheme int

// The three pagemap schemes spec.md §4 names.
const (
	Identical PagemapScheme = iota
	Johnny
	Random
)

// SchemeKind names one of the twelve cache-scheme family members, for
// dispatch in Builder.WithScheme.
type SchemeKind string

// The scheme kinds this controller can dispatch to.
const (
	SchemeAlloy            SchemeKind = "AlloyCache"
	SchemeUnison           SchemeKind = "UnisonCache"
	SchemeBanshee          SchemeKind = "BansheeCache"
	SchemeCacheOnly        SchemeKind = "CacheOnly"
	SchemeNoCache          SchemeKind = "NoCache"
	SchemeCopyCache        SchemeKind = "CopyCache"
	SchemeNDC              SchemeKind = "NDC"
	SchemeIdealBalanced    SchemeKind = "IdealBalanced"
	SchemeIdealAssociative SchemeKind = "IdealAssociative"
	SchemeIdealFully       SchemeKind = "IdealFully"
	SchemeIdealHotness     SchemeKind = "IdealHotness"
	SchemeCHAMO            SchemeKind = "CHAMO"
)

// Config is the controller's typed configuration, populated
// programmatically by the caller (a config-file parser is an external
// collaborator per spec.md §6).
type Config struct {
	Name string // e.g. "mem-0"; only the first controller traces, per spec.md §4

	PagemapScheme PagemapScheme
	PageSize      uint64 // bytes; used by map_page and by page-granular schemes
	ExtLines      uint64 // ext_size/64: number of addressable far-memory lines

	SplitAddrs bool // supplemented feature, SPEC_FULL.md §6
	BWBalance  bool

	StepLength uint64 // scheme.Period is invoked every StepLength accesses

	EnableTrace bool
	TraceDir    string

	NearDDR ddr.Config
	FarDDR  ddr.Config

	// DramTimingScale scales every DDR timing constant, per
	// SPEC_FULL.md §6's supplemented dram_timing_scale key.
	DramTimingScale float64
}

// DefaultNearDDR returns the near-memory (MCDRAM) timing defaults: a
// smaller, faster tier than DefaultFarDDR.
func DefaultNearDDR() ddr.Config {
	cfg := ddr.DefaultConfig()
	cfg.Technology = ddr.LPDDR4_3200
	cfg.RanksPerChannel = 1

	return cfg
}

// DefaultFarDDR returns build_ddr_memory's documented defaults (spec.md
// §4): ranks_per_channel=4, banks_per_rank=8, page_size=8KiB,
// tech=DDR3-1333-CL10, defer_writes=true, closed_page=true,
// max_row_hits=4, queue_depth=16, controller_latency=10 sys cycles.
func DefaultFarDDR() ddr.Config {
	return ddr.DefaultConfig()
}
