package ddr

// AddrMapping names how a physical address decomposes into rank/bank/row/
// column fields. Only the ordering string is retained (as in spec.md
// §4.1's build_ddr_memory default "rank:col:bank"); the bit-level masks
// for a full multi-channel address splitter live in scheme.NDC, which
// needs per-field bit positions for its in-subarray indexing, not here.
type AddrMapping string

// Config configures a MemorySystem, mirroring build_ddr_memory's named
// parameter defaults in spec.md §4.1.
type Config struct {
	RanksPerChannel    int
	BanksPerRank       int
	PageSize           uint64 // row-buffer size in bytes
	Technology         Technology
	AddrMapping        AddrMapping
	DeferWrites        bool
	ClosedPage         bool
	MaxRowHits         int
	QueueDepth         int
	ControllerLatency  int // sys cycles of fixed front-door latency
	LineSize           uint64
	// TimingScale multiplies every timing constant derived from the
	// technology preset, modelling the `dram_timing_scale` config key
	// (spec.md §6) used to account for host/memory clock-domain ratios
	// without hand-deriving a new preset per ratio.
	TimingScale float64
	MemFreqMHz  float64
	SysFreqMHz  float64
}

// DefaultConfig returns the build_ddr_memory defaults from spec.md §4.1.
func DefaultConfig() Config {
	return Config{
		RanksPerChannel:   4,
		BanksPerRank:      8,
		PageSize:          8 * 1024,
		Technology:        DDR3_1333_CL10,
		AddrMapping:       "rank:col:bank",
		DeferWrites:       true,
		ClosedPage:        true,
		MaxRowHits:        4,
		QueueDepth:        16,
		ControllerLatency: 10,
		LineSize:          64,
		TimingScale:       1.0,
		MemFreqMHz:        666,
		SysFreqMHz:        2000,
	}
}

func (c Config) validate() {
	if c.RanksPerChannel <= 0 || c.BanksPerRank <= 0 {
		panic("ddr: ranks/banks per channel must be positive")
	}

	if c.MemFreqMHz*2 >= c.SysFreqMHz && c.SysFreqMHz != 0 {
		panic("ddr: mem_freq must be < sys_freq/2")
	}
}
