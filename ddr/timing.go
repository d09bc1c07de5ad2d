package ddr

// Technology names a DRAM timing preset, keyed the same way the original
// simulator keys its `tech=` config string (e.g. "DDR3-1333-CL10").
type Technology string

// Supported technology presets. DDR3-1333-CL10 is the default named in
// spec.md §4.1; the rest are recovered from original_source's timing
// tables and DRAMSim3's vendored device-config tree so that a complete
// build_ddr_memory can honor any of them.
const (
	DDR3_1333_CL10 Technology = "DDR3-1333-CL10"
	DDR3_1600_CL11 Technology = "DDR3-1600-CL11"
	DDR4_2400_CL16 Technology = "DDR4-2400-CL16"
	LPDDR4_3200    Technology = "LPDDR4-3200"
)

// Params holds the timing constants of one technology preset, all
// expressed in memory clock cycles except TCKNanos. tBL (burst length in
// cycles) is derived on each access by scaling TBLBase by lineSize/64 per
// spec.md §4.3.
type Params struct {
	TCKNanos float64
	TBLBase  int
	TCL      int
	TRCD     int
	TRTP     int
	TRP      int
	TRRD     int
	TRAS     int
	TFAW     int
	TWTR     int
	TWR      int
	TRFC     int
	TREFI    int
}

var presets = map[Technology]Params{
	DDR3_1333_CL10: {
		TCKNanos: 1.5, TBLBase: 4, TCL: 10, TRCD: 10, TRTP: 5,
		TRP: 10, TRRD: 4, TRAS: 24, TFAW: 20, TWTR: 5, TWR: 10,
		TRFC: 128, TREFI: 6240,
	},
	DDR3_1600_CL11: {
		TCKNanos: 1.25, TBLBase: 4, TCL: 11, TRCD: 11, TRTP: 6,
		TRP: 11, TRRD: 5, TRAS: 28, TFAW: 24, TWTR: 6, TWR: 12,
		TRFC: 160, TREFI: 6240,
	},
	DDR4_2400_CL16: {
		TCKNanos: 0.833, TBLBase: 4, TCL: 16, TRCD: 16, TRTP: 9,
		TRP: 16, TRRD: 6, TRAS: 39, TFAW: 26, TWTR: 8, TWR: 18,
		TRFC: 350, TREFI: 9360,
	},
	LPDDR4_3200: {
		TCKNanos: 0.625, TBLBase: 4, TCL: 24, TRCD: 24, TRTP: 10,
		TRP: 24, TRRD: 8, TRAS: 42, TFAW: 40, TWTR: 10, TWR: 20,
		TRFC: 280, TREFI: 3900,
	},
}

// Lookup returns the Params for a named technology. An unknown technology
// is a fatal configuration error per spec.md §7.
func Lookup(tech Technology) Params {
	p, ok := presets[tech]
	if !ok {
		panic("ddr: unknown technology preset " + string(tech))
	}

	return p
}

// scaledBurstCycles returns tBL scaled to the configured line size, per
// spec.md §4.3: "tBL is then scaled by line_size/64".
func scaledBurstCycles(base int, lineSize uint64) int {
	if lineSize == 0 {
		lineSize = 64
	}

	scaled := base * int(lineSize) / 64
	if scaled < 1 {
		scaled = 1
	}

	return scaled
}
