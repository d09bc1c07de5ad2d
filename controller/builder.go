package controller

import (
	"log"

	"github.com/sarchlab/mcdram/ddr"
	"github.com/sarchlab/mcdram/scheme"
)

// Builder constructs a Controller via the fluent With... idiom used
// throughout the teacher's component builders
// (mem/dram/builder.go, mem/cache/builder.go).
type Builder struct {
	cfg        Config
	schemeKind SchemeKind
	schemeCfg  interface{}
}

// NewBuilder starts a Builder with DefaultNearDDR for the near tier and
// DefaultFarDDR (build_ddr_memory's documented defaults, spec.md §4) for
// the far tier.
func NewBuilder() Builder {
	return Builder{
		cfg: Config{
			Name:          "mem-0",
			PagemapScheme: Identical,
			PageSize:      8 * 1024,
			ExtLines:      1 << 20,
			StepLength:    10000,
			NearDDR:       DefaultNearDDR(),
			FarDDR:        DefaultFarDDR(),
		},
	}
}

func (b Builder) WithName(name string) Builder { b.cfg.Name = name; return b }

func (b Builder) WithPagemapScheme(s PagemapScheme) Builder { b.cfg.PagemapScheme = s; return b }

func (b Builder) WithPageSize(size uint64) Builder { b.cfg.PageSize = size; return b }

func (b Builder) WithExtLines(n uint64) Builder { b.cfg.ExtLines = n; return b }

func (b Builder) WithSplitAddrs(v bool) Builder { b.cfg.SplitAddrs = v; return b }

func (b Builder) WithBWBalance(v bool) Builder { b.cfg.BWBalance = v; return b }

func (b Builder) WithStepLength(n uint64) Builder { b.cfg.StepLength = n; return b }

func (b Builder) WithTrace(dir string) Builder {
	b.cfg.EnableTrace = true
	b.cfg.TraceDir = dir

	return b
}

func (b Builder) WithNearDDR(cfg ddr.Config) Builder { b.cfg.NearDDR = cfg; return b }

func (b Builder) WithFarDDR(cfg ddr.Config) Builder { b.cfg.FarDDR = cfg; return b }

func (b Builder) WithDramTimingScale(scale float64) Builder {
	b.cfg.DramTimingScale = scale
	b.cfg.NearDDR.TimingScale = scale
	b.cfg.FarDDR.TimingScale = scale

	return b
}

// WithScheme selects a scheme kind and its typed configuration struct
// (e.g. scheme.AlloyConfig for SchemeAlloy). Build panics if kind and
// cfg's concrete type disagree, per spec.md §4's "unknown scheme... is a
// fatal configuration error".
func (b Builder) WithScheme(kind SchemeKind, cfg interface{}) Builder {
	b.schemeKind = kind
	b.schemeCfg = cfg

	return b
}

// Build realizes the controller: constructs both DDR back-ends via
// build_ddr_memory semantics, dispatches to the requested scheme, and
// wires address translation and (optionally) trace collection.
func (b Builder) Build() *Controller {
	if b.cfg.ExtLines == 0 {
		log.Panic("controller: ExtLines must be positive")
	}

	var near *ddr.MemorySystem
	if b.schemeKind != SchemeNoCache {
		near = ddr.NewMemorySystem(b.cfg.NearDDR)
	}
	far := ddr.NewMemorySystem(b.cfg.FarDDR)

	backends := scheme.Backends{Near: near, Far: far}

	if nc, ok := b.schemeCfg.(scheme.NDCConfig); ok && b.cfg.SplitAddrs {
		nc.SplitAddrs = true
		b.schemeCfg = nc
	}

	sch := dispatchScheme(b.schemeKind, b.schemeCfg, backends)

	mapper := newPageMapper(b.cfg.PagemapScheme, b.cfg.ExtLines, b.cfg.Name)

	c := &Controller{
		cfg:     b.cfg,
		near:    near,
		far:     far,
		scheme:  sch,
		mapper:  mapper,
		isFirst: b.cfg.Name == "mem-0",
	}

	if b.cfg.EnableTrace && c.isFirst {
		c.trace = newTraceCollector(b.cfg.TraceDir, b.cfg.Name)
	}

	return c
}

// dispatchScheme implements spec.md §4's scheme dispatch: kind selects
// the constructor, cfg must be that constructor's config type.
func dispatchScheme(kind SchemeKind, cfg interface{}, backends scheme.Backends) scheme.CacheScheme {
	switch kind {
	case SchemeAlloy:
		c, ok := cfg.(scheme.AlloyConfig)
		mustMatch(ok, kind)
		return scheme.NewAlloy(c, backends)
	case SchemeUnison:
		c, ok := cfg.(scheme.UnisonConfig)
		mustMatch(ok, kind)
		return scheme.NewUnison(c, backends)
	case SchemeBanshee:
		c, ok := cfg.(scheme.BansheeConfig)
		mustMatch(ok, kind)
		return scheme.NewBanshee(c, backends)
	case SchemeCacheOnly:
		c, ok := cfg.(scheme.CacheOnlyConfig)
		mustMatch(ok, kind)
		return scheme.NewCacheOnly(c, backends)
	case SchemeNoCache:
		c, ok := cfg.(scheme.NoCacheConfig)
		mustMatch(ok, kind)
		return scheme.NewNoCache(c, backends)
	case SchemeCopyCache:
		c, ok := cfg.(scheme.CopyCacheConfig)
		mustMatch(ok, kind)
		return scheme.NewCopyCache(c, backends)
	case SchemeNDC:
		c, ok := cfg.(scheme.NDCConfig)
		mustMatch(ok, kind)
		return scheme.NewNDC(c, backends)
	case SchemeIdealBalanced:
		c, ok := cfg.(scheme.IdealBalancedConfig)
		mustMatch(ok, kind)
		return scheme.NewIdealBalanced(c, backends)
	case SchemeIdealAssociative:
		c, ok := cfg.(scheme.IdealAssociativeConfig)
		mustMatch(ok, kind)
		return scheme.NewIdealAssociative(c, backends)
	case SchemeIdealFully:
		c, ok := cfg.(scheme.IdealFullyConfig)
		mustMatch(ok, kind)
		return scheme.NewIdealFully(c, backends)
	case SchemeIdealHotness:
		c, ok := cfg.(scheme.IdealHotnessConfig)
		mustMatch(ok, kind)
		return scheme.NewIdealHotness(c, backends)
	case SchemeCHAMO:
		c, ok := cfg.(scheme.CHAMOConfig)
		mustMatch(ok, kind)
		return scheme.NewCHAMO(c, backends)
	default:
		log.Panicf("controller: unknown scheme kind %q", kind)
		return nil
	}
}

func mustMatch(ok bool, kind SchemeKind) {
	if !ok {
		log.Panicf("controller: config type does not match scheme kind %q", kind)
	}
}
