package scheme

import "github.com/sarchlab/mcdram/request"

// CacheOnlyConfig configures a scheme that treats near memory as the only
// tier: every address is permanently resident, no tag array, no eviction.
type CacheOnlyConfig struct {
	LineSize uint64
}

// CacheOnly answers every request straight out of near memory with no
// tag lookup, no miss path and no far-memory traffic at all, per
// spec.md §4.2's CacheOnly variant (a baseline against which the other
// schemes' hit rates are measured).
type CacheOnly struct {
	cfg      CacheOnlyConfig
	backends Backends
	stats    Stats
	util     *Utilization
}

// NewCacheOnly builds a CacheOnly scheme.
func NewCacheOnly(cfg CacheOnlyConfig, backends Backends) *CacheOnly {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	return &CacheOnly{cfg: cfg, backends: backends, util: NewUtilization()}
}

func (c *CacheOnly) Name() string  { return "CacheOnly" }
func (c *CacheOnly) Stats() *Stats { return &c.stats }

// Access implements spec.md §4.2's CacheOnly semantics: every request is
// a hit against near memory.
func (c *CacheOnly) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	c.util.Update(&c.stats, req.LineAddr, 0)

	if request.IsLoad(req) {
		c.stats.LoadHit++
	} else {
		c.stats.StoreHit++
	}

	return c.backends.Near.Access(req.Cycle, req.LineAddr, request.IsStore(req), c.cfg.LineSize, nil).RespCycle
}

// Period is a no-op: CacheOnly has no bandwidth balancer or replacement
// state to smooth.
func (c *CacheOnly) Period(req *request.Request) {}
