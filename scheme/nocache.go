package scheme

import "github.com/sarchlab/mcdram/request"

// NoCacheConfig configures the pass-through scheme.
type NoCacheConfig struct {
	LineSize uint64
}

// NoCache bypasses near memory entirely: every request goes straight to
// far memory, per spec.md §4.2's NoCache variant. Backends.Near is
// expected nil for this scheme.
type NoCache struct {
	cfg      NoCacheConfig
	backends Backends
	stats    Stats
	util     *Utilization
}

// NewNoCache builds a NoCache scheme.
func NewNoCache(cfg NoCacheConfig, backends Backends) *NoCache {
	if cfg.LineSize == 0 {
		cfg.LineSize = 64
	}

	return &NoCache{cfg: cfg, backends: backends, util: NewUtilization()}
}

func (n *NoCache) Name() string  { return "NoCache" }
func (n *NoCache) Stats() *Stats { return &n.stats }

// Access implements spec.md §4.2's NoCache semantics: every request is a
// miss by definition, serviced entirely by far memory.
func (n *NoCache) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	n.util.Update(&n.stats, req.LineAddr, 0)

	if request.IsLoad(req) {
		n.stats.LoadMiss++
	} else {
		n.stats.StoreMiss++
	}

	return n.backends.Far.Access(req.Cycle, req.LineAddr, request.IsStore(req), n.cfg.LineSize, nil).RespCycle
}

// Period is a no-op: NoCache has no state to smooth.
func (n *NoCache) Period(req *request.Request) {}
