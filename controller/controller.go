package controller

import (
	"sync"

	"github.com/sarchlab/mcdram/ddr"
	"github.com/sarchlab/mcdram/request"
	"github.com/sarchlab/mcdram/scheme"
)

// Controller implements spec.md §4: the memory controller that sits
// between the CPU/LLC model and the near/far ddr.MemorySystem back-ends.
type Controller struct {
	cfg Config

	near *ddr.MemorySystem
	far  *ddr.MemorySystem

	scheme scheme.CacheScheme
	mapper *pageMapper

	trace   *traceCollector
	isFirst bool

	mu        sync.Mutex
	accessCnt uint64
}

// Access implements spec.md §4's access(req): MESI is applied and
// silent writebacks return immediately without the controller lock;
// otherwise the lock is acquired, the address is translated, the
// request is routed to the scheme, the virtual address is restored, the
// step_length-boundary period hook fires, and a trace entry is
// optionally recorded. The returned cycle is always >= req.Cycle.
func (c *Controller) Access(req *request.Request) uint64 {
	request.ApplyMESI(req)

	if request.IsSilentWriteback(req) {
		return req.Cycle
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	virtualAddr := req.LineAddr
	isWrite := request.IsWrite(req)

	req.LineAddr = c.mapper.MapPage(virtualAddr)

	respCycle := c.scheme.Access(req)

	req.LineAddr = virtualAddr

	c.accessCnt++
	if c.cfg.StepLength > 0 && c.accessCnt%c.cfg.StepLength == 0 {
		c.scheme.Period(req)
	}

	if c.trace != nil {
		c.trace.Record(virtualAddr, isWrite)
	}

	if respCycle < req.Cycle {
		return req.Cycle
	}

	return respCycle
}

// Stats returns the underlying scheme's exported counters.
func (c *Controller) Stats() *scheme.Stats { return c.scheme.Stats() }

// Name returns the controller's configured name (e.g. "mem-0").
func (c *Controller) Name() string { return c.cfg.Name }

// Close flushes any buffered trace entries.
func (c *Controller) Close() {
	if c.trace != nil {
		c.trace.Close()
	}
}
