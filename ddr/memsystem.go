// Package ddr implements the FR-FCFS DRAM timing model of spec.md §4.3:
// a per-channel scheduler with separate read/write queues, per-bank
// open-row tracking, rank activation windows (tFAW), closed/open page
// policy and periodic refresh. It also plays the role of the "glue for
// back-ends" shim of spec.md §2.7, exposing the two-tier access/tick API
// that a surrounding memory controller drives.
package ddr

// rankWindow tracks the last activations issued to a rank, used to
// enforce tFAW (no more than 4 ACTs in any tFAW-wide window).
type rankWindow struct {
	acts []uint64 // up to 4 most recent ACT cycles, oldest first
}

func (w *rankWindow) record(cycle uint64) {
	w.acts = append(w.acts, cycle)
	if len(w.acts) > 4 {
		w.acts = w.acts[len(w.acts)-4:]
	}
}

// earliestNextAct returns the earliest memory cycle at which another ACT
// may legally issue to this rank given tFAW.
func (w *rankWindow) earliestNextAct(tFAW int) uint64 {
	if len(w.acts) < 4 {
		return 0
	}

	return w.acts[0] + uint64(tFAW)
}

// MemorySystem is one DRAM channel: a matrix of ranks x banks driven by an
// FR-FCFS scheduler, as spec.md §4.3 describes.
type MemorySystem struct {
	cfg    Config
	timing Params

	banks [][]bank // [rank][bank]
	ranks []rankWindow

	memCycle        uint64
	lastRefreshMem  uint64
	lastCmdWasWrite bool

	overflow []*pendingAccess

	stats Stats
}

// Stats is the subset of DDR-level counters a memory controller exports.
type Stats struct {
	RowHits      uint64
	RowMisses    uint64
	Reads        uint64
	Writes       uint64
	OverflowHigh int
	Refreshes    uint64
}

// NewMemorySystem constructs a MemorySystem from cfg, scaling every timing
// constant by cfg.TimingScale. Unknown technology panics, per spec.md §7.
func NewMemorySystem(cfg Config) *MemorySystem {
	cfg.validate()

	timing := Lookup(cfg.Technology)
	if cfg.TimingScale == 0 {
		cfg.TimingScale = 1.0
	}

	scale := func(v int) int { return int(float64(v) * cfg.TimingScale) }
	timing.TBLBase = scale(timing.TBLBase)
	timing.TCL = scale(timing.TCL)
	timing.TRCD = scale(timing.TRCD)
	timing.TRTP = scale(timing.TRTP)
	timing.TRP = scale(timing.TRP)
	timing.TRRD = scale(timing.TRRD)
	timing.TRAS = scale(timing.TRAS)
	timing.TFAW = scale(timing.TFAW)
	timing.TWTR = scale(timing.TWTR)
	timing.TWR = scale(timing.TWR)
	timing.TRFC = scale(timing.TRFC)
	timing.TREFI = scale(timing.TREFI)

	m := &MemorySystem{
		cfg:    cfg,
		timing: timing,
		banks:  make([][]bank, cfg.RanksPerChannel),
		ranks:  make([]rankWindow, cfg.RanksPerChannel),
	}

	for r := range m.banks {
		m.banks[r] = make([]bank, cfg.BanksPerRank)
	}

	return m
}

func (m *MemorySystem) sysCyclesPerMemCycle() float64 {
	if m.cfg.MemFreqMHz == 0 {
		return 1
	}

	return m.cfg.SysFreqMHz / m.cfg.MemFreqMHz
}

func (m *MemorySystem) sysToMem(sysCycle uint64) uint64 {
	ratio := m.sysCyclesPerMemCycle()
	return uint64(float64(sysCycle) / ratio)
}

func (m *MemorySystem) memToSys(memCycle uint64) uint64 {
	ratio := m.sysCyclesPerMemCycle()
	return uint64(float64(memCycle) * ratio)
}

func (m *MemorySystem) burstSysCycles(dataSize uint64) uint64 {
	bl := scaledBurstCycles(m.timing.TBLBase, m.cfg.LineSize)
	lines := dataSize / m.cfg.LineSize
	if lines == 0 {
		lines = 1
	}

	return m.memToSys(uint64(bl) * lines)
}

// rankBankOf decomposes addr into (rank, bankIdx, row) using a simple
// fixed-field split: rank is addr modulo the rank count, bank is the
// quotient modulo the bank count, and the remainder is the row. The
// configured AddrMapping string is not consulted.
func (m *MemorySystem) rankBankOf(addr uint64) (rank, bankIdx int, row uint64) {
	nRanks := uint64(len(m.banks))
	nBanks := uint64(len(m.banks[0]))

	rank = int(addr % nRanks)
	rest := addr / nRanks
	bankIdx = int(rest % nBanks)
	row = rest / nBanks

	return rank, bankIdx, row
}

// minLatency returns the fixed latency component of spec.md §4.3's
// access() formula for a read or a write.
func (m *MemorySystem) minLatency(isWrite bool) uint64 {
	if isWrite {
		return uint64(m.cfg.ControllerLatency) + m.memToSys(uint64(m.timing.TCL+m.timing.TRCD))
	}

	return uint64(m.cfg.ControllerLatency) + m.memToSys(uint64(m.timing.TCL+m.timing.TRCD))
}

// AccessResult is returned by Access: the cycle the requester should treat
// data as ready, and whether the bank serviced it as a row-buffer hit.
type AccessResult struct {
	RespCycle uint64
	RowHit    bool
}

// Access implements spec.md §4.3's access(req, type, data_size): computes
// the optimistic response cycle, enqueues the request for FR-FCFS
// scheduling, then synchronously drives Tick until the request retires
// (this module owns its own weave-phase clock since the event recorder
// described in spec.md §5 is an external collaborator out of scope here).
// done, if non-nil, is invoked with the actual retirement cycle once the
// bank scheduler services the request -- this may be later than the
// naive RespCycle under contention.
func (m *MemorySystem) Access(
	sysCycle uint64,
	addr uint64,
	isWrite bool,
	dataSize uint64,
	done func(doneSysCycle uint64),
) AccessResult {
	respCycle := sysCycle + m.minLatency(isWrite) + m.burstSysCycles(dataSize)

	rank, bankIdx, row := m.rankBankOf(addr)

	retired := false
	statsBefore := m.stats

	req := &pendingAccess{
		addr:    addr,
		row:     row,
		isWrite: isWrite,
		arrival: m.sysToMem(sysCycle),
		respSys: respCycle,
		done: func(doneSysCycle uint64) {
			retired = true
			if done != nil {
				done(doneSysCycle)
			}
		},
	}

	m.enqueue(req, rank, bankIdx, sysCycle)

	if isWrite {
		m.stats.Writes++
	} else {
		m.stats.Reads++
	}

	for !retired {
		m.ClockTick(sysCycle)
		sysCycle++
	}

	rowHit := m.stats.RowHits > statsBefore.RowHits

	return AccessResult{RespCycle: respCycle, RowHit: rowHit}
}

// enqueue implements spec.md §4.3's enqueue(): translate to memory
// cycles, park on the overflow list if the bank queue is full, else
// insert via FR ordering.
func (m *MemorySystem) enqueue(req *pendingAccess, rank, bankIdx int, sysCycle uint64) {
	b := &m.banks[rank][bankIdx]

	queue := b.rdQueue
	if req.isWrite {
		queue = b.wrQueue
	}

	if len(queue) >= m.cfg.QueueDepth {
		m.overflow = append(m.overflow, req)
		if len(m.overflow) > m.stats.OverflowHigh {
			m.stats.OverflowHigh = len(m.overflow)
		}

		return
	}

	inserted := insertFR(queue, req, b.openRow, b.curRowHits, m.cfg.MaxRowHits)
	if req.isWrite {
		b.wrQueue = inserted
	} else {
		b.rdQueue = inserted
	}
}

// ClockTick implements spec.md §4.3's tick(sys_cycle): sets the memory
// domain's clock to the memory cycle that sysCycle maps to, servicing at
// most one ready request
// per bank via try_schedule and opportunistically draining the overflow
// queue. Returns whether any state changed.
func (m *MemorySystem) ClockTick(sysCycle uint64) bool {
	madeProgress := false

	m.memCycle = m.sysToMem(sysCycle)

	madeProgress = m.maybeRefresh() || madeProgress

	for rank := range m.banks {
		for bankIdx := range m.banks[rank] {
			madeProgress = m.trySchedule(rank, bankIdx, sysCycle) || madeProgress
		}
	}

	madeProgress = m.drainOverflow(sysCycle) || madeProgress

	return madeProgress
}

func (m *MemorySystem) drainOverflow(sysCycle uint64) bool {
	if len(m.overflow) == 0 {
		return false
	}

	remaining := m.overflow[:0]
	progressed := false

	for _, req := range m.overflow {
		rank, bankIdx, _ := m.rankBankOf(req.addr)
		b := &m.banks[rank][bankIdx]

		queue := b.rdQueue
		if req.isWrite {
			queue = b.wrQueue
		}

		if len(queue) >= m.cfg.QueueDepth {
			remaining = append(remaining, req)
			continue
		}

		m.enqueue(req, rank, bankIdx, sysCycle)
		progressed = true
	}

	m.overflow = remaining

	return progressed
}

// trySchedule implements the FR-FCFS issue policy of spec.md §4.3: prefer
// writes once the write queue exceeds 3/4 depth, or once the last issued
// command was a write and the write queue still exceeds 1/4 depth.
func (m *MemorySystem) trySchedule(rank, bankIdx int, sysCycle uint64) bool {
	b := &m.banks[rank][bankIdx]

	preferWrite := len(b.wrQueue) > 3*m.cfg.QueueDepth/4 ||
		(m.lastCmdWasWrite && len(b.wrQueue) > m.cfg.QueueDepth/4)

	order := []bool{preferWrite, !preferWrite}

	for _, wantWrite := range order {
		queue := b.rdQueue
		if wantWrite {
			queue = b.wrQueue
		}

		if len(queue) == 0 {
			continue
		}

		req := queue[0]
		if !m.bankCommandReady(rank, bankIdx, req) {
			continue
		}

		if wantWrite {
			b.wrQueue = b.wrQueue[1:]
		} else {
			b.rdQueue = b.rdQueue[1:]
		}

		m.issue(rank, bankIdx, req, sysCycle)
		m.lastCmdWasWrite = wantWrite

		return true
	}

	return false
}

// bankCommandReady reports whether req's column command could legally
// issue this memory cycle given tRCD/tRP/tRRD/tFAW and the bank's current
// row state.
func (m *MemorySystem) bankCommandReady(rank, bankIdx int, req *pendingAccess) bool {
	b := &m.banks[rank][bankIdx]

	if b.open && b.openRow == req.row {
		return m.memCycle >= b.lastActCycle+uint64(m.timing.TRCD)
	}

	// Row miss: need PRE (if open) then ACT then CAS; the ACT waits tRP
	// after the earliest PRE cycle.
	if (b.open || b.minPreCycle != 0) && m.memCycle < b.minPreCycle+uint64(m.timing.TRP) {
		return false
	}

	nextAct := m.ranks[rank].earliestNextAct(m.timing.TFAW)
	if m.memCycle < nextAct {
		return false
	}

	if b.lastCmdCycle != 0 && m.memCycle < b.lastActCycle+uint64(m.timing.TRRD) {
		return false
	}

	return true
}

func (m *MemorySystem) issue(rank, bankIdx int, req *pendingAccess, sysCycle uint64) {
	b := &m.banks[rank][bankIdx]

	rowHit := b.open && b.openRow == req.row
	if rowHit {
		b.curRowHits++
	} else {
		b.open = true
		b.openRow = req.row
		b.lastActCycle = m.memCycle
		b.curRowHits = 1
		m.ranks[rank].record(m.memCycle)
	}

	if rowHit {
		m.stats.RowHits++
	} else {
		m.stats.RowMisses++
	}

	cmdCycle := m.memCycle
	b.lastCmdCycle = cmdCycle

	respLatency := m.timing.TCL
	if req.isWrite {
		respLatency = m.timing.TWR
	}

	doneSysCycle := sysCycle + m.memToSys(uint64(respLatency))
	if doneSysCycle < req.respSys {
		doneSysCycle = req.respSys
	}

	tailCycle := cmdCycle + uint64(m.timing.TRAS)
	if req.isWrite {
		tailCycle = cmdCycle + uint64(respLatency) + uint64(m.timing.TWR)
	} else {
		tailCycle = cmdCycle + uint64(m.timing.TRTP)
	}

	if b.lastActCycle+uint64(m.timing.TRAS) > tailCycle {
		tailCycle = b.lastActCycle + uint64(m.timing.TRAS)
	}

	if b.minPreCycle < tailCycle {
		b.minPreCycle = tailCycle
	}

	if m.cfg.ClosedPage && b.curRowHits >= m.cfg.MaxRowHits {
		b.open = false
	}

	req.done(doneSysCycle)
}

func (m *MemorySystem) maybeRefresh() bool {
	if m.timing.TREFI == 0 {
		return false
	}

	if m.memCycle < m.lastRefreshMem+uint64(m.timing.TREFI) {
		return false
	}

	m.lastRefreshMem = m.memCycle
	m.stats.Refreshes++

	refreshDone := m.memCycle + uint64(m.timing.TRFC)

	for rank := range m.banks {
		for bankIdx := range m.banks[rank] {
			b := &m.banks[rank][bankIdx]
			b.open = false
			b.curRowHits = 0
			if b.minPreCycle < refreshDone-uint64(m.timing.TRP) {
				b.minPreCycle = refreshDone - uint64(m.timing.TRP)
			}
		}
	}

	return true
}

// StatsSnapshot returns a snapshot of the DDR-level counters.
func (m *MemorySystem) StatsSnapshot() Stats { return m.stats }
