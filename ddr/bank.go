package ddr

// pendingAccess is one read or write parked in a bank queue awaiting
// scheduling.
type pendingAccess struct {
	addr     uint64
	row      uint64
	isWrite  bool
	arrival  uint64 // memory cycle the request was enqueued
	respSys  uint64 // optimistic sys-cycle response computed at access time
	done     func(doneSysCycle uint64)
}

// bank is the per-bank timing state described in spec.md §3's "DDR bank
// state" entry.
type bank struct {
	open         bool
	openRow      uint64
	lastActCycle uint64
	minPreCycle  uint64
	lastCmdCycle uint64
	curRowHits   int

	rdQueue []*pendingAccess
	wrQueue []*pendingAccess
}

// insertFR inserts req preserving arrival order, except that a request to
// the currently open row is inserted immediately after the last queued
// request to that same row while the row-hit streak for that row is below
// maxRowHits -- the "FR" half of FR-FCFS.
func insertFR(queue []*pendingAccess, req *pendingAccess, openRow uint64, rowHits, maxRowHits int) []*pendingAccess {
	if req.row != openRow || rowHits >= maxRowHits {
		return append(queue, req)
	}

	lastSameRow := -1
	for i, q := range queue {
		if q.row == openRow {
			lastSameRow = i
		}
	}

	if lastSameRow == -1 {
		return append(queue, req)
	}

	out := make([]*pendingAccess, 0, len(queue)+1)
	out = append(out, queue[:lastSameRow+1]...)
	out = append(out, req)
	out = append(out, queue[lastSameRow+1:]...)

	return out
}
