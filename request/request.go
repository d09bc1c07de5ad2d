// Package request defines the memory request that flows from the CPU/LLC
// model into the memory controller and the MESI state table that every
// cache scheme must honor regardless of its internal placement policy.
package request

// Op is the coherence operation carried by a Request, matching the
// upward-facing protocol of a directory/LLC controller talking to a
// memory-side cache.
type Op int

// The four coherence operations a Request may carry.
const (
	GetShared Op = iota
	GetExclusive
	PutShared
	PutExclusive
)

// State is the MESI line state, written into Request.StateOut by the
// scheme that services the request.
type State int

// MESI states.
const (
	Invalid State = iota
	Shared
	Exclusive
	Modified
)

// Flags modify how a scheme computes the post-access state.
type Flags struct {
	// NoExcl forces GetShared to settle in Shared instead of Exclusive
	// even when no other sharer is known to the caller.
	NoExcl bool
}

// Request is a single memory access issued by the CPU/LLC model. The
// scheme mutates StateOut in place per the MESI table in spec.md §3; all
// other fields are read-only to the scheme.
type Request struct {
	LineAddr     uint64
	Op           Op
	Cycle        uint64
	SrcID        int
	ChildLock    bool
	InitialState State
	Flags        Flags

	// StateOut is written by the servicing scheme.
	StateOut State
}

// ApplyMESI writes req.StateOut according to the fixed MESI transition
// table: Put* always goes to Invalid, GetShared goes to Shared unless the
// NoExcl flag is clear (in which case it may settle Exclusive), and
// GetExclusive always goes to Modified.
func ApplyMESI(req *Request) {
	switch req.Op {
	case PutShared, PutExclusive:
		req.StateOut = Invalid
	case GetShared:
		if req.Flags.NoExcl {
			req.StateOut = Shared
		} else {
			req.StateOut = Exclusive
		}
	case GetExclusive:
		req.StateOut = Modified
	}
}

// IsSilentWriteback reports whether req is a clean writeback that the
// scheme must answer immediately without touching any tag array: a
// PutShared per spec.md §3.
func IsSilentWriteback(req *Request) bool {
	return req.Op == PutShared
}

// IsWrite reports whether req carries write intent (GetExclusive or
// PutExclusive) as opposed to a GetShared load or a PutShared clean
// writeback. A GetExclusive is counted here although it fetches data.
func IsWrite(req *Request) bool {
	return req.Op == GetExclusive || req.Op == PutExclusive
}

// IsLoad reports whether req is a data-fetching request (GetShared or
// GetExclusive), as opposed to a dirty writeback that pushes data down.
func IsLoad(req *Request) bool {
	return req.Op == GetShared || req.Op == GetExclusive
}

// IsStore reports whether req is a dirty writeback carrying new data into
// the cache (PutExclusive). PutShared is a silent clean writeback handled
// before reaching any scheme, per IsSilentWriteback.
func IsStore(req *Request) bool {
	return req.Op == PutExclusive
}
