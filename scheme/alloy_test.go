package scheme

import (
	"testing"

	"github.com/sarchlab/mcdram/ddr"
	"github.com/sarchlab/mcdram/request"
	"github.com/stretchr/testify/require"
)

func testBackends() Backends {
	near := ddr.NewMemorySystem(ddr.DefaultConfig())
	far := ddr.NewMemorySystem(ddr.DefaultConfig())

	return Backends{Near: near, Far: far}
}

func loadReq(lineAddr, cycle uint64) *request.Request {
	return &request.Request{LineAddr: lineAddr, Op: request.GetShared, Cycle: cycle}
}

// storeReq builds a dirty writeback (PutExclusive): the request op that
// actually carries modified data down into the memory-side cache, as
// opposed to GetExclusive which only fetches a line for future
// modification and leaves the memory-side copy clean.
func storeReq(lineAddr, cycle uint64) *request.Request {
	return &request.Request{LineAddr: lineAddr, Op: request.PutExclusive, Cycle: cycle}
}

func TestAlloyMissThenHit(t *testing.T) {
	a := NewAlloy(AlloyConfig{NumSets: 16, Granularity: 64, LineSize: 64}, testBackends())

	a.Access(loadReq(0, 0))
	require.EqualValues(t, 1, a.Stats().LoadMiss)

	a.Access(loadReq(0, 1000))
	require.EqualValues(t, 1, a.Stats().LoadHit)
}

func TestAlloyDirtyEvictionWritesBack(t *testing.T) {
	a := NewAlloy(AlloyConfig{NumSets: 1, Granularity: 64, LineSize: 64}, testBackends())

	a.Access(storeReq(0, 0))
	require.EqualValues(t, 1, a.Stats().StoreMiss)

	a.Access(storeReq(64, 1000))
	require.EqualValues(t, 1, a.Stats().DirtyEvict)
}

func TestAlloySilentWritebackIsFree(t *testing.T) {
	a := NewAlloy(AlloyConfig{NumSets: 16, Granularity: 64, LineSize: 64}, testBackends())

	req := &request.Request{LineAddr: 5, Op: request.PutShared, Cycle: 42}
	cycle := a.Access(req)

	require.EqualValues(t, 42, cycle)
	require.EqualValues(t, 0, a.Stats().LoadHit+a.Stats().LoadMiss+a.Stats().StoreHit+a.Stats().StoreMiss)
}
