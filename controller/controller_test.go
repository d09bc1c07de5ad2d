package controller

import (
	"testing"

	"github.com/sarchlab/mcdram/request"
	"github.com/sarchlab/mcdram/scheme"
	"github.com/stretchr/testify/require"
)

// TestS1AlloyHit is the literal spec.md §8 scenario S1: two GetShared
// requests for the same line must report exactly one loadHit and no
// loadMiss change on the second.
func TestS1AlloyHit(t *testing.T) {
	c := NewBuilder().
		WithName("mem-0").
		WithExtLines(1 << 16).
		WithScheme(SchemeAlloy, scheme.AlloyConfig{
			NumSets: 1024, Granularity: 64, LineSize: 64, McdramPerMC: 1,
		}).
		Build()

	req1 := &request.Request{LineAddr: 0x0, Op: request.GetShared, Cycle: 0}
	cycle1 := c.Access(req1)
	require.GreaterOrEqual(t, cycle1, req1.Cycle)
	require.EqualValues(t, 1, c.Stats().LoadMiss)

	req2 := &request.Request{LineAddr: 0x0, Op: request.GetShared, Cycle: 100}
	cycle2 := c.Access(req2)

	require.GreaterOrEqual(t, cycle2, req2.Cycle)
	require.EqualValues(t, 1, c.Stats().LoadHit)
	require.EqualValues(t, 1, c.Stats().LoadMiss)
}

func TestControllerRestoresVirtualAddress(t *testing.T) {
	c := NewBuilder().
		WithName("mem-1").
		WithExtLines(4).
		WithPagemapScheme(Johnny).
		WithScheme(SchemeCacheOnly, scheme.CacheOnlyConfig{LineSize: 64}).
		Build()

	req := &request.Request{LineAddr: 999, Op: request.GetShared, Cycle: 0}
	c.Access(req)

	require.EqualValues(t, 999, req.LineAddr)
}

func TestControllerSilentWritebackSkipsLock(t *testing.T) {
	c := NewBuilder().
		WithName("mem-2").
		WithExtLines(4).
		WithScheme(SchemeCacheOnly, scheme.CacheOnlyConfig{LineSize: 64}).
		Build()

	req := &request.Request{LineAddr: 1, Op: request.PutShared, Cycle: 55}
	cycle := c.Access(req)

	require.EqualValues(t, 55, cycle)
	require.Zero(t, c.Stats().LoadHit+c.Stats().LoadMiss+c.Stats().StoreHit+c.Stats().StoreMiss)
}

func TestControllerCountsAccessesAcrossStepBoundaries(t *testing.T) {
	c := NewBuilder().
		WithName("mem-3").
		WithExtLines(1 << 16).
		WithStepLength(2).
		WithBWBalance(true).
		WithScheme(SchemeAlloy, scheme.AlloyConfig{
			NumSets: 16, Granularity: 64, LineSize: 64, McdramPerMC: 1, BWBalance: true,
		}).
		Build()

	for i := uint64(0); i < 4; i++ {
		req := &request.Request{LineAddr: i, Op: request.GetShared, Cycle: i * 100}
		c.Access(req)
	}

	require.EqualValues(t, 4, c.accessCnt)
}

func TestUnknownSchemeConfigPanics(t *testing.T) {
	require.Panics(t, func() {
		NewBuilder().
			WithExtLines(16).
			WithScheme(SchemeAlloy, scheme.NoCacheConfig{LineSize: 64}).
			Build()
	})
}
