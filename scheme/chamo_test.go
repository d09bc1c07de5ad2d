package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCHAMOMissThenHitViaBaseRank(t *testing.T) {
	c := NewCHAMO(CHAMOConfig{
		HashAssoc: 4, NrBucket: 64, TargetLoadRatio: 95, OverflowLines: 8, LineSize: 64,
	}, testBackends())

	c.Access(loadReq(1, 0))
	require.EqualValues(t, 1, c.Stats().LoadMiss)

	c.Access(loadReq(1, 100))
	require.EqualValues(t, 1, c.Stats().LoadHit)
}

func TestCHAMOFallsBackToOverflowUnderPressure(t *testing.T) {
	c := NewCHAMO(CHAMOConfig{
		HashAssoc: 1, NrBucket: 1, TargetLoadRatio: 95, OverflowLines: 4, LineSize: 64,
	}, testBackends())

	for i := uint64(0); i < 4; i++ {
		c.Access(loadReq(i, i*100))
	}

	require.GreaterOrEqual(t, c.Stats().DirectMapCount, uint64(1))
}

func TestCHAMODirtyOverflowEvictionWritesBack(t *testing.T) {
	c := NewCHAMO(CHAMOConfig{
		HashAssoc: 1, NrBucket: 1, TargetLoadRatio: 95, OverflowLines: 1, LineSize: 64,
	}, testBackends())

	// First footprint takes the only base-rank slot.
	c.Access(storeReq(0, 0))
	// Second footprint must fall to the overflow rank.
	c.Access(storeReq(1, 100))
	// Third footprint collides with the second in the single-slot overflow rank.
	c.Access(storeReq(2, 200))

	require.GreaterOrEqual(t, c.Stats().DirtyEvict, uint64(1))
}
