package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyCacheDirtyEvictionGoesToVictimBuffer(t *testing.T) {
	c := NewCopyCache(CopyCacheConfig{
		NumSets: 1, Granularity: 64, LineSize: 64, VictimBufferSize: 4,
	}, testBackends())

	c.Access(storeReq(0, 0))
	c.Access(storeReq(64, 1000))

	require.EqualValues(t, 1, c.Stats().DirtyEvict)
	require.EqualValues(t, 0, c.Stats().VictimBufferOverflow)
	require.Equal(t, 1, c.vb.Len())
}

func TestCopyCacheVictimBufferOverflowsWhenFull(t *testing.T) {
	c := NewCopyCache(CopyCacheConfig{
		NumSets: 1, Granularity: 64, LineSize: 64, VictimBufferSize: 1,
	}, testBackends())

	c.Access(storeReq(0, 0))
	c.Access(storeReq(64, 1000))    // evicts line 0 into the (empty) victim buffer
	c.Access(storeReq(128, 2000))   // evicts line 64: buffer already full -> overflow

	require.EqualValues(t, 2, c.Stats().DirtyEvict)
	require.EqualValues(t, 1, c.Stats().VictimBufferOverflow)
}

func TestCopyCachePeriodDrainsVictimBuffer(t *testing.T) {
	c := NewCopyCache(CopyCacheConfig{
		NumSets: 1, Granularity: 64, LineSize: 64, VictimBufferSize: 4,
	}, testBackends())

	c.Access(storeReq(0, 0))
	c.Access(storeReq(64, 1000))
	require.Equal(t, 1, c.vb.Len())

	c.Period(loadReq(0, 2000))
	require.Equal(t, 0, c.vb.Len())
}
