package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoCacheAlwaysMisses(t *testing.T) {
	n := NewNoCache(NoCacheConfig{LineSize: 64}, testBackends())

	n.Access(loadReq(0, 0))
	n.Access(storeReq(1, 100))

	require.EqualValues(t, 1, n.Stats().LoadMiss)
	require.EqualValues(t, 1, n.Stats().StoreMiss)
	require.Zero(t, n.Stats().LoadHit+n.Stats().StoreHit)
}
