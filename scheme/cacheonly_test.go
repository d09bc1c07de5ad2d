package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheOnlyAlwaysHits(t *testing.T) {
	c := NewCacheOnly(CacheOnlyConfig{LineSize: 64}, testBackends())

	c.Access(loadReq(0, 0))
	c.Access(loadReq(1, 100))
	c.Access(storeReq(2, 200))

	require.EqualValues(t, 2, c.Stats().LoadHit)
	require.EqualValues(t, 1, c.Stats().StoreHit)
	require.Zero(t, c.Stats().LoadMiss+c.Stats().StoreMiss)
}
