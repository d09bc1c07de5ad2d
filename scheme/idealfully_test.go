package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIdealFullyLRUEvictsLeastRecentlyUsed is the literal scenario of
// spec.md §8's S2: with a 2-line cache, accessing 0, 1, 0 (refreshing 0),
// then 2 must evict line 1, not line 0.
func TestIdealFullyLRUEvictsLeastRecentlyUsed(t *testing.T) {
	f := NewIdealFully(IdealFullyConfig{NumLines: 2, LineSize: 64}, testBackends())

	f.Access(loadReq(0, 0))
	f.Access(loadReq(1, 100))
	f.Access(loadReq(0, 200)) // refresh 0's recency
	f.Access(loadReq(2, 300)) // must evict 1, not 0

	_, has0 := f.lru.lookup(0)
	_, has1 := f.lru.lookup(1)
	_, has2 := f.lru.lookup(2)

	require.True(t, has0)
	require.False(t, has1)
	require.True(t, has2)
}

func TestIdealFullyDirtyEvictionWritesBack(t *testing.T) {
	f := NewIdealFully(IdealFullyConfig{NumLines: 1, LineSize: 64}, testBackends())

	f.Access(storeReq(0, 0))
	f.Access(storeReq(64, 100))

	require.EqualValues(t, 1, f.Stats().DirtyEvict)
}
