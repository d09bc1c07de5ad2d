package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnisonMissThenHit(t *testing.T) {
	u := NewUnison(UnisonConfig{
		NumSets: 4, NumWays: 4, PageSize: 4096, LineSize: 64, FootprintSize: 4,
	}, testBackends())

	u.Access(loadReq(0, 0))
	require.EqualValues(t, 1, u.Stats().LoadMiss)

	u.Access(loadReq(0, 1000))
	require.EqualValues(t, 1, u.Stats().LoadHit)
}

func TestUnisonDirtyBitvecTracksStores(t *testing.T) {
	u := NewUnison(UnisonConfig{
		NumSets: 1, NumWays: 1, PageSize: 4096, LineSize: 64, FootprintSize: 4,
	}, testBackends())

	page := uint64(0)
	linesPerPage := u.cfg.PageSize / u.cfg.LineSize

	u.Access(storeReq(0, 0))

	entry := u.tlb[page]
	require.NotNil(t, entry)
	require.NotZero(t, entry.DirtyBitvec)

	_ = linesPerPage
}

func TestUnisonEvictsRoundRobin(t *testing.T) {
	u := NewUnison(UnisonConfig{
		NumSets: 1, NumWays: 2, PageSize: 64, LineSize: 64, FootprintSize: 1,
	}, testBackends())

	u.Access(loadReq(0, 0))
	u.Access(loadReq(1, 1000))
	u.Access(loadReq(2, 2000))

	require.EqualValues(t, 3, u.Stats().LoadMiss)
	require.EqualValues(t, 1, u.Stats().CleanEvict+u.Stats().DirtyEvict)
}
