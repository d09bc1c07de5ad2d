package scheme

import (
	"testing"

	"github.com/sarchlab/mcdram/request"
	"github.com/stretchr/testify/require"
)

func TestBansheeMissThenHitSkipsTagProbe(t *testing.T) {
	b := NewBanshee(BansheeConfig{
		NumSets: 4, NumWays: 4, PageSize: 4096, LineSize: 64, FootprintSize: 4, TagBufferSize: 64,
	}, testBackends())

	b.Access(loadReq(0, 0))
	require.EqualValues(t, 1, b.Stats().LoadMiss)

	b.Access(loadReq(0, 1000))
	require.EqualValues(t, 1, b.Stats().LoadHit)
}

func TestBansheeCleanWritebackForUnresidentPageIsFree(t *testing.T) {
	b := NewBanshee(BansheeConfig{
		NumSets: 4, NumWays: 4, PageSize: 4096, LineSize: 64, FootprintSize: 4, TagBufferSize: 64,
	}, testBackends())

	req := &request.Request{LineAddr: 999, Op: request.PutShared, Cycle: 7}
	cycle := b.Access(req)

	require.EqualValues(t, 7, cycle)
}

func TestBansheeTagBufferFlushesPastOccupancyThreshold(t *testing.T) {
	b := NewBanshee(BansheeConfig{
		NumSets: 64, NumWays: 8, PageSize: 64, LineSize: 64, FootprintSize: 1, TagBufferSize: 16,
	}, testBackends())

	for i := uint64(0); i < 40; i++ {
		b.Access(loadReq(i, i*100))
	}

	require.GreaterOrEqual(t, b.Stats().TagBufferFlush, uint64(1))
}
