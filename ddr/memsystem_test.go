package ddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RanksPerChannel = 1
	cfg.BanksPerRank = 1
	cfg.MaxRowHits = 4

	return cfg
}

// S5: five reads to the same row of one bank at monotonically increasing
// cycles; the first 4 must be row hits, the 5th starts a new streak.
func TestS5RowHitStreak(t *testing.T) {
	m := NewMemorySystem(testConfig())

	addr := uint64(0) // rank 0, bank 0, row 0 for every access (same row)

	var hits []bool
	cycle := uint64(0)
	for i := 0; i < 5; i++ {
		res := m.Access(cycle, addr, false, 64, nil)
		hits = append(hits, res.RowHit)
		cycle = res.RespCycle + 1
	}

	require.False(t, hits[0], "first access to a closed bank cannot be a row hit")
	for i := 1; i < 4; i++ {
		require.True(t, hits[i], "access %d should be a row hit", i)
	}
	require.False(t, hits[4], "5th access must start a new row-hit streak")
}

func TestRespCycleNeverBeforeRequestCycle(t *testing.T) {
	m := NewMemorySystem(testConfig())

	res := m.Access(100, 0, false, 64, nil)
	require.GreaterOrEqual(t, res.RespCycle, uint64(100))
}

func TestUnknownTechnologyPanics(t *testing.T) {
	cfg := testConfig()
	cfg.Technology = "NOT-A-TECH"

	require.Panics(t, func() { NewMemorySystem(cfg) })
}

func TestInterleavedWritesAndReadsAreCounted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RanksPerChannel = 2
	cfg.BanksPerRank = 4
	m := NewMemorySystem(cfg)

	cycle := uint64(0)
	for i := uint64(0); i < 16; i++ {
		res := m.Access(cycle, i, i%2 == 0, 64, nil)
		require.GreaterOrEqual(t, res.RespCycle, cycle)
		cycle = res.RespCycle + 1
	}

	snap := m.StatsSnapshot()
	require.Equal(t, uint64(8), snap.Reads)
	require.Equal(t, uint64(8), snap.Writes)
}

func TestRefreshClosesBanks(t *testing.T) {
	cfg := testConfig()
	m := NewMemorySystem(cfg)

	m.Access(0, 0, false, 64, nil)
	require.True(t, m.banks[0][0].open)

	// Force a refresh by advancing far past tREFI.
	m.lastRefreshMem = 0
	m.memCycle = uint64(m.timing.TREFI) + 1
	m.maybeRefresh()

	require.False(t, m.banks[0][0].open)
	require.Equal(t, uint64(1), m.StatsSnapshot().Refreshes)
}
