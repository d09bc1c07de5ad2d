package cuckoo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Property #5: any footprint that GetTargetSetIdx reports as cuckoo-mapped
// resolves, via its recorded metadata, to a bucket whose valid=true and
// footprint == input.
func TestCuckooCorrectness(t *testing.T) {
	e := NewEngine(4, 8, 95)

	for i := uint64(0); i < 40; i++ {
		setIdx, ok := e.GetTargetSetIdx(i)
		if !ok {
			continue
		}

		meta, found := e.Lookup(i)
		require.True(t, found)
		require.True(t, meta.IsCuckoo)
		require.Equal(t, setIdx, int(meta.WayIdx))

		fp, valid := e.ValidAt(int(meta.HashAssocIdx), int(meta.WayIdx))
		require.True(t, valid)
		require.Equal(t, i, fp)
	}
}

// Property #6: cur_hash_assoc_limit never decreases, and the load-factor
// invariant holds after every insert.
func TestLoadFactorGrowthMonotone(t *testing.T) {
	e := NewEngine(4, 8, 95)

	prevLimit := e.HashAssocLimit()
	for i := uint64(0); i < 30; i++ {
		e.Insert(i)

		limit := e.HashAssocLimit()
		require.GreaterOrEqual(t, limit, prevLimit)
		prevLimit = limit

		threshold := uint64(limit*8*95) / 100
		require.LessOrEqual(t, e.Metric.NrCuckooMap, threshold+uint64(8)) // allow the insert that triggered growth
	}
}

// S6 (spec.md §8): with hash_assoc=4, nr_bucket=8, target_load_ratio=95,
// the associativity limit grows as the cuckoo-mapped population crosses
// limit*nr_bucket*ratio/100.
func TestS6CuckooGrowthThresholds(t *testing.T) {
	e := NewEngine(4, 8, 95)

	for i := uint64(0); i < 30; i++ {
		e.Insert(i)

		if e.Metric.NrCuckooMap > 15 {
			require.GreaterOrEqual(t, e.HashAssocLimit(), 3)
		} else if e.Metric.NrCuckooMap > 7 {
			require.GreaterOrEqual(t, e.HashAssocLimit(), 2)
		}
	}
}

func TestRemoveEntryClearsIndex(t *testing.T) {
	e := NewEngine(4, 8, 95)

	const hugePage = 2
	const linesPerHugePage = 32768
	line := uint64(hugePage*linesPerHugePage + 5)

	_, ok := e.GetTargetSetIdx(line)
	require.True(t, ok)

	e.RemoveEntry(hugePage)

	_, found := e.Lookup(line)
	require.False(t, found)
}

func TestDirectMapFallbackRecorded(t *testing.T) {
	e := NewEngine(1, 1, 95)

	e.Insert(1)
	_, ok := e.GetTargetSetIdx(2)
	require.False(t, ok)
	require.Equal(t, uint64(1), e.Metric.NrDirectMap)
}
