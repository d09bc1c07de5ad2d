package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdealBalancedShrinksCapacityUnderImbalance(t *testing.T) {
	b := NewIdealBalanced(IdealBalancedConfig{NumLines: 1000, LineSize: 64}, testBackends())

	for i := uint64(0); i < 200; i++ {
		b.Access(loadReq(i, i*100))
	}

	before := b.effectiveCap

	// Push the mc-share ratio far from the 0.8 target by inflating ExtBW.
	b.counters.ExtBW += 100000

	b.Period(loadReq(0, 20000))

	require.LessOrEqual(t, b.effectiveCap, before)
	require.LessOrEqual(t, b.lru.len(), b.effectiveCap)
}

func TestIdealBalancedBasicHitMiss(t *testing.T) {
	b := NewIdealBalanced(IdealBalancedConfig{NumLines: 4, LineSize: 64}, testBackends())

	b.Access(loadReq(0, 0))
	require.EqualValues(t, 1, b.Stats().LoadMiss)

	b.Access(loadReq(0, 100))
	require.EqualValues(t, 1, b.Stats().LoadHit)
}
