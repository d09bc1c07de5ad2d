package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdenticalPagemap(t *testing.T) {
	m := newPageMapper(Identical, 16, "mem-0")

	require.EqualValues(t, 5, m.MapPage(5))
	require.EqualValues(t, 5, m.MapPage(21)) // 21 mod 16 == 5
}

func TestJohnnyPagemapAssignsInOrderAndCaches(t *testing.T) {
	m := newPageMapper(Johnny, 4, "mem-0")

	require.EqualValues(t, 0, m.MapPage(100))
	require.EqualValues(t, 1, m.MapPage(200))
	require.EqualValues(t, 0, m.MapPage(100)) // repeat lookup returns the cached page

	require.EqualValues(t, 2, m.MapPage(300))
	require.EqualValues(t, 3, m.MapPage(400))
	require.EqualValues(t, 0, m.MapPage(500)) // wraps at extLines
}

func TestRandomPagemapNeverDoubleAssigns(t *testing.T) {
	m := newPageMapper(Random, 8, "mem-0")

	seen := make(map[uint64]bool)
	for v := uint64(0); v < 8; v++ {
		p := m.MapPage(v)
		require.False(t, seen[p], "physical page %d assigned twice", p)
		seen[p] = true
	}
}

func TestRandomPagemapIsDeterministicForSameIdentity(t *testing.T) {
	m1 := newPageMapper(Random, 64, "mem-0")
	m2 := newPageMapper(Random, 64, "mem-0")

	for v := uint64(0); v < 10; v++ {
		require.Equal(t, m1.MapPage(v), m2.MapPage(v))
	}
}
