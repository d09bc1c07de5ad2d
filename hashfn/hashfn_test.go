package hashfn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXXHashDeterministic(t *testing.T) {
	a := XXHash(12345)
	b := XXHash(12345)
	require.Equal(t, a, b)
	require.NotEqual(t, a, XXHash(12346))
}

func TestCityHashDeterministic(t *testing.T) {
	a := CityHash(98765)
	b := CityHash(98765)
	require.Equal(t, a, b)
}

func TestBobHashAvalanches(t *testing.T) {
	a := BobHash(1)
	b := BobHash(2)
	require.NotEqual(t, a, b)
}

func TestNextLine(t *testing.T) {
	require.Equal(t, uint64(10), NextLine(10, 0))
	require.Equal(t, uint64(11), NextLine(10, 1))
}

func TestShuffleIsPermutation(t *testing.T) {
	perm := Shuffle(16, 42)
	seen := make(map[int]bool)
	for _, v := range perm {
		require.False(t, seen[v])
		seen[v] = true
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 16)
	}
	require.Len(t, seen, 16)
}

func TestLCGRoundTrip(t *testing.T) {
	l := NewLCG(16, 0x9E37, 0x1234)
	for x := uint64(0); x < 1000; x++ {
		y := l.Forward(x)
		require.Equal(t, x, l.Inverse(y))
	}
}

func TestLCGIsPermutation(t *testing.T) {
	l := NewLCG(8, 0xABCD, 7)
	seen := make(map[uint64]bool)
	for x := uint64(0); x < 256; x++ {
		y := l.Forward(x)
		require.False(t, seen[y], "collision at x=%d", x)
		seen[y] = true
	}
}
