package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdealAssociativeWithinSetLRU(t *testing.T) {
	a := NewIdealAssociative(IdealAssociativeConfig{NumSets: 1, NumWays: 2, LineSize: 64}, testBackends())

	a.Access(loadReq(0, 0))
	a.Access(loadReq(2, 100)) // same set (2 % 1 == 0), different tag
	a.Access(loadReq(0, 200))
	a.Access(loadReq(4, 300)) // evicts 2, not 0

	set := a.sets[0]
	_, has0 := set.lookup(0)
	_, has2 := set.lookup(2)

	require.True(t, has0)
	require.False(t, has2)
}
