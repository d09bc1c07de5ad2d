package request

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyMESITable(t *testing.T) {
	cases := []struct {
		op      Op
		noExcl  bool
		want    State
	}{
		{PutShared, false, Invalid},
		{PutExclusive, false, Invalid},
		{GetShared, false, Exclusive},
		{GetShared, true, Shared},
		{GetExclusive, false, Modified},
		{GetExclusive, true, Modified},
	}

	for _, c := range cases {
		req := &Request{Op: c.op, Flags: Flags{NoExcl: c.noExcl}}
		ApplyMESI(req)
		require.Equal(t, c.want, req.StateOut)
	}
}

func TestSilentWriteback(t *testing.T) {
	req := &Request{Op: PutShared, Cycle: 42}
	require.True(t, IsSilentWriteback(req))

	req2 := &Request{Op: PutExclusive, Cycle: 42}
	require.False(t, IsSilentWriteback(req2))
}
