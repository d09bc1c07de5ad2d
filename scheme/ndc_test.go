package scheme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNDCMissThenHit(t *testing.T) {
	n := NewNDC(NDCConfig{NumGroups: 16, LinesPerGroup: 4, LineSize: 64}, testBackends())

	n.Access(loadReq(0, 0))
	require.EqualValues(t, 1, n.Stats().LoadMiss)

	n.Access(loadReq(0, 1000))
	require.EqualValues(t, 1, n.Stats().LoadHit)
}

func TestNDCSplitAddrsUsesHashedGroup(t *testing.T) {
	n := NewNDC(NDCConfig{NumGroups: 16, LinesPerGroup: 4, LineSize: 64, SplitAddrs: true}, testBackends())

	groupAddr := n.groupAddrOf(0)
	g1 := n.groupOf(groupAddr)
	g2 := n.groupOf(groupAddr)

	require.Equal(t, g1, g2)
}

// TestNDCGetSetNumGetTagRoundTrip is spec.md §8's testable property #4:
// for each line's group address, GetSetNum must fall within NumGroups, and
// the (set, tag) pair must reconstruct the original group address
// bit-for-bit, per ndc.h's index_mask bit-gather.
func TestNDCGetSetNumGetTagRoundTrip(t *testing.T) {
	n := NewNDC(NDCConfig{NumGroups: 16, LinesPerGroup: 1, LineSize: 64}, testBackends())

	for lineAddr := uint64(0); lineAddr < 4096; lineAddr += 37 {
		groupAddr := n.groupAddrOf(lineAddr)

		set := n.GetSetNum(groupAddr)
		tag := n.GetTag(groupAddr)

		require.Less(t, set, uint64(n.cfg.NumGroups))

		var reconstructed uint64
		indexPos, tagPos := uint(0), uint(0)

		for bitPos := uint(0); bitPos < maxAddrBits; bitPos++ {
			if n.cfg.IndexMask&(1<<bitPos) != 0 {
				if set&(1<<indexPos) != 0 {
					reconstructed |= 1 << bitPos
				}
				indexPos++
			} else {
				if tag&(1<<tagPos) != 0 {
					reconstructed |= 1 << bitPos
				}
				tagPos++
			}
		}

		require.Equal(t, groupAddr&((uint64(1)<<maxAddrBits)-1), reconstructed)
		require.Equal(t, set, n.GetSetNum(reconstructed))
		require.Equal(t, tag, n.GetTag(reconstructed))
	}
}

// TestNDCPhyAddrToCacheAddrDecomposesChannelRankBank verifies
// mapAddress-equivalent decomposition against the configured position/mask
// pairs, per ndc.h's mapAddress.
func TestNDCPhyAddrToCacheAddrDecomposesChannelRankBank(t *testing.T) {
	n := NewNDC(NDCConfig{NumGroups: 16, LinesPerGroup: 1, LineSize: 64}, testBackends())

	groupAddr := uint64(1)<<n.cfg.ChPos | uint64(1)<<n.cfg.BaPos | uint64(5)<<n.cfg.RoPos

	addr := n.PhyAddrToCacheAddr(groupAddr)

	require.EqualValues(t, 1, addr.Channel)
	require.EqualValues(t, 1, addr.Bank)
	require.EqualValues(t, 5, addr.Row)
}

func TestNDCVictimBufferVariantHitsBeforeEviction(t *testing.T) {
	n := NewNDC(NDCConfig{
		NumGroups: 1, LinesPerGroup: 1, LineSize: 64, UseVictimBuffer: true, VictimBufferSize: 4,
	}, testBackends())

	n.Access(storeReq(0, 0))
	n.Access(storeReq(64, 1000)) // evicts group 0's dirty line into the victim buffer

	require.EqualValues(t, 1, n.Stats().DirtyEvict)
	require.Equal(t, 1, n.vb.Len())

	n.Access(loadReq(0, 2000)) // line 0 is gone from the group but present in the victim buffer
	require.EqualValues(t, 1, n.Stats().VictimBufferHit)
}

// TestS4NDCVictimBufferOverflow is the literal spec.md §8 scenario S4:
// with victim_buffer_size=2, three consecutive dirty evictions must
// leave the first two reserved in the buffer and force the third to a
// direct (unreserved) writeback.
func TestS4NDCVictimBufferOverflow(t *testing.T) {
	n := NewNDC(NDCConfig{
		NumGroups: 1, LinesPerGroup: 1, LineSize: 64, UseVictimBuffer: true, VictimBufferSize: 2,
	}, testBackends())

	n.Access(storeReq(0, 0))    // occupies the only group, dirty
	n.Access(storeReq(64, 1000))  // evicts line 0 dirty -> victim buffer slot 1/2
	n.Access(storeReq(128, 2000)) // evicts line 64 dirty -> victim buffer slot 2/2
	n.Access(storeReq(192, 3000)) // evicts line 128 dirty -> buffer full, direct writeback

	require.EqualValues(t, 2, n.vb.Len())
	require.EqualValues(t, 1, n.Stats().VictimBufferOverflow)
	require.EqualValues(t, 3, n.Stats().DirtyEvict)
}
