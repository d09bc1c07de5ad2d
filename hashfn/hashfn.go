// Package hashfn provides the stateless hash primitives used by the cache
// schemes and the cuckoo index engine to scatter physical line and page
// addresses across sets, buckets and banks.
package hashfn

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/go-faster/city"
)

// XXHash scatters key using the real XXHash64 algorithm, applied to the
// little-endian byte encoding of key so that identical keys always hash
// identically across runs.
func XXHash(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)

	return xxhash.Sum64(buf[:])
}

// CityHash scatters key using CityHash64.
func CityHash(key uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)

	return city.Hash64(buf[:])
}

// BobHash is Bob Jenkins' 64-bit integer mix. No ecosystem library exposes
// this exact avalanche; ported directly from original_source's hash.cc.
func BobHash(key uint64) uint64 {
	key = (key + 0x7ed55d166bef7a3d) + (key << 12)
	key = (key ^ 0xc761c23c510fa2dd) ^ (key >> 19)
	key = (key + 0x165667b19e3779f9) + (key << 5)
	key = (key + 0xd3a2646cabf5d9e4) ^ (key << 9)
	key = (key + 0xfd7046c5ef7d0c23) + (key << 3)
	key = (key ^ 0xb55a4f09a1cba50c) ^ (key >> 16)

	return key
}

// MagicOffset applies a fixed odd magic constant used by the "magic
// address" set-index scheme: a single multiply-and-shift, cheaper than a
// full avalanche hash when a scheme only needs light scrambling of the low
// address bits.
func MagicOffset(key uint64) uint64 {
	const magic = 0x9E3779B97F4A7C15
	return (key * magic) >> 16
}

// NextLine maps key to itself shifted by skip lines, modelling a "next
// line" placement function that always lands skip lines ahead of the
// requested line. skip is 0 or 1 in the CHAMO hash-function family.
func NextLine(key uint64, skip uint64) uint64 {
	return key + skip
}

// Shuffle performs a deterministic Knuth-Fisher-Yates shuffle of the
// indices [0,n) keyed by seed, used by the shuffle-vector cuckoo hash
// variant to precompute a per-hash permutation of bucket partitions.
func Shuffle(n int, seed uint64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	state := seed | 1
	for i := n - 1; i > 0; i-- {
		state = lcgNext(state)
		j := int(state % uint64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}

	return perm
}

func lcgNext(state uint64) uint64 {
	const a = 6364136223846793005
	const c = 1442695040888963407
	return a*state + c
}
