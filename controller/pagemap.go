package controller

import (
	"hash/fnv"
	"math/rand"
)

// pageMapper implements spec.md §4's map_page: virtual line address to
// physical (far-memory) line address translation, per the configured
// PagemapScheme.
type pageMapper struct {
	scheme   PagemapScheme
	extLines uint64

	vToP map[uint64]uint64

	johnnyNext uint64

	rng       *rand.Rand
	pAssigned map[uint64]bool
}

// newPageMapper seeds the Random scheme's PRNG deterministically from
// the controller's identity, per spec.md §9's "runs with identical
// configs reproduce bit-for-bit" requirement.
func newPageMapper(scheme PagemapScheme, extLines uint64, identity string) *pageMapper {
	if extLines == 0 {
		extLines = 1
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(identity))

	return &pageMapper{
		scheme:    scheme,
		extLines:  extLines,
		vToP:      make(map[uint64]uint64),
		rng:       rand.New(rand.NewSource(int64(h.Sum64()))),
		pAssigned: make(map[uint64]bool),
	}
}

// MapPage resolves vLineAddr to its physical far-memory line address.
func (m *pageMapper) MapPage(vLineAddr uint64) uint64 {
	switch m.scheme {
	case Identical:
		return vLineAddr % m.extLines
	case Johnny:
		return m.mapJohnny(vLineAddr)
	case Random:
		return m.mapRandom(vLineAddr)
	default:
		return vLineAddr % m.extLines
	}
}

func (m *pageMapper) mapJohnny(vLineAddr uint64) uint64 {
	if p, ok := m.vToP[vLineAddr]; ok {
		return p
	}

	p := m.johnnyNext % m.extLines
	m.johnnyNext++
	m.vToP[vLineAddr] = p

	return p
}

func (m *pageMapper) mapRandom(vLineAddr uint64) uint64 {
	if p, ok := m.vToP[vLineAddr]; ok {
		return p
	}

	var p uint64
	for {
		p = uint64(m.rng.Int63n(int64(m.extLines)))
		if !m.pAssigned[p] {
			break
		}
	}

	m.pAssigned[p] = true
	m.vToP[vLineAddr] = p

	return p
}
