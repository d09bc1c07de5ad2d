// Package cuckoo implements the cuckoo-hash index engine shared by CHAMO
// and its cuckoo-indexed variants (spec.md §4.2.7-4.2.8): a bucket matrix
// addressed by an associativity-limited set of hash functions, BFS-based
// kick-out path discovery, and load-factor-driven associativity growth.
package cuckoo

import "github.com/sarchlab/mcdram/hashfn"

// cell identifies one (associativity-slot, bucket) coordinate in the
// bucket matrix.
type cell struct {
	assocIdx int
	bucket   int
}

// bucketEntry is one cell of the hash_assoc x nr_bucket matrix described
// in spec.md §3.
type bucketEntry struct {
	valid     bool
	footprint uint64
}

// IndexMetadata records where a footprint that is cuckoo-mapped lives,
// mirroring spec.md §3's footprint -> IndexMetadata lookup.
type IndexMetadata struct {
	IsCuckoo     bool
	MapIdx       uint8 // which of the two hash functions placed it there
	HashAssocIdx uint8
	WayIdx       uint8 // == bucket index
}

// Metric is the cuckoo_metric counter block of spec.md §3's invariants.
type Metric struct {
	NrCuckooMap      uint64
	NrDirectMap      uint64
	NrTotalEntry     uint64
	NrKickOut        uint64
	CumCuckooPathLen uint64
}

// Engine is one cuckoo index: a hashAssoc x nrBucket matrix of entries,
// plus a footprint -> IndexMetadata lookup, plus the associativity-growth
// state of spec.md §4.2.8.
type Engine struct {
	hashAssoc         int
	nrBucket          int
	curHashAssocLimit int
	targetLoadRatio   int // percent, e.g. 95

	buckets [][]bucketEntry // [assocIdx][bucket]
	index   map[uint64]IndexMetadata

	// shufflePerm holds one Knuth-Fisher-Yates permutation of [0,nrBucket)
	// per associativity slot, remapping each slot's raw hash into its own
	// bucket partition, per original_source's
	// hash/cuckoo_hash_shuffle_vector.cc.
	shufflePerm [][]int

	Metric Metric
}

// NewEngine builds a cuckoo engine with hashAssoc associativity slots (the
// ceiling the load-factor growth may reach), nrBucket buckets per slot,
// and targetLoadRatio as a percent (e.g. 95 for 95%).
func NewEngine(hashAssoc, nrBucket, targetLoadRatio int) *Engine {
	if hashAssoc <= 0 || nrBucket <= 0 {
		panic("cuckoo: hashAssoc and nrBucket must be positive")
	}

	buckets := make([][]bucketEntry, hashAssoc)
	for i := range buckets {
		buckets[i] = make([]bucketEntry, nrBucket)
	}

	shufflePerm := make([][]int, hashAssoc)
	for i := range shufflePerm {
		shufflePerm[i] = hashfn.Shuffle(nrBucket, uint64(i)*0x9E3779B97F4A7C15+1)
	}

	return &Engine{
		hashAssoc:         hashAssoc,
		nrBucket:          nrBucket,
		curHashAssocLimit: 1,
		targetLoadRatio:   targetLoadRatio,
		buckets:           buckets,
		index:             make(map[uint64]IndexMetadata),
		shufflePerm:       shufflePerm,
	}
}

// HashAssocLimit returns cur_hash_assoc_limit, the current ceiling on how
// many associativity slots may be probed for a footprint.
func (e *Engine) HashAssocLimit() int { return e.curHashAssocLimit }

// candidateCell computes the candidate (assocIdx, bucket) pair for
// footprint at a given associativity slot. The raw hash alternates across
// three families per spec.md §4.2.8's "default (XXHash mod nr_bucket,
// CityHash mod nr_bucket)" plus a third family, hashfn.BobHash, then the
// result is
// remapped through assocIdx's shuffle-vector permutation
// (cuckoo_hash_shuffle_vector.cc), so two assoc slots landing on the same
// raw bucket still diverge after remapping.
func (e *Engine) candidateCell(footprint uint64, assocIdx int) cell {
	mixed := footprint ^ (uint64(assocIdx) * 0x9E3779B97F4A7C15)

	var h uint64
	switch assocIdx % 3 {
	case 0:
		h = hashfn.XXHash(mixed)
	case 1:
		h = hashfn.CityHash(mixed)
	default:
		h = hashfn.BobHash(mixed)
	}

	bucket := int(h % uint64(e.nrBucket))
	bucket = e.shufflePerm[assocIdx][bucket]

	return cell{assocIdx: assocIdx, bucket: bucket}
}

func (e *Engine) candidates(footprint uint64) []cell {
	cells := make([]cell, 0, e.curHashAssocLimit)
	for a := 0; a < e.curHashAssocLimit; a++ {
		cells = append(cells, e.candidateCell(footprint, a))
	}

	return cells
}

func (e *Engine) occupantAt(c cell) uint64 {
	return e.buckets[c.assocIdx][c.bucket].footprint
}

func (e *Engine) isFree(c cell) bool {
	return !e.buckets[c.assocIdx][c.bucket].valid
}

func (e *Engine) placeAt(c cell, footprint uint64, mapIdx uint8) {
	e.buckets[c.assocIdx][c.bucket] = bucketEntry{valid: true, footprint: footprint}
	e.index[footprint] = IndexMetadata{
		IsCuckoo:     true,
		MapIdx:       mapIdx,
		HashAssocIdx: uint8(c.assocIdx),
		WayIdx:       uint8(c.bucket),
	}
}

// bfsNode is one node of the kick-out path tree of spec.md §4.2.8: the
// cell being considered, the footprint currently occupying it (captured
// at discovery time), and a back-pointer to the node whose occupant would
// need to move here.
type bfsNode struct {
	c        cell
	occupant uint64
	parent   int
}

// maxBFSNodes bounds the BFS search to a fixed number of discovered
// nodes; on failure, the insert returns direct-map and the engine records
// the fall-back, never blocks.
const maxBFSNodes = 4096

// GetTargetSetIdx resolves footprint to a bucket index, inserting it via
// Insert if this is its first access. It takes no mapping-unit index:
// this engine instance already represents one mapping unit's worth of
// buckets.
func (e *Engine) GetTargetSetIdx(footprint uint64) (setIdx int, ok bool) {
	if meta, found := e.index[footprint]; found {
		return int(meta.WayIdx), meta.IsCuckoo
	}

	return e.Insert(footprint)
}

// Insert places footprint into the cuckoo matrix via BFS kick-out path
// discovery, falling back to a direct-map placeholder (recorded, not
// stored in the matrix) if no free slot is reachable. Returns the bucket
// index actually used (only meaningful when ok is true, i.e. cuckoo
// placement succeeded) and whether the placement is cuckoo-mapped.
func (e *Engine) Insert(footprint uint64) (setIdx int, ok bool) {
	e.Metric.NrTotalEntry++

	roots := e.candidates(footprint)

	nodes := make([]bfsNode, 0, maxBFSNodes)
	visited := make(map[cell]bool, maxBFSNodes)
	queue := make([]int, 0, maxBFSNodes)

	for i, c := range roots {
		if e.isFree(c) {
			e.placeAt(c, footprint, uint8(i%2))
			e.Metric.NrCuckooMap++
			e.maybeGrow()

			return c.bucket, true
		}

		if visited[c] {
			continue
		}

		visited[c] = true
		nodes = append(nodes, bfsNode{c: c, occupant: e.occupantAt(c), parent: -1})
		queue = append(queue, len(nodes)-1)
	}

	for head := 0; head < len(queue) && len(nodes) < maxBFSNodes; head++ {
		idx := queue[head]
		n := nodes[idx]

		for a := 0; a < e.curHashAssocLimit; a++ {
			d := e.candidateCell(n.occupant, a)
			if d == n.c || visited[d] {
				continue
			}

			if e.isFree(d) {
				e.applyKickoutPath(nodes, idx, d, footprint)
				e.Metric.NrCuckooMap++
				e.maybeGrow()

				return int(e.index[footprint].WayIdx), true
			}

			visited[d] = true
			nodes = append(nodes, bfsNode{c: d, occupant: e.occupantAt(d), parent: idx})
			queue = append(queue, len(nodes)-1)

			if len(nodes) >= maxBFSNodes {
				break
			}
		}
	}

	e.Metric.NrDirectMap++

	return 0, false
}

// applyKickoutPath realizes the displacement chain discovered by BFS:
// walk from the leaf (whose occupant has a free neighbor freeCell) back
// to the root, sliding each node's captured occupant one step, and
// finally place the newly inserted footprint into the root's cell.
func (e *Engine) applyKickoutPath(nodes []bfsNode, leafIdx int, freeCell cell, newFootprint uint64) {
	chain := []int{}
	for i := leafIdx; i != -1; i = nodes[i].parent {
		chain = append(chain, i)
	}

	target := freeCell
	mapIdx := uint8(0)

	for _, idx := range chain {
		n := nodes[idx]
		e.placeAt(target, n.occupant, mapIdx)
		target = n.c
		mapIdx = uint8(idx % 2)
	}

	e.placeAt(target, newFootprint, mapIdx)

	e.Metric.NrKickOut++
	e.Metric.CumCuckooPathLen += uint64(len(chain))
}

// maybeGrow implements spec.md §4.2.8's load-factor growth: when
// nr_cuckoo_map exceeds cur_hash_assoc_limit * nr_bucket *
// target_load_ratio/100, bump the limit, capped at hashAssoc.
func (e *Engine) maybeGrow() {
	for e.curHashAssocLimit < e.hashAssoc {
		threshold := uint64(e.curHashAssocLimit*e.nrBucket*e.targetLoadRatio) / 100
		if e.Metric.NrCuckooMap <= threshold {
			break
		}

		e.curHashAssocLimit++
	}
}

// Lookup resolves footprint to its IndexMetadata if it has ever been
// inserted, for testing property #5 (cuckoo correctness).
func (e *Engine) Lookup(footprint uint64) (IndexMetadata, bool) {
	meta, ok := e.index[footprint]
	return meta, ok
}

// ValidAt reports whether the matrix cell at (hashAssocIdx, bucket) is
// currently occupied, and by which footprint.
func (e *Engine) ValidAt(hashAssocIdx, bucket int) (footprint uint64, valid bool) {
	entry := e.buckets[hashAssocIdx][bucket]
	return entry.footprint, entry.valid
}

// RemoveEntry erases every line covered by the huge page at pageAddr
// (32768 lines per spec.md §4.2.8), clearing both the bucket and the
// index entry for each.
func (e *Engine) RemoveEntry(pageAddr uint64) {
	const linesPerHugePage = 32768

	base := pageAddr * linesPerHugePage
	for line := base; line < base+linesPerHugePage; line++ {
		meta, ok := e.index[line]
		if !ok {
			continue
		}

		if meta.IsCuckoo {
			e.buckets[meta.HashAssocIdx][meta.WayIdx] = bucketEntry{}
			if e.Metric.NrCuckooMap > 0 {
				e.Metric.NrCuckooMap--
			}
		} else if e.Metric.NrDirectMap > 0 {
			e.Metric.NrDirectMap--
		}

		delete(e.index, line)
	}
}
