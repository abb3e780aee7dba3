/*
 *  spss.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

// BitVec is a dense bitset over node indices, used as the visited mask of
// the path cover
type BitVec struct {
	length int
	data   []uint64
}

// NewBitVec allocates a bitset able to hold n bits, all unset
func NewBitVec(n int) *BitVec {
	words := n / 64
	if n%64 != 0 {
		words++
	}
	return &BitVec{length: n, data: make([]uint64, words)}
}

// Get reports whether bit i is set
func (bv *BitVec) Get(i uint32) bool {
	return bv.data[i/64]&(1<<(i%64)) != 0
}

// Set turns bit i on
func (bv *BitVec) Set(i uint32) {
	bv.data[i/64] |= 1 << (i % 64)
}

// SPSS computes a path cover of the unitig graph and materializes the
// simplitig spellings together with the aligned kmer counts
type SPSS struct {
	dbg    *DBG
	sorter *Sorter
	debug  bool

	pathNodes    [][]uint32
	pathForwards [][]bool
	simplitigs   []string
	counts       [][]uint32
}

// NewSPSS is the constructor for SPSS
func NewSPSS(dbg *DBG, sorter *Sorter, debug bool) *SPSS {
	return &SPSS{dbg: dbg, sorter: sorter, debug: debug}
}

// reverseAndFlip turns a path around: steps in reverse order, each on the
// opposite strand
func reverseAndFlip(nodes []uint32, forwards []bool) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
		forwards[i], forwards[j] = forwards[j], forwards[i]
	}
	for i := range forwards {
		forwards[i] = !forwards[i]
	}
}

// extend greedily grows the path from its tail until the sorter finds no
// consistent unmasked successor
func (r *SPSS) extend(nodes []uint32, forwards []bool, mask *BitVec) ([]uint32, []bool) {
	for {
		cur := nodes[len(nodes)-1]
		curForward := forwards[len(forwards)-1]
		toNodes, toForwards := r.dbg.GetConsistentNodesFrom(cur, curForward, mask)
		idx, ok := r.sorter.PickExtension(cur, toNodes, toForwards)
		if !ok {
			return nodes, forwards
		}
		succ := toNodes[idx]
		mask.Set(succ)
		nodes = append(nodes, succ)
		forwards = append(forwards, toForwards[idx])
	}
}

// ComputePathCover places every node in exactly one path. Each path is
// seeded by the sorter, extended forward from the seed, then extended
// backward by walking the flipped path.
func (r *SPSS) ComputePathCover() {
	n := r.dbg.NNodes()
	mask := NewBitVec(n)

	for {
		seed, forward, ok := r.sorter.PickSeed(mask)
		if !ok {
			break
		}
		mask.Set(seed)
		nodes := []uint32{seed}
		forwards := []bool{forward}

		nodes, forwards = r.extend(nodes, forwards, mask)

		reverseAndFlip(nodes, forwards)
		nodes, forwards = r.extend(nodes, forwards, mask)
		reverseAndFlip(nodes, forwards)

		r.pathNodes = append(r.pathNodes, nodes)
		r.pathForwards = append(r.pathForwards, forwards)
	}
	log.Noticef("Path cover done: %d paths over %d nodes", len(r.pathNodes), n)
}

// ExtractSimplitigsAndCounts spells every path and lines up its counts
func (r *SPSS) ExtractSimplitigsAndCounts() {
	r.simplitigs = make([]string, len(r.pathNodes))
	r.counts = make([][]uint32, len(r.pathNodes))
	for i := range r.pathNodes {
		if r.debug && !r.dbg.CheckPathConsistency(r.pathNodes[i], r.pathForwards[i]) {
			log.Errorf("Inconsistent path %d", i)
		}
		r.simplitigs[i] = r.dbg.Spell(r.pathNodes[i], r.pathForwards[i])
		r.counts[i] = r.dbg.GetCounts(r.pathNodes[i], r.pathForwards[i])
	}
}

// PrintStats reports the SPSS statistics
func (r *SPSS) PrintStats() {
	totalLength := 0
	for _, s := range r.simplitigs {
		totalLength += len(s)
	}
	nKmers := totalLength - len(r.simplitigs)*(r.dbg.K-1)
	log.Noticef("SPSS stats:")
	log.Noticef("   number of simplitigs:       %d", len(r.simplitigs))
	log.Noticef("   cumulative length:          %d", totalLength)
	if len(r.simplitigs) > 0 {
		log.Noticef("   average simplitig length:   %.1f", float64(totalLength)/float64(len(r.simplitigs)))
	}
	log.Noticef("   number of kmers:            %d", nKmers)
}

// Paths returns the computed path cover
func (r *SPSS) Paths() ([][]uint32, [][]bool) {
	return r.pathNodes, r.pathForwards
}

// Simplitigs returns the spelled simplitigs
func (r *SPSS) Simplitigs() []string {
	return r.simplitigs
}

// Counts returns the kmer counts aligned to Simplitigs
func (r *SPSS) Counts() [][]uint32 {
	return r.counts
}
