/*
 *  sorter.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// SeedingMethod selects where a new simplitig starts
type SeedingMethod int

// Seeding methods, by BCALM-order node index unless stated otherwise.
// Ties always go to the smaller node index.
const (
	// SeedFirst takes the first unmasked node
	SeedFirst SeedingMethod = iota
	// SeedRandom takes a uniform random unmasked node
	SeedRandom
	// SeedLowerMedian takes the node with the smallest median abundance
	SeedLowerMedian
	// SeedHigherAverage takes the node with the largest average abundance
	SeedHigherAverage
	// SeedLowerAverage takes the node with the smallest average abundance
	SeedLowerAverage
	// SeedSimilarAverage takes the node whose average abundance is closest
	// to the last selected node's; the first call behaves like SeedFirst
	SeedSimilarAverage
	// SeedShorter takes the shortest unitig
	SeedShorter
	// SeedLonger takes the longest unitig
	SeedLonger
	// SeedFewerArcs takes the node with the fewest arcs
	SeedFewerArcs
	// SeedMoreArcs takes the node with the most arcs
	SeedMoreArcs
)

// ExtendingMethod selects the next step among the consistent successors
type ExtendingMethod int

// Extending methods; the reference node is the current path tail
const (
	// ExtendFirst takes the first candidate in arc order
	ExtendFirst ExtendingMethod = iota
	// ExtendRandom takes a uniform random candidate
	ExtendRandom
	// ExtendSimilarAverage minimizes |avg(cand) - avg(tail)|
	ExtendSimilarAverage
	// ExtendSimilarMedian minimizes |median(cand) - median(tail)|
	ExtendSimilarMedian
	// ExtendLowerMedian takes the candidate with the smallest median abundance
	ExtendLowerMedian
	// ExtendShorter takes the shortest candidate
	ExtendShorter
	// ExtendLonger takes the longest candidate
	ExtendLonger
	// ExtendFewerArcs takes the candidate with the fewest arcs
	ExtendFewerArcs
	// ExtendMoreArcs takes the candidate with the most arcs
	ExtendMoreArcs
)

var seedingMethodNames = map[string]SeedingMethod{
	"f":   SeedFirst,
	"r":   SeedRandom,
	"-ma": SeedLowerMedian,
	"+aa": SeedHigherAverage,
	"-aa": SeedLowerAverage,
	"=a":  SeedSimilarAverage,
	"-l":  SeedShorter,
	"+l":  SeedLonger,
	"-c":  SeedFewerArcs,
	"+c":  SeedMoreArcs,
}

var extendingMethodNames = map[string]ExtendingMethod{
	"f":   ExtendFirst,
	"r":   ExtendRandom,
	"=a":  ExtendSimilarAverage,
	"=ma": ExtendSimilarMedian,
	"-ma": ExtendLowerMedian,
	"-l":  ExtendShorter,
	"+l":  ExtendLonger,
	"-c":  ExtendFewerArcs,
	"+c":  ExtendMoreArcs,
}

// ParseSeedingMethod resolves a case-insensitive method name
func ParseSeedingMethod(name string) (SeedingMethod, error) {
	m, ok := seedingMethodNames[strings.ToLower(name)]
	if !ok {
		return SeedFirst, fmt.Errorf("%s is not a valid seeding method", name)
	}
	return m, nil
}

// ParseExtendingMethod resolves a case-insensitive method name
func ParseExtendingMethod(name string) (ExtendingMethod, error) {
	m, ok := extendingMethodNames[strings.ToLower(name)]
	if !ok {
		return ExtendFirst, fmt.Errorf("%s is not a valid extending method", name)
	}
	return m, nil
}

func (m SeedingMethod) String() string {
	for name, v := range seedingMethodNames {
		if v == m {
			return name
		}
	}
	return "?"
}

func (m ExtendingMethod) String() string {
	for name, v := range extendingMethodNames {
		if v == m {
			return name
		}
	}
	return "?"
}

// Sorter picks seeds and extensions for the SPSS according to its
// configured methods. It is a pure function of the graph, the mask and,
// for the `=*` methods, the last selected node. The RNG behind the `r`
// methods is seeded explicitly so runs are reproducible.
type Sorter struct {
	dbg       *DBG
	seeding   SeedingMethod
	extending ExtendingMethod
	rng       *rand.Rand
	debug     bool

	cursor     uint32 // first possibly-unmasked node, for SeedFirst
	hasLast    bool
	lastAvg    float64
	lastMedian uint32
}

// NewSorter is the constructor for Sorter
func NewSorter(dbg *DBG, seeding SeedingMethod, extending ExtendingMethod, seed int64, debug bool) *Sorter {
	return &Sorter{
		dbg:       dbg,
		seeding:   seeding,
		extending: extending,
		rng:       rand.New(rand.NewSource(seed)),
		debug:     debug,
	}
}

// selectNode remembers the last selected node for the `=*` methods
func (r *Sorter) selectNode(node uint32) {
	n := r.dbg.GetNode(node)
	r.lastAvg = n.AverageAbundance
	r.lastMedian = n.MedianAbundance
	r.hasLast = true
}

// PickSeed selects an unmasked node to start a new path from, always on
// the "+" strand. ok is false once every node is masked.
func (r *Sorter) PickSeed(mask *BitVec) (node uint32, forward bool, ok bool) {
	n := uint32(r.dbg.NNodes())

	// advance the shared cursor past the masked prefix
	for r.cursor < n && mask.Get(r.cursor) {
		r.cursor++
	}
	if r.cursor >= n {
		return 0, true, false
	}

	method := r.seeding
	if method == SeedSimilarAverage && !r.hasLast {
		method = SeedFirst
	}

	best := r.cursor
	switch method {
	case SeedFirst:
		// best already points at the first unmasked node
	case SeedRandom:
		candidates := []uint32{}
		for i := r.cursor; i < n; i++ {
			if !mask.Get(i) {
				candidates = append(candidates, i)
			}
		}
		best = candidates[r.rng.Intn(len(candidates))]
	default:
		for i := r.cursor + 1; i < n; i++ {
			if !mask.Get(i) && r.betterSeed(i, best) {
				best = i
			}
		}
	}

	r.selectNode(best)
	return best, true, true
}

// betterSeed reports whether candidate a strictly beats the current best
// under the seeding method; scanning in index order keeps ties on the
// smaller index
func (r *Sorter) betterSeed(a, b uint32) bool {
	na, nb := r.dbg.GetNode(a), r.dbg.GetNode(b)
	switch r.seeding {
	case SeedLowerMedian:
		return na.MedianAbundance < nb.MedianAbundance
	case SeedHigherAverage:
		return na.AverageAbundance > nb.AverageAbundance
	case SeedLowerAverage:
		return na.AverageAbundance < nb.AverageAbundance
	case SeedSimilarAverage:
		return math.Abs(na.AverageAbundance-r.lastAvg) < math.Abs(nb.AverageAbundance-r.lastAvg)
	case SeedShorter:
		return na.Length < nb.Length
	case SeedLonger:
		return na.Length > nb.Length
	case SeedFewerArcs:
		return len(na.Arcs) < len(nb.Arcs)
	case SeedMoreArcs:
		return len(na.Arcs) > len(nb.Arcs)
	}
	return false
}

// PickExtension selects one of the candidate next steps produced by
// GetConsistentNodesFrom. The reference node for the `=*` methods is the
// current path tail. ok is false when there are no candidates.
func (r *Sorter) PickExtension(tail uint32, toNodes []uint32, toForwards []bool) (idx int, ok bool) {
	if len(toNodes) == 0 {
		return 0, false
	}
	ref := r.dbg.GetNode(tail)

	best := 0
	switch r.extending {
	case ExtendFirst:
		// first candidate in arc order
	case ExtendRandom:
		best = r.rng.Intn(len(toNodes))
	default:
		for i := 1; i < len(toNodes); i++ {
			if r.betterExtension(toNodes[i], toNodes[best], ref) {
				best = i
			}
		}
	}

	r.selectNode(toNodes[best])
	return best, true
}

// betterExtension reports whether candidate a strictly beats b under the
// extending method, breaking exact ties on the smaller node index
func (r *Sorter) betterExtension(a, b uint32, ref *Node) bool {
	na, nb := r.dbg.GetNode(a), r.dbg.GetNode(b)
	var ka, kb float64
	switch r.extending {
	case ExtendSimilarAverage:
		ka = math.Abs(na.AverageAbundance - ref.AverageAbundance)
		kb = math.Abs(nb.AverageAbundance - ref.AverageAbundance)
	case ExtendSimilarMedian:
		ka = float64(absDiff(na.MedianAbundance, ref.MedianAbundance))
		kb = float64(absDiff(nb.MedianAbundance, ref.MedianAbundance))
	case ExtendLowerMedian:
		ka = float64(na.MedianAbundance)
		kb = float64(nb.MedianAbundance)
	case ExtendShorter:
		ka = float64(na.Length)
		kb = float64(nb.Length)
	case ExtendLonger:
		ka = -float64(na.Length)
		kb = -float64(nb.Length)
	case ExtendFewerArcs:
		ka = float64(len(na.Arcs))
		kb = float64(len(nb.Arcs))
	case ExtendMoreArcs:
		ka = -float64(len(na.Arcs))
		kb = -float64(len(nb.Arcs))
	default:
		return false
	}
	if ka != kb {
		return ka < kb
	}
	return a < b
}
