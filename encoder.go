/*
 *  encoder.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kshedden/gonpy"
	"github.com/shenwei356/xopen"
)

// Encoding selects how the counts stream is written out
type Encoding int

const (
	// EncPlain writes one count per line
	EncPlain Encoding = iota
	// EncRLE writes (value, run length) pairs over the global stream
	EncRLE
	// EncAvgRLE sorts simplitigs by average count before RLE
	EncAvgRLE
	// EncFlipRLE flips simplitigs to join runs across boundaries before RLE
	EncFlipRLE
	// EncAvgFlipRLE sorts by average, then flips, then RLE
	EncAvgFlipRLE
)

var encodingNames = map[string]Encoding{
	"plain":        EncPlain,
	"rle":          EncRLE,
	"avg_rle":      EncAvgRLE,
	"flip_rle":     EncFlipRLE,
	"avg_flip_rle": EncAvgFlipRLE,
}

var encodingSuffixes = map[Encoding]string{
	EncPlain:      "",
	EncRLE:        ".rle",
	EncAvgRLE:     ".avg_rle",
	EncFlipRLE:    ".flip_rle",
	EncAvgFlipRLE: ".avg_flip_rle",
}

// ParseEncoding resolves a case-insensitive encoding name
func ParseEncoding(name string) (Encoding, error) {
	e, ok := encodingNames[strings.ToLower(name)]
	if !ok {
		return EncPlain, fmt.Errorf("%s is not a valid encoding", name)
	}
	return e, nil
}

func (e Encoding) String() string {
	for name, v := range encodingNames {
		if v == e {
			return name
		}
	}
	return "?"
}

// Suffix returns the counts-file suffix of the encoding
func (e Encoding) Suffix() string {
	return encodingSuffixes[e]
}

// run is one maximal stretch of equal counts in the global stream
type run struct {
	value  uint32
	length int
}

// Encoder reorders and flips simplitigs according to the configured
// encoding and writes the FASTA and counts outputs. Flipping a simplitig
// replaces it with its reverse complement and reverses its count vector,
// which preserves the kmer multiset up to reverse complement.
type Encoder struct {
	simplitigs []string
	counts     [][]uint32
	debug      bool

	encoding Encoding
	nFlipped int
}

// NewEncoder is the constructor for Encoder
func NewEncoder(simplitigs []string, counts [][]uint32, debug bool) *Encoder {
	return &Encoder{simplitigs: simplitigs, counts: counts, debug: debug}
}

// Encode applies the reorder/flip steps of the selected encoding
func (r *Encoder) Encode(encoding Encoding) {
	r.encoding = encoding
	switch encoding {
	case EncAvgRLE:
		r.sortByAverage()
	case EncFlipRLE:
		r.flipToJoinRuns()
	case EncAvgFlipRLE:
		r.sortByAverage()
		r.flipToJoinRuns()
	}
}

// sortByAverage stably sorts simplitigs and their counts by the mean of
// the count vector, ascending; ties keep their traversal order
func (r *Encoder) sortByAverage() {
	n := len(r.simplitigs)
	means := make([]float64, n)
	order := make([]int, n)
	for i := range order {
		order[i] = i
		means[i] = mean(r.counts[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return means[order[a]] < means[order[b]]
	})

	simplitigs := make([]string, n)
	counts := make([][]uint32, n)
	for i, j := range order {
		simplitigs[i] = r.simplitigs[j]
		counts[i] = r.counts[j]
	}
	r.simplitigs = simplitigs
	r.counts = counts
}

// flipToJoinRuns walks the simplitigs in order and flips one whenever its
// trailing count, but not its leading count, matches the current trailing
// value of the stream. A flip then extends the previous run, so the total
// number of runs never grows.
func (r *Encoder) flipToJoinRuns() {
	for i := 1; i < len(r.counts); i++ {
		prev := r.counts[i-1]
		last := prev[len(prev)-1]
		c := r.counts[i]
		if c[0] != last && c[len(c)-1] == last {
			r.simplitigs[i] = RevComp(r.simplitigs[i])
			Reverse(c)
			r.nFlipped++
		}
	}
}

// runs computes the run-length pairs of the global counts stream,
// crossing simplitig boundaries
func (r *Encoder) runs() []run {
	var runs []run
	for _, counts := range r.counts {
		for _, c := range counts {
			if len(runs) > 0 && runs[len(runs)-1].value == c {
				runs[len(runs)-1].length++
			} else {
				runs = append(runs, run{value: c, length: 1})
			}
		}
	}
	return runs
}

// nCounts is the total number of kmer counts across all simplitigs
func (r *Encoder) nCounts() int {
	n := 0
	for _, counts := range r.counts {
		n += len(counts)
	}
	return n
}

// PrintStat reports what the encoding achieved
func (r *Encoder) PrintStat() {
	log.Noticef("Encoder stats:")
	log.Noticef("   encoding:                   %s", r.encoding)
	log.Noticef("   number of counts:           %d", r.nCounts())
	if r.encoding != EncPlain {
		nRuns := len(r.runs())
		log.Noticef("   number of runs:             %d", nRuns)
		if nRuns > 0 {
			log.Noticef("   counts per run:             %.2f", float64(r.nCounts())/float64(nRuns))
		}
	}
	if r.encoding == EncFlipRLE || r.encoding == EncAvgFlipRLE {
		log.Noticef("   flipped simplitigs:         %s", Percentage(r.nFlipped, len(r.simplitigs)))
	}
}

// ToFastaFile writes the simplitigs, headed by their ordinal
func (r *Encoder) ToFastaFile(filename string) error {
	fh, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("cannot write fasta output %s: %v", filename, err)
	}
	defer fh.Close()

	for i, simplitig := range r.simplitigs {
		fmt.Fprintf(fh, ">%d\n%s\n", i, simplitig)
	}
	log.Noticef("Simplitigs written to `%s`", filename)
	return nil
}

// ToCountsFile writes the counts stream, plain or as RLE pairs
func (r *Encoder) ToCountsFile(filename string) error {
	fh, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("cannot write counts output %s: %v", filename, err)
	}
	defer fh.Close()

	if r.encoding == EncPlain {
		for _, counts := range r.counts {
			for _, c := range counts {
				fmt.Fprintf(fh, "%d\n", c)
			}
		}
	} else {
		for _, run := range r.runs() {
			fmt.Fprintf(fh, "%d %d\n", run.value, run.length)
		}
	}
	log.Noticef("Counts written to `%s`", filename)
	return nil
}

// ToNpyFile dumps the expanded counts stream as a uint32 NumPy array
func (r *Encoder) ToNpyFile(filename string) error {
	flat := make([]uint32, 0, r.nCounts())
	for _, counts := range r.counts {
		flat = append(flat, counts...)
	}
	w, err := gonpy.NewFileWriter(filename)
	if err != nil {
		return fmt.Errorf("cannot write npy output %s: %v", filename, err)
	}
	if err := w.WriteUint32(flat); err != nil {
		return fmt.Errorf("cannot write npy output %s: %v", filename, err)
	}
	log.Noticef("Counts matrix written to `%s`", filename)
	return nil
}

// Simplitigs returns the simplitigs in emission order
func (r *Encoder) Simplitigs() []string {
	return r.simplitigs
}

// Counts returns the count vectors in emission order
func (r *Encoder) Counts() [][]uint32 {
	return r.counts
}
