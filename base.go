/*
 *  base.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"fmt"
	"os"
	"sort"

	logging "github.com/op/go-logging"
)

const (
	// Version is the current version of USTAR
	Version = "0.2.4"
	// DefaultKmerSize is the kmer size used by BCALM2 unless told otherwise
	DefaultKmerSize = 31
	// DefaultSeed feeds the RNG behind the `r` seeding/extending methods
	DefaultSeed = 42
)

var log = logging.MustGetLogger("ustar")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// RevComp returns the reverse complement of a nucleotide string, always in
// uppercase. Anything outside ACGT (case-insensitive) is fatal.
func RevComp(s string) string {
	rc := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		var c byte
		switch s[i] {
		case 'A', 'a':
			c = 'T'
		case 'C', 'c':
			c = 'G'
		case 'G', 'g':
			c = 'C'
		case 'T', 't':
			c = 'A'
		default:
			log.Fatalf("RevComp: unknown nucleotide '%c'", s[i])
		}
		rc[len(s)-1-i] = c
	}
	return string(rc)
}

// Median gets the median of a non-empty multiset of counts. For an even
// number of values the lower of the two central values is returned.
func Median(xs []uint32) uint32 {
	if len(xs) == 0 {
		log.Fatal("Median: empty slice")
	}
	numbers := make([]uint32, len(xs))
	copy(numbers, xs)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers[(len(numbers)-1)/2]
}

// Reverse reverses a slice of counts in place
func Reverse(s []uint32) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// mean gets the average of a count vector
func mean(xs []uint32) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := uint64(0)
	for _, x := range xs {
		sum += uint64(x)
	}
	return float64(sum) / float64(len(xs))
}

// absDiff gets the distance between two counts
func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
