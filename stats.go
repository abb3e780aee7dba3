/*
 *  stats.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"fmt"
	"io"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
)

var statsKmerSize int

var statsCmd = &cobra.Command{
	Use:   "stats <simplitigs.fa>",
	Short: "Report sequence and kmer statistics for a simplitig FASTA file",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsKmerSize, "kmer-size", "k", DefaultKmerSize, "kmer size the file was built with")
	rootCmd.AddCommand(statsCmd)
}

// runStats sweeps a FASTA file once and accumulates length and kmer totals
func runStats(cmd *cobra.Command, args []string) error {
	filename := args[0]
	reader, err := fastx.NewDefaultReader(filename)
	if err != nil {
		return fmt.Errorf("cannot read %s: %v", filename, err)
	}
	seq.ValidateSeq = false // makes parsing FASTA much faster

	nSeqs := 0
	totalLength := 0
	nKmers := 0
	minLength, maxLength := 0, 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %v", filename, err)
		}
		length := rec.Seq.Length()
		nSeqs++
		totalLength += length
		if length >= statsKmerSize {
			nKmers += length - statsKmerSize + 1
		}
		if nSeqs == 1 || length < minLength {
			minLength = length
		}
		if length > maxLength {
			maxLength = length
		}
	}
	if nSeqs == 0 {
		return fmt.Errorf("no sequences in %s", filename)
	}

	log.Noticef("Stats for `%s` (k=%d):", filename, statsKmerSize)
	log.Noticef("   number of sequences:   %d", nSeqs)
	log.Noticef("   cumulative length:     %d", totalLength)
	log.Noticef("   average length:        %.1f", float64(totalLength)/float64(nSeqs))
	log.Noticef("   min / max length:      %d / %d", minLength, maxLength)
	log.Noticef("   number of kmers:       %d", nKmers)
	return nil
}
