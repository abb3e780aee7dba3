/*
 *  run.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shenwei356/xopen"
)

// bcalmExt is the extension BCALM2 gives its unitig files
const bcalmExt = ".unitigs.fa"

// Params collects everything the driver needs for one invocation
type Params struct {
	InputFile  string
	FastaFile  string
	CountsFile string

	K         int
	Seeding   SeedingMethod
	Extending ExtendingMethod
	Encoding  Encoding
	Seed      int64

	Debug      bool
	BatchMode  bool
	SkipCounts bool
	Npy        bool
}

// baseName strips the directory and the BCALM extension from an input path
func baseName(input string) string {
	return strings.TrimSuffix(filepath.Base(input), bcalmExt)
}

// outputNames derives the two output paths for an input file
func outputNames(input, prefix string, encoding Encoding) (fasta, counts string) {
	base := prefix + baseName(input)
	return base + ".ustar.fa", base + ".ustar" + encoding.Suffix() + ".counts"
}

// Run executes one invocation: a single input file, or a list of them in
// batch mode. Batch failures are isolated per file.
func Run(params Params) error {
	if params.BatchMode {
		return runBatch(params)
	}

	fasta, counts := params.FastaFile, params.CountsFile
	if fasta == "" || counts == "" {
		derivedFasta, derivedCounts := outputNames(params.InputFile, "", params.Encoding)
		if fasta == "" {
			fasta = derivedFasta
		}
		if counts == "" {
			counts = derivedCounts
		}
	}
	return processFile(params.InputFile, params, fasta, counts)
}

// runBatch treats the input as a list of unitig files, one per line.
// The fasta flag, when given, becomes an output directory prefix.
func runBatch(params Params) error {
	log.Noticef("Batch mode: reading file list from `%s`", params.InputFile)

	fh, err := xopen.Ropen(params.InputFile)
	if err != nil {
		return fmt.Errorf("cannot open file list %s: %v", params.InputFile, err)
	}
	defer fh.Close()

	prefix := params.FastaFile
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	nFiles, nSuccess := 0, 0
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		nFiles++
		if _, err := os.Stat(input); err != nil {
			log.Warningf("File not found, skipping: %s", input)
			continue
		}
		fasta, counts := outputNames(input, prefix, params.Encoding)
		if err := processFile(input, params, fasta, counts); err != nil {
			log.Errorf("Error processing %s: %v", input, err)
			continue
		}
		nSuccess++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading file list %s: %v", params.InputFile, err)
	}
	log.Noticef("Batch done: %d/%d files processed", nSuccess, nFiles)
	return nil
}

// processFile runs the full pipeline on one unitigs file. Output
// directories are created up front; the output files are opened only after
// the SPSS is built, so a parse failure leaves no output file behind.
func processFile(input string, params Params, fastaOut, countsOut string) error {
	log.Noticef("Processing `%s`", input)

	if dir := filepath.Dir(fastaOut); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory %s: %v", dir, err)
		}
	}
	if !params.SkipCounts {
		if dir := filepath.Dir(countsOut); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("cannot create output directory %s: %v", dir, err)
			}
		}
	}

	start := time.Now()
	dbg, err := NewDBG(input, params.K, params.Debug)
	if err != nil {
		return err
	}
	log.Noticef("Reading time: %s", time.Since(start))
	dbg.PrintStat()

	// the input checks are diagnostic only: report and carry on
	if params.Debug && !dbg.VerifyInput() {
		log.Errorf("Input checks failed for `%s`, continuing", input)
	}

	sorter := NewSorter(dbg, params.Seeding, params.Extending, params.Seed, params.Debug)
	spss := NewSPSS(dbg, sorter, params.Debug)

	start = time.Now()
	spss.ComputePathCover()
	log.Noticef("Computing time: %s", time.Since(start))

	spss.ExtractSimplitigsAndCounts()
	spss.PrintStats()

	encoder := NewEncoder(spss.Simplitigs(), spss.Counts(), params.Debug)
	encoder.Encode(params.Encoding)
	encoder.PrintStat()

	if err := encoder.ToFastaFile(fastaOut); err != nil {
		return err
	}
	if params.SkipCounts {
		log.Noticef("Skipping counts file")
		return nil
	}
	if err := encoder.ToCountsFile(countsOut); err != nil {
		return err
	}
	if params.Npy {
		if err := encoder.ToNpyFile(countsOut + ".npy"); err != nil {
			return err
		}
	}
	return nil
}
