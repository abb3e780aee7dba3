/*
 *  ustar.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootOpts struct {
	input      string
	fasta      string
	counts     string
	debug      bool
	batch      bool
	skipCounts bool
	npy        bool
}

var rootCmd = &cobra.Command{
	Use:     "ustar",
	Short:   "Find a spectrum preserving string set (simplitigs) with aligned kmer counts",
	Version: Version,
	Long: `USTAR (Unitig STitch Advanced constRuction) reads the compacted de Bruijn
graph produced by BCALM2, computes a path cover of the bidirected unitig
graph and writes the resulting simplitigs together with the kmer counts
vector, optionally run-length encoded.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&rootOpts.input, "input", "i", "", "input unitigs file from BCALM2, or a list of files in batch mode")
	flags.StringVarP(&rootOpts.fasta, "output", "o", "", "fasta file name (batch mode: output directory prefix)")
	flags.StringVarP(&rootOpts.counts, "counts", "c", "", "counts file name")
	flags.IntP("kmer-size", "k", DefaultKmerSize, "kmer size, must be the same as BCALM2")
	flags.StringP("seeding", "s", "f", "seeding method: f, r, -ma, +aa, -aa, =a, -l, +l, -c, +c")
	flags.StringP("extending", "x", "f", "extending method: f, r, =a, =ma, -ma, -l, +l, -c, +c")
	flags.StringP("encoding", "e", "plain", "counts encoding: plain, rle, avg_rle, flip_rle, avg_flip_rle")
	flags.Int64("seed", DefaultSeed, "seed for the random seeding/extending methods")
	flags.BoolVarP(&rootOpts.debug, "debug", "d", false, "verify overlaps and round-trip the input")
	flags.BoolVarP(&rootOpts.batch, "batch", "b", false, "process the input as a list of files, one per line")
	flags.BoolVarP(&rootOpts.skipCounts, "skip-counts", "n", false, "do not write the counts file")
	flags.BoolVar(&rootOpts.npy, "npy", false, "also dump the plain counts as a uint32 .npy array")

	for _, name := range []string{"kmer-size", "seeding", "extending", "encoding", "seed"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig lets a .ustar.yaml in the working directory or the home
// directory override the built-in defaults; explicit flags win
func initConfig() {
	viper.SetConfigName(".ustar")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	if err := viper.ReadInConfig(); err == nil {
		log.Noticef("Using config file `%s`", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	initConfig()

	if rootOpts.input == "" {
		return fmt.Errorf("missing input file (-i)")
	}

	k := viper.GetInt("kmer-size")
	if k <= 0 {
		return fmt.Errorf("need a positive kmer size")
	}
	if k%2 == 0 {
		return fmt.Errorf("kmer size must be odd to avoid auto-loops in the DBG")
	}

	seeding, err := ParseSeedingMethod(viper.GetString("seeding"))
	if err != nil {
		return err
	}
	extending, err := ParseExtendingMethod(viper.GetString("extending"))
	if err != nil {
		return err
	}
	encoding, err := ParseEncoding(viper.GetString("encoding"))
	if err != nil {
		return err
	}

	batch := rootOpts.batch
	if !batch && !strings.HasSuffix(rootOpts.input, bcalmExt) {
		batch = true
		log.Noticef("Auto-detected batch mode: input does not end with %s", bcalmExt)
	}

	params := Params{
		InputFile:  rootOpts.input,
		FastaFile:  rootOpts.fasta,
		CountsFile: rootOpts.counts,
		K:          k,
		Seeding:    seeding,
		Extending:  extending,
		Encoding:   encoding,
		Seed:       viper.GetInt64("seed"),
		Debug:      rootOpts.debug,
		BatchMode:  batch,
		SkipCounts: rootOpts.skipCounts,
		Npy:        rootOpts.npy,
	}
	printParams(params)
	return Run(params)
}

// printParams echoes the effective configuration
func printParams(params Params) {
	log.Noticef("Params:")
	log.Noticef("   input file:         %s", params.InputFile)
	log.Noticef("   kmer size:          %d", params.K)
	log.Noticef("   fasta file name:    %s", params.FastaFile)
	log.Noticef("   counts file name:   %s", params.CountsFile)
	log.Noticef("   seeding method:     %s", params.Seeding)
	log.Noticef("   extending method:   %s", params.Extending)
	log.Noticef("   encoding:           %s", params.Encoding)
	log.Noticef("   debug:              %t", params.Debug)
	log.Noticef("   batch mode:         %t", params.BatchMode)
	log.Noticef("   skip counts:        %t", params.SkipCounts)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}
