/*
 *  encoder_test.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar_test

import (
	"os"
	"path"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/ustarbio/ustar"
)

func readLines(t *testing.T, file string) []string {
	t.Helper()
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// expandRLE turns "value length" lines back into the plain stream
func expandRLE(t *testing.T, lines []string) []uint32 {
	t.Helper()
	var stream []uint32
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			t.Fatalf("bad RLE line %q", line)
		}
		value, err1 := strconv.ParseUint(fields[0], 10, 32)
		length, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			t.Fatalf("bad RLE line %q", line)
		}
		for i := 0; i < length; i++ {
			stream = append(stream, uint32(value))
		}
	}
	return stream
}

func countsFile(t *testing.T, encoder *ustar.Encoder) []string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "counts.txt")
	if err := encoder.ToCountsFile(out); err != nil {
		t.Fatal(err)
	}
	return readLines(t, out)
}

func TestPlainCounts(t *testing.T) {
	encoder := ustar.NewEncoder(
		[]string{"ACGTA", "GGGC"},
		[][]uint32{{2, 2, 1}, {7, 2}},
		false,
	)
	encoder.Encode(ustar.EncPlain)
	want := []string{"2", "2", "1", "7", "2"}
	if got := countsFile(t, encoder); !reflect.DeepEqual(got, want) {
		t.Errorf("plain counts = %v; want %v", got, want)
	}
}

func TestRLEAcrossBoundary(t *testing.T) {
	// the run of 7s spans the simplitig boundary
	encoder := ustar.NewEncoder(
		[]string{"AAAT", "GGGC"},
		[][]uint32{{7, 7}, {7, 2}},
		false,
	)
	encoder.Encode(ustar.EncRLE)
	want := []string{"7 3", "2 1"}
	if got := countsFile(t, encoder); !reflect.DeepEqual(got, want) {
		t.Errorf("rle counts = %v; want %v", got, want)
	}
}

func TestRLERoundTrip(t *testing.T) {
	counts := [][]uint32{{1, 1, 2, 2, 2}, {2, 3}, {3, 3, 1}}
	var plain []uint32
	for _, c := range counts {
		plain = append(plain, c...)
	}

	encoder := ustar.NewEncoder([]string{"AAAAAAA", "ACGT", "CCGTA"}, counts, false)
	encoder.Encode(ustar.EncRLE)
	expanded := expandRLE(t, countsFile(t, encoder))
	if !reflect.DeepEqual(expanded, plain) {
		t.Errorf("RLE round-trip = %v; want %v", expanded, plain)
	}
}

func TestSortByAverageStable(t *testing.T) {
	// two simplitigs share mean 5 and must keep their input order
	encoder := ustar.NewEncoder(
		[]string{"AAAT", "CCCT", "GGGT"},
		[][]uint32{{5, 5}, {1, 1}, {4, 6}},
		false,
	)
	encoder.Encode(ustar.EncAvgRLE)

	want := []string{"CCCT", "AAAT", "GGGT"}
	if got := encoder.Simplitigs(); !reflect.DeepEqual(got, want) {
		t.Errorf("avg sort order = %v; want %v", got, want)
	}
	wantCounts := [][]uint32{{1, 1}, {5, 5}, {4, 6}}
	if got := encoder.Counts(); !reflect.DeepEqual(got, wantCounts) {
		t.Errorf("avg sort counts = %v; want %v", got, wantCounts)
	}
}

func TestFlipHeuristic(t *testing.T) {
	// second simplitig starts with 2 but ends with the previous trailing 7:
	// flipping joins the runs
	encoder := ustar.NewEncoder(
		[]string{"AAAT", "GGGC"},
		[][]uint32{{7, 7}, {2, 7}},
		false,
	)
	encoder.Encode(ustar.EncFlipRLE)

	if got := encoder.Simplitigs()[1]; got != ustar.RevComp("GGGC") {
		t.Errorf("flipped simplitig = %q; want %q", got, ustar.RevComp("GGGC"))
	}
	want := []string{"7 3", "2 1"}
	if got := countsFile(t, encoder); !reflect.DeepEqual(got, want) {
		t.Errorf("flip_rle counts = %v; want %v", got, want)
	}
}

func TestFlipLeavesJoinedRunsAlone(t *testing.T) {
	// leading count already continues the run: no flip
	encoder := ustar.NewEncoder(
		[]string{"AAAT", "GGGC"},
		[][]uint32{{7, 7}, {7, 2}},
		false,
	)
	encoder.Encode(ustar.EncFlipRLE)
	if got := encoder.Simplitigs()[1]; got != "GGGC" {
		t.Errorf("simplitig was flipped needlessly: %q", got)
	}
}

func TestFlipIdempotence(t *testing.T) {
	simplitig := "ACGTACC"
	counts := []uint32{2, 2, 1, 1, 3}

	flippedS := ustar.RevComp(simplitig)
	flippedC := make([]uint32, len(counts))
	copy(flippedC, counts)
	ustar.Reverse(flippedC)

	if got := ustar.RevComp(flippedS); got != simplitig {
		t.Errorf("double flip spelling = %q; want %q", got, simplitig)
	}
	ustar.Reverse(flippedC)
	if !reflect.DeepEqual(flippedC, counts) {
		t.Errorf("double flip counts = %v; want %v", flippedC, counts)
	}
}

func TestFastaOutput(t *testing.T) {
	encoder := ustar.NewEncoder(
		[]string{"ACGTACC", "GATTA"},
		[][]uint32{{2, 2, 1, 1, 3}, {7, 7, 7}},
		false,
	)
	encoder.Encode(ustar.EncPlain)

	out := filepath.Join(t.TempDir(), "simplitigs.fa")
	if err := encoder.ToFastaFile(out); err != nil {
		t.Fatal(err)
	}
	want := []string{">0", "ACGTACC", ">1", "GATTA"}
	if got := readLines(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("fasta = %v; want %v", got, want)
	}
}

func TestEndToEndRLEBoundary(t *testing.T) {
	// two disconnected unitigs whose counts meet at 7
	_, spss := buildSPSS(t, path.Join("tests", "boundary.unitigs.fa"), ustar.SeedFirst, ustar.ExtendFirst)
	encoder := ustar.NewEncoder(spss.Simplitigs(), spss.Counts(), false)
	encoder.Encode(ustar.EncRLE)
	want := []string{"7 3", "2 1"}
	if got := countsFile(t, encoder); !reflect.DeepEqual(got, want) {
		t.Errorf("boundary rle = %v; want %v", got, want)
	}
}

func TestParseEncodingNames(t *testing.T) {
	for name, want := range map[string]ustar.Encoding{
		"plain": ustar.EncPlain, "RLE": ustar.EncRLE, "avg_rle": ustar.EncAvgRLE,
		"flip_rle": ustar.EncFlipRLE, "avg_flip_rle": ustar.EncAvgFlipRLE,
	} {
		got, err := ustar.ParseEncoding(name)
		if err != nil || got != want {
			t.Errorf("ParseEncoding(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ustar.ParseEncoding("zip"); err == nil {
		t.Error("expected an error for an unknown encoding")
	}
}
