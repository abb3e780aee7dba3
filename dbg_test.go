/*
 *  dbg_test.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar_test

import (
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/ustarbio/ustar"
)

func mustDBG(t *testing.T, file string, k int) *ustar.DBG {
	t.Helper()
	dbg, err := ustar.NewDBG(file, k, false)
	if err != nil {
		t.Fatalf("NewDBG(%s): %v", file, err)
	}
	return dbg
}

func TestParseStandardDialect(t *testing.T) {
	dbg := mustDBG(t, path.Join("tests", "simple.unitigs.fa"), 3)

	if dbg.NNodes() != 2 {
		t.Fatalf("expected 2 nodes, got %d", dbg.NNodes())
	}
	if dbg.NKmers() != 5 {
		t.Errorf("expected 5 kmers, got %d", dbg.NKmers())
	}

	node := dbg.GetNode(0)
	if node.Unitig != "ACGTA" || node.Length != 5 {
		t.Errorf("node 0 = %q (len %d); want ACGTA (len 5)", node.Unitig, node.Length)
	}
	wantAb := []uint32{2, 2, 1}
	for i, ab := range node.Abundances {
		if ab != wantAb[i] {
			t.Errorf("node 0 abundances = %v; want %v", node.Abundances, wantAb)
			break
		}
	}
	if node.MedianAbundance != 2 {
		t.Errorf("node 0 median = %d; want 2", node.MedianAbundance)
	}
	if len(node.Arcs) != 1 {
		t.Fatalf("node 0 has %d arcs; want 1", len(node.Arcs))
	}
	arc := node.Arcs[0]
	if !arc.Forward || arc.Successor != 1 || !arc.ToForward {
		t.Errorf("node 0 arc = %+v; want L:+:1:+", arc)
	}
}

func TestParseAlternativeDialect(t *testing.T) {
	dbg := mustDBG(t, path.Join("tests", "logan.unitigs.fa"), 3)

	if dbg.NNodes() != 2 {
		t.Fatalf("expected 2 nodes, got %d", dbg.NNodes())
	}

	node := dbg.GetNode(0)
	if node.Length != 7 {
		t.Errorf("node 0 length = %d; want 7", node.Length)
	}
	if len(node.Abundances) != 5 {
		t.Fatalf("node 0 has %d abundances; want 5", len(node.Abundances))
	}
	for _, ab := range node.Abundances {
		if ab != 5 {
			t.Errorf("node 0 abundances = %v; want all 5", node.Abundances)
			break
		}
	}
	if node.AverageAbundance != 5.0 {
		t.Errorf("node 0 average = %f; want 5.0", node.AverageAbundance)
	}

	// 2.5 is floored when the per-kmer vector is synthesized
	node = dbg.GetNode(1)
	if len(node.Abundances) != 3 {
		t.Fatalf("node 1 has %d abundances; want 3", len(node.Abundances))
	}
	for _, ab := range node.Abundances {
		if ab != 2 {
			t.Errorf("node 1 abundances = %v; want all 2", node.Abundances)
			break
		}
	}
	if node.AverageAbundance != 2.5 {
		t.Errorf("node 1 average = %f; want 2.5", node.AverageAbundance)
	}
}

func TestVerifyOverlaps(t *testing.T) {
	for _, file := range []string{"simple.unitigs.fa", "revcomp.unitigs.fa", "isolated.unitigs.fa"} {
		dbg := mustDBG(t, path.Join("tests", file), 3)
		if !dbg.VerifyOverlaps() {
			t.Errorf("%s: expected an overlapping graph", file)
		}
	}
}

func TestNeighborQueries(t *testing.T) {
	dbg := mustDBG(t, path.Join("tests", "simple.unitigs.fa"), 3)
	mask := ustar.NewBitVec(dbg.NNodes())

	toNodes, toForwards := dbg.GetConsistentNodesFrom(0, true, mask)
	if len(toNodes) != 1 || toNodes[0] != 1 || !toForwards[0] {
		t.Errorf("consistent neighbors of (0,+) = %v %v; want [1] [true]", toNodes, toForwards)
	}

	// nothing leaves the "-" side of node 0
	toNodes, _ = dbg.GetConsistentNodesFrom(0, false, mask)
	if len(toNodes) != 0 {
		t.Errorf("consistent neighbors of (0,-) = %v; want none", toNodes)
	}

	// masked targets disappear
	mask.Set(1)
	toNodes, _ = dbg.GetConsistentNodesFrom(0, true, mask)
	if len(toNodes) != 0 {
		t.Errorf("consistent neighbors with 1 masked = %v; want none", toNodes)
	}
}

func TestSpellAndCounts(t *testing.T) {
	dbg := mustDBG(t, path.Join("tests", "simple.unitigs.fa"), 3)

	spelling := dbg.Spell([]uint32{0, 1}, []bool{true, true})
	if spelling != "ACGTACC" {
		t.Errorf("Spell = %q; want ACGTACC", spelling)
	}

	counts := dbg.GetCounts([]uint32{0, 1}, []bool{true, true})
	want := []uint32{2, 2, 1, 1, 3}
	if len(counts) != len(want) {
		t.Fatalf("GetCounts = %v; want %v", counts, want)
	}
	for i := range counts {
		if counts[i] != want[i] {
			t.Fatalf("GetCounts = %v; want %v", counts, want)
		}
	}

	if !dbg.CheckPathConsistency([]uint32{0, 1}, []bool{true, true}) {
		t.Error("expected path (0,+)(1,+) to be consistent")
	}
	if dbg.CheckPathConsistency([]uint32{1, 0}, []bool{true, true}) {
		t.Error("expected path (1,+)(0,+) to be inconsistent")
	}
}

func TestRoundTripSerialization(t *testing.T) {
	dbg := mustDBG(t, path.Join("tests", "simple.unitigs.fa"), 3)

	out := filepath.Join(t.TempDir(), "roundtrip.unitigs.fa")
	if err := dbg.ToBcalmFile(out); err != nil {
		t.Fatalf("ToBcalmFile: %v", err)
	}

	again := mustDBG(t, out, 3)
	if again.NNodes() != dbg.NNodes() || again.NKmers() != dbg.NKmers() || again.NArcs() != dbg.NArcs() {
		t.Errorf("round-trip changed the graph: %d/%d/%d vs %d/%d/%d",
			again.NNodes(), again.NKmers(), again.NArcs(),
			dbg.NNodes(), dbg.NKmers(), dbg.NArcs())
	}
	if again.GetNode(0).Unitig != dbg.GetNode(0).Unitig {
		t.Errorf("round-trip changed node 0: %q", again.GetNode(0).Unitig)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no def-line", "ACGTA\n"},
		{"unknown dialect", ">0 XX:i:5\nACGTA\n"},
		{"non-progressive serial", ">1 LN:i:5 ab:Z:2 2 1\nACGTA\n"},
		{"missing sequence", ">0 LN:i:5 ab:Z:2 2 1\n"},
		{"bad nucleotide", ">0 LN:i:5 ab:Z:2 2 1\nACGTN\n"},
		{"wrong abundance count", ">0 LN:i:5 ab:Z:2 2\nACGTA\n"},
		{"length mismatch", ">0 LN:i:6 ab:Z:2 2 1\nACGTA\n"},
		{"bad arc token", ">0 LN:i:5 ab:Z:2 2 1 L:+:x:+\nACGTA\n"},
		{"ambiguous dialect", ">0 LN:i:5 ab:Z:2 2 1 ka:f:2.0\nACGTA\n"},
	}
	dir := t.TempDir()
	for _, c := range cases {
		file := filepath.Join(dir, "bad.unitigs.fa")
		if err := os.WriteFile(file, []byte(c.content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ustar.NewDBG(file, 3, false); err == nil {
			t.Errorf("%s: expected a parse error", c.name)
		}
	}
}
