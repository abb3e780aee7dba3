/*
 *  base_test.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar_test

import (
	"testing"

	"github.com/ustarbio/ustar"
)

func TestRevComp(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"A", "T"},
		{"GATC", "GATC"},
		{"ACGTA", "TACGT"},
		{"acgta", "TACGT"},
		{"CCGTA", "TACGG"},
	}
	for _, c := range cases {
		if got := ustar.RevComp(c.in); got != c.want {
			t.Errorf("RevComp(%q)=%q; want %q", c.in, got, c.want)
		}
	}
}

func TestRevCompInvolution(t *testing.T) {
	for _, s := range []string{"A", "AC", "GATTACA", "CCGTAACGT"} {
		if got := ustar.RevComp(ustar.RevComp(s)); got != s {
			t.Errorf("RevComp(RevComp(%q))=%q; want %q", s, got, s)
		}
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		in   []uint32
		want uint32
	}{
		{[]uint32{5}, 5},
		{[]uint32{3, 1, 2}, 2},
		{[]uint32{1, 5, 5}, 5},
		// even length: the lower central value
		{[]uint32{4, 1, 3, 2}, 2},
		{[]uint32{10, 20}, 10},
	}
	for _, c := range cases {
		if got := ustar.Median(c.in); got != c.want {
			t.Errorf("Median(%v)=%d; want %d", c.in, got, c.want)
		}
	}
}

func TestReverse(t *testing.T) {
	s := []uint32{1, 2, 3, 4}
	ustar.Reverse(s)
	want := []uint32{4, 3, 2, 1}
	for i := range s {
		if s[i] != want[i] {
			t.Fatalf("Reverse()=%v; want %v", s, want)
		}
	}
	ustar.Reverse(s)
	if s[0] != 1 || s[3] != 4 {
		t.Fatalf("double Reverse did not restore the slice: %v", s)
	}
}
