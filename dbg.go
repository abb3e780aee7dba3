/*
 *  dbg.go
 *  ustar
 *
 *  Created by Enrico Rossignolo on 20/12/22.
 */

package ustar

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
)

// Arc is an outgoing edge of the bidirected unitig graph. Forward is the
// strand of the source node the arc leaves from, ToForward the strand it
// enters the successor on.
type Arc struct {
	Forward   bool
	Successor uint32
	ToForward bool
}

// Node is a unitig together with its per-kmer abundances and outgoing arcs.
// Nodes are immutable once parsed.
type Node struct {
	Unitig           string
	Length           int
	Abundances       []uint32
	Arcs             []Arc
	AverageAbundance float64
	MedianAbundance  uint32
}

// DBG is a compacted de Bruijn graph as emitted by BCALM2: a dense vector
// of unitig nodes whose arcs overlap by k-1 characters.
//
// Two header dialects are supported and auto-detected per record:
//
//	>25 LN:i:32 ab:Z:14 12 ...  L:-:23:+ L:+:22:-     (standard BCALM2)
//	>SRR11905265_0 ka:f:1.0  L:-:27885434:-           (Logan/Cuttlefish2)
//
// The alternative dialect carries only the average kmer abundance; the
// per-kmer vector is synthesized by replicating its integer part.
type DBG struct {
	Bcalmfile string
	K         int
	Debug     bool

	nodes        []Node
	nArcs        int
	nKmers       int
	nIsolated    int
	avgUnitigLen float64
	avgAbundance float64
}

// defLine holds a parsed header before the sequence line is available
type defLine struct {
	serial     int
	length     int // -1 when the dialect does not carry LN:i:
	abundances []uint32
	avg        float64
	median     uint32
	arcs       []Arc
	alt        bool
}

// NewDBG parses a BCALM2 unitigs file and computes the aggregate stats
func NewDBG(bcalmfile string, k int, debug bool) (*DBG, error) {
	r := &DBG{Bcalmfile: bcalmfile, K: k, Debug: debug}
	if err := r.parseBcalmFile(); err != nil {
		return nil, err
	}

	sumUnitigLength := 0
	sumAbundances := 0.0
	for i := range r.nodes {
		node := &r.nodes[i]
		r.nArcs += len(node.Arcs)
		r.nKmers += len(node.Abundances)
		sumUnitigLength += node.Length
		sumAbundances += node.AverageAbundance * float64(len(node.Abundances))
		if len(node.Arcs) == 0 {
			r.nIsolated++
		}
	}
	if len(r.nodes) > 0 {
		r.avgUnitigLen = float64(sumUnitigLength) / float64(len(r.nodes))
	}
	if r.nKmers > 0 {
		r.avgAbundance = sumAbundances / float64(r.nKmers)
	}
	return r, nil
}

// estimateNNodes guesses the node count from the file size, assuming the
// minimum BCALM2 entry
//
//	>0 LN:i:31 ab:Z:2
//	AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA
func (r *DBG) estimateNNodes() int {
	minimumEntrySize := int64(18 + r.K + 2)
	info, err := os.Stat(r.Bcalmfile)
	if err != nil {
		return 0
	}
	return int(info.Size() / minimumEntrySize)
}

// parseBcalmFile reads the unitigs file two lines at a time
func (r *DBG) parseBcalmFile() error {
	fh, err := xopen.Ropen(r.Bcalmfile)
	if err != nil {
		return fmt.Errorf("cannot access file %s: %v", r.Bcalmfile, err)
	}
	defer fh.Close()

	r.nodes = make([]Node, 0, r.estimateNNodes())
	if r.Debug {
		log.Noticef("Estimated number of unitigs: %d", r.estimateNNodes())
	}

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 1024*1024), 512*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		// escape comments and blank lines between records
		if line == "" || line[0] == '#' {
			continue
		}

		def, err := r.parseDefLine(line)
		if err != nil {
			return err
		}

		// must have progressive IDs
		if def.serial != len(r.nodes) {
			return fmt.Errorf("%s: lines must have progressive IDs (got %d, want %d)",
				r.Bcalmfile, def.serial, len(r.nodes))
		}

		seq := ""
		for scanner.Scan() {
			seq = strings.TrimRight(scanner.Text(), "\r")
			if seq != "" {
				break
			}
		}
		if seq == "" {
			return fmt.Errorf("%s: expected a sequence after node %d", r.Bcalmfile, def.serial)
		}
		seq = strings.ToUpper(seq)
		for i := 0; i < len(seq); i++ {
			switch seq[i] {
			case 'A', 'C', 'G', 'T':
			default:
				return fmt.Errorf("%s: unknown nucleotide '%c' in node %d",
					r.Bcalmfile, seq[i], def.serial)
			}
		}
		if len(seq) < r.K {
			return fmt.Errorf("%s: node %d is shorter than k=%d", r.Bcalmfile, def.serial, r.K)
		}
		if def.length >= 0 && def.length != len(seq) {
			return fmt.Errorf("%s: node %d declares LN:i:%d but sequence has %d characters",
				r.Bcalmfile, def.serial, def.length, len(seq))
		}

		node := Node{
			Unitig:           seq,
			Length:           len(seq),
			Abundances:       def.abundances,
			Arcs:             def.arcs,
			AverageAbundance: def.avg,
			MedianAbundance:  def.median,
		}
		if def.alt {
			// only the average survives the Logan dialect: replicate its
			// integer part once per kmer
			nKmers := node.Length - r.K + 1
			node.Abundances = make([]uint32, nKmers)
			for i := range node.Abundances {
				node.Abundances[i] = uint32(def.avg)
			}
		}
		if node.Length-r.K+1 != len(node.Abundances) {
			return fmt.Errorf("%s: node %d has %d abundances for %d kmers (is k really %d?)",
				r.Bcalmfile, def.serial, len(node.Abundances), node.Length-r.K+1, r.K)
		}
		r.nodes = append(r.nodes, node)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %v", r.Bcalmfile, err)
	}
	return nil
}

// parseDefLine tokenizes one header line, auto-detecting the dialect
func (r *DBG) parseDefLine(line string) (defLine, error) {
	def := defLine{length: -1}
	if line[0] != '>' {
		return def, fmt.Errorf("%s: no def-line found", r.Bcalmfile)
	}

	isStandard := strings.Contains(line, "LN:i:") && strings.Contains(line, "ab:Z:")
	isAlternative := strings.Contains(line, "ka:f:")
	if !isStandard && !isAlternative {
		return def, fmt.Errorf("%s: unknown header format, expected 'LN:i:' and 'ab:Z:' or 'ka:f:'", r.Bcalmfile)
	}
	if isStandard && isAlternative {
		return def, fmt.Errorf("%s: ambiguous header format, found both 'ab:Z:' and 'ka:f:'", r.Bcalmfile)
	}

	fields := strings.Fields(line)
	serialToken := fields[0][1:]
	if isAlternative {
		// >SRR11905265_0 or >0: the serial is after the last underscore
		if i := strings.LastIndex(serialToken, "_"); i >= 0 {
			serialToken = serialToken[i+1:]
		}
	}
	serial, err := strconv.Atoi(serialToken)
	if err != nil || serial < 0 {
		return def, fmt.Errorf("%s: bad serial in header %q", r.Bcalmfile, fields[0])
	}
	def.serial = serial
	def.alt = isAlternative

	inAbundances := false
	sumAbundance := uint64(0)
	for _, tok := range fields[1:] {
		switch {
		case strings.HasPrefix(tok, "LN:i:"):
			inAbundances = false
			length, err := strconv.Atoi(tok[5:])
			if err != nil || length <= 0 {
				return def, fmt.Errorf("%s: bad length token %q", r.Bcalmfile, tok)
			}
			def.length = length
		case strings.HasPrefix(tok, "ka:f:"):
			inAbundances = false
			avg, err := strconv.ParseFloat(tok[5:], 64)
			if err != nil || avg < 0 {
				return def, fmt.Errorf("%s: bad average abundance token %q", r.Bcalmfile, tok)
			}
			def.avg = avg
			def.median = uint32(avg)
		case strings.HasPrefix(tok, "L:"):
			inAbundances = false
			arc, err := parseArc(tok)
			if err != nil {
				return def, fmt.Errorf("%s: %v", r.Bcalmfile, err)
			}
			def.arcs = append(def.arcs, arc)
		case strings.HasPrefix(tok, "ab:Z:"), inAbundances:
			v := tok
			if strings.HasPrefix(tok, "ab:Z:") {
				inAbundances = true
				v = tok[5:]
				if v == "" {
					continue
				}
			}
			ab, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return def, fmt.Errorf("%s: bad abundance token %q", r.Bcalmfile, tok)
			}
			def.abundances = append(def.abundances, uint32(ab))
			sumAbundance += ab
		default:
			return def, fmt.Errorf("%s: unexpected header token %q", r.Bcalmfile, tok)
		}
	}

	if !isAlternative {
		if len(def.abundances) == 0 {
			return def, fmt.Errorf("%s: node %d has no abundances", r.Bcalmfile, serial)
		}
		def.avg = float64(sumAbundance) / float64(len(def.abundances))
		def.median = Median(def.abundances)
	}
	return def, nil
}

// parseArc decodes one L:<s1>:<succ>:<s2> token. The successor may be a
// forward reference; bounds are checked at traversal time.
func parseArc(tok string) (Arc, error) {
	parts := strings.Split(tok, ":")
	if len(parts) != 4 || parts[0] != "L" {
		return Arc{}, fmt.Errorf("bad arc token %q", tok)
	}
	if (parts[1] != "+" && parts[1] != "-") || (parts[3] != "+" && parts[3] != "-") {
		return Arc{}, fmt.Errorf("bad arc orientation in %q", tok)
	}
	succ, err := strconv.Atoi(parts[2])
	if err != nil || succ < 0 {
		return Arc{}, fmt.Errorf("bad arc successor in %q", tok)
	}
	return Arc{
		Forward:   parts[1] == "+",
		Successor: uint32(succ),
		ToForward: parts[3] == "+",
	}, nil
}

// PrintStat reports the aggregate graph statistics
func (r *DBG) PrintStat() {
	log.Noticef("DBG stats:")
	log.Noticef("   number of kmers:            %d", r.nKmers)
	log.Noticef("   number of nodes:            %d", len(r.nodes))
	log.Noticef("   number of isolated nodes:   %s", Percentage(r.nIsolated, len(r.nodes)))
	log.Noticef("   number of arcs:             %d", r.nArcs)
	log.Noticef("   graph density:              %.3f %%", float64(r.nArcs)/float64(8*len(r.nodes))*100)
	log.Noticef("   average unitig length:      %.1f", r.avgUnitigLen)
	log.Noticef("   average abundance:          %.2f", r.avgAbundance)
}

// overlaps checks the k-1 overlap between an arc's two sides
func (r *DBG) overlaps(node *Node, arc Arc) bool {
	if int(arc.Successor) >= len(r.nodes) {
		return false
	}
	var u1, u2 string
	if arc.Forward { // + --> +/-
		u1 = node.Unitig[node.Length-r.K+1:]
	} else { // - --> +/-
		u1 = RevComp(node.Unitig[:r.K-1])
	}
	succ := &r.nodes[arc.Successor]
	if arc.ToForward { // +/- --> +
		u2 = succ.Unitig[:r.K-1]
	} else { // +/- --> -
		u2 = RevComp(succ.Unitig[succ.Length-r.K+1:])
	}
	return u1 == u2
}

// VerifyOverlaps checks the overlap invariant on every arc of the graph
func (r *DBG) VerifyOverlaps() bool {
	for i := range r.nodes {
		for _, arc := range r.nodes[i].Arcs {
			if !r.overlaps(&r.nodes[i], arc) {
				return false
			}
		}
	}
	return true
}

// sign renders a strand flag the way BCALM2 does
func sign(forward bool) byte {
	if forward {
		return '+'
	}
	return '-'
}

// ToBcalmFile serializes the graph back to a canonical standard-dialect file
func (r *DBG) ToBcalmFile(filename string) error {
	fh, err := xopen.Wopen(filename)
	if err != nil {
		return fmt.Errorf("cannot write %s: %v", filename, err)
	}
	defer fh.Close()

	for i := range r.nodes {
		node := &r.nodes[i]
		fmt.Fprintf(fh, ">%d LN:i:%d ab:Z:", i, node.Length)
		for _, ab := range node.Abundances {
			fmt.Fprintf(fh, "%d ", ab)
		}
		for _, arc := range node.Arcs {
			fmt.Fprintf(fh, "L:%c:%d:%c ", sign(arc.Forward), arc.Successor, sign(arc.ToForward))
		}
		fmt.Fprintf(fh, "\n%s\n", node.Unitig)
	}
	return nil
}

// Validate round-trips the graph through ToBcalmFile and compares the
// result with the input token by token
func (r *DBG) Validate() bool {
	roundtrip := fmt.Sprintf("unitigs.k%d.ustar.fa", r.K)
	if err := r.ToBcalmFile(roundtrip); err != nil {
		log.Errorf("Validate: %v", err)
		return false
	}

	in, err := xopen.Ropen(r.Bcalmfile)
	if err != nil {
		log.Errorf("Validate: %v", err)
		return false
	}
	defer in.Close()
	out, err := xopen.Ropen(roundtrip)
	if err != nil {
		log.Errorf("Validate: %v", err)
		return false
	}
	defer out.Close()

	s1 := bufio.NewScanner(in)
	s1.Split(bufio.ScanWords)
	s2 := bufio.NewScanner(out)
	s2.Split(bufio.ScanWords)
	for {
		ok1 := s1.Scan()
		ok2 := s2.Scan()
		if !ok1 || !ok2 {
			return ok1 == ok2
		}
		if s1.Text() != s2.Text() {
			log.Errorf("Files differ here: %s != %s", s1.Text(), s2.Text())
			return false
		}
	}
}

// VerifyInput runs the debug-only input checks; failures are diagnostic
func (r *DBG) VerifyInput() bool {
	good := true
	if r.VerifyOverlaps() {
		log.Noticef("DBG is an overlapping graph")
	} else {
		log.Warningf("DBG is NOT an overlapping graph")
		good = false
	}
	if r.Validate() {
		log.Noticef("DBG round-trips to the BCALM2 input")
	} else {
		log.Warningf("DBG does NOT round-trip to the BCALM2 input")
		good = false
	}
	return good
}

// GetNodesFrom collects the arcs out of a node whose target is unmasked
func (r *DBG) GetNodesFrom(node uint32, mask *BitVec) (forwards []bool, toNodes []uint32, toForwards []bool) {
	for _, arc := range r.nodes[node].Arcs {
		if int(arc.Successor) >= len(r.nodes) || mask.Get(arc.Successor) {
			continue
		}
		forwards = append(forwards, arc.Forward)
		toNodes = append(toNodes, arc.Successor)
		toForwards = append(toForwards, arc.ToForward)
	}
	return
}

// GetConsistentNodesFrom collects the unmasked successors reachable from
// the given strand of a node. A step may only exit the "+" side when
// forward is true, and symmetrically for "-".
func (r *DBG) GetConsistentNodesFrom(node uint32, forward bool, mask *BitVec) (toNodes []uint32, toForwards []bool) {
	for _, arc := range r.nodes[node].Arcs {
		if int(arc.Successor) >= len(r.nodes) || mask.Get(arc.Successor) {
			continue
		}
		if arc.Forward == forward {
			toNodes = append(toNodes, arc.Successor)
			toForwards = append(toForwards, arc.ToForward)
		}
	}
	return
}

// Spell concatenates the oriented unitigs of a path, keeping one copy of
// each k-1 overlap
func (r *DBG) Spell(pathNodes []uint32, forwards []bool) string {
	if len(pathNodes) != len(forwards) {
		log.Fatal("Spell: inconsistent path")
	}
	if len(pathNodes) == 0 {
		log.Fatal("Spell: cannot spell an empty path")
	}

	var contig strings.Builder
	if forwards[0] {
		contig.WriteString(r.nodes[pathNodes[0]].Unitig)
	} else {
		contig.WriteString(RevComp(r.nodes[pathNodes[0]].Unitig))
	}
	for i := 1; i < len(pathNodes); i++ {
		unitig := r.nodes[pathNodes[i]].Unitig
		if forwards[i] {
			contig.WriteString(unitig[r.K-1:])
		} else {
			contig.WriteString(RevComp(unitig[:len(unitig)-(r.K-1)]))
		}
	}
	return contig.String()
}

// GetCounts concatenates the per-step abundance vectors in traversal
// order, reversing the vector of every step taken on the "-" strand
//
//	         3 5
//	forward: A C T T
//	         5 3
//	rev-com: A A G T
func (r *DBG) GetCounts(pathNodes []uint32, forwards []bool) []uint32 {
	var counts []uint32
	for i, nodeIdx := range pathNodes {
		abundances := r.nodes[nodeIdx].Abundances
		if forwards[i] {
			counts = append(counts, abundances...)
		} else {
			for k := len(abundances) - 1; k >= 0; k-- {
				counts = append(counts, abundances[k])
			}
		}
	}
	return counts
}

// CheckPathConsistency verifies that consecutive steps are joined by an
// arc that matches their orientations
func (r *DBG) CheckPathConsistency(pathNodes []uint32, forwards []bool) bool {
	if len(pathNodes) != len(forwards) || len(pathNodes) == 0 {
		return false
	}
	for i := 0; i < len(pathNodes)-1; i++ {
		found := false
		for _, arc := range r.nodes[pathNodes[i]].Arcs {
			if arc.Forward == forwards[i] && arc.Successor == pathNodes[i+1] && arc.ToForward == forwards[i+1] {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NNodes returns the number of unitigs in the graph
func (r *DBG) NNodes() int {
	return len(r.nodes)
}

// NKmers returns the number of kmers in the graph
func (r *DBG) NKmers() int {
	return r.nKmers
}

// NArcs returns the number of arcs in the graph
func (r *DBG) NArcs() int {
	return r.nArcs
}

// GetNode returns a node by index
func (r *DBG) GetNode(node uint32) *Node {
	return &r.nodes[node]
}
