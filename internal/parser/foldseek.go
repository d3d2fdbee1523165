package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// FoldseekColumns are the output columns requested from the structural
// search tool, in order. The runner passes them on the command line.
var FoldseekColumns = []string{
	"query", "target", "fident", "alnlen", "mismatch", "gapopen",
	"qstart", "qend", "tstart", "tend", "evalue", "bits", "alntmscore",
}

const maxLineSize = 1 << 20

// Target ids of the structure library end in "<zero padded key>.pdb",
// optionally followed by a chain suffix.
var surrogateKeyRx = regexp.MustCompile(`(\d+)\.pdb(?:_[A-Za-z0-9]+)?$`)

// FoldseekTerminated reports whether a tabular result ends on a whole
// row. Rows are appended while the tool runs, so this only rules out a
// truncated tail; the exit marker is the authoritative completion signal.
func FoldseekTerminated(data []byte) bool {
	text := strings.TrimRight(string(data), "\r\n")
	if text == "" || len(text) == len(data) {
		return false
	}
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return len(strings.Split(strings.TrimRight(last, "\r"), "\t")) == len(FoldseekColumns)
}

// ParseFoldseekTSV parses 13-column tab separated structural search rows.
// Blank lines are skipped and empty input yields no hits.
func ParseFoldseekTSV(r io.Reader) ([]types.Hit, error) {
	hits := []types.Hit{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(FoldseekColumns) {
			return nil, fmt.Errorf("%w: line %d has %d fields, want %d", types.ErrParse, lineNo, len(fields), len(FoldseekColumns))
		}

		hit, err := parseFoldseekRow(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrParse, lineNo, err)
		}
		hit.Ordinal = len(hits) + 1
		hits = append(hits, hit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	return hits, nil
}

func parseFoldseekRow(fields []string) (types.Hit, error) {
	p := fieldParser{fields: fields}

	fident := p.float(2)
	tmScore := p.float(12)
	hit := types.Hit{
		Target:      fields[1],
		Key:         surrogateKey(fields[1]),
		Identity:    fident * 100,
		AlignLength: p.int(3),
		Mismatches:  p.int(4),
		GapOpens:    p.int(5),
		QueryStart:  p.int(6),
		QueryEnd:    p.int(7),
		TargetStart: p.int(8),
		TargetEnd:   p.int(9),
		EValue:      p.float(10),
		BitScore:    p.float(11),
		TMScore:     &tmScore,
	}
	if p.err != nil {
		return types.Hit{}, p.err
	}
	return hit, nil
}

// fieldParser converts columns and keeps the first conversion error
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) int(i int) int {
	v, err := strconv.Atoi(strings.TrimSpace(p.fields[i]))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %v", FoldseekColumns[i], err)
	}
	return v
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %v", FoldseekColumns[i], err)
	}
	return v
}

// surrogateKey recovers the numeric domain key embedded in a target id
func surrogateKey(target string) *uint {
	m := surrogateKeyRx.FindStringSubmatch(target)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil
	}
	key := uint(v)
	return &key
}
