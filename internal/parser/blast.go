// Package parser turns raw search tool output into hits
package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// BlastClosingTag terminates a complete XML report. A report without it
// is still being written.
const BlastClosingTag = "</BlastOutput>"

// BlastResult is the parsed content of a sequence search report
type BlastResult struct {
	QueryLength int
	Hits        []types.Hit
}

type blastOutput struct {
	XMLName     xml.Name         `xml:"BlastOutput"`
	QueryLength int              `xml:"BlastOutput_query-len"`
	Iterations  []blastIteration `xml:"BlastOutput_iterations>Iteration"`
}

type blastIteration struct {
	QueryLength int        `xml:"Iteration_query-len"`
	Hits        []blastHit `xml:"Iteration_hits>Hit"`
}

type blastHit struct {
	Num  int        `xml:"Hit_num"`
	ID   string     `xml:"Hit_id"`
	Def  string     `xml:"Hit_def"`
	Len  int        `xml:"Hit_len"`
	Hsps []blastHsp `xml:"Hit_hsps>Hsp"`
}

type blastHsp struct {
	BitScore  float64 `xml:"Hsp_bit-score"`
	EValue    float64 `xml:"Hsp_evalue"`
	QueryFrom int     `xml:"Hsp_query-from"`
	QueryTo   int     `xml:"Hsp_query-to"`
	HitFrom   int     `xml:"Hsp_hit-from"`
	HitTo     int     `xml:"Hsp_hit-to"`
	Identity  int     `xml:"Hsp_identity"`
	Gaps      int     `xml:"Hsp_gaps"`
	AlignLen  int     `xml:"Hsp_align-len"`
	QSeq      string  `xml:"Hsp_qseq"`
	HSeq      string  `xml:"Hsp_hseq"`
	Midline   string  `xml:"Hsp_midline"`
}

// BlastTerminated reports whether a report has been completely written
func BlastTerminated(data []byte) bool {
	return bytes.Contains(data, []byte(BlastClosingTag))
}

// ParseBlastXML parses a sequence search XML report. Only the first
// iteration is read and only the first HSP of each hit is kept.
// Empty input yields an empty result.
func ParseBlastXML(r io.Reader) (*BlastResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrParse, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &BlastResult{Hits: []types.Hit{}}, nil
	}

	var out blastOutput
	if err := xml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: sequence report: %v", types.ErrParse, err)
	}

	result := &BlastResult{QueryLength: out.QueryLength, Hits: []types.Hit{}}
	if len(out.Iterations) == 0 {
		return result, nil
	}

	iteration := out.Iterations[0]
	if iteration.QueryLength > 0 {
		result.QueryLength = iteration.QueryLength
	}

	for i, h := range iteration.Hits {
		if len(h.Hsps) == 0 {
			continue
		}
		hsp := h.Hsps[0]

		target, rng := splitHitDef(h.Def)
		if target == "" {
			target = strings.TrimSpace(h.ID)
		}

		hit := types.Hit{
			Ordinal:     i + 1,
			Target:      target,
			Range:       rng,
			Key:         surrogateKey(target),
			EValue:      hsp.EValue,
			BitScore:    hsp.BitScore,
			Identical:   hsp.Identity,
			AlignLength: hsp.AlignLen,
			Gaps:        hsp.Gaps,
			QueryStart:  hsp.QueryFrom,
			QueryEnd:    hsp.QueryTo,
			TargetStart: hsp.HitFrom,
			TargetEnd:   hsp.HitTo,
			Alignment: &types.Alignment{
				Query:   hsp.QSeq,
				Subject: hsp.HSeq,
				Midline: hsp.Midline,
			},
		}
		if hsp.AlignLen > 0 {
			hit.Identity = float64(hsp.Identity) * 100 / float64(hsp.AlignLen)
		}
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

// splitHitDef splits a definition line into the target id and the
// positional range that follows it
func splitHitDef(def string) (string, string) {
	fields := strings.Fields(def)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}
