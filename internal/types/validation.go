package types

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sequence bounds, in residues after normalization
const (
	MinSequenceLength = 10
	MaxSequenceLength = 10000
)

// Residues accepted by the sequence search tool: the IUPAC protein
// alphabet with ambiguity codes, selenocysteine, pyrrolysine, stop and gap.
const sequenceAlphabet = "ACDEFGHIKLMNPQRSTVWYBZXJUO*-"

var (
	thresholdRx = regexp.MustCompile(`^[0-9]*(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)
	pdbIDRx     = regexp.MustCompile(`^[0-9][A-Za-z0-9]{3}$`)
	chainRx     = regexp.MustCompile(`^[A-Za-z0-9]{1,4}$`)
	// UniProtKB accession format
	accessionRx = regexp.MustCompile(`^([OPQ][0-9][A-Z0-9]{3}[0-9]|[A-NR-Z][0-9]([A-Z][A-Z0-9]{2}[0-9]){1,2})$`)
)

// NormalizeSequence strips FASTA header and comment lines, joins the
// remaining lines, uppercases and removes whitespace, then checks the
// alphabet and length bounds.
func NormalizeSequence(raw string) (string, error) {
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, ";") {
			continue
		}
		for _, r := range trimmed {
			switch r {
			case ' ', '\t', '\r', '\v', '\f':
				continue
			}
			b.WriteRune(r)
		}
	}
	seq := strings.ToUpper(b.String())

	if i := strings.IndexFunc(seq, func(r rune) bool { return !strings.ContainsRune(sequenceAlphabet, r) }); i >= 0 {
		r, _ := utf8.DecodeRuneInString(seq[i:])
		return "", fmt.Errorf("%w: invalid residue %q at position %d", ErrInvalidInput, r, i+1)
	}
	if len(seq) < MinSequenceLength {
		return "", fmt.Errorf("%w: sequence must be at least %d residues, got %d", ErrInvalidInput, MinSequenceLength, len(seq))
	}
	if len(seq) > MaxSequenceLength {
		return "", fmt.Errorf("%w: sequence must be at most %d residues, got %d", ErrInvalidInput, MaxSequenceLength, len(seq))
	}
	return seq, nil
}

// ValidateThreshold checks a threshold against the numeric grammar
// digits[.digits][e[+-]digits]. An empty value yields DefaultThreshold.
// Nothing else may ever reach a tool command line.
func ValidateThreshold(threshold string) (string, error) {
	if threshold == "" {
		return DefaultThreshold, nil
	}
	if !thresholdRx.MatchString(threshold) || !strings.ContainsAny(threshold[:mantissaEnd(threshold)], "0123456789") {
		return "", fmt.Errorf("%w: threshold %q is not a number", ErrInvalidInput, threshold)
	}
	return threshold, nil
}

func mantissaEnd(s string) int {
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return i
	}
	return len(s)
}

// ValidatePDBID checks a 4 character structure identifier
func ValidatePDBID(id string) error {
	if !pdbIDRx.MatchString(id) {
		return fmt.Errorf("%w: invalid structure id %q", ErrInvalidInput, id)
	}
	return nil
}

// ValidateChain checks a chain identifier
func ValidateChain(chain string) error {
	if !chainRx.MatchString(chain) {
		return fmt.Errorf("%w: invalid chain %q", ErrInvalidInput, chain)
	}
	return nil
}

// ValidateAccession checks a UniProtKB accession
func ValidateAccession(acc string) error {
	if !accessionRx.MatchString(acc) {
		return fmt.Errorf("%w: invalid accession %q", ErrInvalidInput, acc)
	}
	return nil
}
