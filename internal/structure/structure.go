// Package structure inspects macromolecular structure files in the
// legacy fixed-column PDB format and the mmCIF format.
package structure

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// Format is a structure file format
type Format string

const (
	// FormatPDB is the legacy fixed-column format
	FormatPDB Format = "pdb"
	// FormatMMCIF is the macromolecular crystallographic information file format
	FormatMMCIF Format = "mmcif"
)

// Atom count bounds of a query structure
const (
	MinAtoms = 10
	MaxAtoms = 100000
)

// Extension returns the file extension used for the format
func (f Format) Extension() string {
	if f == FormatMMCIF {
		return ".cif"
	}
	return ".pdb"
}

// DetectFormat recognizes mmCIF by its data block header or atom_site
// loop and falls back to PDB
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("data_")) ||
		bytes.Contains(data, []byte("\ndata_")) ||
		bytes.Contains(data, []byte("_atom_site.")) {
		return FormatMMCIF
	}
	return FormatPDB
}

// CountAtoms counts the atom records of a structure
func CountAtoms(data []byte, format Format) int {
	if format == FormatMMCIF {
		loop := parseAtomSite(data)
		if loop == nil {
			return 0
		}
		return len(loop.atomRows(""))
	}

	count := 0
	forEachLine(data, func(line string) {
		if isPDBAtomLine(line) {
			count++
		}
	})
	return count
}

// ValidateAtomCount checks the atom count bounds
func ValidateAtomCount(n int) error {
	if n < MinAtoms {
		return fmt.Errorf("%w: structure must have at least %d atoms, got %d", types.ErrInvalidInput, MinAtoms, n)
	}
	if n > MaxAtoms {
		return fmt.Errorf("%w: structure must have at most %d atoms, got %d", types.ErrInvalidInput, MaxAtoms, n)
	}
	return nil
}

// ExtractChain keeps only the atoms of one chain. It returns the
// extracted structure in the input format and its atom count.
func ExtractChain(data []byte, format Format, chain string) ([]byte, int, error) {
	var (
		out   []byte
		atoms int
	)
	if format == FormatMMCIF {
		out, atoms = extractMMCIFChain(data, chain)
	} else {
		out, atoms = extractPDBChain(data, chain)
	}
	if atoms == 0 {
		return nil, 0, fmt.Errorf("%w: chain %s not found", types.ErrNotFound, chain)
	}
	return out, atoms, nil
}

func isPDBAtomLine(line string) bool {
	return strings.HasPrefix(line, "ATOM  ") || strings.HasPrefix(line, "HETATM")
}

// Chain identifier is column 22 of an atom record
func extractPDBChain(data []byte, chain string) ([]byte, int) {
	if len(chain) != 1 {
		return nil, 0
	}

	var b bytes.Buffer
	atoms := 0
	forEachLine(data, func(line string) {
		if !isPDBAtomLine(line) || len(line) < 22 {
			return
		}
		if line[21:22] != chain {
			return
		}
		b.WriteString(line)
		b.WriteByte('\n')
		atoms++
	})
	if atoms > 0 {
		b.WriteString("END\n")
	}
	return b.Bytes(), atoms
}

func extractMMCIFChain(data []byte, chain string) ([]byte, int) {
	loop := parseAtomSite(data)
	if loop == nil {
		return nil, 0
	}
	rows := loop.atomRows(chain)
	if len(rows) == 0 {
		return nil, 0
	}

	var b bytes.Buffer
	b.WriteString("data_" + loop.block + "\n#\nloop_\n")
	for _, h := range loop.headers {
		b.WriteString("_atom_site." + h + "\n")
	}
	for _, row := range rows {
		b.WriteString(row.line)
		b.WriteByte('\n')
	}
	b.WriteString("#\n")
	return b.Bytes(), len(rows)
}

func forEachLine(data []byte, fn func(line string)) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		fn(strings.TrimRight(scanner.Text(), "\r"))
	}
}
