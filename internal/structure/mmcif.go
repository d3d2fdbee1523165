package structure

import (
	"strings"
)

// atomSiteLoop is the _atom_site loop of an mmCIF data block
type atomSiteLoop struct {
	block   string
	headers []string
	rows    []atomSiteRow
}

type atomSiteRow struct {
	line   string
	fields []string
}

// parseAtomSite finds the _atom_site loop. Rows are kept one per line,
// which is how coordinate files are written in practice.
func parseAtomSite(data []byte) *atomSiteLoop {
	var (
		loop    *atomSiteLoop
		block   = "query"
		inLoop  bool
		inRows  bool
		done    bool
		headers []string
	)

	forEachLine(data, func(line string) {
		if done {
			return
		}
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "data_"):
			if inRows {
				done = true
				return
			}
			block = strings.TrimPrefix(trimmed, "data_")
		case trimmed == "loop_":
			if inRows {
				done = true
				return
			}
			inLoop = true
			headers = nil
		case strings.HasPrefix(trimmed, "_atom_site."):
			if inLoop {
				headers = append(headers, strings.TrimPrefix(strings.Fields(trimmed)[0], "_atom_site."))
			}
		case strings.HasPrefix(trimmed, "_"):
			if inRows {
				done = true
				return
			}
			inLoop = false
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
			if inRows {
				done = true
			}
		default:
			if !inLoop || len(headers) == 0 {
				return
			}
			if loop == nil {
				loop = &atomSiteLoop{block: block, headers: headers}
				inRows = true
			}
			loop.rows = append(loop.rows, atomSiteRow{line: line, fields: splitCIFFields(trimmed)})
		}
	})
	return loop
}

func (l *atomSiteLoop) column(name string) int {
	for i, h := range l.headers {
		if h == name {
			return i
		}
	}
	return -1
}

// atomRows returns ATOM and HETATM rows, restricted to one chain when
// chain is set. The author chain id is preferred over the label chain id.
func (l *atomSiteLoop) atomRows(chain string) []atomSiteRow {
	group := l.column("group_PDB")
	chainCol := l.column("auth_asym_id")
	if chainCol < 0 {
		chainCol = l.column("label_asym_id")
	}
	if chain != "" && chainCol < 0 {
		return nil
	}

	var rows []atomSiteRow
	for _, row := range l.rows {
		if len(row.fields) != len(l.headers) {
			continue
		}
		if group >= 0 && row.fields[group] != "ATOM" && row.fields[group] != "HETATM" {
			continue
		}
		if chain != "" && row.fields[chainCol] != chain {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// splitCIFFields splits a data line on whitespace. A field opened with a
// single or double quote runs until the same quote followed by
// whitespace or the end of the line.
func splitCIFFields(line string) []string {
	var fields []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}

		if q := line[i]; q == '\'' || q == '"' {
			j := i + 1
			for j < len(line) {
				if line[j] == q && (j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t') {
					break
				}
				j++
			}
			fields = append(fields, line[i+1:j])
			i = j + 1
			continue
		}

		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		fields = append(fields, line[i:j])
		i = j
	}
	return fields
}
