package sheets

import (
	"context"
	"fmt"
	"strings"
)

// Well-known table names.
const (
	TableApartments = "APARTMENTS"
	TableMoney      = "MO_DATA"
	TableUtility    = "UT_DATA"
)

// headerScanLimit bounds how many leading rows are scanned for the header
// row. Spreadsheets often carry title or note rows above the real header.
const headerScanLimit = 10

// ErrTableNotFound is returned when a source does not carry the named table.
var ErrTableNotFound = fmt.Errorf("table not found")

// Source provides named tabular data. Implementations must be safe for
// concurrent use.
type Source interface {
	// Table returns the named table, or ErrTableNotFound.
	Table(ctx context.Context, name string) (*Table, error)
	// Reload drops any cached copy of the named table so the next Table
	// call fetches fresh data.
	Reload(ctx context.Context, name string) error
}

// Table is a rectangular slice of data below a detected header row. Rows may
// be ragged; missing trailing cells read as empty strings.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// NewTable locates the header row within raw rows and returns the table
// beneath it. The header row is the first of the leading rows containing a
// cell that matches marker (case-insensitive, substring tolerant). An empty
// marker takes the first row as the header.
func NewTable(name string, raw [][]string, marker string) (*Table, error) {
	if len(raw) == 0 {
		return &Table{Name: name, Header: nil, Rows: nil}, nil
	}
	headerIdx := 0
	if marker != "" {
		headerIdx = -1
		limit := len(raw)
		if limit > headerScanLimit {
			limit = headerScanLimit
		}
		for i := 0; i < limit; i++ {
			for _, cell := range raw[i] {
				if cellMatches(cell, marker) {
					headerIdx = i
					break
				}
			}
			if headerIdx >= 0 {
				break
			}
		}
		if headerIdx < 0 {
			return nil, fmt.Errorf("table %s: no header row matching %q in first %d rows", name, marker, limit)
		}
	}
	return &Table{
		Name:   name,
		Header: raw[headerIdx],
		Rows:   raw[headerIdx+1:],
	}, nil
}

// Column resolves a column index by header keyword. An exact match
// (case-insensitive, whitespace-trimmed) wins over a substring match.
func (t *Table) Column(keyword string) (int, bool) {
	want := canonical(keyword)
	if want == "" {
		return 0, false
	}
	for i, cell := range t.Header {
		if canonical(cell) == want {
			return i, true
		}
	}
	for i, cell := range t.Header {
		if strings.Contains(canonical(cell), want) {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the trimmed cell at (row, col), or "" when the row is too
// short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// cellMatches reports whether a header cell satisfies a marker keyword.
func cellMatches(cell, marker string) bool {
	c, m := canonical(cell), canonical(marker)
	return m != "" && (c == m || strings.Contains(c, m))
}

func canonical(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
