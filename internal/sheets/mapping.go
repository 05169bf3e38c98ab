package sheets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Column role names used by consumers when resolving columns through a
// Mapping. Roles are stable; the header keywords they map to are
// configurable.
const (
	RoleCode     = "code"
	RoleStart    = "start"
	RoleEnd      = "end"
	RoleRealtor  = "realtor"
	RoleCheckout = "checkout"
	RoleDate     = "date"
	RoleType     = "type"
	RoleSpecific = "specific"
)

// TableMapping configures how one table is read: which header keyword marks
// the header row, and which header keyword serves each column role.
type TableMapping struct {
	HeaderMarker string            `yaml:"header_marker"`
	Columns      map[string]string `yaml:"columns"`
}

// Mapping configures column lookup for every table. Spreadsheet owners rename
// columns now and then; the mapping file absorbs that without a rebuild.
type Mapping struct {
	Tables map[string]TableMapping `yaml:"tables"`
}

// DefaultMapping returns the column mapping matching the canonical
// spreadsheet layout.
func DefaultMapping() Mapping {
	return Mapping{
		Tables: map[string]TableMapping{
			TableApartments: {
				HeaderMarker: "AP CODE",
				Columns: map[string]string{
					RoleCode:     "AP CODE",
					RoleStart:    "START",
					RoleEnd:      "END",
					RoleRealtor:  "REALTOR",
					RoleCheckout: "CHECK_OUT",
				},
			},
			TableMoney: {
				Columns: map[string]string{
					RoleCode:     "APARTMENT CODE",
					RoleDate:     "SUBMISSION DATE",
					RoleType:     "TYPE OF MONEY TASK",
					RoleSpecific: "SPECIFIC MONEY TASK",
				},
			},
			TableUtility: {
				Columns: map[string]string{
					RoleCode: "APARTMENT CODE",
					RoleDate: "DATE OF READING",
				},
			},
		},
	}
}

// LoadMapping reads a YAML mapping file, overlaying it on the defaults. A
// missing path (or empty string) yields the defaults unchanged.
func LoadMapping(path string) (Mapping, error) {
	m := DefaultMapping()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return Mapping{}, fmt.Errorf("read mapping file: %w", err)
	}
	var override Mapping
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Mapping{}, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	for table, tm := range override.Tables {
		base := m.Tables[table]
		if tm.HeaderMarker != "" {
			base.HeaderMarker = tm.HeaderMarker
		}
		if base.Columns == nil {
			base.Columns = map[string]string{}
		}
		for role, keyword := range tm.Columns {
			base.Columns[role] = keyword
		}
		if m.Tables == nil {
			m.Tables = map[string]TableMapping{}
		}
		m.Tables[table] = base
	}
	return m, nil
}

// Marker returns the header-row marker configured for a table ("" means the
// first row is the header).
func (m Mapping) Marker(table string) string {
	return m.Tables[table].HeaderMarker
}

// Keyword returns the header keyword configured for a column role, or "" when
// the role is not mapped for that table.
func (m Mapping) Keyword(table, role string) string {
	return m.Tables[table].Columns[role]
}

// Resolve finds the column indices for the given roles in a table. Every
// listed role is required; a missing column is an error naming the role.
func (m Mapping) Resolve(t *Table, roles ...string) (map[string]int, error) {
	out := make(map[string]int, len(roles))
	for _, role := range roles {
		keyword := m.Keyword(t.Name, role)
		if keyword == "" {
			return nil, fmt.Errorf("table %s: no column mapped for role %q", t.Name, role)
		}
		idx, ok := t.Column(keyword)
		if !ok {
			return nil, fmt.Errorf("table %s: required column %q not found", t.Name, keyword)
		}
		out[role] = idx
	}
	return out, nil
}
