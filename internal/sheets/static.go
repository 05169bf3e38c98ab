package sheets

import (
	"context"
	"fmt"
	"sync"
)

// StaticSource serves tables from memory. Used by tests and by the CLI when
// reading exported fixtures instead of a live spreadsheet.
type StaticSource struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewStaticSource returns an empty in-memory source.
func NewStaticSource() *StaticSource {
	return &StaticSource{tables: make(map[string]*Table)}
}

// SetTable installs or replaces a table.
func (s *StaticSource) SetTable(name string, header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = &Table{Name: name, Header: header, Rows: rows}
}

// SetRaw installs a table from raw rows, running header detection the same
// way the live source does.
func (s *StaticSource) SetRaw(name string, raw [][]string, marker string) error {
	t, err := NewTable(name, raw, marker)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = t
	return nil
}

// Table implements Source.
func (s *StaticSource) Table(_ context.Context, name string) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

// Reload implements Source. Static tables have nothing to refresh.
func (s *StaticSource) Reload(context.Context, string) error {
	return nil
}
