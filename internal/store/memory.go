package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Memory is an in-memory Tabular used by tests and local runs. It mirrors
// the spreadsheet's semantics: 1-based addressing, rows growing on write,
// no atomicity beyond a single call.
type Memory struct {
	mu     sync.Mutex
	tables map[string][][]string

	// Err, when set, fails every operation; tests use it to simulate a
	// store outage.
	Err error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][][]string)}
}

// Seed replaces a table's contents (header row included).
func (m *Memory) Seed(table string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	m.tables[table] = cp
}

// Rows returns a copy of the table for assertions.
func (m *Memory) Rows(table string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.tables[table]
	cp := make([][]string, len(src))
	for i, r := range src {
		cp[i] = append([]string(nil), r...)
	}
	return cp
}

func (m *Memory) GetAllRows(_ context.Context, table string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	src := m.tables[table]
	cp := make([][]string, len(src))
	for i, r := range src {
		cp[i] = append([]string(nil), r...)
	}
	return cp, nil
}

func (m *Memory) GetRow(_ context.Context, table string, index int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rows := m.tables[table]
	if index < 1 || index > len(rows) {
		return nil, nil
	}
	return append([]string(nil), rows[index-1]...), nil
}

func (m *Memory) UpdateCell(_ context.Context, table string, index, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if index < 1 || col < 1 {
		return fmt.Errorf("memory: bad cell %s r%d c%d", table, index, col)
	}
	m.setCell(table, index, col, value)
	return nil
}

func (m *Memory) BatchUpdate(_ context.Context, table string, updates []RangeUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, u := range updates {
		startCol, startRow, err := parseA1(strings.SplitN(u.Range, ":", 2)[0])
		if err != nil {
			return fmt.Errorf("memory: range %q: %w", u.Range, err)
		}
		for ri, rowVals := range u.Values {
			for ci, v := range rowVals {
				m.setCell(table, startRow+ri, startCol+ci, v)
			}
		}
	}
	return nil
}

func (m *Memory) AppendRow(_ context.Context, table string, values []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.tables[table] = append(m.tables[table], append([]string(nil), values...))
	return len(m.tables[table]), nil
}

func (m *Memory) setCell(table string, row, col int, value string) {
	rows := m.tables[table]
	for len(rows) < row {
		rows = append(rows, nil)
	}
	r := rows[row-1]
	for len(r) < col {
		r = append(r, "")
	}
	r[col-1] = value
	rows[row-1] = r
	m.tables[table] = rows
}

// parseA1 decodes a cell reference like "B7" into (col, row), both 1-based.
func parseA1(ref string) (int, int, error) {
	ref = strings.TrimSpace(ref)
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("bad cell ref %q", ref)
	}
	col := 0
	for _, ch := range ref[:i] {
		col = col*26 + int(ch-'A') + 1
	}
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad cell ref %q", ref)
	}
	return col, row, nil
}
