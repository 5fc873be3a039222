// Package table holds the in-memory tabular model every pipeline stage operates on:
// ordered named columns of typed cells, all of equal length, with a stable identifier per
// row that survives filtering, deduplication and re-ordering.
package table

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
)

// Table is an ordered set of equal-length columns
type Table struct {
	columns []*Column
	index   map[string]int
	rowIDs  []int
}

// New creates an empty table with the given number of rows and no columns
func New(rows int) *Table {
	t := &Table{index: make(map[string]int)}
	t.rowIDs = make([]int, rows)
	for i := range t.rowIDs {
		t.rowIDs[i] = i
	}
	return t
}

// FromColumns builds a table from columns of equal length
func FromColumns(cols ...*Column) (*Table, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	t := New(rows)
	for _, c := range cols {
		if err := t.AddColumn(c.Name, c.Values); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the row count
func (t *Table) NumRows() int { return len(t.rowIDs) }

// NumColumns returns the column count
func (t *Table) NumColumns() int { return len(t.columns) }

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether a column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// FindColumn returns the actual name of the first candidate present, compared case-insensitively
func (t *Table) FindColumn(candidates []string) (string, bool) {
	lower := make(map[string]string, len(t.columns))
	for _, c := range t.columns {
		key := strings.ToLower(c.Name)
		if _, exists := lower[key]; !exists {
			lower[key] = c.Name
		}
	}
	for _, cand := range candidates {
		if name, ok := lower[strings.ToLower(cand)]; ok {
			return name, true
		}
	}
	return "", false
}

// AddColumn appends a new column
func (t *Table) AddColumn(name string, values []Value) error {
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateName, name)
	}
	if len(values) != t.NumRows() {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", core.ErrLengthMismatch, name, len(values), t.NumRows())
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, &Column{Name: name, Values: values})
	return nil
}

// SetColumn replaces the values of an existing column in place or appends a new one
func (t *Table) SetColumn(name string, values []Value) error {
	i, ok := t.index[name]
	if !ok {
		return t.AddColumn(name, values)
	}
	if len(values) != t.NumRows() {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", core.ErrLengthMismatch, name, len(values), t.NumRows())
	}
	t.columns[i].Values = values
	return nil
}

// ReplaceColumns swaps the whole column set, keeping row identifiers. Names must be unique
// and every column must match the row count.
func (t *Table) ReplaceColumns(cols []*Column) error {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, exists := index[c.Name]; exists {
			return fmt.Errorf("%w: %s", core.ErrDuplicateName, c.Name)
		}
		if c.Len() != t.NumRows() {
			return fmt.Errorf("%w: %s has %d values, table has %d rows", core.ErrLengthMismatch, c.Name, c.Len(), t.NumRows())
		}
		index[c.Name] = i
	}
	t.columns = append([]*Column(nil), cols...)
	t.index = index
	return nil
}

// RenameColumn renames a column keeping its position
func (t *Table) RenameColumn(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	i, ok := t.index[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrColumnNotFound, oldName)
	}
	if _, exists := t.index[newName]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateName, newName)
	}
	delete(t.index, oldName)
	t.index[newName] = i
	t.columns[i].Name = newName
	return nil
}

// DropColumn removes a column if present
func (t *Table) DropColumn(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	t.reindex()
}

// RowID returns the stable identifier of the row at position i
func (t *Table) RowID(i int) int { return t.rowIDs[i] }

// RowIDs returns a copy of the row identifiers in positional order
func (t *Table) RowIDs() []int {
	out := make([]int, len(t.rowIDs))
	copy(out, t.rowIDs)
	return out
}

// Value returns the cell at (row, column); missing columns read as null
func (t *Table) Value(row int, name string) Value {
	c, ok := t.Column(name)
	if !ok {
		return Null()
	}
	return c.Values[row]
}

// Row returns the cells of one row keyed by column name
func (t *Table) Row(i int) map[string]Value {
	row := make(map[string]Value, len(t.columns))
	for _, c := range t.columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// KeepRows keeps the rows at the given positions, in the given order
func (t *Table) KeepRows(positions []int) {
	for _, c := range t.columns {
		values := make([]Value, len(positions))
		for j, p := range positions {
			values[j] = c.Values[p]
		}
		c.Values = values
	}
	ids := make([]int, len(positions))
	for j, p := range positions {
		ids[j] = t.rowIDs[p]
	}
	t.rowIDs = ids
}

// FilterRows keeps rows for which keep returns true and reports how many were removed
func (t *Table) FilterRows(keep func(i int) bool) int {
	positions := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if keep(i) {
			positions = append(positions, i)
		}
	}
	removed := t.NumRows() - len(positions)
	if removed > 0 {
		t.KeepRows(positions)
	}
	return removed
}

// Slice returns a copy of rows [offset, offset+limit)
func (t *Table) Slice(offset, limit int) *Table {
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if limit < 0 || end > t.NumRows() {
		end = t.NumRows()
	}
	if offset > end {
		offset = end
	}
	out := t.Clone()
	positions := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		positions = append(positions, i)
	}
	out.KeepRows(positions)
	return out
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	out := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rowIDs:  make([]int, len(t.rowIDs)),
	}
	for i, c := range t.columns {
		out.columns[i] = c.clone()
		out.index[c.Name] = i
	}
	copy(out.rowIDs, t.rowIDs)
	return out
}

// Records renders the table as a list of row maps, the shape HTTP responses use
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, t.NumRows())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// MarshalJSON encodes the table as records
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Records())
}

// ApproxBytes estimates the in-memory footprint of the cells
func (t *Table) ApproxBytes() int64 {
	var total int64
	for _, c := range t.columns {
		total += int64(len(c.Name))
		for _, v := range c.Values {
			total += 48
			if v.Kind == KindText {
				total += int64(len(v.Str))
			}
		}
	}
	total += int64(len(t.rowIDs)) * 8
	return total
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}
