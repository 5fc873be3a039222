package table

// Builder accumulates rows whose column set may grow as rows arrive. Columns first seen
// on a later row are back-filled with nulls for earlier rows.
type Builder struct {
	names []string
	index map[string]int
	cols  [][]Value
	rows  int
}

// NewBuilder creates a builder with an initial column order
func NewBuilder(names ...string) *Builder {
	b := &Builder{index: make(map[string]int)}
	for _, n := range names {
		b.EnsureColumn(n)
	}
	return b
}

// EnsureColumn adds a column if missing and returns its position
func (b *Builder) EnsureColumn(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	b.index[name] = len(b.names)
	b.names = append(b.names, name)
	b.cols = append(b.cols, make([]Value, b.rows))
	return len(b.names) - 1
}

// AppendRow adds one row; columns absent from the map become null
func (b *Builder) AppendRow(row map[string]Value) {
	for name := range row {
		b.EnsureColumn(name)
	}
	for i, name := range b.names {
		v, ok := row[name]
		if !ok {
			v = Null()
		}
		b.cols[i] = append(b.cols[i], v)
	}
	b.rows++
}

// AppendValues adds one row positionally; short rows are padded with nulls
func (b *Builder) AppendValues(values []Value) {
	for i := range b.names {
		v := Null()
		if i < len(values) {
			v = values[i]
		}
		b.cols[i] = append(b.cols[i], v)
	}
	b.rows++
}

// Rows returns the number of rows appended so far
func (b *Builder) Rows() int { return b.rows }

// Build produces the table. The builder must not be reused.
func (b *Builder) Build() *Table {
	t := New(b.rows)
	for i, name := range b.names {
		t.index[name] = i
		t.columns = append(t.columns, &Column{Name: name, Values: b.cols[i]})
	}
	return t
}
