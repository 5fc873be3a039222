package table

// ColumnType is the declared type reported by profiling
type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeText   ColumnType = "text"
	TypeDate   ColumnType = "date"
	TypeMixed  ColumnType = "mixed"
	TypeEmpty  ColumnType = "empty"
)

// Column is a named, ordered sequence of values
type Column struct {
	Name   string
	Values []Value
}

// NewColumn creates a column; the values slice is owned by the column afterwards
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Values: values}
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.Values)
}

// Type derives the column type from its non-null cells
func (c *Column) Type() ColumnType {
	var kind Kind
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		if kind == "" {
			kind = v.Kind
			continue
		}
		if v.Kind != kind {
			return TypeMixed
		}
	}
	switch kind {
	case KindNumber:
		return TypeNumber
	case KindText:
		return TypeText
	case KindDate:
		return TypeDate
	}
	return TypeEmpty
}

// NullCount counts null cells
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// HasText reports whether any cell holds text
func (c *Column) HasText() bool {
	for _, v := range c.Values {
		if v.IsText() {
			return true
		}
	}
	return false
}

// IsNumeric reports whether every non-null cell is a number and at least one exists
func (c *Column) IsNumeric() bool {
	return c.Type() == TypeNumber
}

// Floats returns the non-null numeric cells in row order
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Distinct counts distinct non-null values
func (c *Column) Distinct() int {
	seen := make(map[string]struct{}, len(c.Values))
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		seen[string(v.appendKey(nil))] = struct{}{}
	}
	return len(seen)
}

func (c *Column) clone() *Column {
	values := make([]Value, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Values: values}
}
