package table

import (
	"github.com/zeebo/xxh3"
)

// rowKey hashes the given columns of one row. A 128-bit hash keeps accidental collisions
// out of reach for in-memory table sizes.
func (t *Table) rowKey(row int, cols []*Column, buf []byte) (xxh3.Uint128, []byte) {
	buf = buf[:0]
	for _, c := range cols {
		buf = c.Values[row].appendKey(buf)
	}
	return xxh3.Hash128(buf), buf
}

func (t *Table) keyColumns(names []string) []*Column {
	if len(names) == 0 {
		return t.columns
	}
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		if c, ok := t.Column(n); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// DuplicateMask marks rows that duplicate another row on the given columns (all columns
// when names is empty). With keepLast the final occurrence of each key survives, otherwise
// the first one does.
func (t *Table) DuplicateMask(names []string, keepLast bool) []bool {
	cols := t.keyColumns(names)
	n := t.NumRows()
	mask := make([]bool, n)
	seen := make(map[xxh3.Uint128]int, n)
	var buf []byte
	var key xxh3.Uint128
	for i := 0; i < n; i++ {
		key, buf = t.rowKey(i, cols, buf)
		prev, ok := seen[key]
		if !ok {
			seen[key] = i
			continue
		}
		if keepLast {
			mask[prev] = true
			seen[key] = i
		} else {
			mask[i] = true
		}
	}
	return mask
}

// CountDuplicateRows counts rows that exactly repeat an earlier row
func (t *Table) CountDuplicateRows() int {
	n := 0
	for _, dup := range t.DuplicateMask(nil, false) {
		if dup {
			n++
		}
	}
	return n
}

// DropDuplicates removes duplicates on the given columns and returns the number removed
func (t *Table) DropDuplicates(names []string, keepLast bool) int {
	mask := t.DuplicateMask(names, keepLast)
	return t.FilterRows(func(i int) bool { return !mask[i] })
}
