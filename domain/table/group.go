package table

import (
	"sort"
	"strings"
)

// Group is one distinct key combination and the positions of its rows, in row order
type Group struct {
	Key  []Value
	Rows []int
}

// GroupBy partitions rows by the values of the named columns. Null keys form their own
// group. Groups are returned sorted by key with nulls last. Missing columns read as null.
func (t *Table) GroupBy(names ...string) []Group {
	cols := make([]*Column, len(names))
	for i, n := range names {
		cols[i], _ = t.Column(n)
	}

	index := make(map[string]int)
	var groups []Group
	var buf []byte
	for row := 0; row < t.NumRows(); row++ {
		buf = buf[:0]
		key := make([]Value, len(cols))
		for i, c := range cols {
			v := Null()
			if c != nil {
				v = c.Values[row]
			}
			key[i] = v
			buf = v.appendKey(buf)
		}
		g, ok := index[string(buf)]
		if !ok {
			g = len(groups)
			index[string(buf)] = g
			groups = append(groups, Group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, row)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		for k := range names {
			if c := Compare(groups[i].Key[k], groups[j].Key[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return groups
}

var kindRank = map[Kind]int{KindNumber: 0, KindDate: 1, KindText: 2}

// Compare orders values: numbers numerically, dates chronologically, text lexically.
// Different kinds order number < date < text and null sorts after everything.
func Compare(a, b Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	}
	if a.Kind != b.Kind {
		return kindRank[a.Kind] - kindRank[b.Kind]
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case KindDate:
		return a.Time.Compare(b.Time)
	}
	return strings.Compare(a.Str, b.Str)
}

// KeyString returns a kind-tagged string identifying a value, usable as a map key
func (v Value) KeyString() string {
	return string(v.appendKey(nil))
}
