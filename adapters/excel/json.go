package excel

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// readJSON accepts an array of records, an object wrapping a record array under the data
// field, or a single record. Column order follows first appearance of each key.
func (r *DataReader) readJSON(data []byte) (*Decoded, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON document", core.ErrMalformedInput)
	}

	root := gjson.ParseBytes(data)
	var records []gjson.Result
	switch {
	case root.IsArray():
		records = root.Array()
	case root.IsObject():
		wrapped := root.Get(gjson.Escape(r.config.JSONDataField))
		if r.config.JSONDataField != "" && wrapped.IsArray() {
			records = wrapped.Array()
		} else {
			records = []gjson.Result{root}
		}
	default:
		return nil, fmt.Errorf("%w: JSON root must be an array or an object, got %s", core.ErrMalformedInput, root.Type)
	}

	b := table.NewBuilder()
	for i, rec := range records {
		if !rec.IsObject() {
			return nil, fmt.Errorf("%w: record %d is not an object", core.ErrMalformedInput, i)
		}
		row := make(map[string]table.Value)
		var order []string
		r.flatten("", rec, row, &order)
		// EnsureColumn in key order so new keys append in document order
		for _, name := range order {
			b.EnsureColumn(name)
		}
		b.AppendRow(row)
	}
	return &Decoded{Table: b.Build()}, nil
}

// flatten walks one record, joining nested object keys with dots when enabled. Keys are
// trimmed the same way delimited headers are.
func (r *DataReader) flatten(prefix string, obj gjson.Result, row map[string]table.Value, order *[]string) {
	obj.ForEach(func(key, val gjson.Result) bool {
		name := strings.TrimSpace(key.String())
		if prefix != "" {
			name = prefix + "." + name
		}
		if r.config.FlattenJSON && val.IsObject() {
			r.flatten(name, val, row, order)
			return true
		}
		if _, dup := row[name]; !dup {
			*order = append(*order, name)
		}
		row[name] = jsonValue(val)
		return true
	})
}

func jsonValue(v gjson.Result) table.Value {
	switch v.Type {
	case gjson.Null:
		return table.Null()
	case gjson.Number:
		return table.Number(v.Float())
	case gjson.String:
		return table.Text(v.String())
	case gjson.True, gjson.False:
		return table.Text(v.Raw)
	}
	// arrays and unflattened objects keep their JSON text
	return table.Text(v.Raw)
}
