package dataset

import (
	"testing"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMerger() *Merger {
	return NewMerger(func() time.Time { return fixedNow }, internal.NewLogger(internal.LogLevelError))
}

// build creates a table from a header and rows; strings are text, ints and floats are
// numbers, time.Time values are dates and nil is null
func build(t *testing.T, header []string, rows ...[]interface{}) *table.Table {
	t.Helper()
	b := table.NewBuilder(header...)
	for _, row := range rows {
		values := make([]table.Value, len(row))
		for i, cell := range row {
			switch c := cell.(type) {
			case nil:
				values[i] = table.Null()
			case string:
				values[i] = table.Text(c)
			case int:
				values[i] = table.Number(float64(c))
			case float64:
				values[i] = table.Number(c)
			case time.Time:
				values[i] = table.Date(c)
			default:
				t.Fatalf("unsupported cell %T", cell)
			}
		}
		b.AppendValues(values)
	}
	return b.Build()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
