package coercer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

func TestCleanNumeric(t *testing.T) {
	c := Default()
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"$1,234.50", 1234.5, true},
		{" 12.5% ", 12.5, true},
		{"(300)", -300, true},
		{"(€1,000)", -1000, true},
		{"£7", 7, true},
		{"¥ 900", 900, true},
		{"1e3", 1000, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := c.CleanNumeric(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestCoerceColumnIsAllOrNothing(t *testing.T) {
	c := Default()

	numeric := c.CoerceColumn([]string{"1", " 2.5 ", "", "NA", "-3"})
	assert.True(t, numeric[0].IsNumber())
	assert.Equal(t, 2.5, numeric[1].Num)
	assert.True(t, numeric[2].IsNull())
	assert.True(t, numeric[3].IsNull())
	assert.Equal(t, -3.0, numeric[4].Num)

	mixed := c.CoerceColumn([]string{"1", "$2", "", "3"})
	for i, v := range mixed {
		if i == 2 {
			assert.True(t, v.IsNull())
			continue
		}
		assert.True(t, v.IsText(), "cell %d should stay text", i)
	}
	assert.Equal(t, "$2", mixed[1].Str)
}

func TestCleanValue(t *testing.T) {
	c := Default()
	assert.Equal(t, table.Number(4), c.CleanValue(table.Number(4)))
	assert.Equal(t, table.Number(1500), c.CleanValue(table.Text("$1,500")))
	assert.True(t, c.CleanValue(table.Text("n/a")).IsNull())
	assert.True(t, c.CleanValue(table.Date(time.Now())).IsNull())
}

func TestDetectDateLayout(t *testing.T) {
	texts := func(ss ...string) []table.Value {
		out := make([]table.Value, len(ss))
		for i, s := range ss {
			out[i] = table.Text(s)
		}
		return out
	}

	tests := []struct {
		name   string
		values []table.Value
		want   string
		ok     bool
	}{
		{"iso", texts("2024-01-05", "2024-1-6"), "%Y-%m-%d", true},
		{"us slashes", texts("01/05/2024", "12/31/2024"), "%m/%d/%Y", true},
		{"day first slashes", texts("31/01/2024", "15/02/2024"), "%d/%m/%Y", true},
		{"day first dashes", texts("01-02-2024", "02-02-2024"), "%d-%m-%Y", true},
		{"compact", []table.Value{table.Number(20240105), table.Null()}, "%Y%m%d", true},
		{"named", texts("Jan 5, 2024", "February 1, 2024"), "", false},
		{"long names", texts("January 5, 2024", "February 1, 2024"), "%B %d, %Y", true},
		{"mixed formats", texts("2024-01-05", "01/06/2024"), "", false},
		{"all null", []table.Value{table.Null()}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := DetectDateLayout(tt.values)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestParseDateDayFirst(t *testing.T) {
	c := Default()

	got, ok := c.ParseDate("01-02-2024", true)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), got)

	got, ok = c.ParseDate("01-02-2024", false)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, ok = c.ParseDate("2024-03-04T10:30:00Z", true)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), got)

	_, ok = c.ParseDate("not a date", false)
	assert.False(t, ok)
}

func TestLooksLikeDates(t *testing.T) {
	c := Default()
	assert.True(t, c.LooksLikeDates([]table.Value{table.Text("2024-01-01"), table.Null(), table.Text("Jan 3, 2024")}, 100))
	assert.False(t, c.LooksLikeDates([]table.Value{table.Text("2024-01-01"), table.Text("soon")}, 100))
	assert.False(t, c.LooksLikeDates([]table.Value{table.Number(1)}, 100))
}
