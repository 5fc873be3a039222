package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

func TestQuantileLinear(t *testing.T) {
	data := []float64{4, 1, 3, 2}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{0.9, 3.7},
		{1, 4},
	}
	for _, tt := range tests {
		got, ok := Quantile(data, tt.q)
		require.True(t, ok)
		assert.InDelta(t, tt.want, got, 1e-9, "q=%v", tt.q)
	}

	_, ok := Quantile(nil, 0.5)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 5.0, s.Mean)
	assert.InDelta(t, 2.138, s.StdDev, 1e-3)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 4.5, s.Median)
	assert.Equal(t, 40.0, s.Sum)

	_, err = Summarize(nil)
	assert.Error(t, err)
}

func TestTwoSidedPValue(t *testing.T) {
	assert.InDelta(t, 1.0, TwoSidedPValue(0), 1e-12)
	assert.InDelta(t, 0.0455, TwoSidedPValue(2), 1e-3)
	assert.Equal(t, TwoSidedPValue(-3), TwoSidedPValue(3))
}

func TestProfile(t *testing.T) {
	b := table.NewBuilder("date", "campaign", "clicks")
	b.AppendValues([]table.Value{table.Text("2024-01-01"), table.Text("A"), table.Number(1)})
	b.AppendValues([]table.Value{table.Text("2024-01-02"), table.Null(), table.Number(2)})
	b.AppendValues([]table.Value{table.Text("2024-01-01"), table.Text("A"), table.Number(1)})
	tbl := b.Build()

	stats := NewProfiler(nil).Profile(tbl)
	assert.Equal(t, 3, stats.TotalRows)
	assert.Equal(t, 3, stats.TotalColumns)
	assert.Equal(t, 1, stats.DuplicateRows)
	assert.Equal(t, 1, stats.MissingValues["campaign"])
	assert.Equal(t, table.TypeNumber, stats.Dtypes["clicks"])
	assert.Equal(t, []string{"date"}, stats.DateColumns)
	assert.Equal(t, []string{"clicks"}, stats.NumericColumns)
	assert.Contains(t, stats.MemoryUsage, "MB")
}
