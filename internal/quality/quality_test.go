package quality

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newChecker() *Checker {
	return NewChecker(func() time.Time { return fixedNow }, internal.NewLogger(internal.LogLevelError))
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

var cleanHeader = []string{"campaign_name", "date", "spend", "clicks", "impressions"}

func cleanRows(n int) [][]interface{} {
	rows := make([][]interface{}, n)
	for i := range rows {
		rows[i] = []interface{}{fmt.Sprintf("c%d", i), time.Date(2024, 5, 1+i%28, 0, 0, 0, 0, time.UTC), 10, 5, 100}
	}
	return rows
}

func TestCheckQualityCleanTable(t *testing.T) {
	report, err := newChecker().CheckQuality(build(t, cleanHeader, cleanRows(10)...))
	require.NoError(t, err)
	assert.Equal(t, 100.0, report.Score)
	assert.Equal(t, "A+", report.Grade)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, core.NewTimestamp(fixedNow), report.Timestamp)
}

func TestClicksAboveImpressionsIsPenalized(t *testing.T) {
	rows := cleanRows(10)
	rows[3][3], rows[3][4] = 150, 100

	report, err := newChecker().CheckQuality(build(t, cleanHeader, rows...))
	require.NoError(t, err)

	penalty := report.Checks.Consistency.Penalty
	assert.Greater(t, penalty, 0.0)
	assert.LessOrEqual(t, penalty, ClickExcessCap)
	assert.Equal(t, 10.0, penalty)
	assert.Equal(t, 90.0, report.Score)
	assert.Equal(t, "A", report.Grade)
	assert.Contains(t, report.Issues, "Found 1 rows where clicks > impressions (impossible)")
}

func TestClicksAboveImpressionsPenaltyIsCapped(t *testing.T) {
	report, err := newChecker().CheckQuality(build(t, []string{"clicks", "impressions"}, []interface{}{150, 100}))
	require.NoError(t, err)
	assert.Equal(t, ClickExcessCap, report.Checks.Consistency.Penalty)
	assert.Equal(t, 85.0, report.Score)
}

func TestScoreIsMonotonicInCriticalMissingness(t *testing.T) {
	checker := newChecker()
	previous := 101.0
	for k := 0; k <= 20; k++ {
		rows := cleanRows(20)
		for i := 0; i < k; i++ {
			rows[i][2] = nil
		}
		report, err := checker.CheckQuality(build(t, cleanHeader, rows...))
		require.NoError(t, err)
		assert.LessOrEqual(t, report.Score, previous, "k=%d", k)
		assert.GreaterOrEqual(t, report.Score, 0.0)
		previous = report.Score
	}
	assert.Len(t, checker.Reports(), 21)
}

func TestUniquenessAndValidity(t *testing.T) {
	in := build(t, []string{"campaign_name", "spend", "clicks", "ctr"},
		[]interface{}{"a", 10, 1, 2.0},
		[]interface{}{"a", 10, 1, 2.0},
		[]interface{}{"a", -5, -1, 60.0},
		[]interface{}{"a", 20, 2, 3.0},
	)
	report, err := newChecker().CheckQuality(in)
	require.NoError(t, err)

	assert.Equal(t, DuplicateCap, report.Checks.Uniqueness.Penalty)
	assert.Equal(t, 1, *report.Checks.Uniqueness.DuplicateRows)
	assert.Contains(t, report.Warnings, "Found 1 duplicate rows (25.0%)")
	assert.Contains(t, report.Warnings, "Only 1 unique campaign found")

	assert.Equal(t, InvalidCTRCap+NegativeSpendCap+NegativeVolumeCap, report.Checks.Validity.Penalty)
	assert.Equal(t, 100-DuplicateCap-InvalidCTRCap-NegativeSpendCap-NegativeVolumeCap, report.Score)
	assert.Equal(t, "D", report.Grade)
}

func TestCTRDriftWarnsWithoutPenalty(t *testing.T) {
	in := build(t, []string{"clicks", "impressions", "ctr"},
		[]interface{}{10, 100, 10.0},
		[]interface{}{10, 100, 15.0},
		[]interface{}{0, 0, 5.0},
	)
	report, err := newChecker().CheckQuality(in)
	require.NoError(t, err)
	assert.Zero(t, report.Checks.Consistency.Penalty)
	assert.Equal(t, []string{"Found 1 rows with inconsistent CTR values"}, report.Checks.Consistency.Warnings)
}

func TestTimeliness(t *testing.T) {
	in := build(t, []string{"date"},
		[]interface{}{"2030-01-01"},
		[]interface{}{"2020-01-01"},
		[]interface{}{"garbage"},
		[]interface{}{"2024-05-01"},
		[]interface{}{nil},
	)
	report, err := newChecker().CheckQuality(in)
	require.NoError(t, err)

	tl := report.Checks.Timeliness
	assert.Zero(t, tl.Penalty)
	assert.Equal(t, []string{
		"Could not parse 1 date values",
		"Found 1 rows with future dates",
		"Found 1 rows with dates older than 2 years",
	}, tl.Warnings)
	assert.Equal(t, map[string]string{"start": "2020-01-01", "end": "2030-01-01"}, tl.DateRange)
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A+"}, {95, "A+"}, {94.9, "A"}, {90, "A"}, {85, "B+"}, {80, "B"},
		{79.9, "C"}, {70, "C"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tt.score))
		})
	}
}

func TestCheckQualityNilTable(t *testing.T) {
	_, err := newChecker().CheckQuality(nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestDetectAnomaliesZScore(t *testing.T) {
	rows := [][]interface{}{{"dropped", 0}}
	for i := 0; i < 19; i++ {
		rows = append(rows, []interface{}{"c", 10})
	}
	rows = append(rows, []interface{}{"c", 100})
	in := build(t, []string{"campaign_name", "spend"}, rows...)
	in.FilterRows(func(i int) bool { return i > 0 })

	report, err := newChecker().DetectAnomalies(in, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"spend"}, report.ColumnsAnalyzed)
	require.Len(t, report.Anomalies, 1, "the IQR hit on the same cell is merged")
	a := report.Anomalies[0]
	assert.Equal(t, AnomalyMethodZScore, a.Type)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, 19, a.Position)
	assert.Equal(t, 20, a.RowID)
	assert.Equal(t, 100.0, a.Value)
	require.NotNil(t, a.ZScore)
	assert.Greater(t, *a.ZScore, HighZScore)
	require.NotNil(t, a.PValue)
	assert.Less(t, *a.PValue, 0.01)

	s := report.Summary["spend"]
	assert.Equal(t, 14.5, s.Mean)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 100.0, s.Max)
	assert.Equal(t, 1, s.OutlierCount)
}

func TestDetectAnomaliesIQROnly(t *testing.T) {
	var rows [][]interface{}
	for i := 0; i < 15; i++ {
		rows = append(rows, []interface{}{10})
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, []interface{}{12})
	}
	report, err := newChecker().DetectAnomalies(build(t, []string{"clicks"}, rows...), []string{"clicks"})
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 5)
	for _, a := range report.Anomalies {
		assert.Equal(t, AnomalyMethodIQR, a.Type)
		assert.Equal(t, SeverityMedium, a.Severity)
		assert.Nil(t, a.ZScore)
		assert.Equal(t, "9.25 to 11.25", a.ExpectedRange)
	}
}

func TestDetectAnomaliesSkipsSmallAndTextColumns(t *testing.T) {
	var rows [][]interface{}
	for i := 0; i < 9; i++ {
		rows = append(rows, []interface{}{i, "x"})
	}
	report, err := newChecker().DetectAnomalies(build(t, []string{"spend", "ctr"}, rows...), nil)
	require.NoError(t, err)
	assert.Empty(t, report.ColumnsAnalyzed)
	assert.Empty(t, report.Anomalies)
}

func TestDetectPerformanceAnomalies(t *testing.T) {
	checker := newChecker()

	t.Run("high cpa", func(t *testing.T) {
		var rows [][]interface{}
		for i := 1; i <= 10; i++ {
			rows = append(rows, []interface{}{fmt.Sprintf("c%d", i), i})
		}
		report, err := checker.DetectPerformanceAnomalies(build(t, []string{"campaign_name", "cpa"}, rows...))
		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, IssueHighCPA, report.Issues[0].Type)
		assert.Equal(t, "c10", report.Issues[0].Campaign)
		assert.InDelta(t, 9.1, *report.Issues[0].Threshold, 1e-9)
		assert.Equal(t, []string{"Consider pausing or optimizing campaign 'c10' - CPA is $10.00 (above 90th percentile)"}, report.Recommendations)
	})

	t.Run("low ctr needs volume", func(t *testing.T) {
		var rows [][]interface{}
		for i := 1; i <= 10; i++ {
			rows = append(rows, []interface{}{fmt.Sprintf("c%d", i), float64(i), 5000})
		}
		quiet := append([][]interface{}{}, rows...)
		quiet[0] = []interface{}{"c1", 1.0, 500}

		report, err := checker.DetectPerformanceAnomalies(build(t, []string{"campaign_name", "ctr", "impressions"}, rows...))
		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, IssueLowCTR, report.Issues[0].Type)

		report, err = checker.DetectPerformanceAnomalies(build(t, []string{"campaign_name", "ctr", "impressions"}, quiet...))
		require.NoError(t, err)
		assert.Empty(t, report.Issues)
	})

	t.Run("budget drainage", func(t *testing.T) {
		var rows [][]interface{}
		for i := 1; i <= 8; i++ {
			rows = append(rows, []interface{}{fmt.Sprintf("c%d", i), i, 3})
		}
		rows[7][2] = 0
		rows[0][2] = 0
		report, err := checker.DetectPerformanceAnomalies(build(t, []string{"campaign_name", "spend", "conversions"}, rows...))
		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, IssueBudgetDrainage, report.Issues[0].Type)
		assert.Equal(t, "PAUSE RECOMMENDED: 'c8' spent $8.00 with 0 conversions", report.Issues[0].Recommendation)
	})

	t.Run("roas below break even", func(t *testing.T) {
		report, err := checker.DetectPerformanceAnomalies(build(t, []string{"campaign_name", "roas"},
			[]interface{}{"a", 0.5}, []interface{}{"b", 2.0}, []interface{}{"c", nil}))
		require.NoError(t, err)
		require.Len(t, report.Issues, 1)
		assert.Equal(t, IssueNegativeROAS, report.Issues[0].Type)
		assert.Equal(t, "'a' has ROAS of 0.50x (losing money on ad spend)", report.Issues[0].Recommendation)
		assert.Nil(t, report.Issues[0].Threshold)
	})

	t.Run("no campaign column", func(t *testing.T) {
		report, err := checker.DetectPerformanceAnomalies(build(t, []string{"roas"}, []interface{}{0.1}))
		require.NoError(t, err)
		assert.Empty(t, report.Issues)
	})
}
