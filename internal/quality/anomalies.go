package quality

import (
	"fmt"
	"math"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/profiling"
)

// Anomaly detection thresholds
const (
	ZScoreThreshold     = 2.5
	HighZScore          = 3.0
	IQRMultiplier       = 1.5
	MinSampleSize       = 10
	SignificantVolume   = 1000.0
	HighCPAQuantile     = 0.9
	LowCTRQuantile      = 0.1
	HighSpendQuantile   = 0.75
	BreakEvenROAS       = 1.0
	AnomalyMethodZScore = "z_score_outlier"
	AnomalyMethodIQR    = "iqr_outlier"
	SeverityHigh        = "high"
	SeverityMedium      = "medium"
)

// Performance issue types
const (
	IssueHighCPA        = "high_cpa"
	IssueLowCTR         = "low_ctr"
	IssueBudgetDrainage = "budget_drainage"
	IssueNegativeROAS   = "negative_roas"
)

// DefaultAnomalyColumns are scanned when the caller names none
var DefaultAnomalyColumns = []string{
	schema.Spend, schema.Clicks, schema.Impressions, schema.Conversions,
	schema.CTR, schema.CPC, schema.CPM, schema.ROAS,
}

// Anomaly is one outlying cell. RowID is the stable row identifier; Position is the row's
// index in the table that was scanned.
type Anomaly struct {
	Type          string   `json:"type"`
	Column        string   `json:"column"`
	RowID         int      `json:"row_id"`
	Position      int      `json:"row_index"`
	Value         float64  `json:"value"`
	ZScore        *float64 `json:"z_score,omitempty"`
	PValue        *float64 `json:"p_value,omitempty"`
	Lower         float64  `json:"lower_bound"`
	Upper         float64  `json:"upper_bound"`
	ExpectedRange string   `json:"expected_range"`
	Severity      string   `json:"severity"`
}

// ColumnSummary describes one scanned column
type ColumnSummary struct {
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	OutlierCount int     `json:"outlier_count"`
}

// AnomalyReport is the result of DetectAnomalies
type AnomalyReport struct {
	Timestamp       core.Timestamp           `json:"timestamp"`
	Method          string                   `json:"method"`
	ColumnsAnalyzed []string                 `json:"columns_analyzed"`
	Anomalies       []Anomaly                `json:"anomalies"`
	Summary         map[string]ColumnSummary `json:"summary"`
}

// DetectAnomalies flags z-score and IQR outliers in every numeric column with enough
// samples. A cell flagged by both methods is reported once, as a z-score outlier.
func (c *Checker) DetectAnomalies(t *table.Table, columns []string) (*AnomalyReport, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: table is nil", core.ErrInvalidInput)
	}
	if len(columns) == 0 {
		columns = DefaultAnomalyColumns
	}

	report := &AnomalyReport{
		Timestamp:       core.NewTimestamp(c.clock()),
		Method:          "z_score_and_iqr",
		ColumnsAnalyzed: []string{},
		Anomalies:       []Anomaly{},
		Summary:         map[string]ColumnSummary{},
	}

	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok || !col.IsNumeric() {
			continue
		}
		var positions []int
		var values []float64
		for i, v := range col.Values {
			if f, ok := v.Float(); ok {
				positions = append(positions, i)
				values = append(values, f)
			}
		}
		if len(values) < MinSampleSize {
			continue
		}
		report.ColumnsAnalyzed = append(report.ColumnsAnalyzed, name)

		found := scanColumn(t, name, positions, values)
		report.Anomalies = append(report.Anomalies, found...)

		summary, err := profiling.Summarize(values)
		if err != nil {
			return nil, err
		}
		report.Summary[name] = ColumnSummary{
			Mean:         summary.Mean,
			Std:          summary.StdDev,
			Min:          summary.Min,
			Max:          summary.Max,
			OutlierCount: len(found),
		}
	}

	c.logger.Info("[Quality] %d anomalies across %d columns", len(report.Anomalies), len(report.ColumnsAnalyzed))
	return report, nil
}

func scanColumn(t *table.Table, name string, positions []int, values []float64) []Anomaly {
	var out []Anomaly
	flagged := make(map[int]bool)

	mean, std := profiling.MeanStd(values)
	if std > 0 {
		lower, upper := mean-ZScoreThreshold*std, mean+ZScoreThreshold*std
		for i, v := range values {
			z := math.Abs(v-mean) / std
			if z <= ZScoreThreshold {
				continue
			}
			severity := SeverityMedium
			if z > HighZScore {
				severity = SeverityHigh
			}
			p := profiling.TwoSidedPValue(z)
			zs := z
			out = append(out, newAnomaly(t, AnomalyMethodZScore, name, positions[i], v, lower, upper, severity))
			out[len(out)-1].ZScore = &zs
			out[len(out)-1].PValue = &p
			flagged[positions[i]] = true
		}
	}

	q1, _ := profiling.Quantile(values, 0.25)
	q3, _ := profiling.Quantile(values, 0.75)
	iqr := q3 - q1
	lower, upper := q1-IQRMultiplier*iqr, q3+IQRMultiplier*iqr
	for i, v := range values {
		if (v >= lower && v <= upper) || flagged[positions[i]] {
			continue
		}
		out = append(out, newAnomaly(t, AnomalyMethodIQR, name, positions[i], v, lower, upper, SeverityMedium))
	}
	return out
}

func newAnomaly(t *table.Table, method, column string, pos int, v, lower, upper float64, severity string) Anomaly {
	return Anomaly{
		Type:          method,
		Column:        column,
		RowID:         t.RowID(pos),
		Position:      pos,
		Value:         v,
		Lower:         lower,
		Upper:         upper,
		ExpectedRange: fmt.Sprintf("%.2f to %.2f", lower, upper),
		Severity:      severity,
	}
}

// PerformanceIssue is one marketing-performance finding
type PerformanceIssue struct {
	Type           string   `json:"type"`
	Campaign       string   `json:"campaign"`
	RowID          int      `json:"row_id"`
	Metric         string   `json:"metric"`
	Value          float64  `json:"value"`
	Threshold      *float64 `json:"threshold,omitempty"`
	Recommendation string   `json:"recommendation"`
}

// PerformanceReport is the result of DetectPerformanceAnomalies
type PerformanceReport struct {
	Timestamp       core.Timestamp     `json:"timestamp"`
	Issues          []PerformanceIssue `json:"issues"`
	Recommendations []string           `json:"recommendations"`
}

// DetectPerformanceAnomalies applies the marketing heuristics: CPA above the 90th
// percentile, CTR below the 10th percentile on significant volume, top-quartile spend
// with no conversions and ROAS below break-even. Each rule needs campaign_name plus its
// own metric columns and is skipped otherwise.
func (c *Checker) DetectPerformanceAnomalies(t *table.Table) (*PerformanceReport, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: table is nil", core.ErrInvalidInput)
	}
	report := &PerformanceReport{
		Timestamp:       core.NewTimestamp(c.clock()),
		Issues:          []PerformanceIssue{},
		Recommendations: []string{},
	}
	if !t.HasColumn(schema.CampaignName) {
		return report, nil
	}

	add := func(issue PerformanceIssue) {
		report.Issues = append(report.Issues, issue)
		report.Recommendations = append(report.Recommendations, issue.Recommendation)
	}
	campaign := func(i int) string { return t.Value(i, schema.CampaignName).String() }

	if threshold, ok := quantileOf(t, schema.CPA, HighCPAQuantile); ok {
		eachRow(t, func(i int) {
			cpa, ok := t.Value(i, schema.CPA).Float()
			if !ok || cpa <= threshold {
				return
			}
			add(PerformanceIssue{
				Type: IssueHighCPA, Campaign: campaign(i), RowID: t.RowID(i), Metric: schema.CPA,
				Value: cpa, Threshold: ptr(threshold),
				Recommendation: fmt.Sprintf("Consider pausing or optimizing campaign '%s' - CPA is $%.2f (above 90th percentile)", campaign(i), cpa),
			})
		})
	}

	if threshold, ok := quantileOf(t, schema.CTR, LowCTRQuantile); ok && t.HasColumn(schema.Impressions) {
		eachRow(t, func(i int) {
			ctr, ok := t.Value(i, schema.CTR).Float()
			impressions, okI := t.Value(i, schema.Impressions).Float()
			if !ok || !okI || ctr >= threshold || impressions <= SignificantVolume {
				return
			}
			add(PerformanceIssue{
				Type: IssueLowCTR, Campaign: campaign(i), RowID: t.RowID(i), Metric: schema.CTR,
				Value: ctr, Threshold: ptr(threshold),
				Recommendation: fmt.Sprintf("Review ad creatives for '%s' - CTR is %.2f%% (below 10th percentile)", campaign(i), ctr),
			})
		})
	}

	if threshold, ok := quantileOf(t, schema.Spend, HighSpendQuantile); ok && t.HasColumn(schema.Conversions) {
		eachRow(t, func(i int) {
			spend, ok := t.Value(i, schema.Spend).Float()
			conversions, okC := t.Value(i, schema.Conversions).Float()
			if !ok || !okC || spend <= threshold || conversions != 0 {
				return
			}
			add(PerformanceIssue{
				Type: IssueBudgetDrainage, Campaign: campaign(i), RowID: t.RowID(i), Metric: schema.Spend,
				Value: spend, Threshold: ptr(threshold),
				Recommendation: fmt.Sprintf("PAUSE RECOMMENDED: '%s' spent $%.2f with 0 conversions", campaign(i), spend),
			})
		})
	}

	if t.HasColumn(schema.ROAS) {
		eachRow(t, func(i int) {
			roas, ok := t.Value(i, schema.ROAS).Float()
			if !ok || roas >= BreakEvenROAS {
				return
			}
			add(PerformanceIssue{
				Type: IssueNegativeROAS, Campaign: campaign(i), RowID: t.RowID(i), Metric: schema.ROAS,
				Value:          roas,
				Recommendation: fmt.Sprintf("'%s' has ROAS of %.2fx (losing money on ad spend)", campaign(i), roas),
			})
		})
	}

	c.logger.Info("[Quality] %d performance issues", len(report.Issues))
	return report, nil
}

// quantileOf computes a quantile over the numeric cells of a column
func quantileOf(t *table.Table, name string, q float64) (float64, bool) {
	col, ok := t.Column(name)
	if !ok {
		return 0, false
	}
	return profiling.Quantile(col.Floats(), q)
}

func eachRow(t *table.Table, fn func(i int)) {
	for i := 0; i < t.NumRows(); i++ {
		fn(i)
	}
}

func ptr(f float64) *float64 { return &f }
