package dataset

import (
	"fmt"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// LabelledTable is one platform's dataset for a unified report
type LabelledTable struct {
	Platform string
	Table    *table.Table
}

// DateRange spans the parseable dates of a table
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// UnifiedSummary counts what went into a unified report
type UnifiedSummary struct {
	TotalPlatforms int `json:"total_platforms"`
	TotalCampaigns int `json:"total_campaigns"`
	TotalRows      int `json:"total_rows"`
}

// UnifiedReport is a cross-platform view of several labelled datasets
type UnifiedReport struct {
	Data               *table.Table        `json:"-"`
	OverallMetrics     map[string]float64  `json:"overall_metrics"`
	PlatformComparison *PlatformComparison `json:"platform_comparison,omitempty"`
	DateRange          *DateRange          `json:"date_range"`
	Summary            UnifiedSummary      `json:"summary"`
}

// CreateUnifiedReport labels every dataset with its platform, stacks them and computes
// overall totals, a platform comparison and the covered date range
func (m *Merger) CreateUnifiedReport(datasets []LabelledTable) (*UnifiedReport, error) {
	if len(datasets) == 0 {
		return nil, fmt.Errorf("%w: no data provided", core.ErrInvalidInput)
	}

	tables := make([]*table.Table, len(datasets))
	for i, d := range datasets {
		if d.Table == nil {
			return nil, fmt.Errorf("%w: dataset %q is nil", core.ErrInvalidInput, d.Platform)
		}
		labelled := d.Table.Clone()
		values := make([]table.Value, labelled.NumRows())
		for j := range values {
			values[j] = table.Text(d.Platform)
		}
		_ = labelled.SetColumn(schema.Platform, values)
		tables[i] = labelled
	}
	merged := appendTables(tables)

	overall := make(map[string]float64)
	all := make([]int, merged.NumRows())
	for i := range all {
		all[i] = i
	}
	for _, name := range []string{schema.Spend, schema.Impressions, schema.Clicks, schema.Conversions, schema.ConversionValue} {
		if merged.HasColumn(name) {
			overall[name] = sumRows(merged, name, all)
		}
	}
	setOverall(overall, schema.CTR, schema.Clicks, schema.Impressions, 100)
	setOverall(overall, schema.CPC, schema.Spend, schema.Clicks, 1)
	setOverall(overall, schema.CPA, schema.Spend, schema.Conversions, 1)
	setOverall(overall, schema.ROAS, schema.ConversionValue, schema.Spend, 1)

	comparison, err := m.ComparePlatforms(merged)
	if err != nil {
		return nil, err
	}

	report := &UnifiedReport{
		Data:               merged,
		OverallMetrics:     overall,
		PlatformComparison: comparison,
		DateRange:          dateRange(merged),
		Summary: UnifiedSummary{
			TotalPlatforms: len(datasets),
			TotalRows:      merged.NumRows(),
		},
	}
	if col, ok := merged.Column(schema.CampaignName); ok {
		report.Summary.TotalCampaigns = col.Distinct()
	}

	m.logger.Info("[Merger] unified report over %d platforms, %d rows", len(datasets), merged.NumRows())
	return report, nil
}

// setOverall adds a ratio when both totals are present and non-zero
func setOverall(m map[string]float64, name, num, den string, scale float64) {
	n, okN := m[num]
	d, okD := m[den]
	if !okN || !okD || n == 0 || d == 0 {
		return
	}
	m[name] = n / d * scale
}

// dateRange returns the first and last parseable date, reading ambiguous dates day first
func dateRange(t *table.Table) *DateRange {
	name, ok := t.FindColumn(DateColumnCandidates)
	if !ok {
		return nil
	}
	c := coercer.Default()
	var lo, hi time.Time
	found := false
	for i := 0; i < t.NumRows(); i++ {
		d, ok := c.ParseDateValue(t.Value(i, name), true)
		if !ok {
			continue
		}
		if !found || d.Before(lo) {
			lo = d
		}
		if !found || d.After(hi) {
			hi = d
		}
		found = true
	}
	if !found {
		return nil
	}
	return &DateRange{
		Start: lo.Format(table.DateLayout),
		End:   hi.Format(table.DateLayout),
		Days:  int(hi.Sub(lo).Hours()/24) + 1,
	}
}
