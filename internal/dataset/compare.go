package dataset

import (
	"sort"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// PlatformStats is one row of a platform comparison. Absent inputs and uncomputable
// ratios are nil.
type PlatformStats struct {
	Platform        string   `json:"platform"`
	Rows            int      `json:"rows"`
	Spend           *float64 `json:"spend"`
	Impressions     *float64 `json:"impressions"`
	Clicks          *float64 `json:"clicks"`
	Conversions     *float64 `json:"conversions"`
	ConversionValue *float64 `json:"conversion_value"`
	CTR             *float64 `json:"ctr"`
	CPC             *float64 `json:"cpc"`
	CPM             *float64 `json:"cpm"`
	CPA             *float64 `json:"cpa"`
	ROAS            *float64 `json:"roas"`
	SpendShare      *float64 `json:"spend_share"`
}

// PlatformComparison is the result of ComparePlatforms
type PlatformComparison struct {
	PlatformStats  []PlatformStats     `json:"platform_stats"`
	Rankings       map[string][]string `json:"rankings"`
	TotalPlatforms int                 `json:"total_platforms"`
}

// ComparePlatforms sums the core volume metrics per platform, derives CTR, CPC, CPM, CPA
// and ROAS from the sums, computes each platform's share of spend and ranks platforms by
// ROAS and CTR (descending) and CPA (ascending). Rows without a platform are grouped as unknown.
func (m *Merger) ComparePlatforms(t *table.Table) (*PlatformComparison, error) {
	platformCol, err := resolveColumn(t, "platform", PlatformColumnCandidates)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*PlatformStats)
	var order []string
	for _, g := range t.GroupBy(platformCol) {
		name := schema.PlatformUnknown
		if !g.Key[0].IsNull() {
			name = g.Key[0].String()
		}
		ps, ok := byName[name]
		if !ok {
			ps = &PlatformStats{Platform: name}
			byName[name] = ps
			order = append(order, name)
		}
		ps.Rows += len(g.Rows)
		addSum(&ps.Spend, t, schema.Spend, g.Rows)
		addSum(&ps.Impressions, t, schema.Impressions, g.Rows)
		addSum(&ps.Clicks, t, schema.Clicks, g.Rows)
		addSum(&ps.Conversions, t, schema.Conversions, g.Rows)
		addSum(&ps.ConversionValue, t, schema.ConversionValue, g.Rows)
	}
	sort.Strings(order)

	totalSpend := 0.0
	for _, ps := range byName {
		if ps.Spend != nil {
			totalSpend += *ps.Spend
		}
	}

	stats := make([]PlatformStats, 0, len(order))
	for _, name := range order {
		ps := byName[name]
		ps.CTR = derive(schema.CalcCTR, ps.Clicks, ps.Impressions, 2)
		ps.CPC = derive(schema.CalcCPC, ps.Spend, ps.Clicks, 2)
		ps.CPM = derive(schema.CalcCPM, ps.Spend, ps.Impressions, 2)
		ps.CPA = derive(schema.CalcCPA, ps.Spend, ps.Conversions, 2)
		ps.ROAS = derive(schema.CalcROAS, ps.ConversionValue, ps.Spend, 2)
		if ps.Spend != nil && totalSpend != 0 {
			share := schema.Round(*ps.Spend/totalSpend*100, 1)
			ps.SpendShare = &share
		}
		stats = append(stats, *ps)
	}

	rankings := map[string][]string{
		schema.ROAS: rank(stats, func(p PlatformStats) *float64 { return p.ROAS }, true),
		schema.CTR:  rank(stats, func(p PlatformStats) *float64 { return p.CTR }, true),
		schema.CPA:  rank(stats, func(p PlatformStats) *float64 { return p.CPA }, false),
	}

	return &PlatformComparison{PlatformStats: stats, Rankings: rankings, TotalPlatforms: len(stats)}, nil
}

func addSum(dst **float64, t *table.Table, name string, rows []int) {
	if !t.HasColumn(name) {
		return
	}
	if *dst == nil {
		*dst = new(float64)
	}
	**dst += sumRows(t, name, rows)
}

func derive(formula func(num, den *float64) (float64, bool), num, den *float64, places int32) *float64 {
	v, ok := formula(num, den)
	if !ok {
		return nil
	}
	v = schema.Round(v, places)
	return &v
}

// rank orders platform names best to worst by one metric; nil metrics rank last
func rank(stats []PlatformStats, metric func(PlatformStats) *float64, descending bool) []string {
	sorted := append([]PlatformStats(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := metric(sorted[i]), metric(sorted[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case descending:
			return *a > *b
		}
		return *a < *b
	})
	names := make([]string, len(sorted))
	for i, s := range sorted {
		names[i] = s.Platform
	}
	return names
}
