package dataset

import (
	"fmt"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// Granularity is the time bucket of a date aggregation
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// PeriodColumn names the bucket column of a date aggregation
const PeriodColumn = "period"

var (
	dateSumColumns     = []string{schema.Impressions, schema.Clicks, schema.Spend, schema.Conversions, schema.ConversionValue, schema.Reach, schema.VideoViews}
	dateMeanColumns    = []string{schema.CTR, schema.CPC, schema.CPM, schema.CPA, schema.ROAS}
	campaignSumColumns = []string{schema.Impressions, schema.Clicks, schema.Spend, schema.Conversions, schema.ConversionValue}
	campaignMeanCols   = []string{schema.CTR, schema.CPC, schema.CPM, schema.ROAS}
)

// DateAggregation is the result of AggregateByDate
type DateAggregation struct {
	Data        *table.Table `json:"-"`
	Granularity Granularity  `json:"granularity"`
	Periods     int          `json:"periods"`
	DroppedRows int          `json:"dropped_rows"`
}

// CampaignAggregation is the result of AggregateByCampaign
type CampaignAggregation struct {
	Data           *table.Table `json:"-"`
	TotalCampaigns int          `json:"total_campaigns"`
}

// AggregateByDate buckets rows by period (and platform when present), sums volume
// metrics, averages ratio metrics and recomputes CTR, CPC and CPM from the sums.
// Ambiguous numeric dates are read day first.
func (m *Merger) AggregateByDate(t *table.Table, granularity Granularity) (*DateAggregation, error) {
	if granularity == "" {
		granularity = Daily
	}
	if granularity != Daily && granularity != Weekly && granularity != Monthly {
		return nil, fmt.Errorf("%w: unknown granularity %q", core.ErrInvalidInput, granularity)
	}
	dateCol, err := resolveColumn(t, "date", DateColumnCandidates)
	if err != nil {
		return nil, err
	}

	work := t.Clone()
	c := coercer.Default()
	periods := make([]table.Value, work.NumRows())
	for i := range periods {
		d, ok := c.ParseDateValue(work.Value(i, dateCol), true)
		if !ok {
			periods[i] = table.Null()
			continue
		}
		periods[i] = periodOf(d, granularity)
	}
	if err := work.AddColumn(PeriodColumn, periods); err != nil {
		// an input column already called "period" is replaced
		if err := work.SetColumn(PeriodColumn, periods); err != nil {
			return nil, err
		}
	}
	dropped := work.FilterRows(func(i int) bool { return !periods[i].IsNull() })
	if dropped > 0 {
		m.logger.Warn("[Merger] dropped %d rows with unparseable dates", dropped)
	}

	keys := []string{PeriodColumn}
	if platformCol, ok := work.FindColumn(PlatformColumnCandidates); ok {
		keys = append(keys, platformCol)
	}

	out := aggregate(work, keys, dateSumColumns, dateMeanColumns)
	if len(keys) > 1 {
		renameTo(out, keys[1], schema.Platform)
	}
	recompute(out, 4, ratioCTR, ratioCPC, ratioCPM)

	distinct := 0
	if col, ok := out.Column(PeriodColumn); ok {
		distinct = col.Distinct()
	}
	return &DateAggregation{Data: out, Granularity: granularity, Periods: distinct, DroppedRows: dropped}, nil
}

// AggregateByCampaign groups rows by campaign (and platform when requested and present),
// sums volume metrics, averages ratios and recomputes CTR, CPA and ROAS from the sums
func (m *Merger) AggregateByCampaign(t *table.Table, platformBreakdown bool) (*CampaignAggregation, error) {
	campaignCol, err := resolveColumn(t, "campaign", CampaignColumnCandidates)
	if err != nil {
		return nil, err
	}

	keys := []string{campaignCol}
	if platformBreakdown {
		if platformCol, ok := t.FindColumn(PlatformColumnCandidates); ok {
			keys = append(keys, platformCol)
		}
	}

	out := aggregate(t, keys, campaignSumColumns, campaignMeanCols)
	renameTo(out, campaignCol, schema.CampaignName)
	if len(keys) > 1 {
		renameTo(out, keys[1], schema.Platform)
	}
	recompute(out, 4, ratioCTR, ratioCPA, ratioROAS)

	total := 0
	if col, ok := out.Column(schema.CampaignName); ok {
		total = col.Distinct()
	}
	return &CampaignAggregation{Data: out, TotalCampaigns: total}, nil
}

// aggregate groups by keys and emits key columns, then sums, then means of the present columns
func aggregate(t *table.Table, keys, sums, means []string) *table.Table {
	groups := t.GroupBy(keys...)
	out := table.New(len(groups))

	for k, name := range keys {
		values := make([]table.Value, len(groups))
		for g, grp := range groups {
			values[g] = grp.Key[k]
		}
		_ = out.AddColumn(name, values)
	}
	for _, name := range present(t, sums) {
		values := make([]table.Value, len(groups))
		for g, grp := range groups {
			values[g] = table.Number(sumRows(t, name, grp.Rows))
		}
		_ = out.AddColumn(name, values)
	}
	for _, name := range present(t, means) {
		values := make([]table.Value, len(groups))
		for g, grp := range groups {
			values[g] = meanRows(t, name, grp.Rows)
		}
		_ = out.AddColumn(name, values)
	}
	return out
}

// ratio is a derived metric recomputed from aggregated sums
type ratio struct {
	name    string
	num     string
	den     string
	formula func(num, den *float64) (float64, bool)
}

var (
	ratioCTR  = ratio{schema.CTR, schema.Clicks, schema.Impressions, schema.CalcCTR}
	ratioCPC  = ratio{schema.CPC, schema.Spend, schema.Clicks, schema.CalcCPC}
	ratioCPM  = ratio{schema.CPM, schema.Spend, schema.Impressions, schema.CalcCPM}
	ratioCPA  = ratio{schema.CPA, schema.Spend, schema.Conversions, schema.CalcCPA}
	ratioROAS = ratio{schema.ROAS, schema.ConversionValue, schema.Spend, schema.CalcROAS}
)

// recompute overwrites (or appends) ratio columns whose inputs are present. Zero or
// missing denominators give null.
func recompute(t *table.Table, places int32, ratios ...ratio) {
	for _, r := range ratios {
		if !t.HasColumn(r.num) || !t.HasColumn(r.den) {
			continue
		}
		values := make([]table.Value, t.NumRows())
		for i := range values {
			v, ok := r.formula(t.Value(i, r.num).Ptr(), t.Value(i, r.den).Ptr())
			if !ok {
				values[i] = table.Null()
				continue
			}
			values[i] = table.Number(schema.Round(v, places))
		}
		_ = t.SetColumn(r.name, values)
	}
}

func sumRows(t *table.Table, name string, rows []int) float64 {
	sum := 0.0
	for _, i := range rows {
		if f, ok := t.Value(i, name).Float(); ok {
			sum += f
		}
	}
	return sum
}

func meanRows(t *table.Table, name string, rows []int) table.Value {
	sum, n := 0.0, 0
	for _, i := range rows {
		if f, ok := t.Value(i, name).Float(); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return table.Null()
	}
	return table.Number(sum / float64(n))
}

func present(t *table.Table, names []string) []string {
	var out []string
	for _, n := range names {
		if t.HasColumn(n) {
			out = append(out, n)
		}
	}
	return out
}

// renameTo gives a key column its standard name unless that name is already in use
func renameTo(t *table.Table, from, to string) {
	if from == to || t.HasColumn(to) {
		return
	}
	_ = t.RenameColumn(from, to)
}

// periodOf buckets a date: the day itself, the Monday-Sunday week, or the calendar month
func periodOf(d time.Time, g Granularity) table.Value {
	switch g {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		start := d.AddDate(0, 0, -offset)
		end := start.AddDate(0, 0, 6)
		return table.Text(start.Format(table.DateLayout) + "/" + end.Format(table.DateLayout))
	case Monthly:
		return table.Text(d.Format("2006-01"))
	}
	return table.Date(d)
}
