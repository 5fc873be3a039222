// Package quality scores tables on completeness, uniqueness, validity, consistency and
// timeliness, and finds statistical and marketing-performance anomalies.
package quality

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

// Penalty caps and thresholds
const (
	CompletenessThreshold = 0.95
	CriticalColumnCap     = 20.0
	DuplicateCap          = 10.0
	DuplicateWeight       = 50.0
	InvalidCTRCap         = 10.0
	NegativeSpendCap      = 15.0
	NegativeVolumeCap     = 5.0
	ClickExcessCap        = 15.0
	CTRTolerance          = 1.0
	MaxDataAgeYears       = 2
)

// ValidCTRRange bounds plausible CTR percentages
var ValidCTRRange = [2]float64{0, 50}

// CheckResult is the outcome of one quality dimension
type CheckResult struct {
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
	Penalty  float64  `json:"penalty"`

	CompletenessRatio *float64          `json:"completeness_ratio,omitempty"`
	MissingByColumn   map[string]int    `json:"missing_by_column,omitempty"`
	DuplicateRows     *int              `json:"duplicate_rows,omitempty"`
	UniquenessRatio   *float64          `json:"uniqueness_ratio,omitempty"`
	DateRange         map[string]string `json:"date_range,omitempty"`
}

func newCheckResult() CheckResult {
	return CheckResult{Issues: []string{}, Warnings: []string{}}
}

func (r *CheckResult) issue(penalty float64, format string, args ...interface{}) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
	r.Penalty += penalty
}

func (r *CheckResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Checks holds the per-dimension results
type Checks struct {
	Completeness CheckResult `json:"completeness"`
	Uniqueness   CheckResult `json:"uniqueness"`
	Validity     CheckResult `json:"validity"`
	Consistency  CheckResult `json:"consistency"`
	Timeliness   CheckResult `json:"timeliness"`
}

// Report is the result of CheckQuality
type Report struct {
	Timestamp    core.Timestamp `json:"timestamp"`
	TotalRows    int            `json:"total_rows"`
	TotalColumns int            `json:"total_columns"`
	Checks       Checks         `json:"checks"`
	Issues       []string       `json:"issues"`
	Warnings     []string       `json:"warnings"`
	Score        float64        `json:"score"`
	Grade        string         `json:"grade"`
}

// Checker scores tables. It never modifies its input and is safe for concurrent use.
type Checker struct {
	coercer *coercer.TypeCoercer
	clock   core.Clock
	logger  *internal.Logger

	mu      sync.Mutex
	reports []Report
}

// NewChecker creates a checker; the clock drives timeliness and report timestamps
func NewChecker(clock core.Clock, logger *internal.Logger) *Checker {
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Checker{coercer: coercer.Default(), clock: clock, logger: logger}
}

// CheckQuality runs every dimension, subtracts the penalties from 100 and grades the result
func (c *Checker) CheckQuality(t *table.Table) (*Report, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: table is nil", core.ErrInvalidInput)
	}
	now := c.clock()

	report := &Report{
		Timestamp:    core.NewTimestamp(now),
		TotalRows:    t.NumRows(),
		TotalColumns: t.NumColumns(),
		Checks: Checks{
			Completeness: checkCompleteness(t),
			Uniqueness:   checkUniqueness(t),
			Validity:     checkValidity(t),
			Consistency:  checkConsistency(t),
			Timeliness:   c.checkTimeliness(t, now),
		},
		Issues:   []string{},
		Warnings: []string{},
		Score:    100,
	}

	for _, r := range []CheckResult{
		report.Checks.Completeness,
		report.Checks.Uniqueness,
		report.Checks.Validity,
		report.Checks.Consistency,
		report.Checks.Timeliness,
	} {
		report.Issues = append(report.Issues, r.Issues...)
		report.Warnings = append(report.Warnings, r.Warnings...)
		report.Score -= r.Penalty
	}
	report.Score = math.Max(0, report.Score)
	report.Grade = Grade(report.Score)

	c.mu.Lock()
	c.reports = append(c.reports, *report)
	c.mu.Unlock()

	c.logger.Info("[Quality] score %.1f (%s), %d issues, %d warnings",
		report.Score, report.Grade, len(report.Issues), len(report.Warnings))
	return report, nil
}

// Reports returns a copy of every quality report produced so far
func (c *Checker) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Report, len(c.reports))
	copy(out, c.reports)
	return out
}

// Grade maps a score onto the letter bands
func Grade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 85:
		return "B+"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	}
	return "F"
}

func checkCompleteness(t *table.Table) CheckResult {
	r := newCheckResult()
	r.MissingByColumn = make(map[string]int, t.NumColumns())

	total, missing := 0, 0
	for _, col := range t.Columns() {
		n := col.NullCount()
		r.MissingByColumn[col.Name] = n
		missing += n
		total += col.Len()
	}
	ratio := 1.0
	if total > 0 {
		ratio = 1 - float64(missing)/float64(total)
	}
	r.CompletenessRatio = &ratio

	rows := t.NumRows()
	for _, name := range schema.CriticalColumns {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		if n := col.NullCount(); n > 0 {
			pct := float64(n) / float64(rows) * 100
			r.issue(math.Min(CriticalColumnCap, pct),
				"Critical column '%s' has %d missing values (%.1f%%)", name, n, pct)
		}
	}

	if ratio < CompletenessThreshold {
		r.issue((1-ratio)*100, "Data completeness is %.1f%% (below %.0f%% threshold)", ratio*100, CompletenessThreshold*100)
	}
	return r
}

func checkUniqueness(t *table.Table) CheckResult {
	r := newCheckResult()
	rows := t.NumRows()

	dups := t.CountDuplicateRows()
	r.DuplicateRows = &dups
	ratio := 1.0
	if rows > 0 {
		ratio = 1 - float64(dups)/float64(rows)
	}
	r.UniquenessRatio = &ratio

	if dups > 0 {
		pct := float64(dups) / float64(rows)
		r.warn("Found %d duplicate rows (%.1f%%)", dups, pct*100)
		r.Penalty += math.Min(DuplicateCap, pct*DuplicateWeight)
	}

	if col, ok := t.Column(schema.CampaignName); ok {
		if n := col.Distinct(); n < 2 {
			r.warn("Only %d unique campaign found", n)
		}
	}
	return r
}

// countRows counts rows whose value in name is a number satisfying pred
func countRows(t *table.Table, name string, pred func(float64) bool) (int, bool) {
	col, ok := t.Column(name)
	if !ok {
		return 0, false
	}
	n := 0
	for _, v := range col.Values {
		if f, ok := v.Float(); ok && pred(f) {
			n++
		}
	}
	return n, true
}

func share(n, rows int) float64 {
	return float64(n) / float64(rows) * 100
}

func checkValidity(t *table.Table) CheckResult {
	r := newCheckResult()
	rows := t.NumRows()

	outside := func(f float64) bool { return f < ValidCTRRange[0] || f > ValidCTRRange[1] }
	if n, ok := countRows(t, schema.CTR, outside); ok && n > 0 {
		r.issue(math.Min(InvalidCTRCap, share(n, rows)),
			"Found %d rows with invalid CTR values (outside %.0f-%.0f%% range)", n, ValidCTRRange[0], ValidCTRRange[1])
	}

	negative := func(f float64) bool { return f < 0 }
	if n, ok := countRows(t, schema.Spend, negative); ok && n > 0 {
		r.issue(math.Min(NegativeSpendCap, share(n, rows)), "Found %d rows with negative spend", n)
	}
	for _, name := range []string{schema.Impressions, schema.Clicks, schema.Conversions} {
		if n, ok := countRows(t, name, negative); ok && n > 0 {
			r.issue(math.Min(NegativeVolumeCap, share(n, rows)), "Found %d rows with negative %s", n, name)
		}
	}
	return r
}

func checkConsistency(t *table.Table) CheckResult {
	r := newCheckResult()
	if !t.HasColumn(schema.Clicks) || !t.HasColumn(schema.Impressions) {
		return r
	}
	rows := t.NumRows()
	hasCTR := t.HasColumn(schema.CTR)

	excess, drift := 0, 0
	for i := 0; i < rows; i++ {
		clicks, okC := t.Value(i, schema.Clicks).Float()
		impressions, okI := t.Value(i, schema.Impressions).Float()
		if !okC || !okI {
			continue
		}
		if clicks > impressions {
			excess++
		}
		if !hasCTR || impressions == 0 {
			continue
		}
		if ctr, ok := t.Value(i, schema.CTR).Float(); ok && math.Abs(ctr-clicks/impressions*100) > CTRTolerance {
			drift++
		}
	}

	if excess > 0 {
		r.issue(math.Min(ClickExcessCap, share(excess, rows)),
			"Found %d rows where clicks > impressions (impossible)", excess)
	}
	if drift > 0 {
		r.warn("Found %d rows with inconsistent CTR values", drift)
	}
	return r
}

func (c *Checker) checkTimeliness(t *table.Table, now time.Time) CheckResult {
	r := newCheckResult()
	col, ok := t.Column(schema.Date)
	if !ok {
		return r
	}

	cutoff := now.AddDate(-MaxDataAgeYears, 0, 0)
	var lo, hi time.Time
	parsed, future, old, bad := 0, 0, 0, 0
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		d, ok := c.coercer.ParseDateValue(v, false)
		if !ok {
			bad++
			continue
		}
		if parsed == 0 || d.Before(lo) {
			lo = d
		}
		if parsed == 0 || d.After(hi) {
			hi = d
		}
		parsed++
		if d.After(now) {
			future++
		}
		if d.Before(cutoff) {
			old++
		}
	}

	if parsed > 0 {
		r.DateRange = map[string]string{
			"start": lo.Format(table.DateLayout),
			"end":   hi.Format(table.DateLayout),
		}
	}
	if bad > 0 {
		r.warn("Could not parse %d date values", bad)
	}
	if future > 0 {
		r.warn("Found %d rows with future dates", future)
	}
	if old > 0 {
		r.warn("Found %d rows with dates older than %d years", old, MaxDataAgeYears)
	}
	return r
}
