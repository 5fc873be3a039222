// Package normalize maps heterogeneous platform exports onto the canonical schema: column
// names, dates, numeric cleanup, currency, deduplication, derived metrics and fill policy.
package normalize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

// Options control one normalization run
type Options struct {
	Platform       string              `json:"platform"` // declared source platform; empty means unknown
	TargetCurrency string              `json:"target_currency"`
	CustomSynonyms map[string][]string `json:"custom_mappings,omitempty"`
}

// MappingConflict records a source column whose canonical name was already claimed
type MappingConflict struct {
	Column    string `json:"column"`
	Canonical string `json:"canonical"`
	ClaimedBy string `json:"claimed_by"`
	KeptAs    string `json:"kept_as"`
}

// Report describes what a normalization run did. Nothing retains or mutates a report
// after it is returned.
type Report struct {
	OriginalColumns   []string          `json:"original_columns"`
	NormalizedColumns []string          `json:"normalized_columns"`
	OriginalRows      int               `json:"original_rows"`
	FinalRows         int               `json:"final_rows"`
	ColumnMapping     map[string]string `json:"column_mapping"`
	Conflicts         []MappingConflict `json:"mapping_conflicts"`
	DateFormat        string            `json:"date_format,omitempty"`
	InvalidDates      int               `json:"invalid_dates_removed"`
	CleanedColumns    []string          `json:"cleaned_columns"`
	ConvertedRows     int               `json:"converted_rows"`
	Platform          string            `json:"platform"`
	TargetCurrency    string            `json:"target_currency"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	DerivedMetrics    []string          `json:"derived_metrics"`
	FilledValues      map[string]int    `json:"filled_values"`
	Log               []string          `json:"normalization_log"`
}

// Record is one normalization history entry
type Record struct {
	Timestamp    core.Timestamp `json:"timestamp"`
	Platform     string         `json:"platform"`
	OriginalRows int            `json:"original_rows"`
	FinalRows    int            `json:"final_rows"`
	Columns      int            `json:"columns"`
	Log          []string       `json:"log"`
}

// Normalizer runs the pipeline. It is safe for concurrent use.
type Normalizer struct {
	coercer *coercer.TypeCoercer
	clock   core.Clock
	logger  *internal.Logger

	mu      sync.Mutex
	history []Record
}

// NewNormalizer creates a normalizer
func NewNormalizer(clock core.Clock, logger *internal.Logger) *Normalizer {
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Normalizer{coercer: coercer.Default(), clock: clock, logger: logger}
}

// run carries the state shared by the stages of one invocation
type run struct {
	t        *table.Table
	registry *schema.Registry
	coercer  *coercer.TypeCoercer
	target   string
	report   *Report
	logger   *internal.Logger
}

func (r *run) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.report.Log = append(r.report.Log, msg)
	r.logger.Debug("[Normalize] %s", msg)
}

// Normalize returns a canonical copy of t and a report. The input table is not modified.
func (n *Normalizer) Normalize(t *table.Table, opts Options) (*table.Table, *Report, error) {
	if t == nil {
		return nil, nil, fmt.Errorf("%w: table is nil", core.ErrInvalidInput)
	}
	target := strings.ToUpper(strings.TrimSpace(opts.TargetCurrency))
	if target == "" {
		target = schema.DefaultCurrency
	}

	platform := opts.Platform
	if platform == "" {
		platform = schema.PlatformUnknown
	}

	registry := schema.Default()
	if len(opts.CustomSynonyms) > 0 {
		registry = schema.NewRegistry(opts.CustomSynonyms)
	}

	r := &run{
		t:        t.Clone(),
		registry: registry,
		coercer:  n.coercer,
		target:   target,
		logger:   n.logger,
		report: &Report{
			OriginalColumns: t.ColumnNames(),
			OriginalRows:    t.NumRows(),
			ColumnMapping:   map[string]string{},
			Conflicts:       []MappingConflict{},
			CleanedColumns:  []string{},
			DerivedMetrics:  []string{},
			FilledValues:    map[string]int{},
			Platform:        platform,
			TargetCurrency:  target,
		},
	}

	stages := []func(*run) error{
		mapColumns,
		normalizeDates,
		cleanNumeric,
		convertCurrency,
		dropDuplicates,
		deriveMetrics,
		fillMissing,
	}
	for _, stage := range stages {
		if err := stage(r); err != nil {
			return nil, nil, err
		}
	}

	r.report.NormalizedColumns = r.t.ColumnNames()
	r.report.FinalRows = r.t.NumRows()

	n.mu.Lock()
	n.history = append(n.history, Record{
		Timestamp:    core.NewTimestamp(n.clock()),
		Platform:     platform,
		OriginalRows: r.report.OriginalRows,
		FinalRows:    r.report.FinalRows,
		Columns:      len(r.report.NormalizedColumns),
		Log:          append([]string(nil), r.report.Log...),
	})
	n.mu.Unlock()

	n.logger.Info("[Normalize] %d -> %d rows, %d columns, %d mapping conflicts",
		r.report.OriginalRows, r.report.FinalRows, len(r.report.NormalizedColumns), len(r.report.Conflicts))
	return r.t, r.report, nil
}

// History returns a copy of the normalization history
func (n *Normalizer) History() []Record {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Record, len(n.history))
	copy(out, n.history)
	return out
}
