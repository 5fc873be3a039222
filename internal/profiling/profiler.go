// Package profiling computes descriptive statistics for tables: the ingestion-time dataset
// profile and per-column numeric summaries.
package profiling

import (
	"fmt"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// DateSampleSize is the number of non-null text cells checked when guessing date columns
const DateSampleSize = 100

// DatasetStats is the profile attached to every ingestion result
type DatasetStats struct {
	TotalRows      int                         `json:"total_rows"`
	TotalColumns   int                         `json:"total_columns"`
	Columns        []string                    `json:"columns"`
	Dtypes         map[string]table.ColumnType `json:"dtypes"`
	MissingValues  map[string]int              `json:"missing_values"`
	DuplicateRows  int                         `json:"duplicate_rows"`
	MemoryUsage    string                      `json:"memory_usage"`
	DateColumns    []string                    `json:"date_columns"`
	NumericColumns []string                    `json:"numeric_columns"`
}

// Profiler profiles tables
type Profiler struct {
	coercer *coercer.TypeCoercer
}

// NewProfiler creates a profiler; a nil coercer uses the defaults
func NewProfiler(c *coercer.TypeCoercer) *Profiler {
	if c == nil {
		c = coercer.Default()
	}
	return &Profiler{coercer: c}
}

// Profile computes the dataset profile
func (p *Profiler) Profile(t *table.Table) DatasetStats {
	stats := DatasetStats{
		TotalRows:      t.NumRows(),
		TotalColumns:   t.NumColumns(),
		Columns:        t.ColumnNames(),
		Dtypes:         make(map[string]table.ColumnType, t.NumColumns()),
		MissingValues:  make(map[string]int, t.NumColumns()),
		DuplicateRows:  t.CountDuplicateRows(),
		MemoryUsage:    FormatMB(t.ApproxBytes()),
		DateColumns:    []string{},
		NumericColumns: []string{},
	}

	for _, c := range t.Columns() {
		stats.Dtypes[c.Name] = c.Type()
		stats.MissingValues[c.Name] = c.NullCount()
		if c.IsNumeric() {
			stats.NumericColumns = append(stats.NumericColumns, c.Name)
		}
		if c.Type() == table.TypeDate || p.coercer.LooksLikeDates(c.Values, DateSampleSize) {
			stats.DateColumns = append(stats.DateColumns, c.Name)
		}
	}
	return stats
}

// FormatMB renders a byte count the way the profile reports memory
func FormatMB(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
}
