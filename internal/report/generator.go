// Package report renders tables into client-facing artifacts: Excel workbooks, HTML
// reports and CSV exports written to a report directory.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
	"github.com/toxidity-18/Marketing-Data-Engine/internal/dataset"
)

// Artifact types
const (
	TypeExcel = "excel"
	TypeHTML  = "html"
	TypeCSV   = "csv"
)

const fileTimeLayout = "20060102_150405"

var (
	unsafeName  = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	errNilTable = fmt.Errorf("%w: table is nil", core.ErrInvalidInput)
)

// Artifact describes a written report file
type Artifact struct {
	Type        string         `json:"type"`
	Filename    string         `json:"filename"`
	Path        string         `json:"filepath"`
	DownloadURL string         `json:"download_url"`
	Rows        int            `json:"rows"`
	Sheets      []string       `json:"sheets,omitempty"`
	CreatedAt   core.Timestamp `json:"timestamp"`
}

// Generator writes reports into one directory and keeps a history of what it wrote
type Generator struct {
	dir    string
	merger *dataset.Merger
	clock  core.Clock
	logger *internal.Logger

	mu      sync.Mutex
	history []Artifact
}

// NewGenerator creates a generator writing into dir, creating it if needed
func NewGenerator(dir string, clock core.Clock, logger *internal.Logger) (*Generator, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: report directory is empty", core.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Generator{
		dir:    dir,
		merger: dataset.NewMerger(clock, logger),
		clock:  clock,
		logger: logger,
	}, nil
}

// Dir returns the report directory
func (g *Generator) Dir() string { return g.dir }

// History returns a copy of every artifact written so far
func (g *Generator) History() []Artifact {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Artifact, len(g.history))
	copy(out, g.history)
	return out
}

// Resolve maps a download name onto a file inside the report directory
func (g *Generator) Resolve(filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: invalid report name %q", core.ErrInvalidInput, filename)
	}
	path := filepath.Join(g.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", core.NewNotFoundError("report", filename)
	}
	return path, nil
}

// filename builds "<name>_<timestamp>.<ext>" with the name reduced to safe characters
func (g *Generator) filename(name, fallback, ext string) string {
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" || name == "_" {
		name = fallback
	}
	return fmt.Sprintf("%s_%s.%s", name, g.clock().Format(fileTimeLayout), ext)
}

func (g *Generator) record(a Artifact) *Artifact {
	a.CreatedAt = core.NewTimestamp(g.clock())
	a.DownloadURL = "/api/download/" + a.Filename
	g.mu.Lock()
	g.history = append(g.history, a)
	g.mu.Unlock()
	g.logger.Info("[Report] wrote %s report %s (%d rows)", a.Type, a.Filename, a.Rows)
	return &a
}

// Totals are the summed volume metrics of a table; absent columns are nil
type Totals struct {
	Spend       *float64
	Impressions *float64
	Clicks      *float64
	Conversions *float64
	Revenue     *float64
}

// ComputeTotals sums the core volume metrics
func ComputeTotals(t *table.Table) Totals {
	sum := func(name string) *float64 {
		col, ok := t.Column(name)
		if !ok {
			return nil
		}
		total := 0.0
		for _, f := range col.Floats() {
			total += f
		}
		return &total
	}
	return Totals{
		Spend:       sum(schema.Spend),
		Impressions: sum(schema.Impressions),
		Clicks:      sum(schema.Clicks),
		Conversions: sum(schema.Conversions),
		Revenue:     sum(schema.ConversionValue),
	}
}

// campaignSummary aggregates by campaign and orders campaigns by spend, highest first
func (g *Generator) campaignSummary(t *table.Table) (*table.Table, bool) {
	if !t.HasColumn(schema.CampaignName) {
		return nil, false
	}
	agg, err := g.merger.AggregateByCampaign(t, false)
	if err != nil {
		return nil, false
	}
	out := agg.Data
	if out.HasColumn(schema.Spend) {
		positions := make([]int, out.NumRows())
		for i := range positions {
			positions[i] = i
		}
		sort.SliceStable(positions, func(a, b int) bool {
			x, _ := out.Value(positions[a], schema.Spend).Float()
			y, _ := out.Value(positions[b], schema.Spend).Float()
			return x > y
		})
		out.KeepRows(positions)
	}
	return out, true
}

// dailyTrend aggregates by calendar day
func (g *Generator) dailyTrend(t *table.Table) (*table.Table, bool) {
	if !t.HasColumn(schema.Date) {
		return nil, false
	}
	agg, err := g.merger.AggregateByDate(t, dataset.Daily)
	if err != nil {
		return nil, false
	}
	return agg.Data, true
}

// platformSummary compares platforms, highest spend first
func (g *Generator) platformSummary(t *table.Table) ([]dataset.PlatformStats, bool) {
	if !t.HasColumn(schema.Platform) {
		return nil, false
	}
	cmp, err := g.merger.ComparePlatforms(t)
	if err != nil {
		return nil, false
	}
	stats := cmp.PlatformStats
	sort.SliceStable(stats, func(i, j int) bool {
		return deref(stats[i].Spend) > deref(stats[j].Spend)
	})
	return stats, true
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
