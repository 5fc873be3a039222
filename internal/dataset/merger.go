// Package dataset combines and aggregates normalized tables: append and join merges,
// date and campaign rollups, and cross-platform comparison.
package dataset

import (
	"fmt"
	"sort"
	"sync"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
	"github.com/toxidity-18/Marketing-Data-Engine/internal"
)

// MergeStrategy defines approaches for merging datasets
type MergeStrategy string

const (
	// AppendMerge stacks rows over the union of columns
	AppendMerge MergeStrategy = "append"
	// JoinMerge outer-joins tables left to right on a shared key column
	JoinMerge MergeStrategy = "join"
)

// Column candidates, matched case-insensitively in order
var (
	DateColumnCandidates     = []string{"date", "day", "report_date", "stat_days", "start date", "end date"}
	CampaignColumnCandidates = []string{"campaign", "campaign_name", "campaign name", "campaign id"}
	PlatformColumnCandidates = []string{"platform", "source", "channel", "ad_platform"}
)

// JoinKeyCandidates are tried in order when joining
func JoinKeyCandidates() []string {
	return append(append([]string{}, DateColumnCandidates...), CampaignColumnCandidates...)
}

// DuplicateSuffix disambiguates non-key columns that a later joined table repeats
const DuplicateSuffix = "_dup"

// MergeConfig holds configuration for merge operations
type MergeConfig struct {
	Strategy  MergeStrategy `json:"strategy"`
	Platforms []string      `json:"platforms,omitempty"` // optional label per input table
}

// MergeRecord describes one merge and is appended to the merge history
type MergeRecord struct {
	Timestamp     core.Timestamp `json:"timestamp"`
	InputDatasets int            `json:"input_datasets"`
	Platforms     []string       `json:"platforms"`
	Strategy      MergeStrategy  `json:"strategy"`
	JoinColumn    string         `json:"join_column,omitempty"`
	CommonColumns []string       `json:"common_columns"`
	AllColumns    []string       `json:"all_columns"`
	OutputRows    int            `json:"output_rows"`
	OutputColumns int            `json:"output_columns"`
}

// MergeResult contains the result of a merge operation
type MergeResult struct {
	Data     *table.Table `json:"-"`
	Metadata MergeRecord  `json:"metadata"`
}

// Merger handles dataset merging and aggregation
type Merger struct {
	clock  core.Clock
	logger *internal.Logger

	mu      sync.Mutex
	history []MergeRecord
}

// NewMerger creates a new dataset merger
func NewMerger(clock core.Clock, logger *internal.Logger) *Merger {
	if clock == nil {
		clock = core.SystemClock()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Merger{clock: clock, logger: logger}
}

// MergeDatasets combines tables with the configured strategy. Inputs are not modified.
func (m *Merger) MergeDatasets(tables []*table.Table, config MergeConfig) (*MergeResult, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no datasets provided", core.ErrInvalidInput)
	}
	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w: dataset %d is nil", core.ErrInvalidInput, i)
		}
	}
	if len(config.Platforms) > 0 && len(config.Platforms) != len(tables) {
		return nil, fmt.Errorf("%w: %d platform labels for %d datasets", core.ErrInvalidInput, len(config.Platforms), len(tables))
	}
	strategy := config.Strategy
	if strategy == "" {
		strategy = AppendMerge
	}

	inputs := make([]*table.Table, len(tables))
	for i, t := range tables {
		inputs[i] = t
		if len(config.Platforms) > 0 && !t.HasColumn(schema.Platform) {
			inputs[i] = withConstant(t, schema.Platform, table.Text(config.Platforms[i]))
		}
	}

	record := MergeRecord{
		InputDatasets: len(inputs),
		Platforms:     append([]string{}, config.Platforms...),
		Strategy:      strategy,
		CommonColumns: commonColumns(inputs),
		AllColumns:    allColumns(inputs),
	}

	var merged *table.Table
	switch strategy {
	case AppendMerge:
		merged = appendTables(inputs)
	case JoinMerge:
		key, ok := findJoinKey(inputs)
		if !ok {
			return nil, fmt.Errorf("%w: no common join column (date or campaign) found. Expected one of: %v",
				core.ErrNoJoinKey, JoinKeyCandidates())
		}
		record.JoinColumn = key
		merged = inputs[0].Clone()
		for _, right := range inputs[1:] {
			merged = outerJoin(merged, right, key)
		}
	default:
		return nil, fmt.Errorf("%w: unknown merge strategy %q", core.ErrInvalidInput, strategy)
	}

	record.Timestamp = core.NewTimestamp(m.clock())
	record.OutputRows = merged.NumRows()
	record.OutputColumns = merged.NumColumns()

	m.mu.Lock()
	m.history = append(m.history, record)
	m.mu.Unlock()

	m.logger.Info("[Merger] %s merge of %d datasets -> %d rows, %d columns",
		strategy, len(inputs), record.OutputRows, record.OutputColumns)
	return &MergeResult{Data: merged, Metadata: record}, nil
}

// History returns a copy of the merge history
func (m *Merger) History() []MergeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MergeRecord, len(m.history))
	copy(out, m.history)
	return out
}

// appendTables stacks rows in input order over the union of columns
func appendTables(tables []*table.Table) *table.Table {
	b := table.NewBuilder(allColumns(tables)...)
	for _, t := range tables {
		for i := 0; i < t.NumRows(); i++ {
			b.AppendRow(t.Row(i))
		}
	}
	return b.Build()
}

// findJoinKey returns the first candidate present in every table, resolved to the
// spelling used by the first table
func findJoinKey(tables []*table.Table) (string, bool) {
	for _, cand := range JoinKeyCandidates() {
		name, ok := tables[0].FindColumn([]string{cand})
		if !ok {
			continue
		}
		everywhere := true
		for _, t := range tables[1:] {
			if _, ok := t.FindColumn([]string{cand}); !ok {
				everywhere = false
				break
			}
		}
		if everywhere {
			return name, true
		}
	}
	return "", false
}

// outerJoin performs a full outer join on key. Left rows keep their order and are
// followed by unmatched right rows. Null keys match each other.
func outerJoin(left, right *table.Table, key string) *table.Table {
	rightKey, _ := right.FindColumn([]string{key})

	// right column name -> output name
	names := left.ColumnNames()
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	var rightCols []string
	outName := make(map[string]string)
	for _, n := range right.ColumnNames() {
		if n == rightKey {
			continue
		}
		out := n
		if taken[out] {
			out = n + DuplicateSuffix
			for i := 2; taken[out]; i++ {
				out = fmt.Sprintf("%s%s_%d", n, DuplicateSuffix, i)
			}
		}
		taken[out] = true
		outName[n] = out
		rightCols = append(rightCols, n)
		names = append(names, out)
	}

	matches := make(map[string][]int)
	for i := 0; i < right.NumRows(); i++ {
		k := right.Value(i, rightKey).KeyString()
		matches[k] = append(matches[k], i)
	}

	b := table.NewBuilder(names...)
	matched := make([]bool, right.NumRows())
	for i := 0; i < left.NumRows(); i++ {
		base := left.Row(i)
		rows := matches[left.Value(i, key).KeyString()]
		if len(rows) == 0 {
			b.AppendRow(base)
			continue
		}
		for _, j := range rows {
			matched[j] = true
			row := make(map[string]table.Value, len(names))
			for k, v := range base {
				row[k] = v
			}
			for _, n := range rightCols {
				row[outName[n]] = right.Value(j, n)
			}
			b.AppendRow(row)
		}
	}
	for j := 0; j < right.NumRows(); j++ {
		if matched[j] {
			continue
		}
		row := map[string]table.Value{key: right.Value(j, rightKey)}
		for _, n := range rightCols {
			row[outName[n]] = right.Value(j, n)
		}
		b.AppendRow(row)
	}
	return b.Build()
}

func withConstant(t *table.Table, name string, v table.Value) *table.Table {
	out := t.Clone()
	values := make([]table.Value, out.NumRows())
	for i := range values {
		values[i] = v
	}
	// the caller checked the column is absent
	_ = out.AddColumn(name, values)
	return out
}

func commonColumns(tables []*table.Table) []string {
	counts := make(map[string]int)
	for _, t := range tables {
		for _, n := range t.ColumnNames() {
			counts[n]++
		}
	}
	var out []string
	for n, c := range counts {
		if c == len(tables) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func allColumns(tables []*table.Table) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tables {
		for _, n := range t.ColumnNames() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// resolveColumn finds a column among candidates and returns its actual name
func resolveColumn(t *table.Table, category string, candidates []string) (string, error) {
	name, ok := t.FindColumn(candidates)
	if !ok {
		return "", core.NewMissingColumnError(category, candidates)
	}
	return name, nil
}
