package normalize

import (
	"strconv"
	"strings"

	"github.com/toxidity-18/Marketing-Data-Engine/adapters/coercer"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/schema"
	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// mapColumns renames source columns to canonical names. The first column claiming a
// canonical name wins; later claimants keep their own name.
func mapColumns(r *run) error {
	cols := r.t.Columns()
	claimedBy := make(map[string]string, len(cols))
	final := make([]string, len(cols))

	for i, c := range cols {
		canonical, ok := r.registry.Canonical(c.Name)
		if !ok {
			continue
		}
		if owner, taken := claimedBy[canonical]; taken {
			r.report.Conflicts = append(r.report.Conflicts, MappingConflict{
				Column:    c.Name,
				Canonical: canonical,
				ClaimedBy: owner,
			})
			continue
		}
		claimedBy[canonical] = c.Name
		final[i] = canonical
	}

	// unmapped and losing columns keep their name unless a canonical column now owns it
	used := make(map[string]bool, len(cols))
	for _, name := range final {
		if name != "" {
			used[name] = true
		}
	}
	for i, c := range cols {
		if final[i] != "" {
			continue
		}
		name := c.Name
		for n := 1; used[name]; n++ {
			name = c.Name + "_unmapped"
			if n > 1 {
				name += "_" + strconv.Itoa(n)
			}
		}
		used[name] = true
		final[i] = name
	}

	renamed := make([]*table.Column, len(cols))
	for i, c := range cols {
		renamed[i] = table.NewColumn(final[i], c.Values)
		if owner, canonical := claimedBy[final[i]]; canonical && owner == c.Name {
			r.report.ColumnMapping[c.Name] = final[i]
			if final[i] != c.Name {
				r.logf("Mapped '%s' -> '%s'", c.Name, final[i])
			}
		} else if final[i] != c.Name {
			r.logf("Renamed '%s' -> '%s' to avoid a clash with a canonical column", c.Name, final[i])
		}
	}
	for i := range r.report.Conflicts {
		conflict := &r.report.Conflicts[i]
		for j, c := range cols {
			if c.Name == conflict.Column {
				conflict.KeptAs = final[j]
				break
			}
		}
		r.logger.Warn("[Normalize] column '%s' also maps to '%s' (claimed by '%s'), kept as '%s'",
			conflict.Column, conflict.Canonical, conflict.ClaimedBy, conflict.KeptAs)
		r.logf("Mapping conflict: '%s' also maps to '%s' (already claimed by '%s'); kept as '%s'",
			conflict.Column, conflict.Canonical, conflict.ClaimedBy, conflict.KeptAs)
	}

	if n := len(r.report.ColumnMapping); n > 0 {
		r.logf("Column mapping: %d columns standardized", n)
	} else {
		r.logf("No standard column mappings found")
	}
	return r.t.ReplaceColumns(renamed)
}

// normalizeDates parses the date column with the first cascade pattern matching every
// value, or permissively per value, and drops rows whose date is missing or unparseable.
func normalizeDates(r *run) error {
	col, ok := r.t.Column(schema.Date)
	if !ok {
		return nil
	}

	values := make([]table.Value, col.Len())
	if pattern, found := coercer.DetectDateLayout(col.Values); found {
		r.report.DateFormat = pattern.Name
		for i, v := range col.Values {
			values[i] = parseWithLayout(v, pattern.Layout)
		}
		r.logf("Normalized dates using format %s", pattern.Name)
	} else {
		for i, v := range col.Values {
			if t, ok := r.coercer.ParseDateValue(v, false); ok {
				values[i] = table.Date(t)
			} else {
				values[i] = table.Null()
			}
		}
		r.logf("Normalized dates using flexible parsing")
	}
	if err := r.t.SetColumn(schema.Date, values); err != nil {
		return err
	}

	removed := r.t.FilterRows(func(i int) bool { return !values[i].IsNull() })
	r.report.InvalidDates = removed
	if removed > 0 {
		r.logf("Removed %d rows with invalid dates", removed)
	}
	return nil
}

func parseWithLayout(v table.Value, layout string) table.Value {
	if v.IsDate() {
		return v
	}
	s, ok := coercer.DateText(v)
	if !ok {
		return table.Null()
	}
	t, ok := coercer.ParseLayout(layout, s)
	if !ok {
		return table.Null()
	}
	return table.Date(t)
}

// cleanNumeric converts text cells of numeric canonical columns into numbers
func cleanNumeric(r *run) error {
	for _, name := range r.registry.NumericColumns() {
		col, ok := r.t.Column(name)
		if !ok || col.IsNumeric() || col.Type() == table.TypeEmpty {
			continue
		}
		values := make([]table.Value, col.Len())
		lost := 0
		for i, v := range col.Values {
			values[i] = r.coercer.CleanValue(v)
			if values[i].IsNull() && !v.IsNull() {
				lost++
			}
		}
		if err := r.t.SetColumn(name, values); err != nil {
			return err
		}
		r.report.CleanedColumns = append(r.report.CleanedColumns, name)
		if lost > 0 {
			r.logf("Cleaned numeric column '%s' (%d unparseable values set to null)", name, lost)
		} else {
			r.logf("Cleaned numeric column '%s'", name)
		}
	}
	return nil
}

// convertCurrency converts monetary columns row by row into the target currency and
// rewrites the currency cell of converted rows
func convertCurrency(r *run) error {
	if !schema.SupportedCurrency(r.target) {
		r.logf("Currency %s not supported, keeping original values", r.target)
		return nil
	}
	curCol, ok := r.t.Column(schema.Currency)
	if !ok {
		r.logf("No currency column found, assuming all values are in %s", r.target)
		return nil
	}

	var monetary []*table.Column
	for _, name := range schema.MonetaryColumns {
		if c, ok := r.t.Column(name); ok {
			monetary = append(monetary, c)
		}
	}

	converted, unknown := 0, map[string]int{}
	for i, v := range curCol.Values {
		if !v.IsText() {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(v.Str))
		if code == r.target || code == "" {
			continue
		}
		if !schema.SupportedCurrency(code) {
			unknown[code]++
			continue
		}
		for _, c := range monetary {
			if f, isNum := c.Values[i].Float(); isNum {
				out, _ := schema.ConvertAmount(f, code, r.target)
				c.Values[i] = table.Number(out)
			}
		}
		curCol.Values[i] = table.Text(r.target)
		converted++
	}

	r.report.ConvertedRows = converted
	if converted > 0 {
		r.logf("Converted %d rows to %s", converted, r.target)
	}
	for code, n := range unknown {
		r.logf("Left %d rows in unsupported currency %s unconverted", n, code)
	}
	return nil
}

// dropDuplicates removes rows repeating the logical key (keeping the last) or, with no
// key columns present, exact duplicate rows
func dropDuplicates(r *run) error {
	var key []string
	for _, name := range schema.DedupKeyColumns {
		if r.t.HasColumn(name) {
			key = append(key, name)
		}
	}

	var removed int
	if len(key) > 0 {
		removed = r.t.DropDuplicates(key, true)
	} else {
		removed = r.t.DropDuplicates(nil, false)
	}
	r.report.DuplicatesRemoved = removed
	if removed > 0 {
		r.logf("Removed %d duplicate rows", removed)
	}
	return nil
}

type derivation struct {
	name    string
	num     string
	den     string
	formula func(num, den *float64) (float64, bool)
}

var derivations = []derivation{
	{schema.CTR, schema.Clicks, schema.Impressions, schema.CalcCTR},
	{schema.CPC, schema.Spend, schema.Clicks, schema.CalcCPC},
	{schema.CPM, schema.Spend, schema.Impressions, schema.CalcCPM},
	{schema.CPA, schema.Spend, schema.Conversions, schema.CalcCPA},
	{schema.ROAS, schema.ConversionValue, schema.Spend, schema.CalcROAS},
}

// deriveMetrics adds missing ratio columns computed row by row
func deriveMetrics(r *run) error {
	for _, d := range derivations {
		if r.t.HasColumn(d.name) || !r.t.HasColumn(d.num) || !r.t.HasColumn(d.den) {
			continue
		}
		values := make([]table.Value, r.t.NumRows())
		for i := range values {
			v, ok := d.formula(r.t.Value(i, d.num).Ptr(), r.t.Value(i, d.den).Ptr())
			if !ok {
				values[i] = table.Null()
				continue
			}
			values[i] = table.Number(schema.Round4(v))
		}
		if err := r.t.AddColumn(d.name, values); err != nil {
			return err
		}
		r.report.DerivedMetrics = append(r.report.DerivedMetrics, d.name)
		r.logf("Calculated %s", strings.ToUpper(d.name))
	}
	return nil
}

// fillMissing sets missing volume metrics to 0 and missing identifier text to ""
func fillMissing(r *run) error {
	fill := func(names []string, with table.Value) {
		for _, name := range names {
			col, ok := r.t.Column(name)
			if !ok {
				continue
			}
			filled := 0
			for i, v := range col.Values {
				if v.IsNull() {
					col.Values[i] = with
					filled++
				}
			}
			if filled > 0 {
				r.report.FilledValues[name] = filled
				r.logf("Filled %d missing values in '%s'", filled, name)
			}
		}
	}
	fill(schema.VolumeColumns, table.Number(0))
	fill(schema.TextFillColumns, table.Text(""))
	return nil
}
