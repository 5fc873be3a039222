// Package coercer turns raw cell text into typed table values: plain-number inference for
// freshly ingested columns, the metric cleanup applied to currency and percentage strings,
// and the date cascade.
package coercer

import (
	"math"
	"strconv"
	"strings"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/table"
)

// TypeCoercer handles deterministic type coercion
type TypeCoercer struct {
	config CoercionConfig
	na     map[string]struct{}
}

// CoercionConfig defines the tokens and symbols the coercer recognizes
type CoercionConfig struct {
	NATokens        []string `json:"na_tokens"`        // cells read as null
	CurrencySymbols []string `json:"currency_symbols"` // stripped before numeric parsing
	DayFirst        bool     `json:"day_first"`        // permissive date parsing order
}

// DefaultCoercionConfig returns the defaults used by ingestion and normalization
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		NATokens: []string{
			"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
			"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
		},
		CurrencySymbols: []string{"$", "€", "£", "¥"},
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	c := &TypeCoercer{config: config, na: make(map[string]struct{}, len(config.NATokens))}
	for _, tok := range config.NATokens {
		c.na[tok] = struct{}{}
	}
	return c
}

// Default returns a coercer with DefaultCoercionConfig
func Default() *TypeCoercer {
	return NewTypeCoercer(DefaultCoercionConfig())
}

// Config returns the coercer configuration
func (c *TypeCoercer) Config() CoercionConfig {
	return c.config
}

// IsNA reports whether a raw cell should be read as null
func (c *TypeCoercer) IsNA(raw string) bool {
	_, ok := c.na[strings.TrimSpace(raw)]
	return ok
}

// ParsePlain parses a plain decimal number. Currency symbols, separators and
// non-finite spellings are rejected.
func (c *TypeCoercer) ParsePlain(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceColumn types one freshly read column. NA cells become null. If every remaining
// cell is a plain number the column is numeric, otherwise the non-null cells stay text.
func (c *TypeCoercer) CoerceColumn(raw []string) []table.Value {
	out := make([]table.Value, len(raw))
	numeric := true
	for i, s := range raw {
		if c.IsNA(s) {
			out[i] = table.Null()
			continue
		}
		if numeric {
			if f, ok := c.ParsePlain(s); ok {
				out[i] = table.Number(f)
				continue
			}
			numeric = false
		}
	}
	if numeric {
		return out
	}
	for i, s := range raw {
		if c.IsNA(s) {
			continue
		}
		out[i] = table.Text(s)
	}
	return out
}

// CleanNumeric parses a metric string such as "$1,234.50", "12.5%" or "(300)". Currency
// symbols, thousands separators, percent signs and surrounding whitespace are removed;
// accounting parentheses make the value negative.
func (c *TypeCoercer) CleanNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if c.IsNA(s) {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		negative = true
	}

	for _, symbol := range c.config.CurrencySymbols {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(s)

	f, ok := c.ParsePlain(s)
	if !ok {
		return 0, false
	}
	if negative {
		f = -math.Abs(f)
	}
	return f, true
}

// CleanValue applies CleanNumeric to a cell. Numbers pass through, text that cannot be
// cleaned becomes null, dates are not numbers and become null.
func (c *TypeCoercer) CleanValue(v table.Value) table.Value {
	switch v.Kind {
	case table.KindNumber:
		return v
	case table.KindText:
		if f, ok := c.CleanNumeric(v.Str); ok {
			return table.Number(f)
		}
	}
	return table.Null()
}
