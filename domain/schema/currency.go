package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/toxidity-18/Marketing-Data-Engine/domain/core"
)

// DefaultCurrency is the anchor of the rate table
const DefaultCurrency = "USD"

// usdRates holds the value of one unit of each currency in USD
var usdRates = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("1.0"),
	"EUR": decimal.RequireFromString("1.08"),
	"GBP": decimal.RequireFromString("1.27"),
	"CAD": decimal.RequireFromString("0.74"),
	"AUD": decimal.RequireFromString("0.65"),
	"INR": decimal.RequireFromString("0.012"),
	"JPY": decimal.RequireFromString("0.0067"),
	"BRL": decimal.RequireFromString("0.20"),
	"MXN": decimal.RequireFromString("0.058"),
}

// SupportedCurrency reports whether a code is in the rate table
func SupportedCurrency(code string) bool {
	_, ok := usdRates[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Currencies lists the supported codes, sorted
func Currencies() []string {
	return sortedKeys(usdRates)
}

// ValidateCurrency returns the canonical code or an input error
func ValidateCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if _, ok := usdRates[c]; !ok {
		return "", fmt.Errorf("%w: unsupported currency %q (supported: %v)", core.ErrInvalidInput, code, Currencies())
	}
	return c, nil
}

// ConvertAmount converts an amount between two supported currencies through USD. The
// second return is false when either code is unknown; the amount is then returned unchanged.
func ConvertAmount(amount float64, from, to string) (float64, bool) {
	fromRate, ok := usdRates[strings.ToUpper(strings.TrimSpace(from))]
	if !ok {
		return amount, false
	}
	toRate, ok := usdRates[strings.ToUpper(strings.TrimSpace(to))]
	if !ok {
		return amount, false
	}
	if fromRate.Equal(toRate) {
		return amount, true
	}
	usd := decimal.NewFromFloat(amount).Mul(fromRate)
	out, _ := usd.DivRound(toRate, 12).Float64()
	return out, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
