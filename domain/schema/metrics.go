package schema

import (
	"math"

	"github.com/shopspring/decimal"
)

// MetricPrecision is the number of decimals derived metrics are rounded to
const MetricPrecision = 4

// Round rounds half away from zero to the given number of decimals. Non-finite input is returned as is.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}

// Round4 rounds a derived metric
func Round4(v float64) float64 {
	return Round(v, MetricPrecision)
}

// Ratio computes num/den*scale. It returns false when either input is missing or the
// denominator is zero, so callers store null instead of 0 or Inf.
func Ratio(num, den *float64, scale float64) (float64, bool) {
	if num == nil || den == nil || *den == 0 {
		return 0, false
	}
	r := *num / *den * scale
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Derived metric formulas
func CalcCTR(clicks, impressions *float64) (float64, bool) { return Ratio(clicks, impressions, 100) }
func CalcCPC(spend, clicks *float64) (float64, bool)       { return Ratio(spend, clicks, 1) }
func CalcCPM(spend, impressions *float64) (float64, bool)  { return Ratio(spend, impressions, 1000) }
func CalcCPA(spend, conversions *float64) (float64, bool)  { return Ratio(spend, conversions, 1) }
func CalcROAS(value, spend *float64) (float64, bool)       { return Ratio(value, spend, 1) }
