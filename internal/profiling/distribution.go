package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary describes one numeric column
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"25%"`
	Median   float64 `json:"50%"`
	Q75      float64 `json:"75%"`
	Max      float64 `json:"max"`
	Sum      float64 `json:"sum"`
	Skewness float64 `json:"skewness"`
}

// Summarize computes count, mean, sample standard deviation, extremes and quartiles
func Summarize(data []float64) (Summary, error) {
	s := Summary{Count: len(data)}

	mean, err := stats.Mean(data)
	if err != nil {
		return s, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return s, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return s, err
	}
	sum, err := stats.Sum(data)
	if err != nil {
		return s, err
	}

	s.Mean, s.Min, s.Max, s.Sum = mean, min, max, sum
	if len(data) > 1 {
		s.StdDev = stat.StdDev(data, nil)
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	s.Q25 = quantileSorted(sorted, 0.25)
	s.Median = quantileSorted(sorted, 0.5)
	s.Q75 = quantileSorted(sorted, 0.75)
	s.Skewness = calculateSkewness(data, mean, s.StdDev)
	return s, nil
}

// MeanStd returns the mean and sample standard deviation
func MeanStd(data []float64) (float64, float64) {
	if len(data) < 2 {
		if len(data) == 1 {
			return data[0], 0
		}
		return math.NaN(), math.NaN()
	}
	return stat.MeanStdDev(data, nil)
}

// TwoSidedPValue is the probability of a standard normal deviate at least |z| from zero
func TwoSidedPValue(z float64) float64 {
	n := distuv.UnitNormal
	return 2 * n.Survival(math.Abs(z))
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	return sumCubedDeviations * n / ((n - 1) * (n - 2))
}
