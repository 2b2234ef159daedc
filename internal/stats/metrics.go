package stats

import (
	"math"
	"sort"

	"github.com/monify-labs/procwatch/pkg/models"
)

// ComputeMetrics derives summary statistics from values in sample order.
// An empty input yields all zeros with no percentile or skewness.
func ComputeMetrics(values []float64) models.StatisticalMetrics {
	n := len(values)
	if n == 0 {
		return models.StatisticalMetrics{}
	}

	fn := float64(n)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / fn

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / fn)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	idx := int(math.Ceil(0.95 * fn))
	if idx > n-1 {
		idx = n - 1
	}
	p95 := sorted[idx]

	var skewness *float64
	if n > 2 && stdDev > 0 {
		skew := 0.0
		for _, v := range values {
			z := (v - mean) / stdDev
			skew += z * z * z
		}
		skew /= fn
		skewness = &skew
	}

	trend, forecast := linearRegression(values, mean)

	return models.StatisticalMetrics{
		Mean:         mean,
		Median:       median,
		StdDev:       stdDev,
		Min:          sorted[0],
		Max:          sorted[n-1],
		Percentile95: &p95,
		Skewness:     skewness,
		Trend:        trend,
		Forecast:     forecast,
		Samples:      n,
	}
}

// linearRegression fits value against sample index with the index centered
// on its mean. It returns the slope and the predicted next value.
func linearRegression(values []float64, mean float64) (slope, next float64) {
	n := len(values)
	if n < 2 {
		if n == 0 {
			return 0, 0
		}
		return 0, values[n-1]
	}

	xCenter := float64(n-1) / 2
	var num, den float64
	for i, y := range values {
		x := float64(i) - xCenter
		num += x * (y - mean)
		den += x * x
	}
	if den != 0 {
		slope = num / den
	}
	return slope, mean + slope*(xCenter+1)
}
