package scoring

import (
	"math"

	"adpilot/internal/types"

	talib "github.com/markcheno/go-talib"
)

// trendDirections tags the trend-sensitive metrics: +1 means improvement is an
// increasing series, -1 means improvement is a decreasing series.
var trendDirections = map[string]float64{
	types.MetricROAS: 1,
	types.MetricCTR:  1,
	types.MetricCPC:  -1,
	types.MetricCPM:  -1,
}

// perMetricMomentumCap bounds a single metric's momentum contribution so one
// noisy series cannot dominate the final score.
const perMetricMomentumCap = 0.15

// momentumBonus smooths each trend-sensitive metric's day series with an EMA,
// extracts the smoothed slope and converts it into a signed multiplier. Only
// metrics that actually carry weight in the current stage contribute.
// Short series (fewer than 2 smoothed points) contribute nothing.
func momentumBonus(summary types.EntitySummary, weights map[string]float64, sensitivity float64, emaPeriod int) (float64, map[string]float64) {
	slopes := make(map[string]float64)
	if sensitivity == 0 {
		return 0, slopes
	}
	if emaPeriod <= 0 {
		emaPeriod = 3
	}
	bonus := 0.0
	for metric, direction := range trendDirections {
		if weights[metric] == 0 {
			continue
		}
		series := summary.MetricSeries(metric)
		if len(series) < 2 {
			continue
		}
		period := emaPeriod
		if period > len(series) {
			period = len(series)
		}
		smoothed := talib.Ema(series, period)[period-1:]
		if len(smoothed) < 2 {
			continue
		}
		slope := leastSquaresSlope(smoothed)
		slopes[metric] = slope

		level := meanAbs(smoothed)
		if level == 0 {
			continue
		}
		// Slope relative to the series' own level, so a cheap metric and an
		// expensive one swing the bonus comparably.
		rel := slope / level
		bonus += clamp(rel*direction*sensitivity, -perMetricMomentumCap, perMetricMomentumCap)
	}
	return bonus, slopes
}

// leastSquaresSlope fits y = a + b*x over x = 0..n-1 and returns b.
func leastSquaresSlope(series []float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func meanAbs(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += math.Abs(v)
	}
	return sum / float64(len(series))
}
