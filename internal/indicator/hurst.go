package indicator

import "math"

// Regime classification bounds for the Hurst exponent. Values inside the
// band are treated as an ambiguous regime by callers.
const (
	HurstTrending      = 0.55
	HurstMeanReverting = 0.45
)

// Hurst estimates the Hurst exponent of a series using the rescaled-range
// (R/S) method with a log-log regression over multiple lag sizes. Returns
// the random-walk default 0.5 when fewer than 20 points are available or the
// series is degenerate.
func Hurst(values []float64) float64 {
	if len(values) < 20 {
		return 0.5
	}

	// Log returns of the price series.
	rets := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 || values[i] <= 0 {
			return 0.5
		}
		rets = append(rets, math.Log(values[i]/values[i-1]))
	}

	var logLags, logRS []float64
	for lag := 8; lag <= len(rets)/2; lag *= 2 {
		rs := avgRescaledRange(rets, lag)
		if rs <= 0 {
			continue
		}
		logLags = append(logLags, math.Log(float64(lag)))
		logRS = append(logRS, math.Log(rs))
	}
	if len(logLags) < 2 {
		return 0.5
	}

	h := regressionSlope(logLags, logRS)
	if math.IsNaN(h) {
		return 0.5
	}
	return math.Max(0, math.Min(1, h))
}

// avgRescaledRange computes the mean R/S statistic across consecutive
// blocks of the given size.
func avgRescaledRange(rets []float64, blockSize int) float64 {
	var sum float64
	blocks := 0
	for start := 0; start+blockSize <= len(rets); start += blockSize {
		block := rets[start : start+blockSize]
		mean := Mean(block)

		// Range of the mean-adjusted cumulative sum.
		var cum, minCum, maxCum float64
		for _, r := range block {
			cum += r - mean
			if cum < minCum {
				minCum = cum
			}
			if cum > maxCum {
				maxCum = cum
			}
		}
		sd := StdDev(block)
		if sd == 0 {
			continue
		}
		sum += (maxCum - minCum) / sd
		blocks++
	}
	if blocks == 0 {
		return 0
	}
	return sum / float64(blocks)
}

// regressionSlope returns the OLS slope of y on x.
func regressionSlope(x, y []float64) float64 {
	meanX := Mean(x)
	meanY := Mean(y)
	var num, den float64
	for i := range x {
		num += (x[i] - meanX) * (y[i] - meanY)
		den += (x[i] - meanX) * (x[i] - meanX)
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
