// Package indicator provides pure, deterministic technical indicator
// transforms over price/volume series. Every series function returns a slice
// of the same length as its input, left-padded with a neutral value (NaN for
// window-based indicators, 50 for RSI) until the window fills.
//
// Note on EMA seeding: the first EMA value seeds from the raw series rather
// than from an SMA of the warm-up window. Downstream strategies are tuned
// against this behavior, so it is kept deliberately.
package indicator

import (
	"math"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// SMA computes the simple moving average. Indices before the window fills
// are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing factor
// k = 2/(period+1), seeded from the first raw value.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI computes the Wilder-smoothed relative strength index. Warm-up indices
// are seeded at the neutral 50; RSI is 100 when the average loss is exactly
// zero.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 50
	}
	if len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD computes the moving average convergence/divergence line
// (EMA(fast) - EMA(slow)), its signal line (EMA(signalPeriod) of the
// difference) and the histogram (macd - signal).
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signal = EMA(macd, signalPeriod)
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

// Bollinger computes SMA ± mult*stddev bands over a rolling window using
// population variance. Indices before the window fills are NaN.
func Bollinger(values []float64, period int, mult float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			upper[i] = math.NaN()
			lower[i] = math.NaN()
			continue
		}
		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - middle[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + mult*sd
		lower[i] = middle[i] - mult*sd
	}
	return upper, middle, lower
}

// TrueRange returns the true range for candle i.
func TrueRange(candles []types.Candle, i int) float64 {
	if i == 0 {
		return candles[0].High - candles[0].Low
	}
	prevClose := candles[i-1].Close
	tr := candles[i].High - candles[i].Low
	if hc := math.Abs(candles[i].High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(candles[i].Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// ATR computes the Wilder-smoothed average true range. Indices before the
// first full period are NaN.
func ATR(candles []types.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if len(candles) < period+1 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i := 0; i < len(candles); i++ {
		tr := TrueRange(candles, i)
		switch {
		case i < period:
			sum += tr
			out[i] = math.NaN()
			if i == period-1 {
				out[i] = sum / float64(period)
			}
		default:
			out[i] = (out[i-1]*float64(period-1) + tr) / float64(period)
		}
	}
	return out
}

// ROC returns the rate of change over period bars ending at index i, as a
// fraction. Returns 0 when insufficient history exists.
func ROC(values []float64, period, i int) float64 {
	if i < period || values[i-period] == 0 {
		return 0
	}
	return (values[i] - values[i-period]) / values[i-period]
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Slope returns the per-bar change of values over the last period bars
// ending at i, normalized by the value at the start of the window.
func Slope(values []float64, period, i int) float64 {
	if i < period || values[i-period] == 0 {
		return 0
	}
	return (values[i] - values[i-period]) / float64(period) / values[i-period]
}
