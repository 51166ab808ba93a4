package indicator

import (
	"math"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// DirectionalIndex holds one bar's ADX and directional indicator values.
type DirectionalIndex struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADXSeries computes Wilder-smoothed ADX, +DI and -DI for every bar. Bars
// before the warm-up (2*period) carry NaN ADX and zero DIs.
func ADXSeries(candles []types.Candle, period int) []DirectionalIndex {
	out := make([]DirectionalIndex, len(candles))
	for i := range out {
		out[i].ADX = math.NaN()
	}
	if len(candles) < 2*period+1 {
		return out
	}

	n := len(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = TrueRange(candles, i)
	}

	// Wilder smoothing of DM and TR, then DX, then ADX of DX.
	var smPlus, smMinus, smTR float64
	for i := 1; i <= period; i++ {
		smPlus += plusDM[i]
		smMinus += minusDM[i]
		smTR += tr[i]
	}

	dx := make([]float64, n)
	var adx float64
	dxCount := 0
	for i := period; i < n; i++ {
		if i > period {
			smPlus = smPlus - smPlus/float64(period) + plusDM[i]
			smMinus = smMinus - smMinus/float64(period) + minusDM[i]
			smTR = smTR - smTR/float64(period) + tr[i]
		}
		var plusDI, minusDI float64
		if smTR > 0 {
			plusDI = 100 * smPlus / smTR
			minusDI = 100 * smMinus / smTR
		}
		out[i].PlusDI = plusDI
		out[i].MinusDI = minusDI

		diSum := plusDI + minusDI
		if diSum > 0 {
			dx[i] = 100 * math.Abs(plusDI-minusDI) / diSum
		}
		dxCount++

		if dxCount == period {
			var sum float64
			for j := i - period + 1; j <= i; j++ {
				sum += dx[j]
			}
			adx = sum / float64(period)
			out[i].ADX = adx
		} else if dxCount > period {
			adx = (adx*float64(period-1) + dx[i]) / float64(period)
			out[i].ADX = adx
		}
	}
	return out
}

// ADX returns the most recent ADX, +DI and -DI values for the series.
// All zero (ADX NaN treated as 0) when insufficient history exists.
func ADX(candles []types.Candle, period int) (adx, plusDI, minusDI float64) {
	series := ADXSeries(candles, period)
	if len(series) == 0 {
		return 0, 0, 0
	}
	last := series[len(series)-1]
	if math.IsNaN(last.ADX) {
		return 0, last.PlusDI, last.MinusDI
	}
	return last.ADX, last.PlusDI, last.MinusDI
}
