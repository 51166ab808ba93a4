package quant

import (
	"math"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// vwapBandMult is the band width in volume-weighted standard deviations.
const vwapBandMult = 2.0

// CalcVWAP computes the volume-weighted average price over the series and its
// deviation bands. The signal fires when the latest price sits outside a
// band: below the lower band is a buy, above the upper a sell.
func CalcVWAP(prices, volumes []float64) types.VWAPData {
	out := types.VWAPData{Signal: types.DirectionNone}
	if len(prices) == 0 || len(prices) != len(volumes) {
		return out
	}

	var pv, totalVol float64
	for i := range prices {
		pv += prices[i] * volumes[i]
		totalVol += volumes[i]
	}
	if totalVol == 0 {
		return out
	}
	out.VWAP = pv / totalVol

	var weightedVar float64
	for i := range prices {
		d := prices[i] - out.VWAP
		weightedVar += volumes[i] * d * d
	}
	out.StdDev = math.Sqrt(weightedVar / totalVol)
	out.UpperBand = out.VWAP + vwapBandMult*out.StdDev
	out.LowerBand = out.VWAP - vwapBandMult*out.StdDev

	if out.StdDev > 0 {
		last := prices[len(prices)-1]
		if last < out.LowerBand {
			out.Signal = types.DirectionLong
		} else if last > out.UpperBand {
			out.Signal = types.DirectionShort
		}
	}
	return out
}
