package quant

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

// Z-score classification bands, in standard deviations.
const (
	zStrongBand = 2.5
	zWeakBand   = 1.5
)

// CalcZScore classifies the latest price against the rolling mean. Fewer than
// minSamples prices or zero variance yield a neutral signal with zScore 0,
// never a division by zero.
func CalcZScore(prices []float64) types.ZScoreSignal {
	out := types.ZScoreSignal{Signal: "neutral"}
	if len(prices) < minSamples {
		return out
	}

	out.Mean = indicator.Mean(prices)
	out.StdDev = indicator.StdDev(prices)
	if out.StdDev == 0 {
		return out
	}

	out.ZScore = (prices[len(prices)-1] - out.Mean) / out.StdDev
	switch {
	case out.ZScore <= -zStrongBand:
		out.Signal = "strong_buy"
	case out.ZScore <= -zWeakBand:
		out.Signal = "buy"
	case out.ZScore >= zStrongBand:
		out.Signal = "strong_sell"
	case out.ZScore >= zWeakBand:
		out.Signal = "sell"
	}
	return out
}
