package quant

import (
	"math"

	"github.com/quantdesk/quant-backend/pkg/types"
)

const (
	// institutionalLevelMult marks a book level holding this multiple of the
	// average level size.
	institutionalLevelMult = 5.0

	// institutionalMinLevels is how many oversized levels must appear before
	// level size alone flags institutional activity.
	institutionalMinLevels = 2

	// institutionalImbalancePct flags an absolute depth imbalance above this
	// percentage.
	institutionalImbalancePct = 40.0
)

// CalcOrderFlow summarizes bid/ask depth imbalance. Classification bands on
// delta percent: strong beyond 30, weak beyond 10.
func CalcOrderFlow(book *types.OrderBook) types.OrderFlowDelta {
	var out types.OrderFlowDelta
	out.Classification = "neutral"
	if book == nil {
		return out
	}

	var levels int
	var levelSum float64
	for _, b := range book.Bids {
		out.BidVolume += b.Quantity
		levelSum += b.Quantity
		levels++
	}
	for _, a := range book.Asks {
		out.AskVolume += a.Quantity
		levelSum += a.Quantity
		levels++
	}

	total := out.BidVolume + out.AskVolume
	if total == 0 {
		return out
	}
	out.Delta = out.BidVolume - out.AskVolume
	out.DeltaPct = out.Delta / total * 100

	switch {
	case out.DeltaPct > 30:
		out.Classification = "strong_buy"
	case out.DeltaPct > 10:
		out.Classification = "buy"
	case out.DeltaPct < -30:
		out.Classification = "strong_sell"
	case out.DeltaPct < -10:
		out.Classification = "sell"
	}

	avgLevel := levelSum / float64(levels)
	if avgLevel > 0 {
		oversized := 0
		for _, b := range book.Bids {
			if b.Quantity >= institutionalLevelMult*avgLevel {
				oversized++
			}
		}
		for _, a := range book.Asks {
			if a.Quantity >= institutionalLevelMult*avgLevel {
				oversized++
			}
		}
		if oversized >= institutionalMinLevels {
			out.Institutional = true
		}
	}
	if math.Abs(out.DeltaPct) > institutionalImbalancePct {
		out.Institutional = true
	}
	return out
}
