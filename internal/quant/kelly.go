package quant

import "github.com/quantdesk/quant-backend/pkg/types"

// maxKellyFraction caps the live Kelly recommendation at 25% of capital.
const maxKellyFraction = 0.25

// KellyFromHistory derives the Kelly fraction from the rolling trade history.
// f = p - (1-p)/b where p is the win rate and b the payoff ratio. The result
// is clamped to [0, maxKellyFraction]; insufficient or one-sided history
// yields a zero fraction with the sample size reported.
func (g *Generator) KellyFromHistory() types.KellyResult {
	g.mu.Lock()
	trades := make([]tradeRecord, len(g.trades))
	copy(trades, g.trades)
	g.mu.Unlock()

	out := types.KellyResult{SampleSize: len(trades)}
	if len(trades) < minSamples {
		return out
	}

	var wins, losses int
	var sumWin, sumLoss float64
	for _, t := range trades {
		if t.pnl > 0 {
			wins++
			sumWin += t.pnlPct
		} else {
			losses++
			sumLoss += -t.pnlPct
		}
	}
	if wins == 0 || losses == 0 || sumLoss <= 0 {
		return out
	}

	avgWin := sumWin / float64(wins)
	avgLoss := sumLoss / float64(losses)
	if avgLoss <= 0 {
		return out
	}

	out.WinRate = float64(wins) / float64(len(trades))
	out.PayoffRatio = avgWin / avgLoss

	f := out.WinRate - (1-out.WinRate)/out.PayoffRatio
	if f < 0 {
		f = 0
	}
	if f > maxKellyFraction {
		f = maxKellyFraction
		out.Capped = true
	}
	out.Fraction = f
	out.HalfFraction = f / 2
	out.QuarterFraction = f / 4
	return out
}
