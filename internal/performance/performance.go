// Package performance derives risk and return statistics from a completed
// trade ledger and equity curve. All functions are pure transforms.
package performance

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/quantdesk/quant-backend/pkg/types"
)

const (
	// MinTradesForRatios gates the ratio metrics; below it they report the
	// neutral zero default.
	MinTradesForRatios = 10

	// MinTradesForKelly gates the Kelly fraction.
	MinTradesForKelly = 20

	// MaxKellyFraction caps the Kelly recommendation at 25% of capital.
	MaxKellyFraction = 0.25

	// NoLossSentinel is reported for profit factor and Omega when there are
	// no losing observations. A finite sentinel keeps results serializable
	// and comparable.
	NoLossSentinel = 999.0

	daysPerYear = 365.0
)

var hundred = decimal.NewFromInt(100)

// Compute derives the full metrics set. candles must be the processed window
// of the run; it anchors annualization and the buy-and-hold benchmark.
func Compute(initialCapital decimal.Decimal, trades []types.Trade, curve []types.EquityPoint, candles []types.Candle) *types.PerformanceMetrics {
	m := &types.PerformanceMetrics{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
	}
	if len(curve) > 0 {
		m.FinalEquity = curve[len(curve)-1].Equity
	}

	if initialCapital.IsPositive() {
		m.TotalReturnPct, _ = m.FinalEquity.Sub(initialCapital).
			Div(initialCapital).Mul(hundred).Float64()
	}

	days := windowDays(candles)
	m.AnnualizedPct = annualize(m.TotalReturnPct, days)

	for _, p := range curve {
		if p.Drawdown.GreaterThan(m.MaxDrawdown) {
			m.MaxDrawdown = p.Drawdown
		}
		if p.DrawdownPct > m.MaxDrawdownPct {
			m.MaxDrawdownPct = p.DrawdownPct
		}
	}

	tradeStats(m, trades)
	kelly(m, trades)

	returns := barReturns(curve)
	distribution(m, returns)
	ratios(m, returns, days, len(curve))

	if len(candles) > 0 && candles[0].Close != 0 {
		first, last := candles[0].Close, candles[len(candles)-1].Close
		m.BuyHoldReturnPct = (last - first) / first * 100
		m.AlphaPct = m.TotalReturnPct - m.BuyHoldReturnPct
	}
	return m
}

// windowDays is the candle window span in days.
func windowDays(candles []types.Candle) float64 {
	if len(candles) < 2 {
		return 0
	}
	span := time.Duration(candles[len(candles)-1].Timestamp-candles[0].Timestamp) * time.Millisecond
	return span.Hours() / 24
}

// annualize converts a total percent return over the given day span into a
// compound annual percent return.
func annualize(totalPct, days float64) float64 {
	if days <= 0 {
		return totalPct
	}
	growth := 1 + totalPct/100
	if growth <= 0 {
		return -100
	}
	return (math.Pow(growth, daysPerYear/days) - 1) * 100
}

func tradeStats(m *types.PerformanceMetrics, trades []types.Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var grossWin, grossLoss decimal.Decimal
	var winStreak, lossStreak int
	for _, t := range trades {
		if t.NetPnL.IsPositive() {
			m.WinningTrades++
			grossWin = grossWin.Add(t.NetPnL)
			winStreak++
			lossStreak = 0
		} else {
			m.LosingTrades++
			grossLoss = grossLoss.Add(t.NetPnL.Abs())
			lossStreak++
			winStreak = 0
		}
		if winStreak > m.LongestWinStreak {
			m.LongestWinStreak = winStreak
		}
		if lossStreak > m.LongestLossStreak {
			m.LongestLossStreak = lossStreak
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	if grossLoss.IsPositive() {
		m.ProfitFactor, _ = grossWin.Div(grossLoss).Float64()
	} else if grossWin.IsPositive() {
		m.ProfitFactor = NoLossSentinel
	}

	if m.WinningTrades > 0 {
		m.AvgWin = grossWin.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(m.LosingTrades)))
	}

	// Expectancy: winRate*avgWin - lossRate*avgLoss, per trade.
	winP := decimal.NewFromFloat(float64(m.WinningTrades) / float64(m.TotalTrades))
	lossP := decimal.NewFromFloat(float64(m.LosingTrades) / float64(m.TotalTrades))
	m.Expectancy = winP.Mul(m.AvgWin).Sub(lossP.Mul(m.AvgLoss))
}

func kelly(m *types.PerformanceMetrics, trades []types.Trade) {
	if len(trades) < MinTradesForKelly || m.WinningTrades == 0 || m.LosingTrades == 0 {
		return
	}
	avgWin, _ := m.AvgWin.Float64()
	avgLoss, _ := m.AvgLoss.Float64()
	if avgLoss == 0 {
		return
	}
	payoff := avgWin / avgLoss
	w := float64(m.WinningTrades) / float64(len(trades))
	f := w - (1-w)/payoff
	if f < 0 {
		f = 0
	}
	if f > MaxKellyFraction {
		f = MaxKellyFraction
	}
	m.KellyFraction = f
	m.HalfKelly = f / 2
	m.QuarterKelly = f / 4
}

// barReturns converts the equity curve into simple per-bar returns.
func barReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if !prev.IsPositive() {
			continue
		}
		r, _ := curve[i].Equity.Sub(prev).Div(prev).Float64()
		returns = append(returns, r)
	}
	return returns
}

// distribution computes VaR95, skewness and excess kurtosis of the bar
// returns. Population moments, per the reporting convention.
func distribution(m *types.PerformanceMetrics, returns []float64) {
	if len(returns) < 2 {
		return
	}

	if p, err := stats.Percentile(stats.Float64Data(returns), 5); err == nil && p < 0 {
		m.VaR95 = -p * 100
	}

	mean, _ := stats.Mean(stats.Float64Data(returns))
	var m2, m3, m4 float64
	for _, r := range returns {
		d := r - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	n := float64(len(returns))
	m2, m3, m4 = m2/n, m3/n, m4/n
	if m2 > 0 {
		m.Skewness = m3 / math.Pow(m2, 1.5)
		m.ExcessKurtosis = m4/(m2*m2) - 3
	}
}

// ratios computes the annualized Sharpe, Sortino, Calmar and Omega ratios.
// Below MinTradesForRatios trades they stay at the neutral zero default.
func ratios(m *types.PerformanceMetrics, returns []float64, days float64, bars int) {
	if m.TotalTrades < MinTradesForRatios || len(returns) < 2 || days <= 0 {
		return
	}
	barsPerYear := float64(bars) / days * daysPerYear

	mean, _ := stats.Mean(stats.Float64Data(returns))
	sd, _ := stats.StandardDeviation(stats.Float64Data(returns))
	if sd > 0 {
		m.SharpeRatio = mean / sd * math.Sqrt(barsPerYear)
	}

	var downside []float64
	var sumPos, sumNegAbs float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
			sumNegAbs += -r
		} else {
			sumPos += r
		}
	}
	if len(downside) > 0 {
		var sq float64
		for _, r := range downside {
			sq += r * r
		}
		dd := math.Sqrt(sq / float64(len(returns)))
		if dd > 0 {
			m.SortinoRatio = mean / dd * math.Sqrt(barsPerYear)
		}
	} else if mean > 0 {
		m.SortinoRatio = NoLossSentinel
	}

	if m.MaxDrawdownPct > 0 {
		m.CalmarRatio = m.AnnualizedPct / m.MaxDrawdownPct
	}

	if sumNegAbs > 0 {
		m.OmegaRatio = sumPos / sumNegAbs
	} else if sumPos > 0 {
		m.OmegaRatio = NoLossSentinel
	}
}
