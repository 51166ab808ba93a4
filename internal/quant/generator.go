// Package quant provides the live signal generator: rolling per-symbol
// history, mean-reversion and order-flow components, Kelly sizing, a drawdown
// throttle and a pairs analyzer.
package quant

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/internal/telemetry"
	"github.com/quantdesk/quant-backend/pkg/types"
)

const (
	// historySize bounds every rolling buffer.
	historySize = 100

	// minSamples is the minimum history for the statistical components.
	minSamples = 20
)

// tradeRecord is one realized trade outcome in the rolling history.
type tradeRecord struct {
	pnl    float64
	pnlPct float64
	symbol string
}

// Generator maintains rolling per-symbol history and produces unified signals.
// All state is instance-scoped and mutex-guarded; concurrent callers for
// different symbols do not interfere.
type Generator struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics

	maxDrawdownPct float64

	mu           sync.Mutex
	prices       map[string][]float64
	trades       []tradeRecord
	dailyReturns []float64
	peakEquity   float64
}

// NewGenerator creates a signal generator. maxDrawdownPct is the drawdown at
// which the throttle zeroes position sizing.
func NewGenerator(logger *zap.Logger, metrics *telemetry.Metrics, maxDrawdownPct float64) *Generator {
	if maxDrawdownPct <= 0 {
		maxDrawdownPct = 10
	}
	return &Generator{
		logger:         logger,
		metrics:        metrics,
		maxDrawdownPct: maxDrawdownPct,
		prices:         make(map[string][]float64),
	}
}

// RecordTrade appends a realized trade outcome to the rolling history.
func (g *Generator) RecordTrade(pnl, pnlPct float64, symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trades = append(g.trades, tradeRecord{pnl: pnl, pnlPct: pnlPct, symbol: symbol})
	if len(g.trades) > historySize {
		g.trades = g.trades[len(g.trades)-historySize:]
	}
}

// RecordDailyReturn appends a daily portfolio return (percent).
func (g *Generator) RecordDailyReturn(pct float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyReturns = append(g.dailyReturns, pct)
	if len(g.dailyReturns) > historySize {
		g.dailyReturns = g.dailyReturns[len(g.dailyReturns)-historySize:]
	}
}

// UpdatePriceHistory appends a price observation for a symbol.
func (g *Generator) UpdatePriceHistory(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := append(g.prices[symbol], price)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	g.prices[symbol] = h
}

// rollingSharpe annualizes mean over stddev of the recorded daily returns.
// Needs minSamples observations and nonzero dispersion.
func (g *Generator) rollingSharpe() (float64, bool) {
	g.mu.Lock()
	returns := make([]float64, len(g.dailyReturns))
	copy(returns, g.dailyReturns)
	g.mu.Unlock()

	if len(returns) < minSamples {
		return 0, false
	}
	sd := indicator.StdDev(returns)
	if sd == 0 {
		return 0, false
	}
	return indicator.Mean(returns) / sd * math.Sqrt(365), true
}

// priceHistory returns a copy of the rolling prices for a symbol.
func (g *Generator) priceHistory(symbol string) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.prices[symbol]
	out := make([]float64, len(h))
	copy(out, h)
	return out
}

// GenerateSignal blends the mean-reversion, VWAP, order-flow, Kelly and
// drawdown components into one recommendation. prices/volumes are the recent
// series for the symbol (most recent last); book may be nil; ind carries the
// precomputed indicator set for the same series.
func (g *Generator) GenerateSignal(symbol string, prices, volumes []float64, book *types.OrderBook, equity, baseRiskPct float64, ind *indicator.Series) *types.QuantSignal {
	sig := &types.QuantSignal{
		Symbol:      symbol,
		Direction:   types.DirectionNone,
		GeneratedAt: time.Now().UnixMilli(),
	}
	if len(prices) == 0 {
		sig.Warnings = append(sig.Warnings, "no price history")
		return sig
	}
	sig.Price = prices[len(prices)-1]

	score := 0.0
	components := 0

	z := CalcZScore(prices)
	sig.ZScore = &z
	switch z.Signal {
	case "strong_buy":
		score += 30
		components++
		sig.Rationale = append(sig.Rationale, fmt.Sprintf("z-score %.2f: deeply stretched below mean", z.ZScore))
	case "buy":
		score += 15
		components++
		sig.Rationale = append(sig.Rationale, fmt.Sprintf("z-score %.2f: stretched below mean", z.ZScore))
	case "sell":
		score -= 15
		components++
		sig.Rationale = append(sig.Rationale, fmt.Sprintf("z-score %.2f: stretched above mean", z.ZScore))
	case "strong_sell":
		score -= 30
		components++
		sig.Rationale = append(sig.Rationale, fmt.Sprintf("z-score %.2f: deeply stretched above mean", z.ZScore))
	}

	if len(volumes) == len(prices) {
		v := CalcVWAP(prices, volumes)
		sig.VWAP = &v
		switch v.Signal {
		case types.DirectionLong:
			score += 20
			components++
			sig.Rationale = append(sig.Rationale, fmt.Sprintf("price below lower VWAP band (%.2f)", v.LowerBand))
		case types.DirectionShort:
			score -= 20
			components++
			sig.Rationale = append(sig.Rationale, fmt.Sprintf("price above upper VWAP band (%.2f)", v.UpperBand))
		}
	}

	if book != nil {
		of := CalcOrderFlow(book)
		sig.OrderFlow = &of
		switch of.Classification {
		case "strong_buy":
			score += 25
			components++
		case "buy":
			score += 10
			components++
		case "sell":
			score -= 10
			components++
		case "strong_sell":
			score -= 25
			components++
		}
		if of.Classification != "neutral" {
			sig.Rationale = append(sig.Rationale, fmt.Sprintf("order-flow delta %.1f%% (%s)", of.DeltaPct, of.Classification))
		}
		if of.Institutional {
			// Institutional flow reinforces whichever way the book leans.
			if of.Delta > 0 {
				score += 10
			} else if of.Delta < 0 {
				score -= 10
			}
			sig.Rationale = append(sig.Rationale, "institutional-size order book activity")
		}
	}

	switch {
	case score >= 15:
		sig.Direction = types.DirectionLong
	case score <= -15:
		sig.Direction = types.DirectionShort
	}
	sig.Strength = math.Min(100, math.Abs(score))
	sig.Confidence = math.Min(95, 35+15*float64(components))

	g.applySizing(sig, equity, baseRiskPct, ind)

	g.metrics.ObserveSignal()
	g.logger.Debug("quant signal generated",
		zap.String("symbol", symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("strength", sig.Strength),
		zap.Float64("score", score),
	)
	return sig
}

// applySizing fills position size and stop/target guidance: Kelly and the
// drawdown throttle scale the base risk, ATR sets the stop distance.
func (g *Generator) applySizing(sig *types.QuantSignal, equity, baseRiskPct float64, ind *indicator.Series) {
	kelly := g.KellyFromHistory()
	sig.Kelly = &kelly

	dd := g.DrawdownThrottle(equity)
	sig.Drawdown = &dd

	// ATR-scaled stop: 1.5x the ATR as a percent of price, with a 2:1
	// reward:risk target.
	atrPct := 2.0
	if ind != nil && len(ind.ATR14) > 0 {
		if atr := ind.ATR14[len(ind.ATR14)-1]; !math.IsNaN(atr) && sig.Price > 0 {
			atrPct = atr / sig.Price * 100
		}
	}
	sig.StopLossPct = 1.5 * atrPct
	sig.TakeProfitPct = 2 * sig.StopLossPct

	size := baseRiskPct * dd.SizeMultiplier

	// Volatility adjustment: shrink size as the ATR stop widens beyond 2%.
	if sig.StopLossPct > 2 {
		size *= 2 / sig.StopLossPct
	}

	// Never exceed the Kelly recommendation when enough history exists.
	if kelly.SampleSize >= minSamples && size > kelly.Fraction*100 {
		size = kelly.Fraction * 100
		sig.Rationale = append(sig.Rationale, "size capped at Kelly fraction")
	}

	if dd.Halted {
		size = 0
		sig.Warnings = append(sig.Warnings, fmt.Sprintf("drawdown %.1f%% at halt threshold, sizing zeroed", dd.DrawdownPct))
	} else if dd.SizeMultiplier < 1 {
		sig.Warnings = append(sig.Warnings, fmt.Sprintf("drawdown %.1f%%, size multiplier %.2f", dd.DrawdownPct, dd.SizeMultiplier))
	}
	if sig.StopLossPct > 5 {
		sig.Warnings = append(sig.Warnings, fmt.Sprintf("elevated volatility: ATR stop %.1f%%", sig.StopLossPct))
	}
	if sharpe, ok := g.rollingSharpe(); ok {
		if sharpe < 0 {
			sig.Warnings = append(sig.Warnings, fmt.Sprintf("rolling daily Sharpe %.2f, recent portfolio returns negative", sharpe))
		} else {
			sig.Rationale = append(sig.Rationale, fmt.Sprintf("rolling daily Sharpe %.2f", sharpe))
		}
	}

	sig.PositionPct = size
}
