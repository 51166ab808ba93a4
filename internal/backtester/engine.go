// Package backtester replays strategy signals candle-by-candle with position
// lifecycle, fee and slippage accounting, and an optional sentiment-filter
// simulation.
package backtester

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantdesk/quant-backend/internal/data"
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/internal/performance"
	"github.com/quantdesk/quant-backend/internal/strategy"
	"github.com/quantdesk/quant-backend/internal/telemetry"
	"github.com/quantdesk/quant-backend/pkg/types"
)

// minTrailingProfitPct is the unrealized profit required before the trailing
// stop arms.
const minTrailingProfitPct = 1.0

// Engine runs backtests. It is stateless across runs; a single Engine may
// serve concurrent Run calls.
type Engine struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewEngine creates a backtest engine.
func NewEngine(logger *zap.Logger, metrics *telemetry.Metrics) *Engine {
	return &Engine{logger: logger, metrics: metrics}
}

// run holds the mutable state of a single backtest.
type run struct {
	config *types.BacktestConfig
	ind    *indicator.Series

	equity     decimal.Decimal
	peakEquity decimal.Decimal

	pos         *types.Position
	stopPrice   float64
	targetPrice float64

	trades      []types.Trade
	equityCurve []types.EquityPoint
}

// Run executes a backtest over the given candle series. The series must be
// ordered ascending by timestamp.
func (e *Engine) Run(ctx context.Context, config *types.BacktestConfig, candles []types.Candle) (*types.BacktestResult, error) {
	startedAt := time.Now()

	if len(candles) == 0 {
		return nil, fmt.Errorf("backtest %s: %w", config.Symbol, data.ErrNoData)
	}
	if config.ID == "" {
		config.ID = uuid.New().String()
	}

	strat, err := strategy.New(config.Strategy, config.Params)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", config.ID, err)
	}
	strategyUsed := config.Strategy

	// Substitute the documented lower-warm-up fallback when the history is
	// shorter than the strategy's warm-up.
	if strat.Warmup() >= len(candles) {
		if fb := strat.Info().Fallback; fb != "" {
			fallback, fbErr := strategy.New(fb, config.Params)
			if fbErr == nil && fallback.Warmup() < len(candles) {
				e.logger.Info("falling back to lower warm-up strategy",
					zap.String("id", config.ID),
					zap.String("requested", config.Strategy),
					zap.String("fallback", fb),
					zap.Int("bars", len(candles)),
					zap.Int("requiredWarmup", strat.Warmup()),
				)
				strat = fallback
				strategyUsed = fb
			}
		}
	}

	r := &run{
		config:     config,
		ind:        indicator.NewSeries(candles),
		equity:     config.InitialCapital,
		peakEquity: config.InitialCapital,
	}
	strat.Prepare(candles)
	exiter, hasSignalExit := strat.(strategy.ExitSignaler)

	var sentiment *sentimentSim
	if config.SentimentFilter {
		sentiment = newSentimentSim(config, r.ind)
	}

	warmup := strat.Warmup()
	bars := 0
	for i := warmup; i < len(candles); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		bar := candles[i]

		if r.pos != nil {
			r.updateExtremes(bar)
			if exit, price, reason := r.checkExit(i, bar, hasSignalExit, exiter); exit {
				r.close(i, bar.Timestamp, price, reason)
			}
		} else {
			if sig := strat.Signal(i); sig.Direction != types.DirectionNone {
				r.tryOpen(e.logger, i, bar, sig, sentiment)
			}
		}

		r.markToMarket(bar)
		bars++
	}

	// Data exhausted: force-close any open position at the final close, then
	// resettle the final equity point so the curve ends at realized equity.
	if r.pos != nil {
		last := candles[len(candles)-1]
		r.close(len(candles)-1, last.Timestamp, last.Close, types.ExitEndOfData)
		r.resettleFinalPoint()
	}

	processed := candles
	if warmup < len(candles) {
		processed = candles[warmup:]
	}
	metrics := performance.Compute(config.InitialCapital, r.trades, r.equityCurve, processed)

	result := &types.BacktestResult{
		ID:             config.ID,
		Config:         config,
		Trades:         r.trades,
		EquityCurve:    r.equityCurve,
		Metrics:        metrics,
		Distribution:   Distribution(r.trades),
		MonthlyReturns: MonthlyReturns(r.equityCurve),
		HourlyStats:    HourlyStats(r.trades),
		StrategyUsed:   strategyUsed,
		BarsProcessed:  bars,
		StartedAt:      startedAt,
		CompletedAt:    time.Now(),
	}
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	e.metrics.ObserveBacktest(result.Duration.Seconds(), len(r.trades))
	e.logger.Info("backtest completed",
		zap.String("id", config.ID),
		zap.String("strategy", strategyUsed),
		zap.Int("bars", bars),
		zap.Int("trades", len(r.trades)),
		zap.String("finalEquity", r.equity.String()),
	)
	return result, nil
}

// tryOpen runs the optional sentiment filter and opens a position sized by
// risk over stop distance.
func (r *run) tryOpen(logger *zap.Logger, i int, bar types.Candle, sig types.Signal, sentiment *sentimentSim) {
	multiplier := 1.0
	if sentiment != nil {
		accepted, m, score := sentiment.Evaluate(i, sig.Direction)
		if !accepted {
			logger.Debug("entry rejected by sentiment filter",
				zap.Int("bar", i),
				zap.Float64("score", score),
				zap.String("direction", string(sig.Direction)),
			)
			return
		}
		multiplier = m
	}

	price := bar.Close
	if sig.Direction == types.DirectionLong {
		price *= 1 + r.config.SlippageRate
	} else {
		price *= 1 - r.config.SlippageRate
	}
	if price <= 0 {
		return
	}

	stopDist := r.config.StopLossPct / 100
	if atr := r.ind.ATR14[i]; !math.IsNaN(atr) && atr/price > stopDist {
		stopDist = atr / price
	}
	if stopDist <= 0 {
		return
	}

	risk := r.equity.
		Mul(decimal.NewFromFloat(r.config.PositionPct / 100)).
		Mul(decimal.NewFromFloat(multiplier))
	qty := risk.Div(decimal.NewFromFloat(price * stopDist))
	maxQty := r.equity.
		Mul(decimal.NewFromFloat(r.config.MaxLeverage)).
		Div(decimal.NewFromFloat(price))
	if qty.GreaterThan(maxQty) {
		qty = maxQty
	}
	if !qty.IsPositive() {
		return
	}

	r.pos = &types.Position{
		Side:        sig.Direction,
		EntryPrice:  price,
		Quantity:    qty,
		EntryTime:   bar.Timestamp,
		EntryIndex:  i,
		PeakPrice:   price,
		TroughPrice: price,
	}
	if sig.Direction == types.DirectionLong {
		r.stopPrice = price * (1 - stopDist)
		r.targetPrice = price * (1 + r.config.TakeProfitPct/100)
	} else {
		r.stopPrice = price * (1 + stopDist)
		r.targetPrice = price * (1 - r.config.TakeProfitPct/100)
	}
}

func (r *run) updateExtremes(bar types.Candle) {
	if bar.High > r.pos.PeakPrice {
		r.pos.PeakPrice = bar.High
	}
	if bar.Low < r.pos.TroughPrice {
		r.pos.TroughPrice = bar.Low
	}
}

// checkExit evaluates the exit conditions in priority order: stop-loss,
// take-profit, trailing stop, then the strategy's own signal exit. Stop and
// target fills use the trigger level clipped to the bar range.
func (r *run) checkExit(i int, bar types.Candle, hasSignalExit bool, exiter strategy.ExitSignaler) (bool, float64, types.ExitReason) {
	long := r.pos.Side == types.DirectionLong

	if long && bar.Low <= r.stopPrice {
		return true, clipToBar(r.stopPrice, bar), types.ExitStopLoss
	}
	if !long && bar.High >= r.stopPrice {
		return true, clipToBar(r.stopPrice, bar), types.ExitStopLoss
	}

	if r.config.TakeProfitPct > 0 {
		if long && bar.High >= r.targetPrice {
			return true, clipToBar(r.targetPrice, bar), types.ExitTakeProfit
		}
		if !long && bar.Low <= r.targetPrice {
			return true, clipToBar(r.targetPrice, bar), types.ExitTakeProfit
		}
	}

	if r.config.TrailingStop && r.trailingArmed() {
		trailPct := r.config.TrailingPct / 100
		if long {
			trail := r.pos.PeakPrice * (1 - trailPct)
			if bar.Low <= trail {
				return true, clipToBar(trail, bar), types.ExitTrailingStop
			}
		} else {
			trail := r.pos.TroughPrice * (1 + trailPct)
			if bar.High >= trail {
				return true, clipToBar(trail, bar), types.ExitTrailingStop
			}
		}
	}

	if hasSignalExit && exiter.ExitSignal(i, r.pos.Side) {
		price := bar.Close
		if long {
			price *= 1 - r.config.SlippageRate
		} else {
			price *= 1 + r.config.SlippageRate
		}
		return true, price, types.ExitSignal
	}
	return false, 0, ""
}

// trailingArmed reports whether unrealized profit has reached the arming
// threshold at the position's best price.
func (r *run) trailingArmed() bool {
	entry := r.pos.EntryPrice
	if entry == 0 {
		return false
	}
	if r.pos.Side == types.DirectionLong {
		return (r.pos.PeakPrice-entry)/entry*100 >= minTrailingProfitPct
	}
	return (entry-r.pos.TroughPrice)/entry*100 >= minTrailingProfitPct
}

// close settles the open position at the given price and appends a Trade.
func (r *run) close(exitIndex int, exitTime int64, exitPrice float64, reason types.ExitReason) {
	pos := r.pos
	entry := decimal.NewFromFloat(pos.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)

	var gross decimal.Decimal
	if pos.Side == types.DirectionLong {
		gross = exit.Sub(entry).Mul(pos.Quantity)
	} else {
		gross = entry.Sub(exit).Mul(pos.Quantity)
	}

	feeRate := decimal.NewFromFloat(r.config.FeeRate)
	fees := entry.Add(exit).Mul(pos.Quantity).Mul(feeRate)
	net := gross.Sub(fees)

	entryNotional := entry.Mul(pos.Quantity)
	pnlPct := 0.0
	if entryNotional.IsPositive() {
		pnlPct, _ = net.Div(entryNotional).Mul(decimal.NewFromInt(100)).Float64()
	}

	r.trades = append(r.trades, types.Trade{
		ID:          uuid.New().String(),
		Symbol:      r.config.Symbol,
		Side:        pos.Side,
		EntryTime:   pos.EntryTime,
		ExitTime:    exitTime,
		EntryIndex:  pos.EntryIndex,
		ExitIndex:   exitIndex,
		HoldingBars: exitIndex - pos.EntryIndex,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    pos.Quantity,
		GrossPnL:    gross,
		Fees:        fees,
		NetPnL:      net,
		PnLPct:      pnlPct,
		ExitReason:  reason,
	})

	r.equity = r.equity.Add(net)
	r.pos = nil
	r.stopPrice, r.targetPrice = 0, 0
}

// markToMarket appends one equity point valuing any open position at the
// bar's close.
func (r *run) markToMarket(bar types.Candle) {
	mark := r.equity
	if r.pos != nil {
		closeP := decimal.NewFromFloat(bar.Close)
		entry := decimal.NewFromFloat(r.pos.EntryPrice)
		var unrealized decimal.Decimal
		if r.pos.Side == types.DirectionLong {
			unrealized = closeP.Sub(entry).Mul(r.pos.Quantity)
		} else {
			unrealized = entry.Sub(closeP).Mul(r.pos.Quantity)
		}
		mark = mark.Add(unrealized)
	}

	if mark.GreaterThan(r.peakEquity) {
		r.peakEquity = mark
	}
	drawdown := r.peakEquity.Sub(mark)
	ddPct := 0.0
	if r.peakEquity.IsPositive() {
		ddPct, _ = drawdown.Div(r.peakEquity).Mul(decimal.NewFromInt(100)).Float64()
	}

	r.equityCurve = append(r.equityCurve, types.EquityPoint{
		Timestamp:   bar.Timestamp,
		Equity:      mark,
		Drawdown:    drawdown,
		DrawdownPct: ddPct,
	})
}

// resettleFinalPoint rewrites the last equity point with realized equity
// after an end-of-data force close, keeping sum(NetPnL) equal to
// finalEquity minus initialCapital.
func (r *run) resettleFinalPoint() {
	if len(r.equityCurve) == 0 {
		return
	}
	last := &r.equityCurve[len(r.equityCurve)-1]
	last.Equity = r.equity
	if r.equity.GreaterThan(r.peakEquity) {
		r.peakEquity = r.equity
	}
	last.Drawdown = r.peakEquity.Sub(r.equity)
	if r.peakEquity.IsPositive() {
		last.DrawdownPct, _ = last.Drawdown.Div(r.peakEquity).Mul(decimal.NewFromInt(100)).Float64()
	}
}

func clipToBar(price float64, bar types.Candle) float64 {
	if price < bar.Low {
		return bar.Low
	}
	if price > bar.High {
		return bar.High
	}
	return price
}
