package performance

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quantdesk/quant-backend/pkg/types"
)

func tradeWithNet(net float64) types.Trade {
	return types.Trade{NetPnL: decimal.NewFromFloat(net)}
}

func curveFromEquities(equities []float64) []types.EquityPoint {
	curve := make([]types.EquityPoint, len(equities))
	peak := 0.0
	ts := int64(1700000000000)
	for i, eq := range equities {
		if eq > peak {
			peak = eq
		}
		curve[i] = types.EquityPoint{
			Timestamp:   ts + int64(i)*3600000,
			Equity:      decimal.NewFromFloat(eq),
			Drawdown:    decimal.NewFromFloat(peak - eq),
			DrawdownPct: (peak - eq) / peak * 100,
		}
	}
	return curve
}

func hourlyCandles(closes []float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	ts := int64(1700000000000)
	for i, c := range closes {
		candles[i] = types.Candle{Timestamp: ts + int64(i)*3600000, Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return candles
}

func TestComputeNoTrades(t *testing.T) {
	initial := decimal.NewFromInt(1000)
	m := Compute(initial, nil, nil, nil)

	if !m.FinalEquity.Equal(initial) {
		t.Errorf("final equity = %s, want %s", m.FinalEquity, initial)
	}
	if m.TotalReturnPct != 0 || m.TotalTrades != 0 || m.SharpeRatio != 0 {
		t.Errorf("empty run must produce neutral metrics, got %+v", m)
	}
}

func TestTradeStatsAndStreaks(t *testing.T) {
	trades := []types.Trade{
		tradeWithNet(10), tradeWithNet(10), tradeWithNet(10),
		tradeWithNet(-5), tradeWithNet(-5),
		tradeWithNet(10), tradeWithNet(10), tradeWithNet(10), tradeWithNet(10),
		tradeWithNet(-5),
	}
	m := Compute(decimal.NewFromInt(1000), trades, nil, nil)

	if m.TotalTrades != 10 || m.WinningTrades != 7 || m.LosingTrades != 3 {
		t.Fatalf("counts = %d/%d/%d, want 10/7/3", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	}
	if math.Abs(m.WinRate-70) > 1e-9 {
		t.Errorf("win rate = %v, want 70", m.WinRate)
	}
	// gross win 70, gross loss 15
	if math.Abs(m.ProfitFactor-70.0/15.0) > 1e-9 {
		t.Errorf("profit factor = %v, want %v", m.ProfitFactor, 70.0/15.0)
	}
	if m.LongestWinStreak != 4 || m.LongestLossStreak != 2 {
		t.Errorf("streaks = %d/%d, want 4/2", m.LongestWinStreak, m.LongestLossStreak)
	}
	if !m.AvgWin.Equal(decimal.NewFromInt(10)) || !m.AvgLoss.Equal(decimal.NewFromInt(5)) {
		t.Errorf("avg win/loss = %s/%s, want 10/5", m.AvgWin, m.AvgLoss)
	}
}

func TestProfitFactorSentinelWhenNoLosses(t *testing.T) {
	trades := []types.Trade{tradeWithNet(5), tradeWithNet(5)}
	m := Compute(decimal.NewFromInt(1000), trades, nil, nil)
	if m.ProfitFactor != NoLossSentinel {
		t.Errorf("profit factor = %v, want sentinel %v", m.ProfitFactor, NoLossSentinel)
	}
}

func TestKellyClampedToCap(t *testing.T) {
	var trades []types.Trade
	for i := 0; i < 18; i++ {
		trades = append(trades, tradeWithNet(100))
	}
	trades = append(trades, tradeWithNet(-1), tradeWithNet(-1))

	m := Compute(decimal.NewFromInt(1000), trades, nil, nil)
	if m.KellyFraction != MaxKellyFraction {
		t.Errorf("kelly = %v, want cap %v", m.KellyFraction, MaxKellyFraction)
	}
	if m.HalfKelly != MaxKellyFraction/2 || m.QuarterKelly != MaxKellyFraction/4 {
		t.Errorf("half/quarter = %v/%v", m.HalfKelly, m.QuarterKelly)
	}
}

func TestKellyRequiresMinimumSample(t *testing.T) {
	var trades []types.Trade
	for i := 0; i < MinTradesForKelly-1; i++ {
		trades = append(trades, tradeWithNet(10))
	}
	m := Compute(decimal.NewFromInt(1000), trades, nil, nil)
	if m.KellyFraction != 0 {
		t.Errorf("kelly with %d trades = %v, want 0", len(trades), m.KellyFraction)
	}
}

func TestAnnualizeFullYearIsTotal(t *testing.T) {
	got := annualize(10, 365)
	if math.Abs(got-10) > 1e-9 {
		t.Errorf("annualize(10%%, 365d) = %v, want 10", got)
	}
	if got := annualize(10, 0); got != 10 {
		t.Errorf("annualize with zero days = %v, want passthrough", got)
	}
}

func TestMaxDrawdownFromCurve(t *testing.T) {
	curve := curveFromEquities([]float64{1000, 1100, 990, 1050, 1200})
	m := Compute(decimal.NewFromInt(1000), nil, curve, nil)

	if !m.MaxDrawdown.Equal(decimal.NewFromInt(110)) {
		t.Errorf("max drawdown = %s, want 110", m.MaxDrawdown)
	}
	if math.Abs(m.MaxDrawdownPct-110.0/1100*100) > 1e-9 {
		t.Errorf("max drawdown pct = %v", m.MaxDrawdownPct)
	}
}

func TestRatiosGatedByTradeCount(t *testing.T) {
	curve := curveFromEquities([]float64{1000, 1010, 1005, 1020, 1000, 1030})
	trades := []types.Trade{tradeWithNet(10), tradeWithNet(-5)}
	candles := hourlyCandles([]float64{100, 101, 100, 102, 100, 103})

	m := Compute(decimal.NewFromInt(1000), trades, curve, candles)
	if m.SharpeRatio != 0 || m.SortinoRatio != 0 || m.OmegaRatio != 0 {
		t.Errorf("ratios below %d trades must stay 0, got sharpe=%v sortino=%v omega=%v",
			MinTradesForRatios, m.SharpeRatio, m.SortinoRatio, m.OmegaRatio)
	}
}

func TestRatiosOnMixedCurve(t *testing.T) {
	equities := []float64{1000}
	for i := 1; i < 200; i++ {
		if i%3 == 0 {
			equities = append(equities, equities[i-1]*0.995)
		} else {
			equities = append(equities, equities[i-1]*1.004)
		}
	}
	closes := make([]float64, len(equities))
	for i := range closes {
		closes[i] = 100
	}
	var trades []types.Trade
	for i := 0; i < MinTradesForRatios; i++ {
		trades = append(trades, tradeWithNet(1))
	}

	m := Compute(decimal.NewFromInt(1000), trades, curveFromEquities(equities), hourlyCandles(closes))
	if m.SharpeRatio <= 0 {
		t.Errorf("sharpe = %v, want > 0 for a net-up curve", m.SharpeRatio)
	}
	if m.SortinoRatio <= 0 {
		t.Errorf("sortino = %v, want > 0", m.SortinoRatio)
	}
	if m.OmegaRatio <= 1 {
		t.Errorf("omega = %v, want > 1", m.OmegaRatio)
	}
	if m.VaR95 < 0 {
		t.Errorf("VaR95 = %v, must be >= 0", m.VaR95)
	}
	if m.VaR95 == 0 {
		t.Error("VaR95 = 0, want positive with losing bars present")
	}
}

func TestBuyHoldAlpha(t *testing.T) {
	curve := curveFromEquities([]float64{1000, 1100})
	candles := hourlyCandles([]float64{100, 105})
	m := Compute(decimal.NewFromInt(1000), nil, curve, candles)

	if math.Abs(m.BuyHoldReturnPct-5) > 1e-9 {
		t.Errorf("buy&hold = %v, want 5", m.BuyHoldReturnPct)
	}
	if math.Abs(m.AlphaPct-(m.TotalReturnPct-5)) > 1e-9 {
		t.Errorf("alpha = %v, want total minus buy&hold", m.AlphaPct)
	}
}
