package indicator_test

import (
	"math"
	"testing"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSMAPadding(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	sma := indicator.SMA(values, 3)

	if len(sma) != len(values) {
		t.Fatalf("SMA length mismatch: %d != %d", len(sma), len(values))
	}
	if !math.IsNaN(sma[0]) || !math.IsNaN(sma[1]) {
		t.Error("SMA should be NaN before the window fills")
	}
	if !almostEqual(sma[2], 2, 1e-12) {
		t.Errorf("SMA[2] incorrect: %f", sma[2])
	}
	if !almostEqual(sma[4], 4, 1e-12) {
		t.Errorf("SMA[4] incorrect: %f", sma[4])
	}
}

func TestEMASeedsFromRawSeries(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	ema := indicator.EMA(values, 3)

	if ema[0] != 10 {
		t.Errorf("EMA must seed from the first raw value, got %f", ema[0])
	}
	// k = 2/(3+1) = 0.5
	if !almostEqual(ema[1], 10.5, 1e-12) {
		t.Errorf("EMA[1] incorrect: %f", ema[1])
	}
}

func TestRSINeutralSeedAndExtremes(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	rsi := indicator.RSI(flat, 14)
	for i, v := range rsi {
		// Zero average loss on a flat series reads as RSI 100 after warm-up.
		if i < 14 && v != 50 {
			t.Fatalf("warm-up RSI should seed at 50, got %f at %d", v, i)
		}
	}

	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	rsi = indicator.RSI(rising, 14)
	if rsi[len(rsi)-1] != 100 {
		t.Errorf("RSI with zero average loss must be 100, got %f", rsi[len(rsi)-1])
	}

	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = float64(100 - i)
	}
	rsi = indicator.RSI(falling, 14)
	if rsi[len(rsi)-1] != 0 {
		t.Errorf("RSI on monotonic decline must be 0, got %f", rsi[len(rsi)-1])
	}
}

func TestMACDFlatSeries(t *testing.T) {
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 42
	}
	macd, signal, hist := indicator.MACD(flat, 12, 26, 9)
	for i := range flat {
		if macd[i] != 0 || signal[i] != 0 || hist[i] != 0 {
			t.Fatalf("MACD on a flat series must be zero at %d: %f/%f/%f", i, macd[i], signal[i], hist[i])
		}
	}
}

func TestBollingerPopulationVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, middle, lower := indicator.Bollinger(values, 8, 2)

	// Known population stddev of this series is exactly 2, mean 5.
	last := len(values) - 1
	if !almostEqual(middle[last], 5, 1e-12) {
		t.Errorf("middle band incorrect: %f", middle[last])
	}
	if !almostEqual(upper[last], 9, 1e-12) {
		t.Errorf("upper band incorrect: %f", upper[last])
	}
	if !almostEqual(lower[last], 1, 1e-12) {
		t.Errorf("lower band incorrect: %f", lower[last])
	}
	if !math.IsNaN(upper[0]) {
		t.Error("bands should be NaN before the window fills")
	}
}

func TestATRConstantRange(t *testing.T) {
	candles := make([]types.Candle, 30)
	for i := range candles {
		candles[i] = types.Candle{High: 105, Low: 95, Close: 100}
	}
	atr := indicator.ATR(candles, 14)

	if !math.IsNaN(atr[0]) {
		t.Error("ATR should be NaN before the first full period")
	}
	if !almostEqual(atr[len(atr)-1], 10, 1e-9) {
		t.Errorf("ATR of constant 10-range candles should be 10, got %f", atr[len(atr)-1])
	}
}

func TestADXInsufficientData(t *testing.T) {
	candles := make([]types.Candle, 10)
	adx, plus, minus := indicator.ADX(candles, 14)
	if adx != 0 || plus != 0 || minus != 0 {
		t.Errorf("ADX with insufficient data should be zeroes, got %f/%f/%f", adx, plus, minus)
	}
}

func TestADXTrendingMarket(t *testing.T) {
	candles := make([]types.Candle, 80)
	for i := range candles {
		base := 100 + float64(i)*2
		candles[i] = types.Candle{High: base + 1, Low: base - 1, Close: base}
	}
	adx, plus, minus := indicator.ADX(candles, 14)
	if adx < 25 {
		t.Errorf("ADX of a strong uptrend should exceed 25, got %f", adx)
	}
	if plus <= minus {
		t.Errorf("+DI should dominate in an uptrend: +DI=%f -DI=%f", plus, minus)
	}
}

func TestHurstDefaults(t *testing.T) {
	if h := indicator.Hurst([]float64{1, 2, 3}); h != 0.5 {
		t.Errorf("Hurst with <20 points must default to 0.5, got %f", h)
	}

	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 50
	}
	if h := indicator.Hurst(flat); h != 0.5 {
		t.Errorf("Hurst of a degenerate flat series must default to 0.5, got %f", h)
	}
}

func TestHurstRegimes(t *testing.T) {
	// Persistent series: log returns themselves trend upward.
	trending := make([]float64, 200)
	trending[0] = 100
	for i := 1; i < len(trending); i++ {
		trending[i] = trending[i-1] * math.Exp(0.0001*float64(i))
	}
	if h := indicator.Hurst(trending); h <= indicator.HurstTrending {
		t.Errorf("persistent series should read as trending, got %f", h)
	}

	reverting := make([]float64, 200)
	for i := range reverting {
		if i%2 == 0 {
			reverting[i] = 100
		} else {
			reverting[i] = 102
		}
	}
	if h := indicator.Hurst(reverting); h >= indicator.HurstMeanReverting {
		t.Errorf("oscillating series should read as mean-reverting, got %f", h)
	}
}

func TestROCAndSlope(t *testing.T) {
	values := []float64{100, 110, 121}
	if roc := indicator.ROC(values, 1, 2); !almostEqual(roc, 0.1, 1e-12) {
		t.Errorf("ROC incorrect: %f", roc)
	}
	if roc := indicator.ROC(values, 5, 2); roc != 0 {
		t.Errorf("ROC with insufficient history should be 0, got %f", roc)
	}
	if s := indicator.Slope(values, 2, 2); s <= 0 {
		t.Errorf("slope of rising series should be positive, got %f", s)
	}
}
