package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/quantdesk/quant-backend/pkg/types"
)

func candlesFromCloses(closes []float64, spread float64) []types.Candle {
	candles := make([]types.Candle, len(closes))
	ts := int64(1700000000000)
	for i, c := range closes {
		candles[i] = types.Candle{
			Timestamp: ts + int64(i)*3600000,
			Open:      c,
			High:      c + spread,
			Low:       c - spread,
			Close:     c,
			Volume:    100,
			Trades:    10,
		}
	}
	return candles
}

func flatCandles(n int) []types.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
	}
	return candlesFromCloses(closes, 0)
}

func risingCandles(n int) []types.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return candlesFromCloses(closes, 1)
}

func TestCatalog(t *testing.T) {
	infos := Catalog()
	if len(infos) != 15 {
		t.Fatalf("expected 15 registered strategies, got %d", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Name >= infos[i].Name {
			t.Fatalf("catalog not sorted: %q before %q", infos[i-1].Name, infos[i].Name)
		}
	}
	byName := map[string]Info{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	if _, ok := byName["ema_crossover"]; !ok {
		t.Error("ema_crossover missing from catalog")
	}
	if got := byName["reference_bot"].Fallback; got != "ema_crossover" {
		t.Errorf("reference_bot fallback = %q, want ema_crossover", got)
	}
	if got := byName["reference_bot_v2"].Fallback; got != "ema_crossover" {
		t.Errorf("reference_bot_v2 fallback = %q, want ema_crossover", got)
	}
}

func TestNewUnknownStrategy(t *testing.T) {
	if _, err := New("no_such_strategy", nil); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestParamsGet(t *testing.T) {
	p := Params{"fast": 5}
	if got := p.Get("fast", 9); got != 5 {
		t.Errorf("Get override = %v, want 5", got)
	}
	if got := p.Get("slow", 21); got != 21 {
		t.Errorf("Get default = %v, want 21", got)
	}
	var nilParams Params
	if got := nilParams.Get("fast", 9); got != 9 {
		t.Errorf("nil Params Get = %v, want 9", got)
	}
}

// A constant-price series must produce no signals from any strategy.
func TestFlatSeriesProducesNoSignals(t *testing.T) {
	candles := flatCandles(300)
	for _, info := range Catalog() {
		s, err := New(info.Name, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", info.Name, err)
		}
		s.Prepare(candles)
		for i := range candles {
			if sig := s.Signal(i); sig.Direction != types.DirectionNone {
				t.Errorf("%s: flat series produced %s at bar %d (%s)", info.Name, sig.Direction, i, sig.Reason)
				break
			}
		}
	}
}

// Every strategy must stay silent below its warm-up.
func TestSignalsBelowWarmup(t *testing.T) {
	candles := risingCandles(300)
	for _, info := range Catalog() {
		s, err := New(info.Name, nil)
		if err != nil {
			t.Fatalf("New(%q): %v", info.Name, err)
		}
		s.Prepare(candles)
		for i := 0; i < s.Warmup(); i++ {
			if sig := s.Signal(i); sig.Direction != types.DirectionNone {
				t.Errorf("%s: signal %s at bar %d, below warm-up %d", info.Name, sig.Direction, i, s.Warmup())
				break
			}
		}
	}
}

// Strength must always stay inside the 0-100 contract.
func TestStrengthBounds(t *testing.T) {
	candles := risingCandles(300)
	for _, info := range Catalog() {
		s, _ := New(info.Name, nil)
		s.Prepare(candles)
		for i := range candles {
			sig := s.Signal(i)
			if sig.Strength < 0 || sig.Strength > 100 || math.IsNaN(sig.Strength) {
				t.Errorf("%s: strength %v out of range at bar %d", info.Name, sig.Strength, i)
			}
		}
	}
}

func TestEMACrossoverRisingFiresExactlyOnce(t *testing.T) {
	s, err := New("ema_crossover", nil)
	if err != nil {
		t.Fatal(err)
	}
	candles := risingCandles(100)
	s.Prepare(candles)

	var longs, shorts int
	firstLong := -1
	for i := range candles {
		switch sig := s.Signal(i); sig.Direction {
		case types.DirectionLong:
			longs++
			if firstLong < 0 {
				firstLong = i
			}
		case types.DirectionShort:
			shorts++
		}
	}
	if longs != 1 || shorts != 0 {
		t.Fatalf("rising series: got %d longs and %d shorts, want exactly 1 long", longs, shorts)
	}
	if firstLong != s.Warmup() {
		t.Errorf("cross fired at bar %d, want first evaluable bar %d", firstLong, s.Warmup())
	}
}

func TestRSIReversalFiresOnRecovery(t *testing.T) {
	closes := make([]float64, 0, 80)
	price := 200.0
	for i := 0; i < 50; i++ {
		price -= 1.5
		closes = append(closes, price)
	}
	for i := 0; i < 30; i++ {
		price += 2
		closes = append(closes, price)
	}
	s, err := New("rsi_reversal", nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Prepare(candlesFromCloses(closes, 0.5))

	var sawLong bool
	for i := range closes {
		sig := s.Signal(i)
		if sig.Direction == types.DirectionShort && !sawLong {
			t.Fatalf("short signal at bar %d before the recovery long", i)
		}
		if sig.Direction == types.DirectionLong {
			sawLong = true
		}
	}
	if !sawLong {
		t.Fatal("no long signal on RSI recovery from oversold")
	}
}

func TestZScoreShockEntersLong(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 100.5
		}
	}
	closes[39] = 90 // shock far below the rolling mean

	s, err := New("zscore", nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Prepare(candlesFromCloses(closes, 0.5))

	sig := s.Signal(39)
	if sig.Direction != types.DirectionLong {
		t.Fatalf("downside shock: got %s, want long", sig.Direction)
	}
}

func TestTrendStrengthUptrend(t *testing.T) {
	s, err := New("trend_strength", nil)
	if err != nil {
		t.Fatal(err)
	}
	candles := risingCandles(120)
	s.Prepare(candles)

	var sawLong bool
	for i := range candles {
		sig := s.Signal(i)
		if sig.Direction == types.DirectionShort {
			t.Fatalf("short signal at bar %d in a clean uptrend", i)
		}
		if sig.Direction == types.DirectionLong {
			sawLong = true
		}
	}
	if !sawLong {
		t.Fatal("no long signal in a sustained uptrend with high ADX")
	}
}

func TestReferenceBotExitSignal(t *testing.T) {
	s, err := New("reference_bot", nil)
	if err != nil {
		t.Fatal(err)
	}
	exiter, ok := s.(ExitSignaler)
	if !ok {
		t.Fatal("reference_bot does not implement ExitSignaler")
	}

	candles := risingCandles(300)
	s.Prepare(candles)

	// Deep into a one-way rally RSI is pinned overbought.
	i := len(candles) - 1
	if !exiter.ExitSignal(i, types.DirectionLong) {
		t.Error("long exit not triggered with RSI pinned overbought")
	}
	if exiter.ExitSignal(i, types.DirectionShort) {
		t.Error("short exit triggered in a rally")
	}
}
