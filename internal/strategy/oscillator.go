package strategy

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var rsiReversalInfo = Info{
	Name:        "rsi_reversal",
	Label:       "RSI Reversal",
	Description: "Long when RSI climbs back out of the oversold band, short when it drops out of the overbought band.",
	Defaults:    Params{"period": 14, "oversold": 30, "overbought": 70},
}

type rsiReversal struct {
	period               int
	oversold, overbought float64
	rsi                  []float64
}

func newRSIReversal(p Params) Strategy {
	return &rsiReversal{
		period:     int(p.Get("period", 14)),
		oversold:   p.Get("oversold", 30),
		overbought: p.Get("overbought", 70),
	}
}

func (s *rsiReversal) Info() Info  { return rsiReversalInfo }
func (s *rsiReversal) Warmup() int { return s.period + 2 }

func (s *rsiReversal) Prepare(candles []types.Candle) {
	s.rsi = indicator.RSI(closesOf(candles), s.period)
}

func (s *rsiReversal) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.rsi) {
		return types.None()
	}
	if s.rsi[i-1] < s.oversold && s.rsi[i] >= s.oversold {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(60+(s.oversold-s.rsi[i-1]), 0, 95),
			Reason:    "RSI reversal from oversold",
		}
	}
	if s.rsi[i-1] > s.overbought && s.rsi[i] <= s.overbought {
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(60+(s.rsi[i-1]-s.overbought), 0, 95),
			Reason:    "RSI reversal from overbought",
		}
	}
	return types.None()
}

var rsiMidlineInfo = Info{
	Name:        "rsi_midline",
	Label:       "RSI Midline Cross",
	Description: "Long when RSI crosses above 50, short when it crosses below.",
	Defaults:    Params{"period": 14},
}

type rsiMidline struct {
	period int
	rsi    []float64
}

func newRSIMidline(p Params) Strategy {
	return &rsiMidline{period: int(p.Get("period", 14))}
}

func (s *rsiMidline) Info() Info  { return rsiMidlineInfo }
func (s *rsiMidline) Warmup() int { return s.period + 2 }

func (s *rsiMidline) Prepare(candles []types.Candle) {
	s.rsi = indicator.RSI(closesOf(candles), s.period)
}

func (s *rsiMidline) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.rsi) {
		return types.None()
	}
	if s.rsi[i-1] < 50 && s.rsi[i] > 50 {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(50+(s.rsi[i]-50)*2, 0, 90),
			Reason:    "RSI crossed above midline",
		}
	}
	if s.rsi[i-1] > 50 && s.rsi[i] < 50 {
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(50+(50-s.rsi[i])*2, 0, 90),
			Reason:    "RSI crossed below midline",
		}
	}
	return types.None()
}

var macdCrossInfo = Info{
	Name:        "macd_cross",
	Label:       "MACD Histogram Cross",
	Description: "Signals when the MACD histogram crosses zero.",
	Defaults:    Params{"fast": 12, "slow": 26, "signal": 9},
}

type macdCross struct {
	fast, slow, signalPeriod int
	hist                     []float64
}

func newMACDCross(p Params) Strategy {
	return &macdCross{
		fast:         int(p.Get("fast", 12)),
		slow:         int(p.Get("slow", 26)),
		signalPeriod: int(p.Get("signal", 9)),
	}
}

func (s *macdCross) Info() Info  { return macdCrossInfo }
func (s *macdCross) Warmup() int { return s.slow + s.signalPeriod }

func (s *macdCross) Prepare(candles []types.Candle) {
	_, _, s.hist = indicator.MACD(closesOf(candles), s.fast, s.slow, s.signalPeriod)
}

func (s *macdCross) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.hist) {
		return types.None()
	}
	if s.hist[i-1] <= 0 && s.hist[i] > 0 {
		return types.Signal{Direction: types.DirectionLong, Strength: 65, Reason: "MACD histogram crossed above zero"}
	}
	if s.hist[i-1] >= 0 && s.hist[i] < 0 {
		return types.Signal{Direction: types.DirectionShort, Strength: 65, Reason: "MACD histogram crossed below zero"}
	}
	return types.None()
}

var macdDivergenceInfo = Info{
	Name:        "macd_divergence",
	Label:       "MACD Divergence",
	Description: "Signals when price makes a new extreme over the lookback that the MACD line does not confirm.",
	Defaults:    Params{"fast": 12, "slow": 26, "signal": 9, "lookback": 10},
}

type macdDivergence struct {
	fast, slow, signalPeriod, lookback int
	macd                               []float64
	closes                             []float64
}

func newMACDDivergence(p Params) Strategy {
	return &macdDivergence{
		fast:         int(p.Get("fast", 12)),
		slow:         int(p.Get("slow", 26)),
		signalPeriod: int(p.Get("signal", 9)),
		lookback:     int(p.Get("lookback", 10)),
	}
}

func (s *macdDivergence) Info() Info  { return macdDivergenceInfo }
func (s *macdDivergence) Warmup() int { return s.slow + s.lookback }

func (s *macdDivergence) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.macd, _, _ = indicator.MACD(s.closes, s.fast, s.slow, s.signalPeriod)
}

func (s *macdDivergence) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.macd) {
		return types.None()
	}

	// Reference extreme within the lookback window, excluding the current bar.
	lowIdx, highIdx := i-s.lookback, i-s.lookback
	for j := i - s.lookback; j < i; j++ {
		if s.closes[j] < s.closes[lowIdx] {
			lowIdx = j
		}
		if s.closes[j] > s.closes[highIdx] {
			highIdx = j
		}
	}

	// Bullish: lower price low, higher MACD low.
	if s.closes[i] < s.closes[lowIdx] && s.macd[i] > s.macd[lowIdx] {
		return types.Signal{Direction: types.DirectionLong, Strength: 70, Reason: "bullish MACD divergence"}
	}
	// Bearish: higher price high, lower MACD high.
	if s.closes[i] > s.closes[highIdx] && s.macd[i] < s.macd[highIdx] {
		return types.Signal{Direction: types.DirectionShort, Strength: 70, Reason: "bearish MACD divergence"}
	}
	return types.None()
}
