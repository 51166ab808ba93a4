package strategy

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var bollingerBounceInfo = Info{
	Name:        "bollinger_bounce",
	Label:       "Bollinger Bounce",
	Description: "Mean reversion: long when price closes back inside after penetrating the lower band, short off the upper band.",
	Defaults:    Params{"period": 20, "mult": 2},
}

type bollingerBounce struct {
	period               int
	mult                 float64
	upper, lower, closes []float64
}

func newBollingerBounce(p Params) Strategy {
	return &bollingerBounce{
		period: int(p.Get("period", 20)),
		mult:   p.Get("mult", 2),
	}
}

func (s *bollingerBounce) Info() Info  { return bollingerBounceInfo }
func (s *bollingerBounce) Warmup() int { return s.period + 1 }

func (s *bollingerBounce) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.upper, _, s.lower = indicator.Bollinger(s.closes, s.period, s.mult)
}

func (s *bollingerBounce) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	// NaN bands before the window fills make these comparisons false.
	if s.closes[i-1] < s.lower[i-1] && s.closes[i] >= s.lower[i] {
		return types.Signal{Direction: types.DirectionLong, Strength: 65, Reason: "bounce off lower Bollinger band"}
	}
	if s.closes[i-1] > s.upper[i-1] && s.closes[i] <= s.upper[i] {
		return types.Signal{Direction: types.DirectionShort, Strength: 65, Reason: "bounce off upper Bollinger band"}
	}
	return types.None()
}

var bollingerBreakoutInfo = Info{
	Name:        "bollinger_breakout",
	Label:       "Bollinger Breakout",
	Description: "Momentum: signals when price closes through a Bollinger band.",
	Defaults:    Params{"period": 20, "mult": 2},
}

type bollingerBreakout struct {
	period               int
	mult                 float64
	upper, lower, closes []float64
}

func newBollingerBreakout(p Params) Strategy {
	return &bollingerBreakout{
		period: int(p.Get("period", 20)),
		mult:   p.Get("mult", 2),
	}
}

func (s *bollingerBreakout) Info() Info  { return bollingerBreakoutInfo }
func (s *bollingerBreakout) Warmup() int { return s.period + 1 }

func (s *bollingerBreakout) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.upper, _, s.lower = indicator.Bollinger(s.closes, s.period, s.mult)
}

func (s *bollingerBreakout) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	if s.closes[i-1] <= s.upper[i-1] && s.closes[i] > s.upper[i] {
		return types.Signal{Direction: types.DirectionLong, Strength: 70, Reason: "breakout above upper Bollinger band"}
	}
	if s.closes[i-1] >= s.lower[i-1] && s.closes[i] < s.lower[i] {
		return types.Signal{Direction: types.DirectionShort, Strength: 70, Reason: "breakdown below lower Bollinger band"}
	}
	return types.None()
}
