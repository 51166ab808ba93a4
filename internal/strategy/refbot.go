package strategy

import (
	"math"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var referenceBotInfo = Info{
	Name:        "reference_bot",
	Label:       "Reference Bot",
	Description: "Multi-filter entries: 200-EMA trend filter, fast/slow EMA cross and an RSI band. Exits on inverted entry logic in addition to price stops.",
	Defaults:    Params{"fast": 9, "slow": 21, "trend": 200, "rsiPeriod": 14},
	Fallback:    "ema_crossover",
}

var referenceBotV2Info = Info{
	Name:        "reference_bot_v2",
	Label:       "Reference Bot v2",
	Description: "Reference bot plus EMA50-slope, volume-confirmation and ATR volatility-band filters. All filters must pass; confidence is a weighted sum capped at 95.",
	Defaults:    Params{"fast": 9, "slow": 21, "trend": 200, "rsiPeriod": 14, "slopeEMA": 50, "volLookback": 20, "minVolRatio": 0.8, "minATRPct": 0.5, "maxATRPct": 5},
	Fallback:    "ema_crossover",
}

type referenceBot struct {
	improved bool

	fast, slow, trend, rsiPeriod int
	slopeEMA, volLookback        int
	minVolRatio                  float64
	minATRPct, maxATRPct         float64

	closes, volumes                 []float64
	emaFast, emaSlow, emaTrend, rsi []float64
	emaSlope, atr                   []float64
}

func newReferenceBot(p Params) Strategy {
	return &referenceBot{
		fast:      int(p.Get("fast", 9)),
		slow:      int(p.Get("slow", 21)),
		trend:     int(p.Get("trend", 200)),
		rsiPeriod: int(p.Get("rsiPeriod", 14)),
	}
}

func newReferenceBotV2(p Params) Strategy {
	return &referenceBot{
		improved:    true,
		fast:        int(p.Get("fast", 9)),
		slow:        int(p.Get("slow", 21)),
		trend:       int(p.Get("trend", 200)),
		rsiPeriod:   int(p.Get("rsiPeriod", 14)),
		slopeEMA:    int(p.Get("slopeEMA", 50)),
		volLookback: int(p.Get("volLookback", 20)),
		minVolRatio: p.Get("minVolRatio", 0.8),
		minATRPct:   p.Get("minATRPct", 0.5),
		maxATRPct:   p.Get("maxATRPct", 5),
	}
}

func (s *referenceBot) Info() Info {
	if s.improved {
		return referenceBotV2Info
	}
	return referenceBotInfo
}

func (s *referenceBot) Warmup() int { return s.trend + 1 }

func (s *referenceBot) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.volumes = make([]float64, len(candles))
	for i, c := range candles {
		s.volumes[i] = c.Volume
	}
	s.emaFast = indicator.EMA(s.closes, s.fast)
	s.emaSlow = indicator.EMA(s.closes, s.slow)
	s.emaTrend = indicator.EMA(s.closes, s.trend)
	s.rsi = indicator.RSI(s.closes, s.rsiPeriod)
	if s.improved {
		s.emaSlope = indicator.EMA(s.closes, s.slopeEMA)
		s.atr = indicator.ATR(candles, 14)
	}
}

// crossedUp reports a fast/slow cross completing on bar i. On the first
// evaluated bar the prior state is treated as neutral so a cross completed
// during warm-up still fires once.
func (s *referenceBot) crossedUp(i int) bool {
	wasAbove := i > s.Warmup() && s.emaFast[i-1] > s.emaSlow[i-1]
	return !wasAbove && s.emaFast[i] > s.emaSlow[i]
}

func (s *referenceBot) crossedDown(i int) bool {
	wasBelow := i > s.Warmup() && s.emaFast[i-1] < s.emaSlow[i-1]
	return !wasBelow && s.emaFast[i] < s.emaSlow[i]
}

// improvedFilters evaluates the v2-only filters. bonus is the confidence
// contribution of the filters that passed strongest.
func (s *referenceBot) improvedFilters(i int, long bool) (ok bool, bonus float64) {
	if !s.improved {
		return true, 0
	}
	slope := s.emaSlope[i] - s.emaSlope[i-1]
	if long && slope <= 0 {
		return false, 0
	}
	if !long && slope >= 0 {
		return false, 0
	}

	avgVol := indicator.Mean(s.volumes[i-s.volLookback+1 : i+1])
	if avgVol <= 0 || s.volumes[i] < s.minVolRatio*avgVol {
		return false, 0
	}
	volRatio := s.volumes[i] / avgVol

	atrPct := s.atr[i] / s.closes[i] * 100
	if math.IsNaN(atrPct) || atrPct < s.minATRPct || atrPct > s.maxATRPct {
		return false, 0
	}

	bonus = clamp(math.Abs(slope)/s.closes[i]*1000, 0, 10) +
		clamp((volRatio-s.minVolRatio)*10, 0, 10) +
		clamp(atrPct*2, 0, 10)
	return true, bonus
}

func (s *referenceBot) confidence(i int, long bool, bonus float64) float64 {
	trendPct := (s.closes[i] - s.emaTrend[i]) / s.emaTrend[i] * 100
	spreadPct := (s.emaFast[i] - s.emaSlow[i]) / s.emaSlow[i] * 100
	rsiEdge := s.rsi[i] - 50
	if !long {
		trendPct, spreadPct, rsiEdge = -trendPct, -spreadPct, -rsiEdge
	}
	return clamp(50+trendPct*5+spreadPct*10+rsiEdge+bonus, 0, 95)
}

func (s *referenceBot) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}

	if s.closes[i] > s.emaTrend[i] && s.crossedUp(i) && s.rsi[i] > 50 && s.rsi[i] < 70 {
		if ok, bonus := s.improvedFilters(i, true); ok {
			return types.Signal{
				Direction: types.DirectionLong,
				Strength:  s.confidence(i, true, bonus),
				Reason:    "trend-aligned EMA cross with RSI confirmation",
			}
		}
	}
	if s.closes[i] < s.emaTrend[i] && s.crossedDown(i) && s.rsi[i] < 50 && s.rsi[i] > 30 {
		if ok, bonus := s.improvedFilters(i, false); ok {
			return types.Signal{
				Direction: types.DirectionShort,
				Strength:  s.confidence(i, false, bonus),
				Reason:    "trend-aligned EMA cross with RSI confirmation",
			}
		}
	}
	return types.None()
}

// ExitSignal inverts the entry logic: a long exits on a fast/slow cross-back
// down or an overbought RSI, a short on the mirror conditions.
func (s *referenceBot) ExitSignal(i int, side types.Direction) bool {
	if i < 1 || i >= len(s.closes) {
		return false
	}
	switch side {
	case types.DirectionLong:
		crossBack := s.emaFast[i-1] >= s.emaSlow[i-1] && s.emaFast[i] < s.emaSlow[i]
		return crossBack || s.rsi[i] > 70
	case types.DirectionShort:
		crossBack := s.emaFast[i-1] <= s.emaSlow[i-1] && s.emaFast[i] > s.emaSlow[i]
		return crossBack || s.rsi[i] < 30
	}
	return false
}
