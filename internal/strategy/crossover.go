package strategy

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var emaCrossoverInfo = Info{
	Name:        "ema_crossover",
	Label:       "EMA Crossover",
	Description: "Long when the fast EMA crosses above the slow EMA, short on the opposite cross. Fires only on the crossing bar.",
	Defaults:    Params{"fast": 9, "slow": 21},
}

type emaCrossover struct {
	fast, slow int
	emaFast    []float64
	emaSlow    []float64
}

func newEMACrossover(p Params) Strategy {
	return &emaCrossover{
		fast: int(p.Get("fast", 9)),
		slow: int(p.Get("slow", 21)),
	}
}

func (s *emaCrossover) Info() Info  { return emaCrossoverInfo }
func (s *emaCrossover) Warmup() int { return s.slow + 1 }

func (s *emaCrossover) Prepare(candles []types.Candle) {
	closes := closesOf(candles)
	s.emaFast = indicator.EMA(closes, s.fast)
	s.emaSlow = indicator.EMA(closes, s.slow)
}

func (s *emaCrossover) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.emaFast) {
		return types.None()
	}
	// The first evaluable bar compares against a neutral state so a cross
	// that completed during warm-up still fires exactly once.
	wasAbove := i > s.Warmup() && s.emaFast[i-1] > s.emaSlow[i-1]
	wasBelow := i > s.Warmup() && s.emaFast[i-1] < s.emaSlow[i-1]
	crossedUp := !wasAbove && s.emaFast[i] > s.emaSlow[i]
	crossedDown := !wasBelow && s.emaFast[i] < s.emaSlow[i]
	if !crossedUp && !crossedDown {
		return types.None()
	}

	spreadPct := 0.0
	if s.emaSlow[i] != 0 {
		spreadPct = (s.emaFast[i] - s.emaSlow[i]) / s.emaSlow[i] * 100
	}
	if crossedUp {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(55+spreadPct*20, 0, 95),
			Reason:    "fast EMA crossed above slow EMA",
		}
	}
	return types.Signal{
		Direction: types.DirectionShort,
		Strength:  clamp(55-spreadPct*20, 0, 95),
		Reason:    "fast EMA crossed below slow EMA",
	}
}

var tripleEMAInfo = Info{
	Name:        "triple_ema",
	Label:       "Triple EMA Alignment",
	Description: "Signals on the bar where fast/mid/slow EMAs first align in order.",
	Defaults:    Params{"fast": 8, "mid": 13, "slow": 21},
}

type tripleEMA struct {
	fast, mid, slow          int
	emaFast, emaMid, emaSlow []float64
}

func newTripleEMA(p Params) Strategy {
	return &tripleEMA{
		fast: int(p.Get("fast", 8)),
		mid:  int(p.Get("mid", 13)),
		slow: int(p.Get("slow", 21)),
	}
}

func (s *tripleEMA) Info() Info  { return tripleEMAInfo }
func (s *tripleEMA) Warmup() int { return s.slow + 1 }

func (s *tripleEMA) Prepare(candles []types.Candle) {
	closes := closesOf(candles)
	s.emaFast = indicator.EMA(closes, s.fast)
	s.emaMid = indicator.EMA(closes, s.mid)
	s.emaSlow = indicator.EMA(closes, s.slow)
}

func (s *tripleEMA) aligned(i int) (bull, bear bool) {
	bull = s.emaFast[i] > s.emaMid[i] && s.emaMid[i] > s.emaSlow[i]
	bear = s.emaFast[i] < s.emaMid[i] && s.emaMid[i] < s.emaSlow[i]
	return bull, bear
}

func (s *tripleEMA) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.emaFast) {
		return types.None()
	}
	bull, bear := s.aligned(i)
	prevBull, prevBear := false, false
	if i > s.Warmup() {
		prevBull, prevBear = s.aligned(i - 1)
	}

	// Only the bar where alignment begins counts.
	if bull && !prevBull {
		return types.Signal{Direction: types.DirectionLong, Strength: 70, Reason: "triple EMA bullish alignment"}
	}
	if bear && !prevBear {
		return types.Signal{Direction: types.DirectionShort, Strength: 70, Reason: "triple EMA bearish alignment"}
	}
	return types.None()
}

var momentumInfo = Info{
	Name:        "momentum",
	Label:       "Momentum Crossover",
	Description: "EMA crossover with an alternate trigger: sustained alignment whose spread exceeds a threshold.",
	Defaults:    Params{"fast": 9, "slow": 21, "minSpreadPct": 0.5},
}

type momentum struct {
	fast, slow   int
	minSpreadPct float64
	emaFast      []float64
	emaSlow      []float64
}

func newMomentum(p Params) Strategy {
	return &momentum{
		fast:         int(p.Get("fast", 9)),
		slow:         int(p.Get("slow", 21)),
		minSpreadPct: p.Get("minSpreadPct", 0.5),
	}
}

func (s *momentum) Info() Info  { return momentumInfo }
func (s *momentum) Warmup() int { return s.slow + 1 }

func (s *momentum) Prepare(candles []types.Candle) {
	closes := closesOf(candles)
	s.emaFast = indicator.EMA(closes, s.fast)
	s.emaSlow = indicator.EMA(closes, s.slow)
}

func (s *momentum) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.emaFast) || s.emaSlow[i] == 0 {
		return types.None()
	}
	spreadPct := (s.emaFast[i] - s.emaSlow[i]) / s.emaSlow[i] * 100

	wasAbove := i > s.Warmup() && s.emaFast[i-1] > s.emaSlow[i-1]
	wasBelow := i > s.Warmup() && s.emaFast[i-1] < s.emaSlow[i-1]
	crossedUp := !wasAbove && s.emaFast[i] > s.emaSlow[i]
	crossedDown := !wasBelow && s.emaFast[i] < s.emaSlow[i]

	switch {
	case crossedUp:
		return types.Signal{Direction: types.DirectionLong, Strength: 65, Reason: "momentum crossover up"}
	case crossedDown:
		return types.Signal{Direction: types.DirectionShort, Strength: 65, Reason: "momentum crossover down"}
	case spreadPct >= s.minSpreadPct:
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(50+spreadPct*10, 0, 90),
			Reason:    "sustained bullish momentum",
		}
	case spreadPct <= -s.minSpreadPct:
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(50-spreadPct*10, 0, 90),
			Reason:    "sustained bearish momentum",
		}
	}
	return types.None()
}

func closesOf(candles []types.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
