package strategy

import (
	"fmt"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var confluenceInfo = Info{
	Name:        "confluence",
	Label:       "Confluence Vote",
	Description: "Counts directional votes from EMA stack, RSI midline, MACD histogram slope and price versus the anchor EMA. Fires when votes reach the minimum and beat the opposite side.",
	Defaults:    Params{"fast": 9, "slow": 21, "anchor": 50, "rsiPeriod": 14, "minVotes": 3},
}

type confluence struct {
	fast, slow, anchor, rsiPeriod int
	minVotes                      int

	closes, emaFast, emaSlow, emaAnchor, rsi, hist []float64
}

func newConfluence(p Params) Strategy {
	return &confluence{
		fast:      int(p.Get("fast", 9)),
		slow:      int(p.Get("slow", 21)),
		anchor:    int(p.Get("anchor", 50)),
		rsiPeriod: int(p.Get("rsiPeriod", 14)),
		minVotes:  int(p.Get("minVotes", 3)),
	}
}

func (s *confluence) Info() Info  { return confluenceInfo }
func (s *confluence) Warmup() int { return s.anchor + 1 }

func (s *confluence) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.emaFast = indicator.EMA(s.closes, s.fast)
	s.emaSlow = indicator.EMA(s.closes, s.slow)
	s.emaAnchor = indicator.EMA(s.closes, s.anchor)
	s.rsi = indicator.RSI(s.closes, s.rsiPeriod)
	_, _, s.hist = indicator.MACD(s.closes, 12, 26, 9)
}

func (s *confluence) votes(i int) (bull, bear int) {
	if s.emaFast[i] > s.emaSlow[i] {
		bull++
	} else if s.emaFast[i] < s.emaSlow[i] {
		bear++
	}
	if s.rsi[i] > 50 {
		bull++
	} else if s.rsi[i] < 50 {
		bear++
	}
	if s.hist[i] > s.hist[i-1] {
		bull++
	} else if s.hist[i] < s.hist[i-1] {
		bear++
	}
	if s.closes[i] > s.emaAnchor[i] {
		bull++
	} else if s.closes[i] < s.emaAnchor[i] {
		bear++
	}
	return bull, bear
}

func (s *confluence) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	bull, bear := s.votes(i)

	if bull >= s.minVotes && bull > bear {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(float64(bull)*20, 0, 95),
			Reason:    fmt.Sprintf("bullish confluence (%d/4 votes)", bull),
		}
	}
	if bear >= s.minVotes && bear > bull {
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(float64(bear)*20, 0, 95),
			Reason:    fmt.Sprintf("bearish confluence (%d/4 votes)", bear),
		}
	}
	return types.None()
}
