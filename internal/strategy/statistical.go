package strategy

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var zscoreInfo = Info{
	Name:        "zscore",
	Label:       "Z-Score Reversion",
	Description: "Fades moves whose rolling Z-score enters beyond the threshold.",
	Defaults:    Params{"window": 20, "threshold": 2},
}

type zscoreStrategy struct {
	window    int
	threshold float64
	closes    []float64
}

func newZScore(p Params) Strategy {
	return &zscoreStrategy{
		window:    int(p.Get("window", 20)),
		threshold: p.Get("threshold", 2),
	}
}

func (s *zscoreStrategy) Info() Info  { return zscoreInfo }
func (s *zscoreStrategy) Warmup() int { return s.window + 1 }

func (s *zscoreStrategy) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
}

func (s *zscoreStrategy) zAt(i int) float64 {
	window := s.closes[i-s.window+1 : i+1]
	sd := indicator.StdDev(window)
	if sd == 0 {
		return 0
	}
	return (s.closes[i] - indicator.Mean(window)) / sd
}

func (s *zscoreStrategy) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	z := s.zAt(i)
	prev := s.zAt(i - 1)

	// Entering beyond the band, not sitting beyond it.
	if z <= -s.threshold && prev > -s.threshold {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(50+(-z-s.threshold)*20, 0, 95),
			Reason:    "Z-score stretched below threshold",
		}
	}
	if z >= s.threshold && prev < s.threshold {
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(50+(z-s.threshold)*20, 0, 95),
			Reason:    "Z-score stretched above threshold",
		}
	}
	return types.None()
}
