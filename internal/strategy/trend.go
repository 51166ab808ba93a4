package strategy

import (
	"math"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var trendStrengthInfo = Info{
	Name:        "trend_strength",
	Label:       "ADX Trend Strength",
	Description: "Trades only strong trends: ADX above threshold, directional-index majority and a minimum rate of change.",
	Defaults:    Params{"period": 14, "adxMin": 25, "rocPeriod": 10, "minRocPct": 0.5},
}

type trendStrength struct {
	period, rocPeriod int
	adxMin, minRocPct float64
	di                []indicator.DirectionalIndex
	closes            []float64
}

func newTrendStrength(p Params) Strategy {
	return &trendStrength{
		period:    int(p.Get("period", 14)),
		rocPeriod: int(p.Get("rocPeriod", 10)),
		adxMin:    p.Get("adxMin", 25),
		minRocPct: p.Get("minRocPct", 0.5),
	}
}

func (s *trendStrength) Info() Info  { return trendStrengthInfo }
func (s *trendStrength) Warmup() int { return 2*s.period + 1 }

func (s *trendStrength) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.di = indicator.ADXSeries(candles, s.period)
}

func (s *trendStrength) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	d := s.di[i]
	if math.IsNaN(d.ADX) || d.ADX <= s.adxMin {
		return types.None()
	}
	rocPct := indicator.ROC(s.closes, s.rocPeriod, i) * 100

	if d.PlusDI > d.MinusDI && rocPct >= s.minRocPct {
		return types.Signal{
			Direction: types.DirectionLong,
			Strength:  clamp(d.ADX+rocPct*5, 0, 95),
			Reason:    "strong uptrend (ADX + directional majority)",
		}
	}
	if d.MinusDI > d.PlusDI && rocPct <= -s.minRocPct {
		return types.Signal{
			Direction: types.DirectionShort,
			Strength:  clamp(d.ADX-rocPct*5, 0, 95),
			Reason:    "strong downtrend (ADX + directional majority)",
		}
	}
	return types.None()
}
