package strategy

import (
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

var regimeAdaptiveInfo = Info{
	Name:        "regime_adaptive",
	Label:       "Regime Adaptive",
	Description: "Classifies the market with a rolling Hurst exponent and switches between momentum and mean-reversion sub-rules. Stays flat in the ambiguous 0.45-0.55 band.",
	Defaults:    Params{"window": 100, "fast": 9, "slow": 21, "bbPeriod": 20, "bbMult": 2},
}

type regimeAdaptive struct {
	window    int
	momentum  *emaCrossover
	reversion *bollingerBounce
	closes    []float64
}

func newRegimeAdaptive(p Params) Strategy {
	return &regimeAdaptive{
		window:    int(p.Get("window", 100)),
		momentum:  newEMACrossover(Params{"fast": p.Get("fast", 9), "slow": p.Get("slow", 21)}).(*emaCrossover),
		reversion: newBollingerBounce(Params{"period": p.Get("bbPeriod", 20), "mult": p.Get("bbMult", 2)}).(*bollingerBounce),
	}
}

func (s *regimeAdaptive) Info() Info { return regimeAdaptiveInfo }

func (s *regimeAdaptive) Warmup() int {
	w := s.window
	if m := s.momentum.Warmup(); m > w {
		w = m
	}
	if r := s.reversion.Warmup(); r > w {
		w = r
	}
	return w
}

func (s *regimeAdaptive) Prepare(candles []types.Candle) {
	s.closes = closesOf(candles)
	s.momentum.Prepare(candles)
	s.reversion.Prepare(candles)
}

func (s *regimeAdaptive) Signal(i int) types.Signal {
	if i < s.Warmup() || i >= len(s.closes) {
		return types.None()
	}
	h := indicator.Hurst(s.closes[i-s.window+1 : i+1])
	switch {
	case h > indicator.HurstTrending:
		sig := s.momentum.Signal(i)
		if sig.Direction != types.DirectionNone {
			sig.Reason = "trending regime: " + sig.Reason
		}
		return sig
	case h < indicator.HurstMeanReverting:
		sig := s.reversion.Signal(i)
		if sig.Direction != types.DirectionNone {
			sig.Reason = "mean-reverting regime: " + sig.Reason
		}
		return sig
	default:
		// Ambiguous regime, no trade.
		return types.None()
	}
}
