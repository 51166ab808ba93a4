package backtester

import (
	"math"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

// sentimentSim is a deterministic local stand-in for an external advisory
// score. Historical third-party sentiment cannot be replayed, so the score is
// derived from the candle series itself: trend alignment, volatility penalty,
// volume confirmation and contrarian RSI extremes. No network access, ever.
type sentimentSim struct {
	filterThreshold float64
	boostThreshold  float64
	boostStrength   float64
	ind             *indicator.Series
}

func newSentimentSim(config *types.BacktestConfig, ind *indicator.Series) *sentimentSim {
	return &sentimentSim{
		// Maps filter strength 0-100 onto a 30-70 score threshold.
		filterThreshold: 30 + config.FilterStrength*0.4,
		boostThreshold:  50,
		boostStrength:   config.BoostStrength,
		ind:             ind,
	}
}

// Evaluate scores a proposed entry at bar i. It returns whether the entry is
// accepted, the position-size multiplier, and the raw score.
func (s *sentimentSim) Evaluate(i int, direction types.Direction) (accepted bool, multiplier, score float64) {
	score = s.score(i, direction)
	if score < s.filterThreshold {
		return false, 0, score
	}

	multiplier = 1.0
	if score > s.boostThreshold {
		headroom := (score - s.boostThreshold) / (100 - s.boostThreshold)
		multiplier += headroom * s.boostStrength / 100
	}
	return true, multiplier, score
}

// score produces the 0-100 advisory score for a trade direction at bar i.
func (s *sentimentSim) score(i int, direction types.Direction) float64 {
	sign := 1.0
	if direction == types.DirectionShort {
		sign = -1
	}
	score := 50.0

	// Trend alignment: short- and longer-term rate of change in the trade
	// direction each add confidence; both against it is a strong penalty.
	shortROC := indicator.ROC(s.ind.Closes, 5, i) * sign
	longROC := indicator.ROC(s.ind.Closes, 20, i) * sign
	if shortROC > 0 {
		score += 10
	}
	if longROC > 0 {
		score += 10
	}
	if shortROC < 0 && longROC < 0 {
		score -= 15
	}

	// Volatility penalty above 3% rolling volatility.
	if vol := s.rollingVolPct(i); vol > 3 {
		score -= math.Min((vol-3)*5, 20)
	}

	// Volume confirmation against the 20-bar average.
	if i >= 20 {
		avgVol := indicator.Mean(s.ind.Volumes[i-19 : i+1])
		switch {
		case avgVol > 0 && s.ind.Volumes[i] > avgVol:
			score += 10
		case avgVol > 0 && s.ind.Volumes[i] < avgVol*0.5:
			score -= 5
		}
	}

	// Contrarian RSI: entering with an overextended oscillator is penalized,
	// entering against the extreme is rewarded.
	rsi := s.ind.RSI14[i]
	if direction == types.DirectionLong {
		switch {
		case rsi > 70:
			score -= 15
		case rsi < 30:
			score += 10
		}
	} else {
		switch {
		case rsi < 30:
			score -= 15
		case rsi > 70:
			score += 10
		}
	}

	return math.Max(0, math.Min(100, score))
}

// rollingVolPct is the population standard deviation of the last 20 bar
// returns, in percent.
func (s *sentimentSim) rollingVolPct(i int) float64 {
	if i < 20 {
		return 0
	}
	returns := make([]float64, 0, 20)
	for j := i - 19; j <= i; j++ {
		if s.ind.Closes[j-1] != 0 {
			returns = append(returns, s.ind.Closes[j]/s.ind.Closes[j-1]-1)
		}
	}
	if len(returns) == 0 {
		return 0
	}
	return indicator.StdDev(returns) * 100
}
