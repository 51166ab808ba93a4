package quant

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/pkg/types"
)

// Pairs-opportunity thresholds.
const (
	pairMinCorrelation = 0.7
	pairMinSpreadZ     = 1.5
	pairMinCointScore  = 50.0
)

// Pairs analyzes every symbol pair with at least minSamples overlapping
// price samples: Pearson correlation, OLS hedge ratio, the spread's Z-score
// and a variance-ratio cointegration proxy. Symbols are ordered
// alphabetically within a pair; the hedge ratio regresses SymbolA on SymbolB
// and the spread is A - ratio*B. Results are sorted by absolute correlation,
// strongest first.
func (g *Generator) Pairs() []types.PairCorrelation {
	g.mu.Lock()
	symbols := make([]string, 0, len(g.prices))
	histories := make(map[string][]float64, len(g.prices))
	for sym, h := range g.prices {
		symbols = append(symbols, sym)
		cp := make([]float64, len(h))
		copy(cp, h)
		histories[sym] = cp
	}
	g.mu.Unlock()
	sort.Strings(symbols)

	var out []types.PairCorrelation
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			pc, ok := analyzePair(symbols[i], symbols[j], histories[symbols[i]], histories[symbols[j]])
			if ok {
				out = append(out, pc)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return math.Abs(out[a].Correlation) > math.Abs(out[b].Correlation)
	})
	return out
}

func analyzePair(symA, symB string, pricesA, pricesB []float64) (types.PairCorrelation, bool) {
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	if n < minSamples {
		return types.PairCorrelation{}, false
	}
	// Align on the most recent n samples.
	a := pricesA[len(pricesA)-n:]
	b := pricesB[len(pricesB)-n:]

	pc := types.PairCorrelation{SymbolA: symA, SymbolB: symB, Samples: n}

	corr, err := stats.Correlation(stats.Float64Data(a), stats.Float64Data(b))
	if err != nil || math.IsNaN(corr) {
		return types.PairCorrelation{}, false
	}
	pc.Correlation = corr

	// OLS hedge ratio of A on B: covariance(A,B) / variance(B). Both moments
	// population-normalized so the slope is exact, not inflated by n/(n-1).
	cov, err := stats.CovariancePopulation(stats.Float64Data(b), stats.Float64Data(a))
	if err != nil {
		return types.PairCorrelation{}, false
	}
	varB, err := stats.PopulationVariance(stats.Float64Data(b))
	if err != nil || varB == 0 {
		return types.PairCorrelation{}, false
	}
	pc.HedgeRatio = cov / varB

	spread := make([]float64, n)
	for k := 0; k < n; k++ {
		spread[k] = a[k] - pc.HedgeRatio*b[k]
	}
	if sd := indicator.StdDev(spread); sd > 0 {
		pc.SpreadZScore = (spread[n-1] - indicator.Mean(spread)) / sd
	}
	pc.CointegrationScore = cointegrationProxy(spread)

	pc.Opportunity = math.Abs(pc.Correlation) > pairMinCorrelation &&
		math.Abs(pc.SpreadZScore) > pairMinSpreadZ &&
		pc.CointegrationScore > pairMinCointScore
	return pc, true
}

// cointegrationProxy scores spread stationarity 0-100 by comparing the
// variance of the spread's two halves: a stationary spread keeps similar
// variance across time, a diverging one does not.
func cointegrationProxy(spread []float64) float64 {
	half := len(spread) / 2
	if half < 2 {
		return 0
	}
	v1 := variance(spread[:half])
	v2 := variance(spread[half:])
	if v1 == 0 && v2 == 0 {
		return 0
	}
	hi, lo := v1, v2
	if v2 > v1 {
		hi, lo = v2, v1
	}
	if hi == 0 {
		return 0
	}
	return lo / hi * 100
}

func variance(values []float64) float64 {
	sd := indicator.StdDev(values)
	return sd * sd
}
