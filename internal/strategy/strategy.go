// Package strategy provides the pluggable trading strategies and their
// registry. Strategies are warm-up aware: below their required history they
// return a none signal rather than fail.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quantdesk/quant-backend/pkg/types"
)

// ErrUnknownStrategy is returned for ids not present in the registry.
// Unknown ids fail fast; silent defaulting hides misconfiguration.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Params holds strategy parameters by name.
type Params map[string]float64

// Get returns the parameter value or the given default.
func (p Params) Get(key string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Info describes a registered strategy for catalog introspection.
type Info struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Defaults    Params `json:"defaults"`

	// Fallback names a lower-warm-up substitute used when the available
	// history is shorter than this strategy's warm-up. Empty when the
	// strategy simply stays flat instead.
	Fallback string `json:"fallback,omitempty"`
}

// Strategy evaluates a candle series into per-bar directional signals.
// Prepare is called once per run with the full series; Signal is then
// queried per index. Instances are single-run and not safe for concurrent
// use; create a fresh one per backtest.
type Strategy interface {
	Info() Info
	Warmup() int
	Prepare(candles []types.Candle)
	Signal(i int) types.Signal
}

// ExitSignaler is implemented by strategies that layer a signal-based exit
// (inverted entry logic) on top of the engine's price-based exits.
type ExitSignaler interface {
	ExitSignal(i int, side types.Direction) bool
}

type entry struct {
	info    Info
	factory func(Params) Strategy
}

// registry is the fixed strategy table. Registration happens here rather
// than via init side effects so the set is closed and reviewable.
var registry = map[string]entry{}

func register(info Info, factory func(Params) Strategy) {
	registry[info.Name] = entry{info: info, factory: factory}
}

func init() {
	register(emaCrossoverInfo, newEMACrossover)
	register(tripleEMAInfo, newTripleEMA)
	register(momentumInfo, newMomentum)
	register(rsiReversalInfo, newRSIReversal)
	register(rsiMidlineInfo, newRSIMidline)
	register(macdCrossInfo, newMACDCross)
	register(macdDivergenceInfo, newMACDDivergence)
	register(bollingerBounceInfo, newBollingerBounce)
	register(bollingerBreakoutInfo, newBollingerBreakout)
	register(regimeAdaptiveInfo, newRegimeAdaptive)
	register(trendStrengthInfo, newTrendStrength)
	register(zscoreInfo, newZScore)
	register(confluenceInfo, newConfluence)
	register(referenceBotInfo, newReferenceBot)
	register(referenceBotV2Info, newReferenceBotV2)
}

// New creates a strategy instance by id. Missing params fall back to the
// strategy defaults.
func New(name string, params Params) (Strategy, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return e.factory(params), nil
}

// Catalog returns the registered strategies sorted by name.
func Catalog() []Info {
	infos := make([]Info, 0, len(registry))
	for _, e := range registry {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// clamp bounds a strength score to the 0-100 signal range.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
