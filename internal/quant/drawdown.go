package quant

import "github.com/quantdesk/quant-backend/pkg/types"

// Drawdown throttle steps: the size multiplier shrinks as drawdown deepens
// and zeroes at the configured maximum.
const (
	ddStepLight    = 2.0
	ddStepModerate = 5.0
	ddStepSevere   = 8.0
)

// DrawdownThrottle updates the running peak with the current equity and
// returns the sizing state for it.
func (g *Generator) DrawdownThrottle(equity float64) types.DrawdownState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	state := types.DrawdownState{
		PeakEquity:     g.peakEquity,
		CurrentEquity:  equity,
		SizeMultiplier: 1,
	}
	if g.peakEquity > 0 {
		state.DrawdownPct = (g.peakEquity - equity) / g.peakEquity * 100
	}

	switch {
	case state.DrawdownPct >= g.maxDrawdownPct:
		state.SizeMultiplier = 0
		state.Halted = true
	case state.DrawdownPct >= ddStepSevere:
		state.SizeMultiplier = 0.25
	case state.DrawdownPct >= ddStepModerate:
		state.SizeMultiplier = 0.5
	case state.DrawdownPct >= ddStepLight:
		state.SizeMultiplier = 0.75
	}
	return state
}
