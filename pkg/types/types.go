// Package types provides shared type definitions for the quant backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the directional component of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = "none"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit   ExitReason = "take_profit"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitSignal       ExitReason = "signal"
	ExitEndOfData    ExitReason = "end"
)

// Candle is a single OHLCV bar. Timestamps are unix milliseconds and must be
// strictly increasing within a series.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int     `json:"trades"`
}

// Time returns the candle open time as time.Time (UTC).
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// TypicalPrice is (high + low + close) / 3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// Signal is the per-bar output of a strategy. Strength is 0-100.
type Signal struct {
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
	Reason    string    `json:"reason,omitempty"`
}

// None is the neutral signal returned below warm-up or when no setup exists.
func None() Signal {
	return Signal{Direction: DirectionNone}
}

// Position is an open simulated position. The engine holds at most one.
// Monetary quantity is decimal so closed-trade accounting reconciles exactly;
// price tracking stays float64 alongside the candle data.
type Position struct {
	Side        Direction       `json:"side"`
	EntryPrice  float64         `json:"entryPrice"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryTime   int64           `json:"entryTime"`
	EntryIndex  int             `json:"entryIndex"`
	PeakPrice   float64         `json:"peakPrice"`
	TroughPrice float64         `json:"troughPrice"`
}

// Trade is a closed position record, immutable once appended to the ledger.
type Trade struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Side        Direction       `json:"side"`
	EntryTime   int64           `json:"entryTime"`
	ExitTime    int64           `json:"exitTime"`
	EntryIndex  int             `json:"entryIndex"`
	ExitIndex   int             `json:"exitIndex"`
	HoldingBars int             `json:"holdingBars"`
	EntryPrice  float64         `json:"entryPrice"`
	ExitPrice   float64         `json:"exitPrice"`
	Quantity    decimal.Decimal `json:"quantity"`
	GrossPnL    decimal.Decimal `json:"grossPnl"`
	Fees        decimal.Decimal `json:"fees"`
	NetPnL      decimal.Decimal `json:"netPnl"`
	PnLPct      float64         `json:"pnlPct"`
	ExitReason  ExitReason      `json:"exitReason"`
}

// EquityPoint is one mark-to-market sample of the equity curve.
type EquityPoint struct {
	Timestamp   int64           `json:"timestamp"`
	Equity      decimal.Decimal `json:"equity"`
	Drawdown    decimal.Decimal `json:"drawdown"`
	DrawdownPct float64         `json:"drawdownPct"`
}

// BookLevel is a single order book price level.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a bid/ask depth snapshot.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp int64       `json:"timestamp"`
}

// OrderFlowDelta summarizes bid/ask depth imbalance.
type OrderFlowDelta struct {
	BidVolume      float64 `json:"bidVolume"`
	AskVolume      float64 `json:"askVolume"`
	Delta          float64 `json:"delta"`
	DeltaPct       float64 `json:"deltaPct"`
	Classification string  `json:"classification"` // strong_buy, buy, neutral, sell, strong_sell
	Institutional  bool    `json:"institutional"`
}

// KellyResult is the Kelly sizing recommendation from rolling trade history.
type KellyResult struct {
	Fraction        float64 `json:"fraction"`
	HalfFraction    float64 `json:"halfFraction"`
	QuarterFraction float64 `json:"quarterFraction"`
	WinRate         float64 `json:"winRate"`
	PayoffRatio     float64 `json:"payoffRatio"`
	SampleSize      int     `json:"sampleSize"`
	Capped          bool    `json:"capped"`
}

// DrawdownState is the running drawdown throttle state.
type DrawdownState struct {
	PeakEquity     float64 `json:"peakEquity"`
	CurrentEquity  float64 `json:"currentEquity"`
	DrawdownPct    float64 `json:"drawdownPct"`
	SizeMultiplier float64 `json:"sizeMultiplier"`
	Halted         bool    `json:"halted"`
}

// VWAPData is the volume-weighted fair value and its deviation bands.
type VWAPData struct {
	VWAP      float64   `json:"vwap"`
	UpperBand float64   `json:"upperBand"`
	LowerBand float64   `json:"lowerBand"`
	StdDev    float64   `json:"stdDev"`
	Signal    Direction `json:"signal"`
}

// ZScoreSignal is the mean-reversion component of the quant signal.
type ZScoreSignal struct {
	ZScore float64 `json:"zScore"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Signal string  `json:"signal"` // strong_buy, buy, neutral, sell, strong_sell
}

// QuantSignal is the unified live recommendation.
type QuantSignal struct {
	Symbol         string          `json:"symbol"`
	Direction      Direction       `json:"direction"`
	Strength       float64         `json:"strength"`   // 0-100
	Confidence     float64         `json:"confidence"` // 0-100
	PositionPct    float64         `json:"positionPct"`
	StopLossPct    float64         `json:"stopLossPct"`
	TakeProfitPct  float64         `json:"takeProfitPct"`
	Price          float64         `json:"price"`
	ZScore         *ZScoreSignal   `json:"zScore,omitempty"`
	VWAP           *VWAPData       `json:"vwap,omitempty"`
	OrderFlow      *OrderFlowDelta `json:"orderFlow,omitempty"`
	Kelly          *KellyResult    `json:"kelly,omitempty"`
	Drawdown       *DrawdownState  `json:"drawdown,omitempty"`
	Rationale      []string        `json:"rationale"`
	Warnings       []string        `json:"warnings,omitempty"`
	GeneratedAt    int64           `json:"generatedAt"`
}

// PairCorrelation is one pairs-trading candidate.
type PairCorrelation struct {
	SymbolA            string  `json:"symbolA"`
	SymbolB            string  `json:"symbolB"`
	Correlation        float64 `json:"correlation"`
	HedgeRatio         float64 `json:"hedgeRatio"`
	SpreadZScore       float64 `json:"spreadZScore"`
	CointegrationScore float64 `json:"cointegrationScore"`
	Samples            int     `json:"samples"`
	Opportunity        bool    `json:"opportunity"`
}
