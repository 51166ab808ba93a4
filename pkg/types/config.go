// Package types provides configuration and result types for the quant backend.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestConfig fully specifies a backtest run. It is immutable during the
// run. Percentage knobs are expressed as percentages (2.5 means 2.5%), fee
// and slippage rates as fractions (0.0004 means 4 bps).
type BacktestConfig struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	Interval       string             `json:"interval"`
	From           int64              `json:"from"`
	To             int64              `json:"to"`
	InitialCapital decimal.Decimal    `json:"initialCapital"`
	PositionPct    float64            `json:"positionPct"`
	MaxLeverage    float64            `json:"maxLeverage"`
	StopLossPct    float64            `json:"stopLossPct"`
	TakeProfitPct  float64            `json:"takeProfitPct"`
	FeeRate        float64            `json:"feeRate"`
	SlippageRate   float64            `json:"slippageRate"`
	Strategy       string             `json:"strategy"`
	Params         map[string]float64 `json:"params,omitempty"`
	TrailingStop   bool               `json:"trailingStop"`
	TrailingPct    float64            `json:"trailingPct"`

	// Sentiment-filter simulation knobs. A deterministic local stand-in for
	// the external advisory score; no network calls are made.
	SentimentFilter bool    `json:"sentimentFilter"`
	FilterStrength  float64 `json:"filterStrength"` // 0-100
	BoostStrength   float64 `json:"boostStrength"`  // 0-100
}

// ReturnBucket is one bucket of the per-trade return histogram.
type ReturnBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlyReturn is the equity return over one calendar month (UTC).
type MonthlyReturn struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	ReturnPct float64 `json:"returnPct"`
}

// HourlyStat is per-UTC-hour trade performance.
type HourlyStat struct {
	Hour    int     `json:"hour"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
}

// PerformanceMetrics is a read-only snapshot over a completed trade ledger
// and equity curve. Monetary amounts are decimal; ratios are float64.
type PerformanceMetrics struct {
	InitialCapital    decimal.Decimal `json:"initialCapital"`
	FinalEquity       decimal.Decimal `json:"finalEquity"`
	TotalReturnPct    float64         `json:"totalReturnPct"`
	AnnualizedPct     float64         `json:"annualizedPct"`
	MaxDrawdown       decimal.Decimal `json:"maxDrawdown"`
	MaxDrawdownPct    float64         `json:"maxDrawdownPct"`
	TotalTrades       int             `json:"totalTrades"`
	WinningTrades     int             `json:"winningTrades"`
	LosingTrades      int             `json:"losingTrades"`
	WinRate           float64         `json:"winRate"`
	ProfitFactor      float64         `json:"profitFactor"`
	AvgWin            decimal.Decimal `json:"avgWin"`
	AvgLoss           decimal.Decimal `json:"avgLoss"`
	Expectancy        decimal.Decimal `json:"expectancy"`
	LongestWinStreak  int             `json:"longestWinStreak"`
	LongestLossStreak int             `json:"longestLossStreak"`
	SharpeRatio       float64         `json:"sharpeRatio"`
	SortinoRatio      float64         `json:"sortinoRatio"`
	CalmarRatio       float64         `json:"calmarRatio"`
	KellyFraction     float64         `json:"kellyFraction"`
	HalfKelly         float64         `json:"halfKelly"`
	QuarterKelly      float64         `json:"quarterKelly"`
	VaR95             float64         `json:"var95"`
	OmegaRatio        float64         `json:"omegaRatio"`
	Skewness          float64         `json:"skewness"`
	ExcessKurtosis    float64         `json:"excessKurtosis"`
	BuyHoldReturnPct  float64         `json:"buyHoldReturnPct"`
	AlphaPct          float64         `json:"alphaPct"`
}

// BacktestResult is the full output of a backtest run.
type BacktestResult struct {
	ID               string              `json:"id"`
	Config           *BacktestConfig     `json:"config"`
	Trades           []Trade             `json:"trades"`
	EquityCurve      []EquityPoint       `json:"equityCurve"`
	Metrics          *PerformanceMetrics `json:"metrics"`
	Distribution     []ReturnBucket      `json:"distribution"`
	MonthlyReturns   []MonthlyReturn     `json:"monthlyReturns"`
	HourlyStats      []HourlyStat        `json:"hourlyStats"`
	StrategyUsed     string              `json:"strategyUsed"` // differs from Config.Strategy after a warm-up fallback
	BarsProcessed    int                 `json:"barsProcessed"`
	StartedAt        time.Time           `json:"startedAt"`
	CompletedAt      time.Time           `json:"completedAt"`
	Duration         time.Duration       `json:"duration"`
}

// ServerConfig configures the HTTP/WebSocket API server.
type ServerConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	WebSocketPath string        `json:"websocketPath"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	DataDir       string        `json:"dataDir"`
}
