package indicator

import "github.com/quantdesk/quant-backend/pkg/types"

// Series is a one-shot precomputation of the commonly used indicator set for
// a candle array. Consumers index it by bar; slices are candle-aligned.
type Series struct {
	Closes  []float64
	Volumes []float64

	EMA9   []float64
	EMA21  []float64
	EMA50  []float64
	EMA200 []float64
	RSI14  []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	BBUpper []float64
	BBMid   []float64
	BBLower []float64

	ATR14 []float64
	ADX14 []DirectionalIndex
}

// NewSeries computes the shared indicator set for candles.
func NewSeries(candles []types.Candle) *Series {
	s := &Series{
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Closes[i] = c.Close
		s.Volumes[i] = c.Volume
	}
	s.EMA9 = EMA(s.Closes, 9)
	s.EMA21 = EMA(s.Closes, 21)
	s.EMA50 = EMA(s.Closes, 50)
	s.EMA200 = EMA(s.Closes, 200)
	s.RSI14 = RSI(s.Closes, 14)
	s.MACD, s.MACDSignal, s.MACDHist = MACD(s.Closes, 12, 26, 9)
	s.BBUpper, s.BBMid, s.BBLower = Bollinger(s.Closes, 20, 2)
	s.ATR14 = ATR(candles, 14)
	s.ADX14 = ADXSeries(candles, 14)
	return s
}
