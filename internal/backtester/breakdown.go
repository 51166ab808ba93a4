package backtester

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantdesk/quant-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// distributionBuckets are the fixed per-trade return histogram bounds, in
// percent.
var distributionBuckets = []struct {
	label string
	lo    float64
	hi    float64
}{
	{"<-5%", inf(-1), -5},
	{"-5..-2%", -5, -2},
	{"-2..0%", -2, 0},
	{"0..2%", 0, 2},
	{"2..5%", 2, 5},
	{">5%", 5, inf(1)},
}

func inf(sign int) float64 {
	if sign < 0 {
		return -1e18
	}
	return 1e18
}

// Distribution buckets per-trade net returns into the six fixed histogram
// buckets.
func Distribution(trades []types.Trade) []types.ReturnBucket {
	buckets := make([]types.ReturnBucket, len(distributionBuckets))
	for i, b := range distributionBuckets {
		buckets[i].Label = b.label
	}
	for _, t := range trades {
		for i, b := range distributionBuckets {
			if t.PnLPct > b.lo && t.PnLPct <= b.hi {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// MonthlyReturns computes the equity return of each UTC calendar month
// covered by the curve, from the month's first to its last equity sample.
func MonthlyReturns(curve []types.EquityPoint) []types.MonthlyReturn {
	if len(curve) == 0 {
		return nil
	}

	type span struct{ first, last types.EquityPoint }
	spans := map[int]*span{}
	for _, p := range curve {
		t := time.UnixMilli(p.Timestamp).UTC()
		key := t.Year()*100 + int(t.Month())
		if s, ok := spans[key]; ok {
			s.last = p
		} else {
			spans[key] = &span{first: p, last: p}
		}
	}

	keys := make([]int, 0, len(spans))
	for k := range spans {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]types.MonthlyReturn, 0, len(keys))
	for _, k := range keys {
		s := spans[k]
		ret := 0.0
		if s.first.Equity.IsPositive() {
			ret, _ = s.last.Equity.Sub(s.first.Equity).
				Div(s.first.Equity).
				Mul(hundred).Float64()
		}
		out = append(out, types.MonthlyReturn{
			Year:      k / 100,
			Month:     k % 100,
			ReturnPct: ret,
		})
	}
	return out
}

// HourlyStats aggregates trade count and win rate by entry hour (UTC).
func HourlyStats(trades []types.Trade) []types.HourlyStat {
	stats := make([]types.HourlyStat, 24)
	for h := range stats {
		stats[h].Hour = h
	}
	for _, t := range trades {
		h := time.UnixMilli(t.EntryTime).UTC().Hour()
		stats[h].Trades++
		if t.NetPnL.IsPositive() {
			stats[h].Wins++
		}
	}
	for h := range stats {
		if stats[h].Trades > 0 {
			stats[h].WinRate = float64(stats[h].Wins) / float64(stats[h].Trades) * 100
		}
	}
	return stats
}
