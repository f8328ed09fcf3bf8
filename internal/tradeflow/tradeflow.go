// Package tradeflow implements the bucketed trade-distribution tracker
// over rolling windows (spec.md §4.2). Grounded on the Python original's
// trade_flow_tracker.py (TradeFlowTracker, TradeBucket,
// detect_sweep_direction), rebuilt on ringwindow.Window instead of a
// collections.deque.
package tradeflow

import (
	"sort"

	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

// DefaultBucketSchedule mirrors spec.md §4.2's default notional buckets:
// [0,1k),[1k,5k),[5k,10k),[10k,50k),[50k,250k),[250k,inf).
var DefaultBucketSchedule = []float64{0, 1000, 5000, 10000, 50000, 250000}

type trade struct {
	timeMs   int64
	notional float64
	side     model.Side
}

func tradeTimeMs(t trade) int64 { return t.timeMs }

// Tracker holds every trade within the last maxHistoryS seconds.
type Tracker struct {
	window         *ringwindow.Window[trade]
	bucketSchedule []float64
	sweepThreshold float64
}

// New builds a Tracker retaining maxHistoryS seconds of trades.
func New(maxHistoryS int64, bucketSchedule []float64, sweepThreshold float64) *Tracker {
	if len(bucketSchedule) == 0 {
		bucketSchedule = DefaultBucketSchedule
	}
	return &Tracker{
		window:         ringwindow.New(tradeTimeMs, maxHistoryS*1000),
		bucketSchedule: bucketSchedule,
		sweepThreshold: sweepThreshold,
	}
}

// AddTrade records a trade at nowMs (the trade's own timestamp, which also
// drives eviction of anything older than maxHistoryS seconds).
func (tr *Tracker) AddTrade(ev model.TradeEvent) {
	tr.window.Append(trade{timeMs: ev.TimeMs, notional: ev.Notional(), side: ev.Side}, ev.TimeMs)
}

// Stats is the computed distribution over a window.
type Stats struct {
	Count          int
	TotalVolume    float64
	BuyVolume      float64
	SellVolume     float64
	BuyRatio       float64
	SellRatio      float64
	SweepDirection string // "up", "down", or ""
	Largest        float64
	Median         float64
	Average        float64
	BucketCounts   []int
}

// GetStats computes Stats for the trailing windowS seconds as of nowMs.
func (tr *Tracker) GetStats(windowS int64, nowMs int64) Stats {
	since := nowMs - windowS*1000
	trades := tr.window.Since(since)

	var out Stats
	out.Count = len(trades)
	if out.Count == 0 {
		out.BucketCounts = make([]int, len(tr.bucketSchedule))
		return out
	}

	notionals := make([]float64, 0, len(trades))
	for _, t := range trades {
		notionals = append(notionals, t.notional)
		out.TotalVolume += t.notional
		if t.side == model.SideBuy {
			out.BuyVolume += t.notional
		} else {
			out.SellVolume += t.notional
		}
		if t.notional > out.Largest {
			out.Largest = t.notional
		}
	}

	if out.TotalVolume > 0 {
		out.BuyRatio = out.BuyVolume / out.TotalVolume
		out.SellRatio = out.SellVolume / out.TotalVolume
	}
	out.Average = out.TotalVolume / float64(out.Count)
	out.Median = median(notionals)
	out.BucketCounts = bucketCounts(notionals, tr.bucketSchedule)
	out.SweepDirection = detectSweepDirection(out.Count, out.BuyRatio, out.SellRatio, tr.sweepThreshold)

	return out
}

// MultiTimeframe returns Stats at 30s/5m/15m, keyed the way the outbound
// trade_flow_multi section expects.
func (tr *Tracker) MultiTimeframe(nowMs int64) map[string]Stats {
	return map[string]Stats{
		"30s": tr.GetStats(30, nowMs),
		"5m":  tr.GetStats(300, nowMs),
		"15m": tr.GetStats(900, nowMs),
	}
}

// detectSweepDirection is spec.md §4.2's sweep classifier: count>=3 and
// buy_ratio>=threshold -> "up"; sell_ratio>=threshold -> "down"; else "".
func detectSweepDirection(count int, buyRatio, sellRatio, threshold float64) string {
	if count < 3 {
		return ""
	}
	if buyRatio >= threshold {
		return "up"
	}
	if sellRatio >= threshold {
		return "down"
	}
	return ""
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func bucketCounts(notionals []float64, schedule []float64) []int {
	counts := make([]int, len(schedule))
	for _, n := range notionals {
		idx := 0
		for i, lo := range schedule {
			if n >= lo {
				idx = i
			}
		}
		counts[idx]++
	}
	return counts
}

// ToWireStats renders a Stats into the outbound model.TradeFlowStats shape.
func (s Stats) ToWireStats() model.TradeFlowStats {
	return model.TradeFlowStats{
		TradeCount:     s.Count,
		TotalVolume:    s.TotalVolume,
		BuyVolume:      s.BuyVolume,
		SellVolume:     s.SellVolume,
		BuyRatio:       s.BuyRatio,
		SellRatio:      s.SellRatio,
		SweepDirection: s.SweepDirection,
		Largest:        s.Largest,
		Median:         s.Median,
		Average:        s.Average,
	}
}
