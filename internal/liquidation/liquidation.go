// Package liquidation implements the large-trade and cascade suspected
// liquidation heuristics (spec.md §4.9), grounded on the Python original's
// liquidations.py (LiquidationsDetector).
package liquidation

import (
	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

// Side mirrors the detector's long/short mapping, distinct from the
// trade-taker Side: a sell trade suspects a long liquidation and vice
// versa (spec.md §4.9).
type Side int

const (
	SideLong Side = iota
	SideShort
)

type event struct {
	timeMs     int64
	side       Side
	notional   float64
	confidence float64
}

func eventTimeMs(e event) int64 { return e.timeMs }

// Tracker detects and retains suspected liquidation events.
type Tracker struct {
	history *ringwindow.Window[event]

	largeTradeThresholdUSD float64
	cascadeWindowMs        int64
	cascadeMinCount        int

	// recentTrades buffers the trailing cascade_window_ms of same-coin
	// trades for cascade detection.
	recentTrades *ringwindow.Window[model.TradeEvent]

	// lastCascadeEmitMs debounces repeated cascade emission while the same
	// run of trades is still within the window: one event per side per
	// cascade window, not one per qualifying trade.
	lastCascadeEmitMs map[Side]int64
}

func tradeTimeMs(t model.TradeEvent) int64 { return t.TimeMs }

func New(maxHistoryS int64, largeTradeThresholdUSD float64, cascadeWindowMs int64, cascadeMinCount int) *Tracker {
	return &Tracker{
		history:                 ringwindow.New(eventTimeMs, maxHistoryS*1000),
		largeTradeThresholdUSD:  largeTradeThresholdUSD,
		cascadeWindowMs:         cascadeWindowMs,
		cascadeMinCount:         cascadeMinCount,
		recentTrades:            ringwindow.New(tradeTimeMs, cascadeWindowMs),
		lastCascadeEmitMs:       map[Side]int64{SideLong: -1 << 62, SideShort: -1 << 62},
	}
}

// OnTrade runs both heuristics against an incoming trade.
func (t *Tracker) OnTrade(ev model.TradeEvent) {
	t.recentTrades.Append(ev, ev.TimeMs)

	notional := ev.Notional()
	if notional >= t.largeTradeThresholdUSD {
		side := sideFor(ev.Side)
		confidence := notional / (5 * t.largeTradeThresholdUSD)
		if confidence > 1 {
			confidence = 1
		}
		t.history.Append(event{timeMs: ev.TimeMs, side: side, notional: notional, confidence: confidence}, ev.TimeMs)
	}

	t.detectCascade(ev.TimeMs)
}

// sideFor maps a trade's taker side onto the liquidation side: a sell
// suspects a long liquidation, a buy suspects a short liquidation.
func sideFor(tradeSide model.Side) Side {
	if tradeSide == model.SideSell {
		return SideLong
	}
	return SideShort
}

// detectCascade looks for >= cascadeMinCount same-direction trades within
// the trailing cascade window summing to >= threshold USD, and emits one
// cascade event with fixed confidence 0.7.
func (t *Tracker) detectCascade(nowMs int64) {
	trades := t.recentTrades.Since(nowMs - t.cascadeWindowMs)

	var buyCount, sellCount int
	var buyNotional, sellNotional float64
	for _, tr := range trades {
		n := tr.Notional()
		if tr.Side == model.SideBuy {
			buyCount++
			buyNotional += n
		} else {
			sellCount++
			sellNotional += n
		}
	}

	if sellCount >= t.cascadeMinCount && sellNotional >= t.largeTradeThresholdUSD && t.cascadeReady(SideLong, nowMs) {
		t.history.Append(event{timeMs: nowMs, side: SideLong, notional: sellNotional, confidence: 0.7}, nowMs)
		t.lastCascadeEmitMs[SideLong] = nowMs
	}
	if buyCount >= t.cascadeMinCount && buyNotional >= t.largeTradeThresholdUSD && t.cascadeReady(SideShort, nowMs) {
		t.history.Append(event{timeMs: nowMs, side: SideShort, notional: buyNotional, confidence: 0.7}, nowMs)
		t.lastCascadeEmitMs[SideShort] = nowMs
	}
}

func (t *Tracker) cascadeReady(side Side, nowMs int64) bool {
	return nowMs-t.lastCascadeEmitMs[side] >= t.cascadeWindowMs
}

// Status thresholds (spec.md §4.9).
const (
	StatusNormal   = "Normal"
	StatusElevated = "Elevated"
	StatusHigh     = "High"
)

// Result is the aggregated query result over a window.
type Result struct {
	Status            string
	LongCount         int
	ShortCount        int
	TotalLongVolume   float64
	TotalShortVolume  float64
}

// Get aggregates counts/volumes per side over the trailing windowS
// seconds.
func (t *Tracker) Get(windowS int64, nowMs int64) Result {
	events := t.history.Since(nowMs - windowS*1000)

	var r Result
	for _, e := range events {
		if e.side == SideLong {
			r.LongCount++
			r.TotalLongVolume += e.notional
		} else {
			r.ShortCount++
			r.TotalShortVolume += e.notional
		}
	}
	total := r.LongCount + r.ShortCount
	r.Status = statusFor(total)
	return r
}

func statusFor(count int) string {
	switch {
	case count >= 10:
		return StatusHigh
	case count >= 3:
		return StatusElevated
	default:
		return StatusNormal
	}
}

// MultiTimeframe returns Result at 60s/5m/15m.
func (t *Tracker) MultiTimeframe(nowMs int64) map[string]Result {
	return map[string]Result{
		"60s": t.Get(60, nowMs),
		"5m":  t.Get(300, nowMs),
		"15m": t.Get(900, nowMs),
	}
}

// ToWire renders a Result into the outbound model.Liquidations shape.
func (r Result) ToWire() model.Liquidations {
	return model.Liquidations{
		Status:            r.Status,
		LongLiquidations:  r.LongCount,
		ShortLiquidations: r.ShortCount,
		TotalLongVolume:   r.TotalLongVolume,
		TotalShortVolume:  r.TotalShortVolume,
	}
}
