// Package momentum implements the short/long price-direction tracker
// (spec.md §4.3), grounded on the Python original's price_momentum.py
// (PriceMomentumTracker, detect_trend_alignment).
package momentum

import (
	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

type pricePoint struct {
	timeMs int64
	mid    float64
}

func priceTimeMs(p pricePoint) int64 { return p.timeMs }

// Tracker holds mid-price samples for the longer of the two configured
// windows, retained at 1.1x per spec.md §3 lifecycle rule.
type Tracker struct {
	window           *ringwindow.Window[pricePoint]
	shortWindowS     int64
	longWindowS      int64
	flatThresholdPct float64
}

func New(shortWindowS, longWindowS int64, flatThresholdPct float64) *Tracker {
	maxWindowS := longWindowS
	if shortWindowS > maxWindowS {
		maxWindowS = shortWindowS
	}
	retentionMs := int64(float64(maxWindowS*1000) * 1.1)
	return &Tracker{
		window:           ringwindow.New(priceTimeMs, retentionMs),
		shortWindowS:     shortWindowS,
		longWindowS:      longWindowS,
		flatThresholdPct: flatThresholdPct,
	}
}

// OnMidUpdate appends a new sample; called only when the order book's mid
// actually changed (spec.md §4.3: "on every order-book update that changes
// mid").
func (t *Tracker) OnMidUpdate(mid float64, nowMs int64) {
	t.window.Append(pricePoint{timeMs: nowMs, mid: mid}, nowMs)
}

// Leg is the direction/magnitude result for one window.
type Leg struct {
	Direction     string // "up", "down", "flat"
	ChangePercent float64
	IsUsable      bool
}

// Get computes the Leg for windowS as of nowMs: compares the oldest sample
// with time >= now-W against the latest sample.
func (t *Tracker) Get(windowS int64, nowMs int64) Leg {
	since := nowMs - windowS*1000
	start, ok := t.window.FirstAtOrAfter(since)
	if !ok {
		return Leg{Direction: "flat", IsUsable: false}
	}
	end, ok := t.window.Tail()
	if !ok || start.mid == 0 {
		return Leg{Direction: "flat", IsUsable: false}
	}

	changePct := (end.mid - start.mid) / start.mid * 100

	span := end.timeMs - start.timeMs
	isUsable := float64(span) >= 0.5*float64(windowS*1000)

	return Leg{
		Direction:     direction(changePct, t.flatThresholdPct),
		ChangePercent: changePct,
		IsUsable:      isUsable,
	}
}

func direction(changePct, flatThresholdPct float64) string {
	if changePct > flatThresholdPct {
		return "up"
	}
	if changePct < -flatThresholdPct {
		return "down"
	}
	return "flat"
}

// Short and Long are convenience wrappers around the tracker's configured
// windows.
func (t *Tracker) Short(nowMs int64) Leg { return t.Get(t.shortWindowS, nowMs) }
func (t *Tracker) Long(nowMs int64) Leg  { return t.Get(t.longWindowS, nowMs) }

// TrendAlignment combines the short and long legs into a single signal:
// bullish/bearish when both agree, reversal_up/reversal_down when the
// short leg has flipped against a still-standing long trend, else "".
func TrendAlignment(short, long Leg) string {
	switch {
	case short.Direction == "up" && long.Direction == "up":
		return "bullish"
	case short.Direction == "down" && long.Direction == "down":
		return "bearish"
	case short.Direction == "up" && long.Direction == "down":
		return "reversal_up"
	case short.Direction == "down" && long.Direction == "up":
		return "reversal_down"
	default:
		return ""
	}
}

// ToWire renders a Leg to the outbound MomentumLeg shape.
func (l Leg) ToWire() model.MomentumLeg {
	return model.MomentumLeg{
		Direction:     l.Direction,
		ChangePercent: l.ChangePercent,
		IsUsable:      l.IsUsable,
	}
}
