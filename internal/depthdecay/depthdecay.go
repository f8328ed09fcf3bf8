// Package depthdecay implements the short-window L5-depth decay tracker
// (spec.md §4.4), grounded on the Python original's analytics/depth_decay.py
// (DepthDecayTracker, interpret_depth_decay).
package depthdecay

import (
	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

type depthPoint struct {
	timeMs int64
	bidUSD float64
	askUSD float64
}

func depthTimeMs(p depthPoint) int64 { return p.timeMs }

// Tracker holds L5 depth snapshots retained at 1.1x the configured window.
type Tracker struct {
	window  *ringwindow.Window[depthPoint]
	windowS int64
}

func New(windowS int64) *Tracker {
	retentionMs := int64(float64(windowS*1000) * 1.1)
	return &Tracker{
		window:  ringwindow.New(depthTimeMs, retentionMs),
		windowS: windowS,
	}
}

// OnBookUpdate appends one depth sample, called on every L2 update.
func (t *Tracker) OnBookUpdate(bidUSD, askUSD float64, nowMs int64) {
	t.window.Append(depthPoint{timeMs: nowMs, bidUSD: bidUSD, askUSD: askUSD}, nowMs)
}

// Status thresholds (spec.md §4.4): OK<5<=Medium<15<=High<30<=Critical.
const (
	StatusOK       = "OK"
	StatusMedium   = "Medium"
	StatusHigh     = "High"
	StatusCritical = "Critical"
)

// Result is the computed bid/ask decay for the configured window.
type Result struct {
	BidDecayPct float64
	AskDecayPct float64
	BidStatus   string
	AskStatus   string
	HasData     bool
}

// Get computes decay as of nowMs against the oldest sample within the
// tracker's window.
func (t *Tracker) Get(nowMs int64) Result {
	since := nowMs - t.windowS*1000
	ref, ok := t.window.FirstAtOrAfter(since)
	if !ok {
		return Result{BidStatus: StatusOK, AskStatus: StatusOK}
	}
	cur, ok := t.window.Tail()
	if !ok {
		return Result{BidStatus: StatusOK, AskStatus: StatusOK}
	}

	bidDecay := decayPct(ref.bidUSD, cur.bidUSD)
	askDecay := decayPct(ref.askUSD, cur.askUSD)

	return Result{
		BidDecayPct: bidDecay,
		AskDecayPct: askDecay,
		BidStatus:   statusFor(bidDecay),
		AskStatus:   statusFor(askDecay),
		HasData:     true,
	}
}

func decayPct(ref, cur float64) float64 {
	if ref == 0 {
		return 0
	}
	return (ref - cur) / ref * 100
}

func statusFor(decayPct float64) string {
	switch {
	case decayPct >= 30:
		return StatusCritical
	case decayPct >= 15:
		return StatusHigh
	case decayPct >= 5:
		return StatusMedium
	default:
		return StatusOK
	}
}

// AggressiveBuying and AggressiveSelling report whether the ask or bid side
// respectively is decaying fast enough (>15%) to call it aggressive
// buying/selling pressure.
func (r Result) AggressiveBuying() bool  { return r.AskDecayPct > 15 }
func (r Result) AggressiveSelling() bool { return r.BidDecayPct > 15 }

// Interpret builds the human-readable decay narrative combining decay
// direction with the concurrent price change sign, matching the Python
// original's interpret_depth_decay().
func Interpret(r Result, priceChangePct float64) string {
	switch {
	case r.AggressiveSelling() && priceChangePct < 0:
		return "Strong selling pressure"
	case r.AggressiveBuying() && priceChangePct > 0:
		return "Strong buying pressure"
	case r.AggressiveSelling() && priceChangePct >= 0:
		return "Selling absorbed"
	case r.AggressiveBuying() && priceChangePct <= 0:
		return "Buying absorbed"
	case r.BidStatus == StatusOK && r.AskStatus == StatusOK:
		return "Stable"
	default:
		return "Normal"
	}
}

// ToWire renders a Result into the outbound model.DepthDecay shape.
func (r Result) ToWire() model.DepthDecay {
	return model.DepthDecay{
		BidDecayPercent: r.BidDecayPct,
		AskDecayPercent: r.AskDecayPct,
		BidStatus:       r.BidStatus,
		AskStatus:       r.AskStatus,
	}
}
