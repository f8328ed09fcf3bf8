// Package session implements the day-boundary session state and VWAP
// tracker (spec.md §4.7), grounded on the Python original's
// session_context.py (SessionContextTracker). The VWAP trade queue
// deliberately survives session_start resets (open question #2 in
// SPEC_FULL.md §7) — this is not a bug to fix.
package session

import (
	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

type vwapTrade struct {
	timeMs   int64
	price    float64
	notional float64
}

func vwapTimeMs(t vwapTrade) int64 { return t.timeMs }

// Tracker holds the rolling session/VWAP state.
type Tracker struct {
	durationS   int64
	vwapWindowS int64

	sessionStartMs int64
	started        bool
	dayHigh        float64
	dayLow         float64
	currentPrice   float64
	hasPrice       bool

	vwapQueue *ringwindow.Window[vwapTrade]

	// Last-good exchange volume figures from the periodic volume poller
	// (spec.md §5 "Volume-updater task").
	hyperliquid24hVolumeUSD float64
	hyperliquid1hVolumeUSD  float64
	hyperliquid4hVolumeUSD  float64
}

func New(durationS, vwapWindowS int64) *Tracker {
	return &Tracker{
		durationS:   durationS,
		vwapWindowS: vwapWindowS,
		vwapQueue:   ringwindow.New(vwapTimeMs, vwapWindowS*1000),
	}
}

// SeedBackfill injects the daily range/price an external REST fetch may
// supply before the first live price arrives (spec.md §4.7 "Backfill
// hook"). Once a price is known it is a no-op.
func (t *Tracker) SeedBackfill(dayHigh, dayLow, currentPrice float64, nowMs int64) {
	if t.hasPrice {
		return
	}
	t.dayHigh = dayHigh
	t.dayLow = dayLow
	t.currentPrice = currentPrice
	t.hasPrice = true
	if !t.started {
		t.sessionStartMs = nowMs
		t.started = true
	}
}

// SetHyperliquidVolumes stores the volume-updater sidecar's last-good
// values (spec.md §5 "Volume-updater task").
func (t *Tracker) SetHyperliquidVolumes(v24h, v1h, v4h float64) {
	t.hyperliquid24hVolumeUSD = v24h
	t.hyperliquid1hVolumeUSD = v1h
	t.hyperliquid4hVolumeUSD = v4h
}

// OnPriceUpdate updates the day high/low/current-price range tracking,
// resetting the session if the duration elapsed.
func (t *Tracker) OnPriceUpdate(price float64, nowMs int64) {
	t.maybeReset(nowMs, price)

	if !t.hasPrice {
		t.dayHigh = price
		t.dayLow = price
		t.hasPrice = true
		t.sessionStartMs = nowMs
		t.started = true
	} else {
		if price > t.dayHigh {
			t.dayHigh = price
		}
		if price < t.dayLow {
			t.dayLow = price
		}
	}
	t.currentPrice = price
}

// OnTrade appends a trade into the VWAP queue (evicting anything older
// than vwap_window_s) and updates the range/current-price tracking.
func (t *Tracker) OnTrade(ev model.TradeEvent) {
	t.maybeReset(ev.TimeMs, ev.Price)
	t.vwapQueue.Append(vwapTrade{timeMs: ev.TimeMs, price: ev.Price, notional: ev.Notional()}, ev.TimeMs)
	t.OnPriceUpdate(ev.Price, ev.TimeMs)
}

// maybeReset resets session_start/day_high/day_low/current_price when the
// session duration has elapsed. The VWAP queue is untouched by design.
func (t *Tracker) maybeReset(nowMs int64, latestPrice float64) {
	if !t.started {
		return
	}
	if nowMs-t.sessionStartMs >= t.durationS*1000 {
		t.sessionStartMs = nowMs
		t.dayHigh = latestPrice
		t.dayLow = latestPrice
		t.currentPrice = latestPrice
	}
}

// VWAP computes Sum(price*notional)/Sum(notional) over trades within
// vwap_window_s.
func (t *Tracker) VWAP(nowMs int64) float64 {
	trades := t.vwapQueue.Since(nowMs - t.vwapWindowS*1000)
	var numer, denom float64
	for _, tr := range trades {
		numer += tr.price * tr.notional
		denom += tr.notional
	}
	if denom == 0 {
		return 0
	}
	return numer / denom
}

// VolumeWindow sums notional for trades within the trailing windowHours.
func (t *Tracker) VolumeWindow(windowHours float64, nowMs int64) float64 {
	windowMs := int64(windowHours * 3600 * 1000)
	trades := t.vwapQueue.Since(nowMs - windowMs)
	var sum float64
	for _, tr := range trades {
		sum += tr.notional
	}
	return sum
}

// SessionVolume sums notional for trades since the current session_start,
// independent of the VWAP queue's own (longer-lived) retention window.
func (t *Tracker) SessionVolume(nowMs int64) float64 {
	trades := t.vwapQueue.Since(t.sessionStartMs)
	var sum float64
	for _, tr := range trades {
		sum += tr.notional
	}
	return sum
}

// PctFromLow, PctFromHigh, PctThroughRange implement spec.md §4.7's range
// position formulas; PctThroughRange is 50 when the range collapses to a
// point.
func (t *Tracker) PctFromLow() float64 {
	if t.dayLow == 0 {
		return 0
	}
	return (t.currentPrice - t.dayLow) / t.dayLow * 100
}

func (t *Tracker) PctFromHigh() float64 {
	if t.dayHigh == 0 {
		return 0
	}
	return (t.currentPrice - t.dayHigh) / t.dayHigh * 100
}

func (t *Tracker) PctThroughRange() float64 {
	rng := t.dayHigh - t.dayLow
	if rng == 0 {
		return 50
	}
	return (t.currentPrice - t.dayLow) / rng * 100
}

// DistanceFromVWAPBps is (current-vwap)/vwap*10000.
func (t *Tracker) DistanceFromVWAPBps(nowMs int64) float64 {
	vwap := t.VWAP(nowMs)
	if vwap == 0 {
		return 0
	}
	return (t.currentPrice - vwap) / vwap * 10000
}

// ToWire assembles the outbound session_context section.
func (t *Tracker) ToWire(nowMs int64) model.SessionContext {
	return model.SessionContext{
		DailyHigh:    t.dayHigh,
		DailyLow:     t.dayLow,
		CurrentPrice: t.currentPrice,

		PctFromLow:      t.PctFromLow(),
		PctFromHigh:     t.PctFromHigh(),
		PctThroughRange: t.PctThroughRange(),

		SessionVWAP:         t.VWAP(nowMs),
		DistanceFromVWAPBps: t.DistanceFromVWAPBps(nowMs),

		SessionVolumeUSD: t.SessionVolume(nowMs),
		Last1hVolumeUSD:  t.VolumeWindow(1.0, nowMs),
		Last4hVolumeUSD:  t.VolumeWindow(4.0, nowMs),

		Hyperliquid24hVolumeUSD: t.hyperliquid24hVolumeUSD,
		Hyperliquid1hVolumeUSD:  t.hyperliquid1hVolumeUSD,
		Hyperliquid4hVolumeUSD:  t.hyperliquid4hVolumeUSD,

		SessionDurationHours: float64(t.durationS) / 3600,
	}
}
