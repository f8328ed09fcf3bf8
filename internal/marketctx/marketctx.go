// Package marketctx implements the open-interest/funding/basis context
// tracker and trend classifiers (spec.md §4.8), grounded on the Python
// original's analytics/market_indicators.py (MarketIndicatorsTracker) and,
// structurally, on the teacher's internal/oi/engine.go atomic-state
// pattern — though here the OI trend is computed from a window over
// context history rather than a fixed 20-slot ring, per the Python
// original's exact formula.
package marketctx

import (
	"hlflow/internal/model"
	"hlflow/internal/ringwindow"
)

func ctxTimeMs(c model.ContextEvent) int64 { return c.TimeMs }

const (
	TrendFlat = "flat"
	TrendUp   = "up"
	TrendDown = "down"

	BasisPremium  = "Premium"
	BasisDiscount = "Discount"
	BasisNormal   = "Normal"
)

// Tracker holds per-asset context history.
type Tracker struct {
	history *ringwindow.Window[model.ContextEvent]

	oiWindowS              int64
	oiFlatThresholdPct     float64
	fundingFlatThreshold   float64
	basisSpikeThresholdPct float64
	fundingPeriodsPerDay   float64
}

func New(maxHistoryS, oiWindowS int64, oiFlatThresholdPct, fundingFlatThreshold, basisSpikeThresholdPct, fundingPeriodsPerDay float64) *Tracker {
	return &Tracker{
		history:                ringwindow.New(ctxTimeMs, maxHistoryS*1000),
		oiWindowS:              oiWindowS,
		oiFlatThresholdPct:     oiFlatThresholdPct,
		fundingFlatThreshold:   fundingFlatThreshold,
		basisSpikeThresholdPct: basisSpikeThresholdPct,
		fundingPeriodsPerDay:   fundingPeriodsPerDay,
	}
}

// OnContext appends an asset-context row.
func (t *Tracker) OnContext(ev model.ContextEvent) {
	t.history.Append(ev, ev.TimeMs)
}

// Latest returns the most recent context row and true, or zero/false when
// no context has arrived yet.
func (t *Tracker) Latest() (model.ContextEvent, bool) {
	return t.history.Tail()
}

// OIStats is the trend/velocity result for one window.
type OIStats struct {
	ChangePercent float64
	Trend         string
	VelocityPctPerMin float64
}

// OITrend computes spec.md §4.8's OI trend/velocity over windowS seconds
// as of nowMs.
func (t *Tracker) OITrend(windowS int64, nowMs int64) OIStats {
	since := nowMs - windowS*1000
	start, ok := t.history.FirstAtOrAfter(since)
	if !ok {
		return OIStats{Trend: TrendFlat}
	}
	cur, ok := t.Latest()
	if !ok || start.OpenInterestUSD == 0 {
		return OIStats{Trend: TrendFlat}
	}

	changePct := (cur.OpenInterestUSD - start.OpenInterestUSD) / start.OpenInterestUSD * 100
	velocity := changePct / (float64(windowS) / 60)

	trend := TrendFlat
	if abs(changePct) >= t.oiFlatThresholdPct {
		if changePct > 0 {
			trend = TrendUp
		} else {
			trend = TrendDown
		}
	}

	return OIStats{ChangePercent: changePct, Trend: trend, VelocityPctPerMin: velocity}
}

// FundingTrend classifies the latest funding rate's sign vs the flat
// threshold.
func (t *Tracker) FundingTrend() string {
	cur, ok := t.Latest()
	if !ok {
		return TrendFlat
	}
	if abs(cur.Funding) < t.fundingFlatThreshold {
		return TrendFlat
	}
	if cur.Funding > 0 {
		return TrendUp
	}
	return TrendDown
}

// FundingAnnualizedPct is rate*periods_per_day*365*100 (spec.md §4.8 and
// §9's "must become a configuration option").
func (t *Tracker) FundingAnnualizedPct() float64 {
	cur, ok := t.Latest()
	if !ok {
		return 0
	}
	return cur.Funding * t.fundingPeriodsPerDay * 365 * 100
}

// BasisStatus classifies basis% against the spike threshold.
func (t *Tracker) BasisStatus() (basisPct float64, status string) {
	cur, ok := t.Latest()
	if !ok {
		return 0, BasisNormal
	}
	pct, hasOracle := cur.BasisPercent()
	if !hasOracle {
		return 0, BasisNormal
	}
	if pct > t.basisSpikeThresholdPct {
		return pct, BasisPremium
	}
	if pct < -t.basisSpikeThresholdPct {
		return pct, BasisDiscount
	}
	return pct, BasisNormal
}

// MultiTimeframe returns OI stats at 5m and 15m.
func (t *Tracker) MultiTimeframe(nowMs int64) map[string]model.OITimeframe {
	out := make(map[string]model.OITimeframe, 2)
	for key, windowS := range map[string]int64{"5m": 300, "15m": 900} {
		s := t.OITrend(windowS, nowMs)
		out[key] = model.OITimeframe{ChangePercent: s.ChangePercent, Trend: s.Trend, Velocity: s.VelocityPctPerMin}
	}
	return out
}

// ToWire assembles the outbound market_indicators section.
func (t *Tracker) ToWire(nowMs int64) model.MarketIndicators {
	cur, ok := t.Latest()
	if !ok {
		return model.MarketIndicators{Error: "insufficient data"}
	}
	oi := t.OITrend(t.oiWindowS, nowMs)
	basisPct, basisStatus := t.BasisStatus()

	return model.MarketIndicators{
		OI:           cur.OpenInterestUSD,
		OITrend:      oi.Trend,
		OIVelocity:   oi.VelocityPctPerMin,
		FundingRate:  cur.Funding,
		FundingTrend: t.FundingTrend(),
		Basis:        basisPct,
		BasisStatus:  basisStatus,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
