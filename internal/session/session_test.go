package session

import (
	"math"
	"testing"

	"hlflow/internal/model"
)

func TestSessionResetScenario(t *testing.T) {
	t.Parallel()

	tr := New(60, 86400)
	tr.OnTrade(model.TradeEvent{TimeMs: 0, Price: 100, Size: 1, Side: model.SideBuy})
	tr.OnTrade(model.TradeEvent{TimeMs: 30000, Price: 110, Size: 1, Side: model.SideBuy})
	tr.OnTrade(model.TradeEvent{TimeMs: 60000, Price: 90, Size: 1, Side: model.SideSell})

	if tr.dayHigh != 90 || tr.dayLow != 90 || tr.currentPrice != 90 {
		t.Errorf("after reset: high=%v low=%v cur=%v, want all 90", tr.dayHigh, tr.dayLow, tr.currentPrice)
	}

	vwap := tr.VWAP(60000)
	wantNumer := 100*100.0 + 110*110.0 + 90*90.0
	wantDenom := 100.0 + 110.0 + 90.0
	want := wantNumer / wantDenom
	if math.Abs(vwap-want) > 1e-9 {
		t.Errorf("VWAP() = %v, want %v (queue must survive reset)", vwap, want)
	}
}

func TestRangeInvariant(t *testing.T) {
	t.Parallel()

	tr := New(86400, 86400)
	tr.OnPriceUpdate(100, 0)
	tr.OnPriceUpdate(110, 1000)
	tr.OnPriceUpdate(90, 2000)

	if tr.currentPrice < tr.dayLow || tr.currentPrice > tr.dayHigh {
		t.Errorf("day_low=%v <= current=%v <= day_high=%v violated", tr.dayLow, tr.currentPrice, tr.dayHigh)
	}
}

func TestPctThroughRangeZeroRange(t *testing.T) {
	t.Parallel()

	tr := New(86400, 86400)
	tr.OnPriceUpdate(100, 0)

	if got := tr.PctThroughRange(); got != 50 {
		t.Errorf("PctThroughRange() = %v, want 50 when range is zero", got)
	}
}
