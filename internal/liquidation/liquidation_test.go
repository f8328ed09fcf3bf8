package liquidation

import (
	"math"
	"testing"

	"hlflow/internal/model"
)

func TestCascadeScenario(t *testing.T) {
	t.Parallel()

	tr := New(900, 10000, 5000, 5)
	for i := 0; i < 5; i++ {
		tr.OnTrade(model.TradeEvent{TimeMs: int64(i) * 800, Price: 1, Size: 3000, Side: model.SideSell})
	}

	res := tr.Get(5, 3200)
	if res.LongCount != 1 {
		t.Fatalf("LongCount = %d, want 1", res.LongCount)
	}
	if math.Abs(res.TotalLongVolume-15000) > 1e-9 {
		t.Errorf("TotalLongVolume = %v, want 15000", res.TotalLongVolume)
	}

	// A subsequent single large sell emits a separate large-trade event.
	tr.OnTrade(model.TradeEvent{TimeMs: 10000, Price: 1, Size: 50000, Side: model.SideSell})
	res2 := tr.Get(900, 10000)
	if res2.LongCount != 2 {
		t.Fatalf("LongCount after large trade = %d, want 2", res2.LongCount)
	}
}

func TestLargeTradeConfidence(t *testing.T) {
	t.Parallel()

	tr := New(900, 10000, 5000, 5)
	tr.OnTrade(model.TradeEvent{TimeMs: 0, Price: 1, Size: 50000, Side: model.SideSell})

	// confidence clamps to 1.0 at notional=50000=5*threshold
	events := tr.history.All()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", events[0].confidence)
	}
}

func TestStatusBands(t *testing.T) {
	t.Parallel()

	if got := statusFor(0); got != StatusNormal {
		t.Errorf("statusFor(0) = %q, want Normal", got)
	}
	if got := statusFor(3); got != StatusElevated {
		t.Errorf("statusFor(3) = %q, want Elevated", got)
	}
	if got := statusFor(10); got != StatusHigh {
		t.Errorf("statusFor(10) = %q, want High", got)
	}
}
