package momentum

import "testing"

func TestDirectionClassification(t *testing.T) {
	t.Parallel()

	tr := New(5, 20, 0.01)
	tr.OnMidUpdate(100, 0)
	tr.OnMidUpdate(110, 5000)

	leg := tr.Get(5, 5000)
	if leg.Direction != "up" {
		t.Errorf("Direction = %q, want \"up\"", leg.Direction)
	}
	if !leg.IsUsable {
		t.Error("IsUsable = false, want true (span covers full window)")
	}
}

func TestFlatWithinThreshold(t *testing.T) {
	t.Parallel()

	tr := New(5, 20, 0.01)
	tr.OnMidUpdate(100, 0)
	tr.OnMidUpdate(100.001, 5000)

	leg := tr.Get(5, 5000)
	if leg.Direction != "flat" {
		t.Errorf("Direction = %q, want \"flat\"", leg.Direction)
	}
}

func TestIsUsableFalseOnSparseData(t *testing.T) {
	t.Parallel()

	tr := New(5, 20, 0.01)
	tr.OnMidUpdate(100, 0)
	tr.OnMidUpdate(101, 1000) // only 1s of a 5s window covered

	leg := tr.Get(5, 1000)
	if leg.IsUsable {
		t.Error("IsUsable = true, want false (span < 50% of window)")
	}
}

func TestTrendAlignment(t *testing.T) {
	t.Parallel()

	up := Leg{Direction: "up"}
	down := Leg{Direction: "down"}

	if got := TrendAlignment(up, up); got != "bullish" {
		t.Errorf("TrendAlignment(up,up) = %q, want bullish", got)
	}
	if got := TrendAlignment(down, up); got != "reversal_down" {
		t.Errorf("TrendAlignment(down,up) = %q, want reversal_down", got)
	}
}
