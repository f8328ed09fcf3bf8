package depthdecay

import "testing"

func TestDecayStatusBands(t *testing.T) {
	t.Parallel()

	tr := New(15)
	tr.OnBookUpdate(1000, 1000, 0)
	tr.OnBookUpdate(800, 1000, 15000) // bid decayed 20%

	res := tr.Get(15000)
	if res.BidStatus != StatusHigh {
		t.Errorf("BidStatus = %q, want %q (20%% decay)", res.BidStatus, StatusHigh)
	}
	if res.AskStatus != StatusOK {
		t.Errorf("AskStatus = %q, want %q (no decay)", res.AskStatus, StatusOK)
	}
}

func TestNoDataReturnsOK(t *testing.T) {
	t.Parallel()

	tr := New(15)
	res := tr.Get(0)
	if res.HasData {
		t.Error("HasData = true on empty tracker")
	}
	if res.BidStatus != StatusOK {
		t.Errorf("BidStatus = %q, want %q", res.BidStatus, StatusOK)
	}
}

func TestInterpretStrongSelling(t *testing.T) {
	t.Parallel()

	r := Result{BidDecayPct: 20}
	if got := Interpret(r, -1); got != "Strong selling pressure" {
		t.Errorf("Interpret = %q, want \"Strong selling pressure\"", got)
	}
}
