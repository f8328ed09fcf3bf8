package marketctx

import (
	"math"
	"testing"

	"hlflow/internal/model"
)

func TestOITrendVelocity(t *testing.T) {
	t.Parallel()

	tr := New(900, 300, 0.5, 0.0001, 0.1, 3)
	tr.OnContext(model.ContextEvent{TimeMs: 0, OpenInterestUSD: 1_000_000, Funding: 0.0002})
	tr.OnContext(model.ContextEvent{TimeMs: 300_000, OpenInterestUSD: 1_010_000, Funding: 0.0002})

	oi := tr.OITrend(300, 300_000)
	wantChange := (1_010_000.0 - 1_000_000.0) / 1_000_000.0 * 100
	if math.Abs(oi.ChangePercent-wantChange) > 1e-9 {
		t.Errorf("ChangePercent = %v, want %v", oi.ChangePercent, wantChange)
	}
	if oi.Trend != TrendUp {
		t.Errorf("Trend = %q, want up", oi.Trend)
	}
}

func TestBasisStatus(t *testing.T) {
	t.Parallel()

	tr := New(900, 300, 0.5, 0.0001, 0.1, 3)
	tr.OnContext(model.ContextEvent{TimeMs: 0, MarkPx: 101, OraclePx: 100, HasOracle: true})

	pct, status := tr.BasisStatus()
	if status != BasisPremium {
		t.Errorf("status = %q, want Premium", status)
	}
	if math.Abs(pct-1.0) > 1e-9 {
		t.Errorf("basis pct = %v, want 1.0", pct)
	}
}

func TestFundingAnnualized(t *testing.T) {
	t.Parallel()

	tr := New(900, 300, 0.5, 0.0001, 0.1, 3)
	tr.OnContext(model.ContextEvent{TimeMs: 0, Funding: 0.0001})

	got := tr.FundingAnnualizedPct()
	want := 0.0001 * 3 * 365 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("FundingAnnualizedPct() = %v, want %v", got, want)
	}
}
