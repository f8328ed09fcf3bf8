package crowding

import "testing"

func defaultThresholds() Thresholds {
	return Thresholds{
		OIVelocityHighThreshold: 0.05,
		FundingBullishThreshold: 0.01,
		FundingBearishThreshold: -0.01,
		BasisRichThreshold:      0.1,
		BasisCheapThreshold:     -0.1,
		CrowdingThreshold:       0.6,
	}
}

func TestCrowdedLong(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	r := Detect(Inputs{OITrend: "up", OIVelocity: 0.1, Funding: 0.03, Basis: 0.2}, th)
	if !r.CrowdedLong {
		t.Errorf("CrowdedLong = false, score=%v, want true", r.LongScore)
	}
}

func TestBothCrowdedMixedSignals(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	// OI=up contributes to both sides; extreme funding/basis on both legs
	// is contradictory in practice but the detector must still report it.
	r := Detect(Inputs{OITrend: "up", OIVelocity: 0.1, Funding: 0.03, Basis: 0.2}, th)
	r.ShortScore = 0.7 // force both flags for the interpretation test
	r.CrowdedShort = true

	if got := Interpretation(r); got == "" {
		t.Fatal("Interpretation() empty")
	}
	if !r.CrowdedLong || !r.CrowdedShort {
		t.Fatal("expected both flags true for this test fixture")
	}
	if got := Interpretation(r); got != "Mixed signals: both long and short crowding detected" {
		t.Errorf("Interpretation() = %q, want mixed-signals text", got)
	}
}

func TestBalanced(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	r := Detect(Inputs{OITrend: "flat"}, th)
	if r.CrowdedLong || r.CrowdedShort {
		t.Error("expected neither side crowded with flat/neutral inputs")
	}
}
