// Package crowding implements the long/short positioning-crowding score
// (spec.md §4.11), grounded on the Python original's crowding_detector.py
// (CrowdingDetector.detect / _generate_interpretation).
package crowding

import "hlflow/internal/model"

// Thresholds collects the detector's tunables.
type Thresholds struct {
	OIVelocityHighThreshold float64
	FundingBullishThreshold float64
	FundingBearishThreshold float64
	BasisRichThreshold      float64
	BasisCheapThreshold     float64
	CrowdingThreshold       float64
}

// Inputs carries the fused signals the scorer consumes.
type Inputs struct {
	OITrend    string // "up", "down", "flat"
	OIVelocity float64
	Funding    float64
	Basis      float64
}

// Result is the computed crowding scores and flags.
type Result struct {
	LongScore    float64
	ShortScore   float64
	CrowdedLong  bool
	CrowdedShort bool
}

// Detect scores s_long/s_short per spec.md §4.11's additive rules. Both
// flags can be true simultaneously — that is the "mixed signals" case, not
// a bug.
func Detect(in Inputs, th Thresholds) Result {
	var sLong, sShort float64

	if in.OITrend == "up" {
		sLong += 0.3
		sShort += 0.3 // symmetric: OI buildup alone doesn't disambiguate direction
	}
	if abs(in.OIVelocity) > th.OIVelocityHighThreshold {
		sLong += 0.2
		sShort += 0.2
	}

	if in.Funding > th.FundingBullishThreshold {
		sLong += 0.3
		if in.Funding > 2*th.FundingBullishThreshold {
			sLong += 0.1
		}
	}
	if in.Funding < th.FundingBearishThreshold {
		sShort += 0.3
		if in.Funding < 2*th.FundingBearishThreshold {
			sShort += 0.1
		}
	}

	if in.Basis > th.BasisRichThreshold {
		sLong += 0.2
	}
	if in.Basis < th.BasisCheapThreshold {
		sShort += 0.2
	}

	return Result{
		LongScore:    sLong,
		ShortScore:   sShort,
		CrowdedLong:  sLong >= th.CrowdingThreshold,
		CrowdedShort: sShort >= th.CrowdingThreshold,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Interpretation builds the human-readable signal string: mixed signals
// when both sides are crowded, a lean toward whichever side scores
// higher, or balanced when neither crosses threshold.
func Interpretation(r Result) string {
	switch {
	case r.CrowdedLong && r.CrowdedShort:
		return "Mixed signals: both long and short crowding detected"
	case r.CrowdedLong:
		return "Crowded long: positioning skewed bullish"
	case r.CrowdedShort:
		return "Crowded short: positioning skewed bearish"
	case r.LongScore > r.ShortScore:
		return "Lean long"
	case r.ShortScore > r.LongScore:
		return "Lean short"
	default:
		return "Balanced"
	}
}

// ToWire assembles the outbound crowding section.
func (r Result) ToWire() model.Crowding {
	return model.Crowding{
		CrowdedLong:        r.CrowdedLong,
		CrowdedShort:       r.CrowdedShort,
		LongCrowdingScore:  r.LongScore,
		ShortCrowdingScore: r.ShortScore,
		Interpretation:     Interpretation(r),
	}
}
