package regime

import "testing"

func defaultThresholds() Thresholds {
	return Thresholds{
		TrendThresholdPct:       0.1,
		RangeThresholdPct:       0.05,
		StrongTrendThresholdPct: 0.5,
		TightSpreadBps:          5,
		WideSpreadBps:           20,
		DeepBookUSD:             100000,
		ThinBookUSD:             20000,
		HighLiqCount:            10,
	}
}

func TestShortSqueezeScenario(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	trend := DetectTrend(TrendInputs{Ret1m: 0.4, Ret5m: 0.7, Ret15m: 1.1, HasRet15m: true}, th)
	if trend.Trend != TrendUp {
		t.Fatalf("trend = %q, want up", trend.Trend)
	}
	if trend.Strength <= 0.6 {
		t.Fatalf("strength = %v, want > 0.6", trend.Strength)
	}

	market := DetectMarket(MarketInputs{
		Trend:    trend.Trend,
		Strength: trend.Strength,
		BuyRatio: 0.8,
		LiqCount: 12,
		LongLiq:  3,
		ShortLiq: 9,
	}, th)
	if market != MarketShortSqueeze {
		t.Errorf("market = %q, want short_squeeze", market)
	}
}

func TestLiquidityRegimes(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	if got := DetectLiquidity(3, 120000, 120000, th); got != LiquidityHigh {
		t.Errorf("tight+deep = %q, want high", got)
	}
	if got := DetectLiquidity(25, 60000, 60000, th); got != LiquidityThin {
		t.Errorf("wide spread = %q, want thin", got)
	}
	if got := DetectLiquidity(10, 50000, 50000, th); got != LiquidityNormal {
		t.Errorf("middling = %q, want normal", got)
	}
}

func TestMarketRegimeOrderedRules(t *testing.T) {
	t.Parallel()

	th := defaultThresholds()
	// liq_count high but no directional skew -> liquidation_event, not chop/normal
	got := DetectMarket(MarketInputs{Trend: TrendRange, LiqCount: 11, LongLiq: 5, ShortLiq: 5}, th)
	if got != MarketLiquidationEvent {
		t.Errorf("market = %q, want liquidation_event", got)
	}
}
