package slippage

import (
	"math"
	"testing"

	"hlflow/internal/model"
	"hlflow/internal/orderbook"
)

func bookWithDepth() *orderbook.Book {
	b := orderbook.NewBook()
	b.Update(model.OrderBookEvent{
		Bids: []model.OrderBookLevel{
			{Price: 100.0, Size: 2},
			{Price: 99.9, Size: 3},
			{Price: 99.8, Size: 5},
		},
		Asks: []model.OrderBookLevel{
			{Price: 100.1, Size: 2},
			{Price: 100.2, Size: 3},
			{Price: 100.3, Size: 5},
		},
	})
	return b
}

func TestWalkConservation(t *testing.T) {
	t.Parallel()

	b := bookWithDepth()
	est := Walk(b, model.SideBuy, 150, 100.15)

	if !est.IsFeasible {
		t.Fatalf("est.IsFeasible = false, want true (total ask notional = %v)", b.DepthUSD(model.SideSell, 3))
	}
	if math.Abs(est.FilledUSD-150) > 1e-9 {
		t.Errorf("FilledUSD = %v, want 150", est.FilledUSD)
	}
	if math.Abs(est.Qty*est.VWAP-est.FilledUSD) > 1e-6 {
		t.Errorf("qty*vwap = %v, want %v (conservation law)", est.Qty*est.VWAP, est.FilledUSD)
	}
}

func TestWalkInfeasibleWhenBookThin(t *testing.T) {
	t.Parallel()

	b := bookWithDepth()
	total := b.DepthUSD(model.SideSell, orderbook.MaxLevels)
	est := Walk(b, model.SideBuy, total*10, 100.15)

	if est.IsFeasible {
		t.Fatal("est.IsFeasible = true, want false when requesting far more than available")
	}
	if math.Abs(est.FilledUSD-total) > 1e-6 {
		t.Errorf("FilledUSD = %v, want %v (entire book consumed)", est.FilledUSD, total)
	}
}

func TestWalkEmptyBookBoundary(t *testing.T) {
	t.Parallel()

	b := orderbook.NewBook()
	est := Walk(b, model.SideBuy, 500, 100)

	if est.IsFeasible {
		t.Error("empty book: IsFeasible = true, want false")
	}
	if est.VWAP != 100 {
		t.Errorf("empty book: VWAP = %v, want refPrice 100", est.VWAP)
	}
}

func TestRoundTripCostBps(t *testing.T) {
	t.Parallel()

	got := RoundTripCostBps(10, 5, 2.8)
	want := 10 + 5 + 2*2.8
	if got != want {
		t.Errorf("RoundTripCostBps = %v, want %v", got, want)
	}
}

func TestToLegLiquidityUsedPctAgainstTotalBookDepth(t *testing.T) {
	t.Parallel()

	b := bookWithDepth()
	totalAsk := b.DepthUSD(model.SideSell, orderbook.MaxLevels)
	est := Walk(b, model.SideBuy, 150, 100.15)
	leg := est.ToLeg(10, 2.8)

	want := 150 / totalAsk * 100
	if math.Abs(leg.LiquidityUsedPct-want) > 1e-9 {
		t.Errorf("LiquidityUsedPct = %v, want %v (filled vs total side depth, not vs requested)", leg.LiquidityUsedPct, want)
	}
	if math.Abs(leg.LiquidityUsedPct-100) < 1e-9 {
		t.Error("LiquidityUsedPct should not be ~100%% for a partial fill of a deep book")
	}
}

func TestToLegLiquidityUsedPctEmptyBook(t *testing.T) {
	t.Parallel()

	b := orderbook.NewBook()
	est := Walk(b, model.SideBuy, 500, 100)
	leg := est.ToLeg(0, 2.8)

	if leg.LiquidityUsedPct != 100 {
		t.Errorf("LiquidityUsedPct = %v, want 100 when the side has no liquidity at all", leg.LiquidityUsedPct)
	}
}

func TestSizeLabel(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{500: "$500", 1000: "$1k", 5000: "$5k"}
	for size, want := range cases {
		if got := SizeLabel(size); got != want {
			t.Errorf("SizeLabel(%v) = %q, want %q", size, got, want)
		}
	}
}
