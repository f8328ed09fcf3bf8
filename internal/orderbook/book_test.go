package orderbook

import (
	"math"
	"testing"

	"hlflow/internal/model"
)

func TestSpreadAndMidScenario(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Update(model.OrderBookEvent{
		Coin:   "ETH",
		TimeMs: 1000,
		Bids: []model.OrderBookLevel{
			{Price: 100.0, Size: 1},
			{Price: 99.9, Size: 2},
		},
		Asks: []model.OrderBookLevel{
			{Price: 100.1, Size: 1},
			{Price: 100.2, Size: 2},
		},
	})

	mid, ok := b.Mid()
	if !ok || mid != 100.05 {
		t.Fatalf("Mid() = %v, %v, want 100.05, true", mid, ok)
	}

	spread, ok := b.SpreadBps()
	if !ok {
		t.Fatal("SpreadBps() ok=false")
	}
	wantSpread := (100.1 - 100.0) / 100.05 * 10000 // ~9.995
	if math.Abs(spread-wantSpread) > 1e-6 {
		t.Errorf("SpreadBps() = %v, want %v", spread, wantSpread)
	}

	// Imbalance is over USD notional: 100.0*1 vs 100.1*1, so slightly negative.
	imb := b.Imbalance(1)
	wantImb := (100.0 - 100.1) / (100.0 + 100.1)
	if math.Abs(imb-wantImb) > 1e-12 {
		t.Errorf("Imbalance(1) = %v, want %v", imb, wantImb)
	}
}

func TestEmptyBookBoundary(t *testing.T) {
	t.Parallel()

	b := NewBook()
	if _, ok := b.Mid(); ok {
		t.Error("Mid() ok=true on empty book")
	}
	snap := b.Snapshot()
	if snap.MidPrice != nil {
		t.Error("Snapshot().MidPrice != nil on empty book")
	}
	if snap.SpreadBps != nil {
		t.Error("Snapshot().SpreadBps != nil on empty book")
	}
}

func TestImbalanceSymmetry(t *testing.T) {
	t.Parallel()

	if Imbalance(100, 50) != -Imbalance(50, 100) {
		t.Error("Imbalance(100,50) != -Imbalance(50,100)")
	}
	if Imbalance(0, 0) != 0 {
		t.Error("Imbalance(0,0) != 0")
	}
}

func TestOrderbookInvariants(t *testing.T) {
	t.Parallel()

	b := NewBook()
	b.Update(model.OrderBookEvent{
		Bids: []model.OrderBookLevel{{Price: 10, Size: 1}, {Price: 9, Size: 1}},
		Asks: []model.OrderBookLevel{{Price: 11, Size: 1}, {Price: 12, Size: 1}},
	})
	spread, _ := b.SpreadBps()
	if spread < 0 {
		t.Errorf("spread_bps = %v, want >= 0", spread)
	}
	if b.Imbalance(5) < -1 || b.Imbalance(5) > 1 {
		t.Errorf("l5_imbalance = %v, want in [-1,1]", b.Imbalance(5))
	}
}
