// Package orderbook implements the L2 order-book model and its derived
// depth/imbalance/spread metrics (spec.md §4.1). It is grounded on the
// teacher's replace-on-arrival Book (internal/orderbook/book.go in the
// original yoghaf-market-indikator tree) but generalizes the fixed
// Binance-depth-20 array to the spec's arbitrary level count and adds the
// Lk_depth/imbalance-by-level queries the snapshot wire format needs.
package orderbook

import (
	"hlflow/internal/model"
)

// MaxLevels bounds how many levels of a side are kept; deeper levels in an
// inbound event are simply not retained (the depth/imbalance queries never
// need more than 5).
const MaxLevels = 20

// DepthLevels is the number of levels exposed individually in the outbound
// snapshot's bids/asks arrays.
const DepthLevels = 10

// Book holds the latest L2 replacement. It is written only by the engine's
// dispatch goroutine (single-writer); queries are safe to call from the
// same goroutine between updates.
type Book struct {
	coin    string
	timeMs  int64
	bids    []model.OrderBookLevel // descending by price
	asks    []model.OrderBookLevel // ascending by price
	lastMid float64
	hasMid  bool
}

func NewBook() *Book {
	return &Book{}
}

// Update replaces the book wholesale with the new event's levels, capped
// at MaxLevels per side.
func (b *Book) Update(ev model.OrderBookEvent) {
	b.coin = ev.Coin
	b.timeMs = ev.TimeMs

	bids := ev.Bids
	if len(bids) > MaxLevels {
		bids = bids[:MaxLevels]
	}
	asks := ev.Asks
	if len(asks) > MaxLevels {
		asks = asks[:MaxLevels]
	}
	b.bids = append(b.bids[:0], bids...)
	b.asks = append(b.asks[:0], asks...)
}

// TimeMs is the timestamp of the last applied update.
func (b *Book) TimeMs() int64 { return b.timeMs }

// BestBid returns the best bid price and true, or 0/false if empty.
func (b *Book) BestBid() (float64, bool) {
	if len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[0].Price, true
}

// BestAsk returns the best ask price and true, or 0/false if empty.
func (b *Book) BestAsk() (float64, bool) {
	if len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].Price, true
}

// Mid is (best_bid+best_ask)/2 when both sides are non-empty.
func (b *Book) Mid() (float64, bool) {
	bid, ok1 := b.BestBid()
	ask, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// MidChanged reports whether the mid price moved since the last call to
// MidChanged, updating the tracked last-mid as a side effect. The engine
// uses this to decide whether to push a new sample into the momentum and
// session trackers (spec.md §4.12: "if mid changed").
func (b *Book) MidChanged() (mid float64, changed, ok bool) {
	mid, ok = b.Mid()
	if !ok {
		return 0, false, false
	}
	changed = !b.hasMid || mid != b.lastMid
	b.lastMid = mid
	b.hasMid = true
	return mid, changed, true
}

// SpreadBps is (ask-bid)/mid*10000, or 0/false if the book is one-sided.
func (b *Book) SpreadBps() (float64, bool) {
	bid, ok1 := b.BestBid()
	ask, ok2 := b.BestAsk()
	mid, ok3 := b.Mid()
	if !ok1 || !ok2 || !ok3 || mid == 0 {
		return 0, false
	}
	return (ask - bid) / mid * 10000, true
}

// DepthUSD sums the first k levels' notionals on the given side.
func (b *Book) DepthUSD(side model.Side, k int) float64 {
	levels := b.sideLevels(side)
	if k > len(levels) {
		k = len(levels)
	}
	var sum float64
	for i := 0; i < k; i++ {
		sum += levels[i].Notional()
	}
	return sum
}

func (b *Book) sideLevels(side model.Side) []model.OrderBookLevel {
	if side == model.SideBuy {
		return b.bids
	}
	return b.asks
}

// Imbalance is (bid-ask)/(bid+ask) over the first k levels per side, 0
// when both sides are empty at that depth.
func (b *Book) Imbalance(k int) float64 {
	bidUSD := b.DepthUSD(model.SideBuy, k)
	askUSD := b.DepthUSD(model.SideSell, k)
	return Imbalance(bidUSD, askUSD)
}

// Imbalance is the pure (b-a)/(b+a) formula shared by every level-k query;
// swapping bid/ask negates it (law "Imbalance symmetry").
func Imbalance(bidUSD, askUSD float64) float64 {
	sum := bidUSD + askUSD
	if sum <= 0 {
		return 0
	}
	return (bidUSD - askUSD) / sum
}

// TopLevels returns up to n levels of the given side for the outbound
// bids/asks arrays.
func (b *Book) TopLevels(side model.Side, n int) []model.OrderBookLevel {
	levels := b.sideLevels(side)
	if n > len(levels) {
		n = len(levels)
	}
	return levels[:n]
}

// IsEmpty reports whether either side has zero levels.
func (b *Book) IsEmpty() bool {
	return len(b.bids) == 0 || len(b.asks) == 0
}

// Snapshot assembles the outbound orderbook section. Boundary case: an
// empty book yields mid=nil, spread=nil (spec.md §8).
func (b *Book) Snapshot() model.Orderbook {
	out := model.Orderbook{}

	if mid, ok := b.Mid(); ok {
		out.MidPrice = ptr(mid)
	}
	if sp, ok := b.SpreadBps(); ok {
		out.SpreadBps = ptr(sp)
	}
	if bid, ok := b.BestBid(); ok {
		out.BestBid = ptr(bid)
	}
	if ask, ok := b.BestAsk(); ok {
		out.BestAsk = ptr(ask)
	}

	out.L1DepthBid = b.DepthUSD(model.SideBuy, 1)
	out.L2DepthBid = b.DepthUSD(model.SideBuy, 2)
	out.L3DepthBid = b.DepthUSD(model.SideBuy, 3)
	out.L4DepthBid = b.DepthUSD(model.SideBuy, 4)
	out.L5DepthBid = b.DepthUSD(model.SideBuy, 5)
	out.L1DepthAsk = b.DepthUSD(model.SideSell, 1)
	out.L2DepthAsk = b.DepthUSD(model.SideSell, 2)
	out.L3DepthAsk = b.DepthUSD(model.SideSell, 3)
	out.L4DepthAsk = b.DepthUSD(model.SideSell, 4)
	out.L5DepthAsk = b.DepthUSD(model.SideSell, 5)

	out.L1Imbalance = b.Imbalance(1)
	out.L5Imbalance = b.Imbalance(5)

	for _, lvl := range b.TopLevels(model.SideBuy, DepthLevels) {
		out.Bids = append(out.Bids, model.BookLevelOut{Price: lvl.Price, Size: lvl.Size, TotalUSD: lvl.Notional()})
	}
	for _, lvl := range b.TopLevels(model.SideSell, DepthLevels) {
		out.Asks = append(out.Asks, model.BookLevelOut{Price: lvl.Price, Size: lvl.Size, TotalUSD: lvl.Notional()})
	}

	return out
}

// L5BidAskUSD is a convenience accessor used by the depth-decay tracker.
func (b *Book) L5BidAskUSD() (bidUSD, askUSD float64) {
	return b.DepthUSD(model.SideBuy, 5), b.DepthUSD(model.SideSell, 5)
}

func ptr(v float64) *float64 { return &v }
