// Package slippage implements the walk-the-book VWAP estimator and
// round-trip cost curve (spec.md §4.1 "Slippage walk"). It is grounded on
// the Python original's slippage_estimator.py (estimate_buy/estimate_sell)
// and orderbook_metrics.py's calculate_liquidity_metrics walk, adapted to
// consume hlflow/internal/orderbook.Book's level queries instead
// of a dataclass tree.
package slippage

import (
	"strconv"

	"hlflow/internal/model"
	"hlflow/internal/orderbook"
)

// Epsilon is the remaining-USD tolerance at which the walk stops (spec.md
// §4.1: "Stop when remaining <= epsilon").
const Epsilon = 0.01

// FeasibleFillRatio is the minimum filled/requested ratio for an estimate
// to be marked feasible.
const FeasibleFillRatio = 0.99

// Estimate is one side's result of walking the book for a requested size.
type Estimate struct {
	RequestedUSD      float64
	FilledUSD         float64
	Qty               float64
	VWAP              float64
	LevelsConsumed    int
	IsFeasible        bool
	SlippageBps       float64 // signed, relative to the best price on that side
	TotalLiquidityUSD float64 // total notional available on that side, across MaxLevels
}

// Walk consumes levels from the top of the book on the given side until
// requestedUSD is filled or the book is exhausted. refPrice is the price
// used as VWAP fallback and as the slippage reference when the book is
// empty.
func Walk(b *orderbook.Book, side model.Side, requestedUSD, refPrice float64) Estimate {
	bookSide := model.SideSell // buying consumes the ask side
	if side == model.SideSell {
		bookSide = model.SideBuy // selling consumes the bid side
	}
	levels := b.TopLevels(bookSide, orderbook.MaxLevels)

	est := Estimate{RequestedUSD: requestedUSD}

	remaining := requestedUSD
	var notionalVWAP, qty float64
	consumed := 0

	for _, lvl := range levels {
		if remaining <= Epsilon {
			break
		}
		levelNotional := lvl.Notional()
		fill := remaining
		if fill > levelNotional {
			fill = levelNotional
		}
		notionalVWAP += fill
		qty += fill / lvl.Price
		remaining -= fill
		consumed++
	}

	est.FilledUSD = requestedUSD - remaining
	est.Qty = qty
	est.LevelsConsumed = consumed
	est.IsFeasible = est.FilledUSD >= FeasibleFillRatio*requestedUSD
	est.TotalLiquidityUSD = b.DepthUSD(bookSide, orderbook.MaxLevels)

	if qty > 0 {
		est.VWAP = notionalVWAP / qty
	} else {
		est.VWAP = refPrice
	}

	best, ok := bestPrice(b, side)
	if !ok {
		best = refPrice
	}
	est.SlippageBps = SignedSlippageBps(side, best, est.VWAP)

	return est
}

func bestPrice(b *orderbook.Book, side model.Side) (float64, bool) {
	if side == model.SideBuy {
		return b.BestAsk() // buying consumes the ask side
	}
	return b.BestBid() // selling consumes the bid side
}

// SignedSlippageBps is the signed distance of vwap from best, in bps,
// oriented so that an unfavorable fill is always positive: buys pay more
// than best (vwap > best -> positive), sells receive less than best
// (vwap < best -> positive).
func SignedSlippageBps(side model.Side, best, vwap float64) float64 {
	if best == 0 {
		return 0
	}
	if side == model.SideBuy {
		return (vwap - best) / best * 10000
	}
	return (best - vwap) / best * 10000
}

// RoundTripCostBps combines spread, one-way slippage, and the round-trip
// taker fee (spec.md §4.1).
func RoundTripCostBps(spreadBps, slippageBps, takerFeeBps float64) float64 {
	return spreadBps + slippageBps + 2*takerFeeBps
}

// ToLeg renders an Estimate into the outbound SlippageLeg shape.
// LiquidityUsedPct is filled notional against the side's total available
// book liquidity (not against RequestedUSD), matching the Python
// original's liquidity_used_pct = total_usd_filled/total_liquidity_usd*100.
func (e Estimate) ToLeg(spreadBps, takerFeeBps float64) model.SlippageLeg {
	liquidityUsed := 100.0
	if e.TotalLiquidityUSD > 0 {
		liquidityUsed = e.FilledUSD / e.TotalLiquidityUSD * 100
	}
	return model.SlippageLeg{
		AvgFillPrice:     e.VWAP,
		SlippageBps:      e.SlippageBps,
		RoundTripCostBps: RoundTripCostBps(spreadBps, e.SlippageBps, takerFeeBps),
		IsFeasible:       e.IsFeasible,
		LiquidityUsedPct: liquidityUsed,
	}
}

// EstimateForSize walks both sides for one size and returns the full
// outbound section, including an empty/infeasible estimate when the book
// is one-sided (spec.md §8 boundary case: "VWAP=best_price").
func EstimateForSize(b *orderbook.Book, sizeUSD, takerFeeBps float64) model.SlippageSize {
	spreadBps, hasSpread := b.SpreadBps()
	mid, _ := b.Mid()

	buy := Walk(b, model.SideBuy, sizeUSD, mid)
	sell := Walk(b, model.SideSell, sizeUSD, mid)

	if !hasSpread {
		spreadBps = 0
	}

	return model.SlippageSize{
		Buy:       buy.ToLeg(spreadBps, takerFeeBps),
		Sell:      sell.ToLeg(spreadBps, takerFeeBps),
		SpreadBps: spreadBps,
		FeeBps:    takerFeeBps,
	}
}

// SizeLabel formats a USD size the way the outbound snapshot keys its
// slippage map ("$500", "$1k", "$5k").
func SizeLabel(sizeUSD float64) string {
	i := int64(sizeUSD)
	if i >= 1000 && i%1000 == 0 {
		return "$" + strconv.FormatInt(i/1000, 10) + "k"
	}
	return "$" + strconv.FormatInt(i, 10)
}
