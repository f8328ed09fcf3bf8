// Package candle implements the 1-minute candle builder, multi-timeframe
// aggregator, and per-timeframe ATR/realized-vol metrics (spec.md §4.5).
// Grounded on the Python original's candle_aggregator.py and volatility.py
// formulas, and on the teacher's "current-candle pointer is a single
// mutable slot distinct from the historical ring" design note.
package candle

import (
	"math"

	"hlflow/internal/model"
)

// OHLCV is one finalized (or in-progress) candle bucket.
type OHLCV struct {
	BucketOpenMs int64
	Open, High, Low, Close float64
	VolumeBase float64
	NTrades    int
}

// bucketMs floors a trade timestamp to its containing 1-minute bucket.
func bucketMs(timeMs int64) int64 {
	return timeMs / 60000 * 60000
}

// Builder maintains the single in-progress 1m candle plus a capped
// history of finalized candles.
type Builder struct {
	current    *OHLCV
	history    []OHLCV
	historyCap int
}

func NewBuilder(historyCap int) *Builder {
	if historyCap <= 0 {
		historyCap = 500
	}
	return &Builder{historyCap: historyCap}
}

// OnTrade updates (or rolls) the current candle. Trades with non-positive
// price or non-positive size are rejected at the engine boundary per
// spec.md §8, not here.
func (b *Builder) OnTrade(ev model.TradeEvent) {
	bucket := bucketMs(ev.TimeMs)

	if b.current == nil || b.current.BucketOpenMs != bucket {
		b.roll(bucket, ev.Price)
	}
	c := b.current
	if ev.Price > c.High {
		c.High = ev.Price
	}
	if ev.Price < c.Low {
		c.Low = ev.Price
	}
	c.Close = ev.Price
	c.VolumeBase += ev.Size
	c.NTrades++
}

func (b *Builder) roll(bucket int64, price float64) {
	if b.current != nil {
		b.history = append(b.history, *b.current)
		if len(b.history) > b.historyCap {
			b.history = b.history[len(b.history)-b.historyCap:]
		}
	}
	b.current = &OHLCV{
		BucketOpenMs: bucket,
		Open:         price,
		High:         price,
		Low:          price,
		Close:        price,
	}
}

// Current returns the in-progress candle and true, or zero/false if no
// trade has arrived yet.
func (b *Builder) Current() (OHLCV, bool) {
	if b.current == nil {
		return OHLCV{}, false
	}
	return *b.current, true
}

// History1m returns finalized 1m candles plus the in-progress one
// appended at the tail, which is what aggregation and metrics operate on
// (the in-progress bucket still contributes to its higher-TF group).
func (b *Builder) History1m() []OHLCV {
	if b.current == nil {
		return b.history
	}
	out := make([]OHLCV, 0, len(b.history)+1)
	out = append(out, b.history...)
	out = append(out, *b.current)
	return out
}

// Aggregate groups 1m candles into groupMinutes-wide buckets keyed by
// floor(bucket_ms/60000/M)*M, per spec.md §4.5.
func Aggregate(oneMin []OHLCV, groupMinutes int64) []OHLCV {
	if len(oneMin) == 0 || groupMinutes <= 0 {
		return nil
	}

	out := make([]OHLCV, 0, len(oneMin)/int(groupMinutes)+1)
	var cur *OHLCV
	var curGroup int64
	haveGroup := false

	for _, c := range oneMin {
		minuteIdx := c.BucketOpenMs / 60000
		group := minuteIdx / groupMinutes * groupMinutes

		if !haveGroup || group != curGroup {
			if cur != nil {
				out = append(out, *cur)
			}
			ts := group * 60000
			nc := OHLCV{BucketOpenMs: ts, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, VolumeBase: c.VolumeBase, NTrades: c.NTrades}
			cur = &nc
			curGroup = group
			haveGroup = true
			continue
		}

		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.VolumeBase += c.VolumeBase
		cur.NTrades += c.NTrades
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

// Metrics are the per-timeframe derived stats that populate the outbound
// candles map.
type Metrics struct {
	ReturnPct   float64
	VolumeVsAvg float64
	ATR         float64
	RealizedVol float64
	Close       float64
	High        float64
	Low         float64
	Volume      float64
}

// ComputeMetrics derives Metrics from the last 100 aggregated candles of a
// timeframe, per spec.md §4.5/§8. candles must be ordered oldest-first.
func ComputeMetrics(candles []OHLCV, atrPeriod, realizedVolPeriod int) Metrics {
	if len(candles) == 0 {
		return Metrics{}
	}
	if len(candles) > 100 {
		candles = candles[len(candles)-100:]
	}

	latest := candles[len(candles)-1]

	var m Metrics
	m.Close = latest.Close
	m.High = latest.High
	m.Low = latest.Low
	m.Volume = latest.VolumeBase

	if latest.Open != 0 {
		m.ReturnPct = (latest.Close - latest.Open) / latest.Open * 100
	}

	var volSum float64
	for _, c := range candles {
		volSum += c.VolumeBase
	}
	meanVol := volSum / float64(len(candles))
	if meanVol > 0 {
		m.VolumeVsAvg = latest.VolumeBase / meanVol
	}

	m.ATR = ATR(candles, atrPeriod)
	m.RealizedVol = RealizedVol(candles, realizedVolPeriod)

	return m
}

// trueRange is TR_i = max(H-L, |H-C_prev|, |L-C_prev|).
func trueRange(cur, prev OHLCV) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR is the simple mean of the last `period` true ranges, or of however
// many are available when fewer than period+1 candles exist. With fewer
// than 2 candles, ATR is 0 (spec.md §8 boundary case).
func ATR(candles []OHLCV, period int) float64 {
	if len(candles) < 2 {
		return 0
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1]))
	}
	if len(trs) > period {
		trs = trs[len(trs)-period:]
	}

	var sum float64
	for _, tr := range trs {
		sum += tr
	}
	return sum / float64(len(trs))
}

// RealizedVol is the sample (Bessel-corrected) std-dev of the last
// `period` per-candle returns.
func RealizedVol(candles []OHLCV, period int) float64 {
	if len(candles) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	if len(returns) > period {
		returns = returns[len(returns)-period:]
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(returns)-1))
}

// ToWire renders Metrics into the outbound model.Candle shape.
func (m Metrics) ToWire() model.Candle {
	return model.Candle{
		ReturnPct:   m.ReturnPct,
		VolumeVsAvg: m.VolumeVsAvg,
		ATR:         m.ATR,
		RealizedVol: m.RealizedVol,
		Close:       m.Close,
		High:        m.High,
		Low:         m.Low,
		Volume:      m.Volume,
	}
}
