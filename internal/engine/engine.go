// Package engine implements the analytics engine orchestrator (spec.md
// §4.12): a single consumer goroutine that dispatches normalized events to
// every component tracker and, on a fixed 1 Hz cadence, assembles a
// Snapshot by querying each one. It is grounded on the teacher's
// ProcessTrade hot path (internal/engine/engine.go in the original
// yoghaf-market-indikator tree) — single-writer state, no locks on the
// hot path — generalized from one Binance trade type to the sum-type
// Event protocol and from one candle ladder to the full component set.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"hlflow/internal/candle"
	"hlflow/internal/config"
	"hlflow/internal/crossasset"
	"hlflow/internal/crowding"
	"hlflow/internal/depthdecay"
	"hlflow/internal/liquidation"
	"hlflow/internal/marketctx"
	"hlflow/internal/metrics"
	"hlflow/internal/model"
	"hlflow/internal/momentum"
	"hlflow/internal/orderbook"
	"hlflow/internal/regime"
	"hlflow/internal/session"
	"hlflow/internal/slippage"
	"hlflow/internal/tradeflow"
	"hlflow/internal/volatility"
)

// staleness bounds for system_status, per spec.md §4.12.
const (
	orderbookStaleMs = 5000
	contextStaleMs   = 15000
)

const secondBuckets = 60

// Engine owns every component tracker and is the single writer of
// analytics state (design note "Single-writer dispatch loop"). Dispatch
// and the 1 Hz assembly both run on the goroutine that calls Run, so none
// of the tracker fields below need synchronization; only the published
// Snapshot pointer is shared with other goroutines.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	book        *orderbook.Book
	tradeFlow   *tradeflow.Tracker
	momentum    *momentum.Tracker
	depthDecay  *depthdecay.Tracker
	candles     *candle.Builder
	volatility  *volatility.Tracker
	session     *session.Tracker
	marketCtx   *marketctx.Tracker
	liquidation *liquidation.Tracker
	crossAsset  *crossasset.Sidecar

	regimeTh   regime.Thresholds
	crowdingTh crowding.Thresholds

	startedAtMs int64

	eventCount       int64
	orderbookUpdates int64
	tradeEvents      int64
	contextUpdates   int64

	eventsThisTick int64
	perSecond      [secondBuckets]int64
	secondIdx      int

	lastOrderbookMs int64
	lastContextMs   int64
	lastTradeMs     int64

	latest atomic.Pointer[model.Snapshot]
}

// New builds an Engine with one tracker per component, seeded from cfg.
func New(cfg *config.Config, crossAsset *crossasset.Sidecar, log *slog.Logger, nowMs int64) *Engine {
	return &Engine{
		cfg:         cfg,
		log:         log,
		book:        orderbook.NewBook(),
		tradeFlow:   tradeflow.New(cfg.TradeFlow.MaxHistoryS, cfg.TradeFlow.BucketSchedule, cfg.TradeFlow.SweepThreshold),
		momentum:    momentum.New(cfg.Momentum.ShortWindowS, cfg.Momentum.LongWindowS, cfg.Momentum.FlatThresholdPct),
		depthDecay:  depthdecay.New(cfg.DepthDecay.WindowS),
		candles:     candle.NewBuilder(cfg.Candle.HistoryCap),
		volatility:  volatility.New(cfg.Volatility.HistoryWindow, cfg.Volatility.LowPct, cfg.Volatility.HighPct),
		session:     session.New(cfg.Session.DurationS, cfg.Session.VWAPWindowS),
		marketCtx:   marketctx.New(cfg.MarketContext.MaxHistoryS, cfg.MarketContext.OIWindowS, cfg.MarketContext.OIFlatThresholdPct, cfg.MarketContext.FundingFlatThreshold, cfg.MarketContext.BasisSpikeThresholdPct, cfg.MarketContext.FundingPeriodsPerDay),
		liquidation: liquidation.New(cfg.Liquidations.MaxHistoryS, cfg.Liquidations.LargeTradeThresholdUSD, cfg.Liquidations.CascadeWindowMs, cfg.Liquidations.CascadeMinCount),
		crossAsset:  crossAsset,
		regimeTh: regime.Thresholds{
			TrendThresholdPct:       cfg.Regime.TrendThresholdPct,
			RangeThresholdPct:       cfg.Regime.RangeThresholdPct,
			StrongTrendThresholdPct: cfg.Regime.StrongTrendThresholdPct,
			TightSpreadBps:          cfg.Regime.TightSpreadBps,
			WideSpreadBps:           cfg.Regime.WideSpreadBps,
			DeepBookUSD:             cfg.Regime.DeepBookUSD,
			ThinBookUSD:             cfg.Regime.ThinBookUSD,
			HighLiqCount:            cfg.Regime.HighLiqCount,
		},
		crowdingTh: crowding.Thresholds{
			OIVelocityHighThreshold: cfg.Crowding.OIVelocityHighThreshold,
			FundingBullishThreshold: cfg.Crowding.FundingBullishThreshold,
			FundingBearishThreshold: cfg.Crowding.FundingBearishThreshold,
			BasisRichThreshold:      cfg.Crowding.BasisRichThreshold,
			BasisCheapThreshold:     cfg.Crowding.BasisCheapThreshold,
			CrowdingThreshold:       cfg.Crowding.CrowdingThreshold,
		},
		startedAtMs: nowMs,
	}
}

// Dispatch routes one normalized event into its owning component(s). It
// must only ever be called from the engine's own goroutine.
func (e *Engine) Dispatch(ev model.Event, nowMs int64) {
	e.eventCount++
	e.eventsThisTick++

	switch ev.Kind {
	case model.KindOrderBook:
		metrics.EventsTotal.WithLabelValues("orderbook").Inc()
		e.orderbookUpdates++
		e.book.Update(ev.OrderBook)
		e.lastOrderbookMs = ev.OrderBook.TimeMs
		if mid, changed, ok := e.book.MidChanged(); ok && changed {
			e.momentum.OnMidUpdate(mid, nowMs)
			e.session.OnPriceUpdate(mid, nowMs)
		}
		bidUSD, askUSD := e.book.L5BidAskUSD()
		e.depthDecay.OnBookUpdate(bidUSD, askUSD, nowMs)

	case model.KindTrade:
		metrics.EventsTotal.WithLabelValues("trade").Inc()
		if ev.Trade.Price <= 0 || ev.Trade.Size <= 0 {
			return
		}
		e.tradeEvents++
		e.tradeFlow.AddTrade(ev.Trade)
		e.candles.OnTrade(ev.Trade)
		e.liquidation.OnTrade(ev.Trade)
		e.session.OnTrade(ev.Trade)
		e.lastTradeMs = ev.Trade.TimeMs

	case model.KindContext:
		metrics.EventsTotal.WithLabelValues("context").Inc()
		e.contextUpdates++
		e.marketCtx.OnContext(ev.Context)
		e.lastContextMs = ev.Context.TimeMs

	case model.KindCandle:
		metrics.EventsTotal.WithLabelValues("candle").Inc()
		// external candle feeds are folded into the same builder when the
		// ingest task backfills from a REST endpoint instead of trades.
		e.candles.OnTrade(model.TradeEvent{
			Coin:   ev.Candle.Coin,
			TimeMs: ev.Candle.BucketMs,
			Price:  ev.Candle.Close,
			Size:   ev.Candle.VolumeBase,
		})

	case model.KindVolumeSeed:
		metrics.EventsTotal.WithLabelValues("volume_seed").Inc()
		e.session.SetHyperliquidVolumes(ev.VolumeSeed.Volume24hUSD, ev.VolumeSeed.Volume1hUSD, ev.VolumeSeed.Volume4hUSD)
		e.session.SeedBackfill(ev.VolumeSeed.DayHigh, ev.VolumeSeed.DayLow, ev.VolumeSeed.LastPrice, ev.VolumeSeed.TimeMs)
	}
}

// Run drives the 1 Hz snapshot assembly loop until ctx is cancelled.
// Events arrive on evCh from the ingest task; this goroutine is the sole
// writer of every tracker, matching the teacher's single-writer Book.
func (e *Engine) Run(ctx context.Context, evCh <-chan model.Event) error {
	ticker := time.NewTicker(e.cfg.Engine.SnapshotInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-evCh:
			if !ok {
				return nil
			}
			e.Dispatch(ev, nowMillis())
		case <-ticker.C:
			now := nowMillis()
			e.rollSecond()
			snap := e.assemble(now)
			e.latest.Store(&snap)
		}
	}
}

func (e *Engine) rollSecond() {
	e.perSecond[e.secondIdx] = e.eventsThisTick
	e.eventsThisTick = 0
	e.secondIdx = (e.secondIdx + 1) % secondBuckets
}

func (e *Engine) sumLastSeconds(n int) int64 {
	if n > secondBuckets {
		n = secondBuckets
	}
	var sum int64
	idx := e.secondIdx
	for i := 0; i < n; i++ {
		idx = (idx - 1 + secondBuckets) % secondBuckets
		sum += e.perSecond[idx]
	}
	return sum
}

// Latest returns the most recently assembled snapshot, or false if none
// has been produced yet.
func (e *Engine) Latest() (model.Snapshot, bool) {
	p := e.latest.Load()
	if p == nil {
		return model.Snapshot{}, false
	}
	return *p, true
}

// assemble queries every component and builds the outbound Snapshot.
// Each section with an Error field is isolated behind recoverSection so
// one component's bug cannot blank out the rest of the tick (spec.md §7
// "Per-component error isolation").
func (e *Engine) assemble(nowMs int64) model.Snapshot {
	metrics.SnapshotsTotal.Inc()
	uptimeS := (nowMs - e.startedAtMs) / 1000

	snap := model.Snapshot{
		TimeMs: nowMs,
		Stats: model.Stats{
			Events:               e.eventCount,
			OrderbookUpdates:     e.orderbookUpdates,
			TradeEvents:          e.tradeEvents,
			MarketContextUpdates: e.contextUpdates,
		},
		Rate: model.Rate{
			MessagesPerMinute: e.sumLastSeconds(60),
			MessagesLast10s:   e.sumLastSeconds(10),
			AveragePerMinute:  e.averagePerMinute(uptimeS),
			TotalMessages:     e.eventCount,
			UptimeSeconds:     uptimeS,
		},
	}

	e.recoverSection("orderbook", &snap.Orderbook.Error, func() {
		snap.Orderbook = e.book.Snapshot()
	})

	e.recoverSection("trade_flow", &snap.TradeFlow.Error, func() {
		snap.TradeFlow = e.tradeFlow.GetStats(30, nowMs).ToWireStats()
	})
	snap.TradeFlowMulti = make(map[string]model.TradeFlowStats)
	for tf, st := range e.tradeFlow.MultiTimeframe(nowMs) {
		snap.TradeFlowMulti[tf] = st.ToWireStats()
	}

	e.recoverSection("momentum", &snap.Momentum.Error, func() {
		short := e.momentum.Short(nowMs)
		long := e.momentum.Long(nowMs)
		snap.Momentum = model.Momentum{
			Short:          short.ToWire(),
			Long:           long.ToWire(),
			TrendAlignment: momentum.TrendAlignment(short, long),
		}
	})

	e.recoverSection("depth_decay", &snap.DepthDecay.Error, func() {
		snap.DepthDecay = e.depthDecay.Get(nowMs).ToWire()
	})

	e.recoverSection("liquidations", &snap.Liquidations.Error, func() {
		snap.Liquidations = e.liquidation.Get(60, nowMs).ToWire()
	})
	snap.LiquidationsMulti = make(map[string]model.Liquidations)
	for tf, r := range e.liquidation.MultiTimeframe(nowMs) {
		snap.LiquidationsMulti[tf] = r.ToWire()
	}

	e.recoverSection("market_indicators", &snap.MarketIndicators.Error, func() {
		snap.MarketIndicators = e.marketCtx.ToWire(nowMs)
	})
	snap.OIMulti = e.marketCtx.MultiTimeframe(nowMs)

	candleMetrics1m := candle.ComputeMetrics(e.candles.History1m(), e.cfg.Candle.ATRPeriod, e.cfg.Candle.RealizedVolPeriod)
	candles5m := candle.Aggregate(e.candles.History1m(), 5)
	candleMetrics5m := candle.ComputeMetrics(candles5m, e.cfg.Candle.ATRPeriod, e.cfg.Candle.RealizedVolPeriod)
	e.volatility.Push(candleMetrics1m.ATR, candleMetrics5m.ATR)

	snap.Candles = map[string]model.Candle{
		"1m": candleMetrics1m.ToWire(),
		"5m": candleMetrics5m.ToWire(),
	}

	e.recoverSection("volatility", &snap.Volatility.Error, func() {
		snap.Volatility = e.volatility.ToWire(candleMetrics1m.RealizedVol, candleMetrics5m.RealizedVol)
	})

	e.recoverSection("session_context", &snap.SessionContext.Error, func() {
		snap.SessionContext = e.session.ToWire(nowMs)
	})

	e.recoverSection("regime", &snap.Regime.Error, func() {
		trend := regime.DetectTrend(regime.TrendInputs{
			Ret1m:     candleMetrics1m.ReturnPct,
			Ret5m:     candleMetrics5m.ReturnPct,
			HasRet15m: false,
		}, e.regimeTh)
		l5Bid, l5Ask := e.book.L5BidAskUSD()
		spreadBps, _ := e.book.SpreadBps()
		liquidity := regime.DetectLiquidity(spreadBps, l5Bid, l5Ask, e.regimeTh)
		liq := e.liquidation.Get(60, nowMs)
		volRegime, _ := e.volatility.Classify()
		market := regime.DetectMarket(regime.MarketInputs{
			Trend:     trend.Trend,
			Strength:  trend.Strength,
			VolRegime: volRegime,
			BuyRatio:  e.tradeFlow.GetStats(60, nowMs).BuyRatio,
			LiqCount:  liq.LongCount + liq.ShortCount,
			LongLiq:   liq.LongCount,
			ShortLiq:  liq.ShortCount,
		}, e.regimeTh)
		snap.Regime = regime.ToWire(trend, liquidity, market)
	})

	snap.Slippage = make(map[string]model.SlippageSize, len(e.cfg.Slippage.TradeSizesUSD))
	for _, sz := range e.cfg.Slippage.TradeSizesUSD {
		snap.Slippage[slippage.SizeLabel(sz)] = slippage.EstimateForSize(e.book, sz, e.cfg.Slippage.TakerFeeBps)
	}

	e.recoverSection("crowding", &snap.Crowding.Error, func() {
		oi := e.marketCtx.OITrend(e.cfg.MarketContext.OIWindowS, nowMs)
		basisPct, _ := e.marketCtx.BasisStatus()
		r := crowding.Detect(crowding.Inputs{
			OITrend:    oi.Trend,
			OIVelocity: oi.VelocityPctPerMin,
			Funding:    e.marketCtx.FundingAnnualizedPct(),
			Basis:      basisPct,
		}, e.crowdingTh)
		snap.Crowding = r.ToWire()
	})

	snap.SystemStatus = e.systemStatus(nowMs, snap)

	if e.crossAsset != nil {
		snap.CrossAssetContext = e.crossAsset.Get()
	}

	return snap
}

// recoverSection runs fn, catching a panic and writing it into errField
// instead of letting it take down the whole snapshot assembly.
func (e *Engine) recoverSection(name string, errField *string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("component panicked during snapshot assembly", "component", name, "panic", r)
			metrics.SnapshotErrorsTotal.WithLabelValues(name).Inc()
			*errField = fmt.Sprintf("%v", r)
		}
	}()
	fn()
}

func (e *Engine) averagePerMinute(uptimeS int64) float64 {
	if uptimeS < 60 {
		return float64(e.eventCount)
	}
	return float64(e.eventCount) / (float64(uptimeS) / 60)
}

// systemStatus reports per-module staleness/health, per spec.md §4.12.
func (e *Engine) systemStatus(nowMs int64, snap model.Snapshot) model.SystemStatus {
	obStaleMs := int64(orderbookStaleMs)
	if e.cfg.Engine.OrderbookStaleS > 0 {
		obStaleMs = e.cfg.Engine.OrderbookStaleS * 1000
	}
	obFresh := nowMs-e.lastOrderbookMs < obStaleMs
	ctxFresh := e.lastContextMs == 0 || nowMs-e.lastContextMs < contextStaleMs
	tradesFresh := snap.TradeFlow.TradeCount > 0

	dataQualityOK := obFresh && ctxFresh && snap.Orderbook.Error == "" && snap.MarketIndicators.Error == ""

	if obFresh {
		metrics.FeedConnected.Set(1)
	} else {
		metrics.FeedConnected.Set(0)
	}
	if e.lastOrderbookMs > 0 {
		metrics.OrderbookStaleSeconds.Set(float64(nowMs-e.lastOrderbookMs) / 1000)
	}

	modules := model.ModuleStatuses{
		Orderbook:          model.ModuleHealth{OK: snap.Orderbook.Error == "", Fresh: obFresh},
		Trades:             model.ModuleHealth{OK: snap.TradeFlow.Error == "", Fresh: tradesFresh},
		Liquidations:       model.ModuleHealth{OK: snap.Liquidations.Error == "", Fresh: true},
		MarketIndicators:   model.ModuleHealth{OK: snap.MarketIndicators.Error == "", Fresh: ctxFresh},
		Candles:            model.ModuleHealth{OK: true, Fresh: e.lastTradeMs > 0},
		SessionContext:     model.ModuleHealth{OK: snap.SessionContext.Error == "", Fresh: true},
		HyperliquidVolumes: model.ModuleHealth{OK: true, Fresh: snap.SessionContext.Hyperliquid24hVolumeUSD > 0},
	}

	return model.SystemStatus{
		DataQualityOK: dataQualityOK,
		FeedConnected: obFresh,
		Modules:       modules,
		LastCheck:     nowMs,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
