package model

// Snapshot is the flat record emitted at 1 Hz to every downstream consumer.
// Field names and nesting match the outbound wire contract exactly; a
// component that cannot produce a value for this tick leaves its section's
// Error field set instead of omitting the section (design note
// "Per-component error isolation").

type Stats struct {
	Events               int64 `json:"events"`
	OrderbookUpdates     int64 `json:"orderbook_updates"`
	TradeEvents          int64 `json:"trade_events"`
	MarketContextUpdates int64 `json:"market_context_updates"`
}

type Rate struct {
	MessagesPerMinute int64   `json:"messages_per_minute"`
	MessagesLast10s   int64   `json:"messages_last_10s"`
	AveragePerMinute  float64 `json:"average_per_minute"`
	TotalMessages     int64   `json:"total_messages"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
}

type BookLevelOut struct {
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
	TotalUSD float64 `json:"total_usd"`
}

type Orderbook struct {
	Error string `json:"error,omitempty"`

	MidPrice  *float64 `json:"mid_price"`
	SpreadBps *float64 `json:"spread_bps"`
	BestBid   *float64 `json:"best_bid"`
	BestAsk   *float64 `json:"best_ask"`

	L1DepthBid float64 `json:"l1_depth_bid"`
	L2DepthBid float64 `json:"l2_depth_bid"`
	L3DepthBid float64 `json:"l3_depth_bid"`
	L4DepthBid float64 `json:"l4_depth_bid"`
	L5DepthBid float64 `json:"l5_depth_bid"`
	L1DepthAsk float64 `json:"l1_depth_ask"`
	L2DepthAsk float64 `json:"l2_depth_ask"`
	L3DepthAsk float64 `json:"l3_depth_ask"`
	L4DepthAsk float64 `json:"l4_depth_ask"`
	L5DepthAsk float64 `json:"l5_depth_ask"`

	L1Imbalance float64 `json:"l1_imbalance"`
	L5Imbalance float64 `json:"l5_imbalance"`

	Bids []BookLevelOut `json:"bids"`
	Asks []BookLevelOut `json:"asks"`
}

type TradeFlowStats struct {
	Error string `json:"error,omitempty"`

	TradeCount     int     `json:"trade_count"`
	TotalVolume    float64 `json:"total_volume"`
	BuyVolume      float64 `json:"buy_volume"`
	SellVolume     float64 `json:"sell_volume"`
	BuyRatio       float64 `json:"buy_ratio"`
	SellRatio      float64 `json:"sell_ratio"`
	SweepDirection string  `json:"sweep_direction"`
	Largest        float64 `json:"largest"`
	Median         float64 `json:"median"`
	Average        float64 `json:"average"`
}

type MomentumLeg struct {
	Direction     string  `json:"direction"`
	ChangePercent float64 `json:"change_percent"`
	IsUsable      bool    `json:"is_usable"`
}

type Momentum struct {
	Error          string      `json:"error,omitempty"`
	Short          MomentumLeg `json:"short"`
	Long           MomentumLeg `json:"long"`
	TrendAlignment string      `json:"trend_alignment"`
}

type DepthDecay struct {
	Error string `json:"error,omitempty"`

	BidDecayPercent float64 `json:"bid_decay_percent"`
	AskDecayPercent float64 `json:"ask_decay_percent"`
	BidStatus       string  `json:"bid_status"`
	AskStatus       string  `json:"ask_status"`
}

type Liquidations struct {
	Error string `json:"error,omitempty"`

	Status            string  `json:"status"`
	LongLiquidations  int     `json:"long_liquidations"`
	ShortLiquidations int     `json:"short_liquidations"`
	TotalLongVolume   float64 `json:"total_long_volume"`
	TotalShortVolume  float64 `json:"total_short_volume"`
}

type MarketIndicators struct {
	Error string `json:"error,omitempty"`

	OI           float64 `json:"oi"`
	OITrend      string  `json:"oi_trend"`
	OIVelocity   float64 `json:"oi_velocity"`
	FundingRate  float64 `json:"funding_rate"`
	FundingTrend string  `json:"funding_trend"`
	Basis        float64 `json:"basis"`
	BasisStatus  string  `json:"basis_status"`
}

type OITimeframe struct {
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"`
	Velocity      float64 `json:"velocity"`
}

type Candle struct {
	ReturnPct   float64 `json:"return_pct"`
	VolumeVsAvg float64 `json:"volume_vs_avg"`
	ATR         float64 `json:"atr"`
	RealizedVol float64 `json:"realized_vol"`
	Close       float64 `json:"close"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Volume      float64 `json:"volume"`
}

type Volatility struct {
	Error string `json:"error,omitempty"`

	ATR1m         float64 `json:"atr_1m"`
	ATR5m         float64 `json:"atr_5m"`
	RealizedVol1m float64 `json:"realized_vol_1m"`
	RealizedVol5m float64 `json:"realized_vol_5m"`
	Regime        string  `json:"regime"`
	Percentile    float64 `json:"percentile"`
}

type SessionContext struct {
	Error string `json:"error,omitempty"`

	DailyHigh    float64 `json:"daily_high"`
	DailyLow     float64 `json:"daily_low"`
	CurrentPrice float64 `json:"current_price"`

	PctFromLow      float64 `json:"pct_from_low"`
	PctFromHigh     float64 `json:"pct_from_high"`
	PctThroughRange float64 `json:"pct_through_range"`

	SessionVWAP         float64 `json:"session_vwap"`
	DistanceFromVWAPBps float64 `json:"distance_from_vwap_bps"`

	SessionVolumeUSD float64 `json:"session_volume_usd"`
	Last1hVolumeUSD  float64 `json:"last_1h_volume_usd"`
	Last4hVolumeUSD  float64 `json:"last_4h_volume_usd"`

	Hyperliquid24hVolumeUSD float64 `json:"hyperliquid_24h_volume_usd"`
	Hyperliquid1hVolumeUSD  float64 `json:"hyperliquid_1h_volume_usd"`
	Hyperliquid4hVolumeUSD  float64 `json:"hyperliquid_4h_volume_usd"`

	SessionDurationHours float64 `json:"session_duration_hours"`
}

type Regime struct {
	Error string `json:"error,omitempty"`

	TrendRegime     string  `json:"trend_regime"`
	TrendStrength   float64 `json:"trend_strength"`
	LiquidityRegime string  `json:"liquidity_regime"`
	MarketRegime    string  `json:"market_regime"`
}

type SlippageLeg struct {
	AvgFillPrice     float64 `json:"avg_fill_price"`
	SlippageBps      float64 `json:"slippage_bps"`
	RoundTripCostBps float64 `json:"round_trip_cost_bps"`
	IsFeasible       bool    `json:"is_feasible"`
	LiquidityUsedPct float64 `json:"liquidity_used_pct"`
}

type SlippageSize struct {
	Buy       SlippageLeg `json:"buy"`
	Sell      SlippageLeg `json:"sell"`
	SpreadBps float64     `json:"spread_bps"`
	FeeBps    float64     `json:"fee_bps"`
}

type Crowding struct {
	Error string `json:"error,omitempty"`

	CrowdedLong        bool    `json:"crowded_long"`
	CrowdedShort       bool    `json:"crowded_short"`
	LongCrowdingScore  float64 `json:"long_crowding_score"`
	ShortCrowdingScore float64 `json:"short_crowding_score"`
	Interpretation     string  `json:"interpretation"`
}

type ModuleHealth struct {
	OK    bool `json:"ok"`
	Fresh bool `json:"fresh"`
}

type ModuleStatuses struct {
	Orderbook          ModuleHealth `json:"orderbook"`
	Trades             ModuleHealth `json:"trades"`
	Liquidations       ModuleHealth `json:"liquidations"`
	MarketIndicators   ModuleHealth `json:"market_indicators"`
	Candles            ModuleHealth `json:"candles"`
	SessionContext     ModuleHealth `json:"session_context"`
	HyperliquidVolumes ModuleHealth `json:"hyperliquid_volumes"`
}

type SystemStatus struct {
	DataQualityOK bool           `json:"data_quality_ok"`
	FeedConnected bool           `json:"feed_connected"`
	Modules       ModuleStatuses `json:"modules"`
	LastCheck     int64          `json:"last_check"`
}

type AssetContext struct {
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

type CrossAssetContext struct {
	Assets          map[string]AssetContext `json:"assets"`
	MarketSentiment string                  `json:"market_sentiment"`
}

// Snapshot is the complete per-second record.
type Snapshot struct {
	TimeMs int64 `json:"-"`

	Stats Stats `json:"stats"`
	Rate  Rate  `json:"rate"`

	Orderbook Orderbook `json:"orderbook"`

	TradeFlow      TradeFlowStats            `json:"trade_flow"`
	TradeFlowMulti map[string]TradeFlowStats `json:"trade_flow_multi"`

	Momentum Momentum `json:"momentum"`

	DepthDecay DepthDecay `json:"depth_decay"`

	Liquidations      Liquidations            `json:"liquidations"`
	LiquidationsMulti map[string]Liquidations `json:"liquidations_multi"`

	MarketIndicators MarketIndicators       `json:"market_indicators"`
	OIMulti          map[string]OITimeframe `json:"oi_multi"`

	Candles map[string]Candle `json:"candles"`

	Volatility Volatility `json:"volatility"`

	SessionContext SessionContext `json:"session_context"`

	Regime Regime `json:"regime"`

	Slippage map[string]SlippageSize `json:"slippage"`

	Crowding Crowding `json:"crowding"`

	SystemStatus SystemStatus `json:"system_status"`

	CrossAssetContext CrossAssetContext `json:"cross_asset_context"`
}
