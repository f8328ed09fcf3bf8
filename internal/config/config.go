// Package config loads and validates every tunable named in the analytics
// engine's external interface. It follows the viper + mapstructure pattern:
// defaults are set first, then a config file and environment variables
// (prefix ANALYTICS_) are layered on top, then the result is validated.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session holds session/VWAP tracker tunables.
type Session struct {
	DurationS  int64 `mapstructure:"duration_s"`
	VWAPWindowS int64 `mapstructure:"vwap_window_s"`
}

// TradeFlow holds trade-flow tracker tunables.
type TradeFlow struct {
	DefaultWindowS int64     `mapstructure:"default_window_s"`
	MaxHistoryS    int64     `mapstructure:"max_history_s"`
	BucketSchedule []float64 `mapstructure:"bucket_schedule"`
	SweepThreshold float64   `mapstructure:"sweep_threshold"`
}

// DepthDecay holds depth-decay tracker tunables.
type DepthDecay struct {
	WindowS int64 `mapstructure:"window_s"`
}

// Momentum holds momentum tracker tunables.
type Momentum struct {
	ShortWindowS     int64   `mapstructure:"short_window_s"`
	LongWindowS      int64   `mapstructure:"long_window_s"`
	FlatThresholdPct float64 `mapstructure:"flat_threshold_pct"`
}

// Liquidations holds liquidation detector tunables.
type Liquidations struct {
	LargeTradeThresholdUSD float64 `mapstructure:"large_trade_threshold_usd"`
	CascadeWindowMs        int64   `mapstructure:"cascade_window_ms"`
	CascadeMinCount        int     `mapstructure:"cascade_min_count"`
	MaxHistoryS            int64   `mapstructure:"max_history_s"`
}

// Volatility holds the volatility regime classifier's tunables.
type Volatility struct {
	LowPct        float64 `mapstructure:"low_pct"`
	HighPct       float64 `mapstructure:"high_pct"`
	HistoryWindow int     `mapstructure:"history_window"`
}

// MarketContext holds the market-context tracker's tunables, including the
// open question's annualization-multiplier knob.
type MarketContext struct {
	OIWindowS              int64   `mapstructure:"oi_window_s"`
	OIFlatThresholdPct     float64 `mapstructure:"oi_flat_threshold_pct"`
	FundingFlatThreshold   float64 `mapstructure:"funding_flat_threshold"`
	BasisSpikeThresholdPct float64 `mapstructure:"basis_spike_threshold_pct"`
	MaxHistoryS            int64   `mapstructure:"max_history_s"`
	FundingPeriodsPerDay   float64 `mapstructure:"funding_periods_per_day"`
}

// Regime holds the regime detector's tunables (spec.md §4.10).
type Regime struct {
	TrendThresholdPct       float64 `mapstructure:"trend_threshold_pct"`
	RangeThresholdPct       float64 `mapstructure:"range_threshold_pct"`
	StrongTrendThresholdPct float64 `mapstructure:"strong_trend_threshold_pct"`
	TightSpreadBps          float64 `mapstructure:"tight_spread_bps"`
	WideSpreadBps           float64 `mapstructure:"wide_spread_bps"`
	DeepBookUSD             float64 `mapstructure:"deep_book_usd"`
	ThinBookUSD             float64 `mapstructure:"thin_book_usd"`
	HighLiqCount            int     `mapstructure:"high_liq_count"`
}

// Crowding holds the crowding detector's tunables (spec.md §4.11).
type Crowding struct {
	OIVelocityHighThreshold float64 `mapstructure:"oi_velocity_high_threshold"`
	FundingBullishThreshold float64 `mapstructure:"funding_bullish_threshold"`
	FundingBearishThreshold float64 `mapstructure:"funding_bearish_threshold"`
	BasisRichThreshold      float64 `mapstructure:"basis_rich_threshold"`
	BasisCheapThreshold     float64 `mapstructure:"basis_cheap_threshold"`
	CrowdingThreshold       float64 `mapstructure:"crowding_threshold"`
}

// Slippage holds the slippage estimator's tunables.
type Slippage struct {
	TakerFeeBps  float64   `mapstructure:"taker_fee_bps"`
	TradeSizesUSD []float64 `mapstructure:"trade_sizes_usd"`
}

// Candle holds the candle builder/aggregator's tunables.
type Candle struct {
	HistoryCap int `mapstructure:"history_cap"`
	ATRPeriod  int `mapstructure:"atr_period"`
	RealizedVolPeriod int `mapstructure:"realized_vol_period"`
}

// Engine holds the orchestrator's own tunables.
type Engine struct {
	SnapshotIntervalMs int64 `mapstructure:"snapshot_interval_ms"`
	OrderbookStaleS    int64 `mapstructure:"orderbook_stale_s"`
}

// Store holds the optional durable-snapshot-store tunables.
type Store struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// CrossAsset holds the cross-asset sidecar's tunables.
type CrossAsset struct {
	Enabled       bool     `mapstructure:"enabled"`
	Symbols       []string `mapstructure:"symbols"`
	PollIntervalS int64    `mapstructure:"poll_interval_s"`
	PriceRESTURL  string   `mapstructure:"price_rest_url"`
}

// Ingest holds the transport's connection tunables.
type Ingest struct {
	Coin        string `mapstructure:"coin"`
	WSURL       string `mapstructure:"ws_url"`
	VolumeRESTURL string `mapstructure:"volume_rest_url"`
	VolumePollIntervalS int64 `mapstructure:"volume_poll_interval_s"`
}

// Broadcast holds the outbound fan-out tunables.
type Broadcast struct {
	ListenAddr string `mapstructure:"listen_addr"`
	HistoryLen int    `mapstructure:"history_len"`
}

// Metrics holds the prometheus exporter tunables.
type Metrics struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Config is the root configuration struct: one section per component, per
// design note "Shared OI-trend threshold config — collect them into a
// single configuration struct consumed by each component."
type Config struct {
	Session       Session       `mapstructure:"session"`
	TradeFlow     TradeFlow     `mapstructure:"trade_flow"`
	DepthDecay    DepthDecay    `mapstructure:"depth_decay"`
	Momentum      Momentum      `mapstructure:"momentum"`
	Liquidations  Liquidations  `mapstructure:"liquidations"`
	Volatility    Volatility    `mapstructure:"volatility"`
	MarketContext MarketContext `mapstructure:"market_context"`
	Regime        Regime        `mapstructure:"regime"`
	Crowding      Crowding      `mapstructure:"crowding"`
	Slippage      Slippage      `mapstructure:"slippage"`
	Candle        Candle        `mapstructure:"candle"`
	Engine        Engine        `mapstructure:"engine"`
	Store         Store         `mapstructure:"store"`
	CrossAsset    CrossAsset    `mapstructure:"cross_asset"`
	Ingest        Ingest        `mapstructure:"ingest"`
	Broadcast     Broadcast     `mapstructure:"broadcast"`
	Metrics       Metrics       `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.duration_s", 86400)
	v.SetDefault("session.vwap_window_s", 86400)

	v.SetDefault("trade_flow.default_window_s", 30)
	v.SetDefault("trade_flow.max_history_s", 900)
	v.SetDefault("trade_flow.bucket_schedule", []float64{0, 1000, 5000, 10000, 50000, 250000})
	v.SetDefault("trade_flow.sweep_threshold", 0.65)

	v.SetDefault("depth_decay.window_s", 15)

	v.SetDefault("momentum.short_window_s", 5)
	v.SetDefault("momentum.long_window_s", 20)
	v.SetDefault("momentum.flat_threshold_pct", 0.01)

	v.SetDefault("liquidations.large_trade_threshold_usd", 10000)
	v.SetDefault("liquidations.cascade_window_ms", 5000)
	v.SetDefault("liquidations.cascade_min_count", 5)
	v.SetDefault("liquidations.max_history_s", 900)

	v.SetDefault("volatility.low_pct", 33)
	v.SetDefault("volatility.high_pct", 67)
	v.SetDefault("volatility.history_window", 100)

	v.SetDefault("market_context.oi_window_s", 300)
	v.SetDefault("market_context.oi_flat_threshold_pct", 0.5)
	v.SetDefault("market_context.funding_flat_threshold", 0.0001)
	v.SetDefault("market_context.basis_spike_threshold_pct", 0.1)
	v.SetDefault("market_context.max_history_s", 900)
	v.SetDefault("market_context.funding_periods_per_day", 3.0)

	v.SetDefault("regime.trend_threshold_pct", 0.1)
	v.SetDefault("regime.range_threshold_pct", 0.05)
	v.SetDefault("regime.strong_trend_threshold_pct", 0.5)
	v.SetDefault("regime.tight_spread_bps", 5.0)
	v.SetDefault("regime.wide_spread_bps", 20.0)
	v.SetDefault("regime.deep_book_usd", 100000.0)
	v.SetDefault("regime.thin_book_usd", 20000.0)
	v.SetDefault("regime.high_liq_count", 10)

	v.SetDefault("crowding.oi_velocity_high_threshold", 0.05)
	v.SetDefault("crowding.funding_bullish_threshold", 0.01)
	v.SetDefault("crowding.funding_bearish_threshold", -0.01)
	v.SetDefault("crowding.basis_rich_threshold", 0.1)
	v.SetDefault("crowding.basis_cheap_threshold", -0.1)
	v.SetDefault("crowding.crowding_threshold", 0.6)

	v.SetDefault("slippage.taker_fee_bps", 2.8)
	v.SetDefault("slippage.trade_sizes_usd", []float64{500, 1000, 5000})

	v.SetDefault("candle.history_cap", 500)
	v.SetDefault("candle.atr_period", 14)
	v.SetDefault("candle.realized_vol_period", 20)

	v.SetDefault("engine.snapshot_interval_ms", 1000)
	v.SetDefault("engine.orderbook_stale_s", 5)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "analytics.db")

	v.SetDefault("cross_asset.enabled", false)
	v.SetDefault("cross_asset.symbols", []string{"BTC", "ETH"})
	v.SetDefault("cross_asset.poll_interval_s", 10)
	v.SetDefault("cross_asset.price_rest_url", "")

	v.SetDefault("ingest.coin", "ETH")
	v.SetDefault("ingest.ws_url", "")
	v.SetDefault("ingest.volume_rest_url", "")
	v.SetDefault("ingest.volume_poll_interval_s", 60)

	v.SetDefault("broadcast.listen_addr", ":8090")
	v.SetDefault("broadcast.history_len", 3600)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9090")
}

// Load builds a Config from (in increasing priority) built-in defaults, an
// optional config file at path, and ANALYTICS_-prefixed environment
// variables. path may be empty to skip the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations that would make a component ill-defined.
func (c *Config) Validate() error {
	if c.Session.DurationS <= 0 {
		return fmt.Errorf("session.duration_s must be positive")
	}
	if c.TradeFlow.DefaultWindowS <= 0 || c.TradeFlow.MaxHistoryS <= 0 {
		return fmt.Errorf("trade_flow windows must be positive")
	}
	if len(c.TradeFlow.BucketSchedule) == 0 {
		return fmt.Errorf("trade_flow.bucket_schedule must not be empty")
	}
	if c.Momentum.ShortWindowS <= 0 || c.Momentum.LongWindowS <= 0 {
		return fmt.Errorf("momentum windows must be positive")
	}
	if c.Liquidations.CascadeMinCount <= 0 {
		return fmt.Errorf("liquidations.cascade_min_count must be positive")
	}
	if c.Volatility.HistoryWindow <= 0 {
		return fmt.Errorf("volatility.history_window must be positive")
	}
	if len(c.Slippage.TradeSizesUSD) == 0 {
		return fmt.Errorf("slippage.trade_sizes_usd must not be empty")
	}
	if c.Engine.SnapshotIntervalMs <= 0 {
		return fmt.Errorf("engine.snapshot_interval_ms must be positive")
	}
	return nil
}

// SnapshotInterval is Engine.SnapshotIntervalMs as a time.Duration.
func (e Engine) SnapshotInterval() time.Duration {
	return time.Duration(e.SnapshotIntervalMs) * time.Millisecond
}
