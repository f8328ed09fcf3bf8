// Package model holds the normalized event and snapshot types shared by
// every analytics component. The inbound side models the wire protocol as
// an exhaustive sum type (design note "Tagged event variants"); the
// outbound side mirrors the stable snapshot field names line for line.
package model

// Side is the taker side of a trade, as reported by the exchange.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// SideFromWire maps the exchange's "B"/"A" tag onto Side. Anything other
// than "B" is treated as a sell/ask-side taker, matching the wire contract
// ("internal side buy iff \"B\"").
func SideFromWire(tag string) Side {
	if tag == "B" {
		return SideBuy
	}
	return SideSell
}

// OrderBookLevel is one price level of an L2 side. Count defaults to 0 when
// the wire event omits it.
type OrderBookLevel struct {
	Price float64
	Size  float64
	Count int
}

// Notional is price*size for the level.
func (l OrderBookLevel) Notional() float64 {
	return l.Price * l.Size
}

// OrderBookEvent is a full-depth L2 replacement: the top N levels per side,
// asks ascending, bids descending.
type OrderBookEvent struct {
	Coin   string
	TimeMs int64
	Bids   []OrderBookLevel
	Asks   []OrderBookLevel
}

// TradeEvent is one public trade print.
type TradeEvent struct {
	Coin   string
	TimeMs int64
	TID    int64
	Price  float64
	Size   float64
	Side   Side
}

// Notional is price*size for the trade.
func (t TradeEvent) Notional() float64 {
	return t.Price * t.Size
}

// ContextEvent is a per-asset context update (mark/oracle/funding/OI).
type ContextEvent struct {
	Coin        string
	TimeMs      int64
	MarkPx      float64
	OraclePx    float64
	HasOracle   bool
	Funding     float64
	OpenInterestUSD float64
}

// BasisPercent returns (mark-oracle)/oracle*100, and false when no oracle
// price was supplied on this event.
func (c ContextEvent) BasisPercent() (float64, bool) {
	if !c.HasOracle || c.OraclePx == 0 {
		return 0, false
	}
	return (c.MarkPx - c.OraclePx) / c.OraclePx * 100, true
}

// CandleEvent optionally seeds the 1m candle builder externally instead of
// building it from the trade stream.
type CandleEvent struct {
	Coin       string
	BucketMs   int64
	Open, High, Low, Close float64
	VolumeBase float64
	NTrades    int
}

// VolumeSeedEvent carries the REST volume/range backfill poller's result
// into the engine's single-writer loop instead of letting that poller's
// goroutine touch session-tracker state directly.
type VolumeSeedEvent struct {
	TimeMs               int64
	Volume24hUSD         float64
	Volume1hUSD          float64
	Volume4hUSD          float64
	DayHigh, DayLow      float64
	LastPrice            float64
}

// Kind tags which variant an Event carries.
type Kind int

const (
	KindOrderBook Kind = iota
	KindTrade
	KindContext
	KindCandle
	KindVolumeSeed
)

// Event is the inbound sum type the ingest task pushes onto the engine's
// channel. Exactly one of the typed fields is populated, selected by Kind.
type Event struct {
	Kind       Kind
	OrderBook  OrderBookEvent
	Trade      TradeEvent
	Context    ContextEvent
	Candle     CandleEvent
	VolumeSeed VolumeSeedEvent
}
