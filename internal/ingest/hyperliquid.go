// Package ingest connects to the exchange's public WebSocket feed and
// normalizes every inbound message into a model.Event pushed onto a
// channel the engine consumes. It is grounded on the teacher's
// reconnect-with-backoff WebSocket loop (internal/ingest/ingest.go and
// depth.go in the original yoghaf-market-indikator tree), generalized
// from two single-purpose Binance streams to one combined subscription
// covering l2Book, trades, and activeAssetCtx for a single coin.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"hlflow/internal/metrics"
	"hlflow/internal/model"
)

const (
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
	pingInterval      = 50 * time.Second
)

// subscribeMsg matches the exchange's WS subscription request envelope.
type subscribeMsg struct {
	Method       string          `json:"method"`
	Subscription subscriptionReq `json:"subscription"`
}

type subscriptionReq struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

// wireEnvelope is the outer shape of every inbound WS message.
type wireEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wireL2Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type wireL2Book struct {
	Coin   string            `json:"coin"`
	Time   int64             `json:"time"`
	Levels [][]wireL2Level   `json:"levels"` // [0]=bids, [1]=asks
}

type wireTrade struct {
	Coin  string `json:"coin"`
	Side  string `json:"side"`
	Px    string `json:"px"`
	Sz    string `json:"sz"`
	Time  int64  `json:"time"`
	Tid   int64  `json:"tid"`
}

type wireAssetCtx struct {
	Coin     string `json:"coin"`
	MarkPx   string `json:"markPx"`
	OraclePx string `json:"oraclePx"`
	Funding  string `json:"funding"`
	OpenInterest string `json:"openInterest"`
}

// WSIngester subscribes to one coin's l2Book/trades/activeAssetCtx
// channels and normalizes every message onto Events.
type WSIngester struct {
	url    string
	coin   string
	events chan<- model.Event
	log    *slog.Logger
}

func NewWSIngester(url, coin string, events chan<- model.Event, log *slog.Logger) *WSIngester {
	return &WSIngester{url: url, coin: coin, events: events, log: log}
}

// Run drives the reconnect-with-backoff loop until ctx is cancelled,
// matching the teacher's ingest.go/depth.go loop() shape.
func (w *WSIngester) Run(ctx context.Context) error {
	delay := reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := w.connectAndConsume(ctx)
		if err != nil {
			metrics.IngestReconnectsTotal.Inc()
			w.log.Warn("ws ingest disconnected, reconnecting", "error", err, "delay", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
		} else {
			delay = reconnectDelay
		}
	}
}

func (w *WSIngester) connectAndConsume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("ingest: dial: %w", err)
	}
	defer conn.Close()

	w.log.Info("ws ingest connected", "url", w.url, "coin", w.coin)

	for _, sub := range []string{"l2Book", "trades", "activeAssetCtx"} {
		msg := subscribeMsg{Method: "subscribe", Subscription: subscriptionReq{Type: sub, Coin: w.coin}}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("ingest: subscribe %s: %w", sub, err)
		}
	}

	stopPing := make(chan struct{})
	defer close(stopPing)
	go w.pingLoop(conn, stopPing)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var env wireEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return fmt.Errorf("ingest: read: %w", err)
		}

		for _, ev := range w.normalize(env) {
			select {
			case w.events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (w *WSIngester) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"method": "ping"}); err != nil {
				return
			}
		}
	}
}

func (w *WSIngester) normalize(env wireEnvelope) []model.Event {
	switch env.Channel {
	case "l2Book":
		var book wireL2Book
		if err := json.Unmarshal(env.Data, &book); err != nil || len(book.Levels) < 2 {
			return nil
		}
		return []model.Event{{Kind: model.KindOrderBook, OrderBook: model.OrderBookEvent{
			Coin:   book.Coin,
			TimeMs: book.Time,
			Bids:   toLevels(book.Levels[0]),
			Asks:   toLevels(book.Levels[1]),
		}}}

	case "trades":
		var trades []wireTrade
		if err := json.Unmarshal(env.Data, &trades); err != nil {
			return nil
		}
		out := make([]model.Event, 0, len(trades))
		for _, t := range trades {
			px, _ := strconv.ParseFloat(t.Px, 64)
			sz, _ := strconv.ParseFloat(t.Sz, 64)
			out = append(out, model.Event{Kind: model.KindTrade, Trade: model.TradeEvent{
				Coin:   t.Coin,
				TimeMs: t.Time,
				TID:    t.Tid,
				Price:  px,
				Size:   sz,
				Side:   model.SideFromWire(t.Side),
			}})
		}
		return out

	case "activeAssetCtx":
		var ctx wireAssetCtx
		if err := json.Unmarshal(env.Data, &ctx); err != nil {
			return nil
		}
		markPx, _ := strconv.ParseFloat(ctx.MarkPx, 64)
		oraclePx, hasOracle := 0.0, false
		if ctx.OraclePx != "" {
			oraclePx, _ = strconv.ParseFloat(ctx.OraclePx, 64)
			hasOracle = true
		}
		funding, _ := strconv.ParseFloat(ctx.Funding, 64)
		oi, _ := strconv.ParseFloat(ctx.OpenInterest, 64)
		return []model.Event{{Kind: model.KindContext, Context: model.ContextEvent{
			Coin:            ctx.Coin,
			TimeMs:          time.Now().UnixMilli(),
			MarkPx:          markPx,
			OraclePx:        oraclePx,
			HasOracle:       hasOracle,
			Funding:         funding,
			OpenInterestUSD: oi * markPx,
		}}}

	default:
		return nil
	}
}

func toLevels(wire []wireL2Level) []model.OrderBookLevel {
	out := make([]model.OrderBookLevel, 0, len(wire))
	for _, l := range wire {
		px, _ := strconv.ParseFloat(l.Px, 64)
		sz, _ := strconv.ParseFloat(l.Sz, 64)
		out = append(out, model.OrderBookLevel{Price: px, Size: sz, Count: l.N})
	}
	return out
}
