// Package crossasset implements the cross-asset sidecar named in spec.md
// §5 ("Cross-asset task: polls sibling symbol prices and writes into its
// own cell") and supplemented from the Python original's
// cross_asset_context.py. It runs on its own ticker and hands off results
// to the emit task through an atomic cell, never a lock on analytics
// state, per design note "Cross-task data hand-off".
package crossasset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"hlflow/internal/model"
)

// PriceFetcher fetches the latest price for a symbol. The production
// implementation hits the exchange's public mark-price endpoint; tests
// substitute a stub.
type PriceFetcher func(ctx context.Context, symbol string) (price float64, err error)

// Sidecar polls PriceFetcher for each configured symbol and republishes a
// CrossAssetContext snapshot into an atomic cell.
type Sidecar struct {
	symbols      []string
	pollInterval time.Duration
	fetch        PriceFetcher
	logger       *slog.Logger

	cell    atomic.Pointer[model.CrossAssetContext]
	lastPx  map[string]float64
}

func New(symbols []string, pollInterval time.Duration, fetch PriceFetcher, logger *slog.Logger) *Sidecar {
	return &Sidecar{
		symbols:      symbols,
		pollInterval: pollInterval,
		fetch:        fetch,
		logger:       logger,
		lastPx:       make(map[string]float64),
	}
}

// Get returns the last-published context, or a zero value if no poll has
// succeeded yet.
func (s *Sidecar) Get() model.CrossAssetContext {
	p := s.cell.Load()
	if p == nil {
		return model.CrossAssetContext{Assets: map[string]model.AssetContext{}}
	}
	return *p
}

// Run polls on PollInterval until ctx is cancelled. Per spec.md §7's
// "Transient external failure" policy, a failed fetch logs and retains
// last-good values; it never tears down the session.
func (s *Sidecar) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Sidecar) pollOnce(ctx context.Context) {
	assets := make(map[string]model.AssetContext, len(s.symbols))
	for _, sym := range s.symbols {
		px, err := s.fetch(ctx, sym)
		if err != nil {
			s.logger.Warn("cross-asset fetch failed, retaining last-good", "symbol", sym, "error", err)
			if prev, ok := s.lastPx[sym]; ok {
				assets[sym] = model.AssetContext{Price: prev}
			}
			continue
		}
		changePct := 0.0
		if prev, ok := s.lastPx[sym]; ok && prev != 0 {
			changePct = (px - prev) / prev * 100
		}
		s.lastPx[sym] = px
		assets[sym] = model.AssetContext{Price: px, ChangePercent: changePct}
	}

	sentiment := sentimentFor(assets)
	s.cell.Store(&model.CrossAssetContext{Assets: assets, MarketSentiment: sentiment})
}

func sentimentFor(assets map[string]model.AssetContext) string {
	if len(assets) == 0 {
		return "unknown"
	}
	var up, down int
	for _, a := range assets {
		if a.ChangePercent > 0.1 {
			up++
		} else if a.ChangePercent < -0.1 {
			down++
		}
	}
	switch {
	case up > down:
		return "risk_on"
	case down > up:
		return "risk_off"
	default:
		return "neutral"
	}
}

// HTTPPriceFetcher builds a PriceFetcher against a REST endpoint that
// returns {"price": "<decimal>"} (the price as a JSON string) for the
// symbol passed in the "symbol" query parameter.
func HTTPPriceFetcher(client *http.Client, baseURL string) PriceFetcher {
	return func(ctx context.Context, symbol string) (float64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?symbol="+symbol, nil)
		if err != nil {
			return 0, fmt.Errorf("crossasset: build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, fmt.Errorf("crossasset: fetch %s: %w", symbol, err)
		}
		defer resp.Body.Close()

		var body struct {
			Price string `json:"price"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return 0, fmt.Errorf("crossasset: decode %s: %w", symbol, err)
		}
		var px float64
		if _, err := fmt.Sscanf(body.Price, "%f", &px); err != nil {
			return 0, fmt.Errorf("crossasset: parse price for %s: %w", symbol, err)
		}
		return px, nil
	}
}
