package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"hlflow/internal/model"
)

// VolumePoller periodically fetches 24h/1h/4h volume and the daily
// high/low/last price from a REST endpoint, off the hot path (the session
// tracker applies the daily range only until its first live price), grounded on
// the teacher's OIPoller (internal/ingest/oi.go). It pushes the result
// onto the same events channel as the WebSocket ingester rather than
// mutating session-tracker state from its own goroutine, preserving the
// engine's single-writer invariant.
type VolumePoller struct {
	url      string
	interval time.Duration
	events   chan<- model.Event
	client   *http.Client
	log      *slog.Logger
}

func NewVolumePoller(url string, interval time.Duration, events chan<- model.Event, log *slog.Logger) *VolumePoller {
	return &VolumePoller{
		url:      url,
		interval: interval,
		events:   events,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
}

type volumeResponse struct {
	Volume24h   float64 `json:"volume_24h_usd"`
	Volume1h    float64 `json:"volume_1h_usd"`
	Volume4h    float64 `json:"volume_4h_usd"`
	DayHigh     float64 `json:"day_high"`
	DayLow      float64 `json:"day_low"`
	LastPrice   float64 `json:"last_price"`
}

func (p *VolumePoller) Run(ctx context.Context) error {
	if p.url == "" {
		return nil
	}

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *VolumePoller) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.log.Warn("volume poll build request failed", "error", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("volume poll failed, retaining last-good", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Warn("volume poll non-200", "status", resp.StatusCode)
		return
	}

	var data volumeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.log.Warn("volume poll decode failed", "error", fmt.Errorf("ingest: decode volume response: %w", err))
		return
	}

	ev := model.Event{
		Kind: model.KindVolumeSeed,
		VolumeSeed: model.VolumeSeedEvent{
			TimeMs:       time.Now().UnixMilli(),
			Volume24hUSD: data.Volume24h,
			Volume1hUSD:  data.Volume1h,
			Volume4hUSD:  data.Volume4h,
			DayHigh:      data.DayHigh,
			DayLow:       data.DayLow,
			LastPrice:    data.LastPrice,
		},
	}
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
