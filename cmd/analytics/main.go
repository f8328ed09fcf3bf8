// Command analytics runs the real-time market-microstructure engine for a
// single perpetual-futures symbol: it connects to the exchange's public
// WebSocket feed, feeds every trade/book/context update through the
// component trackers, and republishes an assembled Snapshot once per
// second over a JSON WebSocket, optionally persisting it to SQLite and
// exposing Prometheus metrics.
//
// Architecture (grounded on 0xtitan6-polymarket-mm's cmd/bot/main.go):
//
//	main.go                — entry point: loads config, wires every task, waits for SIGINT/SIGTERM
//	internal/config        — viper-backed configuration, one section per component
//	internal/ingest        — WebSocket + REST tasks normalizing exchange messages into model.Event
//	internal/engine        — single-writer dispatch loop and 1 Hz snapshot assembly
//	internal/crossasset    — sidecar polling sibling-symbol prices for market-sentiment context
//	internal/broadcast      — JSON WebSocket fan-out of the latest snapshot
//	internal/store          — optional durable SQLite snapshot history
//	internal/metrics        — Prometheus counters/gauges
//
// Every long-running task is owned by an errgroup.Group seeded from a
// context cancelled on SIGINT/SIGTERM, so a fatal error in any one task
// tears the rest down cleanly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hlflow/internal/broadcast"
	"hlflow/internal/config"
	"hlflow/internal/crossasset"
	"hlflow/internal/engine"
	"hlflow/internal/ingest"
	"hlflow/internal/metrics"
	"hlflow/internal/model"
	"hlflow/internal/state"
	"hlflow/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfgPath := os.Getenv("ANALYTICS_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	nowMs := time.Now().UnixMilli()

	var crossAsset *crossasset.Sidecar
	if cfg.CrossAsset.Enabled {
		crossAsset = crossasset.New(
			cfg.CrossAsset.Symbols,
			time.Duration(cfg.CrossAsset.PollIntervalS)*time.Second,
			crossasset.HTTPPriceFetcher(&http.Client{Timeout: 5 * time.Second}, cfg.CrossAsset.PriceRESTURL),
			logger.With("component", "crossasset"),
		)
	}

	eng := engine.New(cfg, crossAsset, logger.With("component", "engine"), nowMs)

	events := make(chan model.Event, 4096)
	wsIngest := ingest.NewWSIngester(cfg.Ingest.WSURL, cfg.Ingest.Coin, events, logger.With("component", "ingest"))

	var volumePoller *ingest.VolumePoller
	if cfg.Ingest.VolumeRESTURL != "" {
		volumePoller = ingest.NewVolumePoller(
			cfg.Ingest.VolumeRESTURL,
			time.Duration(cfg.Ingest.VolumePollIntervalS)*time.Second,
			events,
			logger.With("component", "volume"),
		)
	}

	ringBuffer := state.NewRingBuffer(cfg.Broadcast.HistoryLen)

	var snapshotStore *store.Store
	if cfg.Store.Enabled {
		var err error
		snapshotStore, err = store.Open(cfg.Store.Path, logger.With("component", "store"))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer snapshotStore.Close()

		recent, err := snapshotStore.LoadRecent(ctx, nowMs-time.Hour.Milliseconds(), cfg.Broadcast.HistoryLen)
		if err != nil {
			logger.Warn("failed to load snapshot history from store", "error", err)
		}
		for _, snap := range recent {
			ringBuffer.Add(snap)
		}
		logger.Info("ring buffer pre-loaded from store", "count", ringBuffer.Size())
	}

	broadcaster := broadcast.NewBroadcaster(eng.Latest, ringBuffer, cfg.Engine.SnapshotInterval(), logger.With("component", "broadcast"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wsIngest.Run(gctx)
	})

	if volumePoller != nil {
		g.Go(func() error {
			return volumePoller.Run(gctx)
		})
	}

	if crossAsset != nil {
		g.Go(func() error {
			return crossAsset.Run(gctx)
		})
	}

	g.Go(func() error {
		return eng.Run(gctx, events)
	})

	g.Go(func() error {
		return broadcaster.Run(gctx, cfg.Broadcast.ListenAddr)
	})

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.ListenAddr)
		})
	}

	if snapshotStore != nil {
		g.Go(func() error {
			return persistLoop(gctx, eng, snapshotStore, cfg.Engine.SnapshotInterval(), logger.With("component", "store"))
		})
	}

	logger.Info("analytics engine started",
		"coin", cfg.Ingest.Coin,
		"ws_url", cfg.Ingest.WSURL,
		"broadcast_addr", cfg.Broadcast.ListenAddr,
		"metrics_enabled", cfg.Metrics.Enabled,
		"store_enabled", cfg.Store.Enabled,
	)

	return g.Wait()
}

// persistLoop writes the latest snapshot to the store on every tick,
// off the engine's own goroutine so a slow disk never stalls assembly.
func persistLoop(ctx context.Context, eng *engine.Engine, st *store.Store, interval time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSaved int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, ok := eng.Latest()
			if !ok || snap.TimeMs == lastSaved {
				continue
			}
			lastSaved = snap.TimeMs
			if err := st.Save(ctx, snap); err != nil {
				log.Warn("snapshot persist failed", "error", err)
			}
		}
	}
}
