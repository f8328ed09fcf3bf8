// Package metrics exposes the engine's operational counters and gauges in
// Prometheus text exposition format, grounded on chidi150c-coinbase's
// metrics.go (package-level CounterVec/Gauge registered in init(), served
// by promhttp.Handler at /metrics).
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_total",
			Help: "Normalized inbound events processed, by kind.",
		},
		[]string{"kind"},
	)

	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_snapshots_total",
			Help: "Snapshots assembled and published.",
		},
	)

	SnapshotErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_snapshot_errors_total",
			Help: "Per-component panics recovered during snapshot assembly, by component.",
		},
		[]string{"component"},
	)

	IngestReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_ingest_reconnects_total",
			Help: "WebSocket ingest reconnect attempts.",
		},
	)

	FeedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_feed_connected",
			Help: "1 if the order book is fresh as of the last snapshot, else 0.",
		},
	)

	OrderbookStaleSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_orderbook_stale_seconds",
			Help: "Seconds since the last order book update, as of the last snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsTotal, SnapshotsTotal, SnapshotErrorsTotal)
	prometheus.MustRegister(IngestReconnectsTotal, FeedConnected, OrderbookStaleSeconds)
}

// Serve runs the /metrics HTTP endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
