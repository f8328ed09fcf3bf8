package broadcast

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"hlflow/internal/model"
	"hlflow/internal/state"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServeWsReplaysHistoryThenLiveTick(t *testing.T) {
	// TimeMs itself carries json:"-" and never crosses the wire; use a
	// real wire field to tell the two buffered snapshots apart.
	first := model.Snapshot{TimeMs: 100}
	first.Momentum.TrendAlignment = "bullish"
	second := model.Snapshot{TimeMs: 200}
	second.Momentum.TrendAlignment = "bearish"

	buf := state.NewRingBuffer(10)
	buf.Add(first)
	buf.Add(second)

	h := newHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(h, buf, w, r, discardLogger())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var got []model.Snapshot
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage(#%d): %v", i, err)
		}
		var snap model.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			t.Fatalf("unmarshal(#%d): %v", i, err)
		}
		got = append(got, snap)
	}

	if len(got) != 2 || got[0].Momentum.TrendAlignment != "bullish" || got[1].Momentum.TrendAlignment != "bearish" {
		t.Fatalf("replayed history = %+v, want bullish then bearish in buffered order", got)
	}

	h.broadcast([]byte(`{"time_ms":300}`))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage(live): %v", err)
	}
	if string(msg) != `{"time_ms":300}` {
		t.Errorf("live tick message = %q, want the raw broadcast payload", msg)
	}
}

func TestPollLoopDedupesUnchangedTimeMs(t *testing.T) {
	buf := state.NewRingBuffer(10)
	h := newHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.run(ctx)

	calls := 0
	latest := func() (model.Snapshot, bool) {
		calls++
		return model.Snapshot{TimeMs: 42}, true
	}
	b := &Broadcaster{latest: latest, buffer: buf, interval: 5 * time.Millisecond, log: discardLogger(), hub: h}

	go b.pollLoop(ctx)
	time.Sleep(60 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	if buf.Size() != 1 {
		t.Errorf("ring buffer size = %d, want 1 (repeated TimeMs must be deduped)", buf.Size())
	}
	if calls < 2 {
		t.Errorf("latest() called %d times, want several ticks to have elapsed", calls)
	}
}
