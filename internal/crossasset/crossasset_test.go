package crossasset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"hlflow/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stubFetcher(prices map[string]float64, fail map[string]bool) PriceFetcher {
	return func(_ context.Context, symbol string) (float64, error) {
		if fail[symbol] {
			return 0, errors.New("stub fetch failure")
		}
		return prices[symbol], nil
	}
}

func TestSidecarPollOnceRisk(t *testing.T) {
	t.Parallel()

	s := New([]string{"BTC", "ETH"}, time.Second, stubFetcher(map[string]float64{"BTC": 100, "ETH": 100}, nil), discardLogger())
	s.pollOnce(context.Background())

	got := s.Get()
	if got.MarketSentiment != "neutral" {
		t.Errorf("first poll sentiment = %q, want neutral (no prior price to diff against)", got.MarketSentiment)
	}

	s.fetch = stubFetcher(map[string]float64{"BTC": 105, "ETH": 106}, nil)
	s.pollOnce(context.Background())

	got = s.Get()
	if got.MarketSentiment != "risk_on" {
		t.Errorf("MarketSentiment = %q, want risk_on after both assets rally", got.MarketSentiment)
	}
	if got.Assets["BTC"].ChangePercent <= 0 {
		t.Errorf("BTC ChangePercent = %v, want positive", got.Assets["BTC"].ChangePercent)
	}
}

func TestSidecarRetainsLastGoodOnFailure(t *testing.T) {
	t.Parallel()

	s := New([]string{"BTC"}, time.Second, stubFetcher(map[string]float64{"BTC": 100}, nil), discardLogger())
	s.pollOnce(context.Background())

	s.fetch = stubFetcher(nil, map[string]bool{"BTC": true})
	s.pollOnce(context.Background())

	got := s.Get()
	if got.Assets["BTC"].Price != 100 {
		t.Errorf("Assets[BTC].Price = %v, want last-good 100 retained across failed fetch", got.Assets["BTC"].Price)
	}
}

func TestSidecarGetZeroValueBeforeFirstPoll(t *testing.T) {
	t.Parallel()

	s := New([]string{"BTC"}, time.Second, stubFetcher(nil, nil), discardLogger())
	got := s.Get()
	if got.Assets == nil {
		t.Errorf("Get() before any poll returned nil Assets map, want empty non-nil map")
	}
}

func TestSentimentForEmpty(t *testing.T) {
	t.Parallel()

	if got := sentimentFor(map[string]model.AssetContext{}); got != "unknown" {
		t.Errorf("sentimentFor(empty) = %q, want unknown", got)
	}
}
