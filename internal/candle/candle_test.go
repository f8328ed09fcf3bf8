package candle

import (
	"testing"

	"hlflow/internal/model"
)

func TestCandleBuildScenario(t *testing.T) {
	t.Parallel()

	b := NewBuilder(500)
	b.OnTrade(model.TradeEvent{TimeMs: 60000, Price: 10, Size: 1, Side: model.SideBuy})
	b.OnTrade(model.TradeEvent{TimeMs: 90000, Price: 12, Size: 2, Side: model.SideSell})
	b.OnTrade(model.TradeEvent{TimeMs: 119999, Price: 11, Size: 1, Side: model.SideBuy})

	cur, ok := b.Current()
	if !ok {
		t.Fatal("Current() ok=false")
	}
	if cur.BucketOpenMs != 60000 || cur.Open != 10 || cur.High != 12 || cur.Low != 10 || cur.Close != 11 || cur.VolumeBase != 4 || cur.NTrades != 3 {
		t.Errorf("Current() = %+v, want bucket=60000 O=10 H=12 L=10 C=11 V=4 N=3", cur)
	}

	b.OnTrade(model.TradeEvent{TimeMs: 120000, Price: 13, Size: 1, Side: model.SideBuy})

	if len(b.history) != 1 {
		t.Fatalf("len(history) = %d, want 1 (prior candle finalized)", len(b.history))
	}
	closed := b.history[0]
	if closed.Open != 10 || closed.High != 12 || closed.Low != 10 || closed.Close != 11 || closed.VolumeBase != 4 {
		t.Errorf("finalized candle = %+v, want unchanged from before roll", closed)
	}

	cur2, _ := b.Current()
	if cur2.BucketOpenMs != 120000 || cur2.Open != 13 || cur2.High != 13 || cur2.Low != 13 || cur2.Close != 13 {
		t.Errorf("new candle = %+v, want O=H=L=C=13 at bucket 120000", cur2)
	}
}

func TestAggregateIdempotence(t *testing.T) {
	t.Parallel()

	oneMin := []OHLCV{
		{BucketOpenMs: 0, Open: 10, High: 11, Low: 9, Close: 10.5, VolumeBase: 1},
		{BucketOpenMs: 60000, Open: 10.5, High: 12, Low: 10, Close: 11, VolumeBase: 2},
		{BucketOpenMs: 120000, Open: 11, High: 11.5, Low: 10.8, Close: 11.2, VolumeBase: 1.5},
		{BucketOpenMs: 180000, Open: 11.2, High: 13, Low: 11, Close: 12, VolumeBase: 3},
		{BucketOpenMs: 240000, Open: 12, High: 12.5, Low: 11.8, Close: 12.2, VolumeBase: 0.5},
	}

	agg := Aggregate(oneMin, 5)
	if len(agg) != 1 {
		t.Fatalf("len(agg) = %d, want 1", len(agg))
	}
	g := agg[0]
	if g.Open != 10 || g.Close != 12.2 || g.High != 13 || g.Low != 9 || g.VolumeBase != 8 {
		t.Errorf("aggregated candle = %+v, want open=10 close=12.2 high=13 low=9 volume=8", g)
	}
}

func TestATRFewerThanTwoCandles(t *testing.T) {
	t.Parallel()

	if got := ATR([]OHLCV{{Close: 10}}, 14); got != 0 {
		t.Errorf("ATR([1 candle]) = %v, want 0", got)
	}
}

func TestATRAveragesAvailableWhenFewerThanPeriod(t *testing.T) {
	t.Parallel()

	candles := []OHLCV{
		{High: 10, Low: 9, Close: 9.5},
		{High: 11, Low: 9.5, Close: 10.5},
		{High: 12, Low: 10, Close: 11.5},
	}
	got := ATR(candles, 14)
	if got <= 0 {
		t.Errorf("ATR = %v, want > 0 (2 true ranges averaged)", got)
	}
}
