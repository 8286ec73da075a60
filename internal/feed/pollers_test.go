package feed

import (
	"context"
	"testing"
	"time"

	"github.com/bulktrade/terminal-data/internal/model"
	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
)

func TestTickerPoller_SweepsAllMarkets(t *testing.T) {
	srv := gateway(t, map[string]route{
		"/ticker/A": {body: `{"lastPrice":"1"}`},
		"/ticker/B": {body: `{"lastPrice":"2"}`},
	})

	store := state.NewMarketState()
	store.SetMarkets([]model.Market{{Symbol: "A"}, {Symbol: "B"}})

	cfg := testConfig()
	cfg.TickerPollInterval = time.Hour // only the immediate sweep
	p := NewTickerPoller(cfg, rest.NewClient(srv.URL), store, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		_, a := store.Ticker("A")
		_, b := store.Ticker("B")
		return a && b
	})
}

func TestCandlePoller_RefreshesSelectedSymbol(t *testing.T) {
	srv := gateway(t, map[string]route{
		"/klines?interval=1m&limit=240&symbol=A": {body: `[[1000,"1","2","0.5","1.5","10"]]`},
	})

	store := state.NewMarketState()
	store.SelectSymbol("A")
	drainSelections(store)

	cfg := testConfig()
	cfg.CandlePollInterval = 10 * time.Millisecond
	p := NewCandlePoller(cfg, rest.NewClient(srv.URL), store,
		func() model.Interval { return model.Interval1m }, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool { return len(store.Candles("A")) == 1 })
}

func drainSelections(s *state.MarketState) {
	for {
		select {
		case <-s.Selections():
		default:
			return
		}
	}
}
