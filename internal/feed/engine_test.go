package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bulktrade/terminal-data/internal/model"
	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
	"github.com/bulktrade/terminal-data/internal/stream"
)

// fakeStream records subscription calls; the test drives handlers
// directly.
type fakeStream struct {
	mu       sync.Mutex
	calls    []string
	handlers stream.Handlers
}

func (f *fakeStream) Connect(ctx context.Context) error { return nil }
func (f *fakeStream) Close() error                      { return nil }

func (f *fakeStream) SubscribeContext() error { return f.record("context") }
func (f *fakeStream) SubscribeBook(symbol string) error {
	return f.record("book:" + symbol)
}
func (f *fakeStream) UnsubscribeBook(symbol string) error {
	return f.record("unbook:" + symbol)
}

func (f *fakeStream) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeStream) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStream) factory() StreamFactory {
	return func(h stream.Handlers) Streamer {
		f.handlers = h
		return f
	}
}

// route is one gateway response: status plus body.
type route struct {
	status int
	body   string
}

// gateway routes on the decoded "path" query parameter like the real
// caching gateway.
func gateway(t *testing.T, routes map[string]route) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt, ok := routes[r.URL.Query().Get("path")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no route"}`))
			return
		}
		status := rt.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func TestBootstrap_PartialFailuresDegradeOnly(t *testing.T) {
	srv := gateway(t, map[string]route{
		"/exchangeInfo": {body: `{"symbols":[{"symbol":"A"},{"symbol":"B"},{"symbol":"C"}]}`},
		"/ticker/A":     {body: `{"lastPrice":"1"}`},
		"/ticker/B":     {status: http.StatusInternalServerError, body: `{"message":"boom"}`},
		"/ticker/C":     {body: `{"lastPrice":"3"}`},
		"/klines?interval=1m&limit=240&symbol=A": {body: `[[1000,"1","2","0.5","1.5","10"]]`},
		"/l2book?limit=50&symbol=A":              {status: http.StatusBadGateway, body: `{"message":"down"}`},
	})

	store := state.NewMarketState()
	ws := &fakeStream{}
	e := NewEngine(testConfig(), rest.NewClient(srv.URL), store, ws.factory(), nil)

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	if err := e.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if got := len(store.Markets()); got != 3 {
		t.Fatalf("markets = %d, want 3", got)
	}
	if _, ok := store.Ticker("A"); !ok {
		t.Error("ticker A missing")
	}
	if _, ok := store.Ticker("B"); ok {
		t.Error("ticker B stored despite failed fetch")
	}
	if _, ok := store.Ticker("C"); !ok {
		t.Error("ticker C missing")
	}
	if got := store.SelectedSymbol(); got != "A" {
		t.Fatalf("SelectedSymbol = %q, want A", got)
	}

	// The selection load runs async: candles arrive, the failed book
	// fetch leaves the book absent, and no error escapes.
	waitFor(t, 2*time.Second, func() bool { return len(store.Candles("A")) == 1 })
	if _, ok := store.OrderBook("A"); ok {
		t.Error("order book stored despite failed fetch")
	}
}

func TestEngine_OnOpenSubscribesContextAndSelection(t *testing.T) {
	srv := gateway(t, map[string]route{})
	store := state.NewMarketState()
	ws := &fakeStream{}
	e := NewEngine(testConfig(), rest.NewClient(srv.URL), store, ws.factory(), nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	store.SelectSymbol("BTC-PERP")
	waitFor(t, time.Second, func() bool {
		for _, c := range ws.recorded() {
			if c == "book:BTC-PERP" {
				return true
			}
		}
		return false
	})

	// A reconnect re-issues both subscriptions from current state.
	ws.handlers.OnOpen()
	calls := ws.recorded()
	if calls[len(calls)-2] != "context" || calls[len(calls)-1] != "book:BTC-PERP" {
		t.Errorf("on-open calls = %v, want trailing [context book:BTC-PERP]", calls)
	}
}

func TestEngine_SelectionChangeMovesBookSubscription(t *testing.T) {
	srv := gateway(t, map[string]route{})
	store := state.NewMarketState()
	ws := &fakeStream{}
	e := NewEngine(testConfig(), rest.NewClient(srv.URL), store, ws.factory(), nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	store.SelectSymbol("A")
	waitFor(t, time.Second, func() bool {
		calls := ws.recorded()
		return len(calls) > 0 && calls[len(calls)-1] == "book:A"
	})

	store.SelectSymbol("B")
	waitFor(t, time.Second, func() bool {
		var unA, subB bool
		for _, c := range ws.recorded() {
			switch c {
			case "unbook:A":
				unA = true
			case "book:B":
				subB = true
			}
		}
		return unA && subB
	})
}

func TestEngine_AppliesStreamMessages(t *testing.T) {
	srv := gateway(t, map[string]route{})
	store := state.NewMarketState()
	ws := &fakeStream{}
	e := NewEngine(testConfig(), rest.NewClient(srv.URL), store, ws.factory(), nil)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	ws.handlers.OnMessage(stream.Classify([]byte(
		`{"ctx":[{"symbol":"BTC-PERP","c":"50000"},{"c":"1"},{"symbol":"ETH-PERP","c":"1850"}]}`)))
	ws.handlers.OnMessage(stream.Classify([]byte(
		`{"type":"ticker","data":{"symbol":"BTC-PERP","markPrice":"50001"}}`)))
	ws.handlers.OnMessage(stream.Classify([]byte(
		`{"type":"l2book","symbol":"BTC-PERP","bids":[["100","1"]],"asks":[]}`)))
	ws.handlers.OnMessage(stream.Classify([]byte(`garbage`)))

	tk, ok := store.Ticker("BTC-PERP")
	if !ok || tk.Last == nil || *tk.Last != 50000 {
		t.Errorf("BTC-PERP ticker = %+v", tk)
	}
	if tk.Mark == nil || *tk.Mark != 50001 {
		t.Errorf("Mark = %v, want merged 50001", tk.Mark)
	}
	if _, ok := store.Ticker("ETH-PERP"); !ok {
		t.Error("ETH-PERP ticker missing")
	}
	book, ok := store.OrderBook("BTC-PERP")
	if !ok || len(book.Bids) != 1 {
		t.Errorf("book = %+v", book)
	}
}

func TestSetInterval(t *testing.T) {
	srv := gateway(t, map[string]route{
		"/klines?interval=5m&limit=240&symbol=A": {body: `[[1000,"1","2","0.5","1.5","10"]]`},
	})
	store := state.NewMarketState()
	ws := &fakeStream{}
	e := NewEngine(testConfig(), rest.NewClient(srv.URL), store, ws.factory(), nil)

	if err := e.SetInterval("3w"); err == nil {
		t.Error("invalid interval accepted")
	}
	if got := e.Interval(); got != model.Interval1m {
		t.Errorf("default interval = %s, want 1m", got)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(context.Background())

	store.SelectSymbol("A")
	waitFor(t, time.Second, func() bool {
		calls := ws.recorded()
		return len(calls) > 0 && calls[len(calls)-1] == "book:A"
	})

	if err := e.SetInterval(model.Interval5m); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(store.Candles("A")) == 1 })
}
