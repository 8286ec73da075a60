package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bulktrade/terminal-data/internal/mapper"
	"github.com/bulktrade/terminal-data/internal/model"
	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
	"github.com/bulktrade/terminal-data/internal/stream"
)

// Streamer is the subset of the stream client the engine drives.
type Streamer interface {
	Connect(ctx context.Context) error
	Close() error
	SubscribeContext() error
	SubscribeBook(symbol string) error
	UnsubscribeBook(symbol string) error
}

// StreamFactory builds the stream client around the engine's handlers.
type StreamFactory func(stream.Handlers) Streamer

// Engine owns the push-feed wiring: subscriptions, inbound message
// application and selection changes.
type Engine struct {
	cfg    Config
	client *rest.Client
	store  *state.MarketState
	logger *slog.Logger

	newStream StreamFactory
	ws        Streamer

	mu         sync.Mutex
	interval   model.Interval
	prevSymbol string
	selCancel  context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates the engine. The factory is invoked on Start with the
// engine's handlers.
func NewEngine(cfg Config, client *rest.Client, store *state.MarketState, newStream StreamFactory, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		client:    client,
		store:     store,
		logger:    logger,
		newStream: newStream,
		interval:  model.Interval1m,
	}
}

// Start connects the stream and begins handling selection changes.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.ws = e.newStream(stream.Handlers{
		OnOpen:    e.onOpen,
		OnMessage: e.onMessage,
		OnError: func(err error) {
			e.logger.Warn("stream error", "error", err)
		},
	})
	if err := e.ws.Connect(e.ctx); err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}

	e.wg.Add(1)
	go e.selectionLoop()

	e.logger.Info("feed engine started")
	return nil
}

// Stop shuts the engine down, waiting up to ctx for in-flight work.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.ws != nil {
		e.ws.Close()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("feed engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the active candle interval.
func (e *Engine) Interval() model.Interval {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// SetInterval switches the active candle interval and refetches the
// selected symbol's series.
func (e *Engine) SetInterval(iv model.Interval) error {
	if !iv.Valid() {
		return fmt.Errorf("invalid interval %q", iv)
	}

	e.mu.Lock()
	if e.interval == iv {
		e.mu.Unlock()
		return nil
	}
	e.interval = iv
	e.mu.Unlock()

	symbol := e.store.SelectedSymbol()
	if symbol == "" || e.ctx == nil {
		return nil
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.fetchCandles(e.ctx, symbol, iv)
	}()
	return nil
}

// onOpen runs on every transition into open, including reconnects: one
// context subscription feeds all tickers, the book topic only the
// current selection.
func (e *Engine) onOpen() {
	if err := e.ws.SubscribeContext(); err != nil {
		e.logger.Warn("subscribe context failed", "error", err)
	}
	if symbol := e.store.SelectedSymbol(); symbol != "" {
		if err := e.ws.SubscribeBook(symbol); err != nil {
			e.logger.Warn("subscribe book failed", "symbol", symbol, "error", err)
		}
	}
}

// onMessage applies one classified inbound message to the store.
func (e *Engine) onMessage(m stream.Message) {
	switch m.Kind {
	case stream.KindContext:
		if tickers := mapper.MapContextRows(m.Data); len(tickers) > 0 {
			e.store.UpsertTickers(tickers)
		}

	case stream.KindTicker:
		if m.Symbol == "" {
			return
		}
		e.store.UpsertTicker(mapper.MapTicker(m.Symbol, m.Data))

	case stream.KindBook:
		if m.Symbol == "" {
			return
		}
		e.store.SetOrderBook(mapper.MapOrderBook(m.Symbol, m.Data))

	case stream.KindAck:
		e.logger.Debug("subscription acknowledged", "topics", m.Topics)

	case stream.KindError:
		e.logger.Warn("stream protocol error", "code", m.Code, "message", m.Text)

	default:
		e.logger.Debug("unclassified stream message", "bytes", len(m.Raw))
	}
}

// selectionLoop reacts to symbol selection changes.
func (e *Engine) selectionLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case symbol := <-e.store.Selections():
			e.applySelection(symbol)
		}
	}
}

// applySelection moves the book subscription and reloads the selected
// symbol's data. A still-running load for the previous selection is
// canceled; its late results are discarded.
func (e *Engine) applySelection(symbol string) {
	e.mu.Lock()
	if e.selCancel != nil {
		e.selCancel()
	}
	prev := e.prevSymbol
	e.prevSymbol = symbol
	selCtx, cancel := context.WithCancel(e.ctx)
	e.selCancel = cancel
	interval := e.interval
	e.mu.Unlock()

	if prev != "" && prev != symbol {
		if err := e.ws.UnsubscribeBook(prev); err != nil {
			e.logger.Warn("unsubscribe book failed", "symbol", prev, "error", err)
		}
	}
	if err := e.ws.SubscribeBook(symbol); err != nil {
		e.logger.Warn("subscribe book failed", "symbol", symbol, "error", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loadSelection(selCtx, symbol, interval)
	}()
}

// loadSelection fetches ticker, order book and candles for a freshly
// selected symbol concurrently. Each fetch fails independently; a
// canceled ctx (selection moved on, shutdown) discards the results.
func (e *Engine) loadSelection(ctx context.Context, symbol string, interval model.Interval) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
		tk, err := e.client.Ticker(reqCtx, symbol)
		if err != nil {
			e.logger.Warn("selection ticker fetch failed", "symbol", symbol, "error", err)
			return
		}
		if ctx.Err() == nil {
			e.store.UpsertTicker(tk)
		}
	}()

	go func() {
		defer wg.Done()
		reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
		book, err := e.client.OrderBook(reqCtx, symbol, e.cfg.BookLimit, 0)
		if err != nil {
			e.logger.Warn("selection book fetch failed", "symbol", symbol, "error", err)
			return
		}
		if ctx.Err() == nil {
			e.store.SetOrderBook(book)
		}
	}()

	go func() {
		defer wg.Done()
		e.fetchCandles(ctx, symbol, interval)
	}()

	wg.Wait()
}

// fetchCandles refreshes one symbol's candle series for an interval.
func (e *Engine) fetchCandles(ctx context.Context, symbol string, interval model.Interval) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	candles, err := e.client.Candles(reqCtx, rest.CandlesParams{
		Symbol:   symbol,
		Interval: interval,
		Limit:    e.cfg.CandleLimit,
	})
	if err != nil {
		e.logger.Warn("candles fetch failed", "symbol", symbol, "interval", interval, "error", err)
		return
	}
	if ctx.Err() == nil {
		e.store.SetCandles(symbol, candles)
	}
}
