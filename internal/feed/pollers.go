package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bulktrade/terminal-data/internal/model"
	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
)

// TickerPoller sweeps every market's ticker over REST on a slow cadence,
// filling the fields the push feed does not carry (high/low, mark,
// oracle).
type TickerPoller struct {
	cfg    Config
	client *rest.Client
	store  *state.MarketState
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickerPoller creates a ticker poller.
func NewTickerPoller(cfg Config, client *rest.Client, store *state.MarketState, logger *slog.Logger) *TickerPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerPoller{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *TickerPoller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("ticker poller started", "interval", p.cfg.TickerPollInterval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *TickerPoller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ticker poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *TickerPoller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.TickerPollInterval)
	defer ticker.Stop()

	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll refreshes every known market's ticker concurrently, bounded by
// the configured concurrency.
func (p *TickerPoller) pollAll() {
	start := time.Now()

	markets := p.store.Markets()
	if len(markets) == 0 {
		p.logger.Debug("no markets to poll")
		return
	}

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, failed atomic.Int64

	for _, m := range markets {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			reqCtx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
			defer cancel()

			tk, err := p.client.Ticker(reqCtx, symbol)
			if err != nil {
				failed.Add(1)
				p.logger.Debug("ticker poll failed", "symbol", symbol, "error", err)
				return
			}
			p.store.UpsertTicker(tk)
			fetched.Add(1)
		}(m.Symbol)
	}
	wg.Wait()

	p.logger.Debug("ticker sweep complete",
		"fetched", fetched.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
}

// CandlePoller refreshes the selected symbol's candle series on a fast
// cadence for the active interval.
type CandlePoller struct {
	cfg      Config
	client   *rest.Client
	store    *state.MarketState
	interval func() model.Interval
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCandlePoller creates a candle poller. interval reports the active
// candle interval, typically Engine.Interval.
func NewCandlePoller(cfg Config, client *rest.Client, store *state.MarketState, interval func() model.Interval, logger *slog.Logger) *CandlePoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &CandlePoller{
		cfg:      cfg,
		client:   client,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the polling loop.
func (p *CandlePoller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("candle poller started", "interval", p.cfg.CandlePollInterval)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *CandlePoller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("candle poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *CandlePoller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.CandlePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll refreshes the selected symbol's series; no selection, no work.
func (p *CandlePoller) poll() {
	symbol := p.store.SelectedSymbol()
	if symbol == "" {
		return
	}

	reqCtx, cancel := context.WithTimeout(p.ctx, p.cfg.RequestTimeout)
	defer cancel()

	candles, err := p.client.Candles(reqCtx, rest.CandlesParams{
		Symbol:   symbol,
		Interval: p.interval(),
		Limit:    p.cfg.CandleLimit,
	})
	if err != nil {
		p.logger.Debug("candle poll failed", "symbol", symbol, "error", err)
		return
	}
	p.store.SetCandles(symbol, candles)
}
