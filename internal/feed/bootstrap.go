package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Bootstrap performs the initial load: market list, one ticker per
// market, then the first symbol selected. Individual ticker failures are
// logged and skipped; only a failed market-list fetch is fatal.
func (e *Engine) Bootstrap(ctx context.Context) error {
	start := time.Now()

	markets, err := e.client.ExchangeInfo(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	e.store.SetMarkets(markets)

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, failed atomic.Int64

	for _, m := range markets {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
			defer cancel()

			tk, err := e.client.Ticker(reqCtx, symbol)
			if err != nil {
				failed.Add(1)
				e.logger.Warn("initial ticker fetch failed", "symbol", symbol, "error", err)
				return
			}
			e.store.UpsertTicker(tk)
			fetched.Add(1)
		}(m.Symbol)
	}
	wg.Wait()

	if e.store.SelectedSymbol() == "" && len(markets) > 0 {
		e.store.SelectSymbol(markets[0].Symbol)
	}

	e.logger.Info("bootstrap complete",
		"markets", len(markets),
		"tickers", fetched.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
	return nil
}
