package feed

import "time"

// Config holds synchronizer settings.
type Config struct {
	TickerPollInterval time.Duration // full ticker sweep interval
	CandlePollInterval time.Duration // selected-symbol candle refresh interval
	Concurrency        int           // max concurrent REST fetches per sweep
	RequestTimeout     time.Duration // per-request timeout

	CandleLimit    int // candles kept per series
	BookLimit      int // order-book depth requested
	FillsLimit     int // account fills page size
	PositionsLimit int // account positions page size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickerPollInterval: 60 * time.Second,
		CandlePollInterval: 5 * time.Second,
		Concurrency:        8,
		RequestTimeout:     10 * time.Second,
		CandleLimit:        240,
		BookLimit:          50,
		FillsLimit:         500,
		PositionsLimit:     100,
	}
}
