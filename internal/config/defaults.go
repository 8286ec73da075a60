package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListenAddr = ":8080"

	DefaultUpstreamURL     = "https://exchange-api2.bulk.trade/api/v1"
	DefaultUpstreamTimeout = 15 * time.Second
	DefaultRateLimit       = 20.0 // upstream requests per second
	DefaultRateBurst       = 40

	DefaultStreamURL      = "wss://exchange-wss.bulk.trade"
	DefaultReconnectDelay = 1500 * time.Millisecond

	DefaultTickerPollInterval = 60 * time.Second
	DefaultCandlePollInterval = 5 * time.Second
	DefaultFeedConcurrency    = 8
	DefaultRequestTimeout     = 10 * time.Second
	DefaultCandleLimit        = 240
	DefaultBookLimit          = 50

	DefaultFillsLimit     = 500
	DefaultPositionsLimit = 100
)

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}

	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamURL
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Upstream.RateLimit == 0 {
		c.Upstream.RateLimit = DefaultRateLimit
	}
	if c.Upstream.RateBurst == 0 {
		c.Upstream.RateBurst = DefaultRateBurst
	}

	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = DefaultReconnectDelay
	}

	if c.Feed.TickerPollInterval == 0 {
		c.Feed.TickerPollInterval = DefaultTickerPollInterval
	}
	if c.Feed.CandlePollInterval == 0 {
		c.Feed.CandlePollInterval = DefaultCandlePollInterval
	}
	if c.Feed.Concurrency == 0 {
		c.Feed.Concurrency = DefaultFeedConcurrency
	}
	if c.Feed.RequestTimeout == 0 {
		c.Feed.RequestTimeout = DefaultRequestTimeout
	}
	if c.Feed.CandleLimit == 0 {
		c.Feed.CandleLimit = DefaultCandleLimit
	}
	if c.Feed.BookLimit == 0 {
		c.Feed.BookLimit = DefaultBookLimit
	}

	if c.Account.FillsLimit == 0 {
		c.Account.FillsLimit = DefaultFillsLimit
	}
	if c.Account.PositionsLimit == 0 {
		c.Account.PositionsLimit = DefaultPositionsLimit
	}
}
