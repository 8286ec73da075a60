package config

import "time"

// Config is the root configuration for a terminal-data instance.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Stream   StreamConfig   `yaml:"stream"`
	Feed     FeedConfig     `yaml:"feed"`
	Account  AccountConfig  `yaml:"account"`
}

// ServerConfig holds the gateway HTTP server settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// UpstreamConfig holds the exchange REST upstream the gateway proxies to.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // upstream requests per second
	RateBurst int           `yaml:"rate_burst"`
}

// StreamConfig holds the push-feed WebSocket settings.
type StreamConfig struct {
	URL               string        `yaml:"url"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // 0 disables
}

// FeedConfig holds synchronizer settings.
type FeedConfig struct {
	TickerPollInterval time.Duration `yaml:"ticker_poll_interval"`
	CandlePollInterval time.Duration `yaml:"candle_poll_interval"`
	Concurrency        int           `yaml:"concurrency"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	CandleLimit        int           `yaml:"candle_limit"`
	BookLimit          int           `yaml:"book_limit"`
}

// AccountConfig holds the optional tracked-wallet settings.
type AccountConfig struct {
	Wallet         string `yaml:"wallet"`
	FillsLimit     int    `yaml:"fills_limit"`
	PositionsLimit int    `yaml:"positions_limit"`
}
