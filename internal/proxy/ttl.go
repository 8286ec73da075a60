package proxy

import (
	"net/url"
	"strings"
	"time"
)

// TTLPolicy decides how long a response for the given upstream path stays
// fresh. The path may carry its query string.
type TTLPolicy func(path string) time.Duration

// DefaultTTLPolicy mirrors the freshness the terminal needs per route:
// sub-second for order books, seconds for tickers and fine candles, up to a
// minute for exchange metadata.
func DefaultTTLPolicy(path string) time.Duration {
	switch {
	case strings.HasPrefix(path, "/exchangeInfo"):
		return 60 * time.Second
	case strings.HasPrefix(path, "/ticker/"):
		return 3 * time.Second
	case strings.HasPrefix(path, "/l2book"):
		return 500 * time.Millisecond
	case strings.HasPrefix(path, "/klines"):
		return klinesTTL(path)
	case strings.HasPrefix(path, "/account"):
		return 2 * time.Second
	}
	return 2 * time.Second
}

// klinesTTL keys the candle TTL on the requested interval: finer intervals
// get shorter TTLs.
func klinesTTL(path string) time.Duration {
	u, err := url.Parse("http://x" + path)
	if err != nil {
		return 20 * time.Second
	}
	switch u.Query().Get("interval") {
	case "10s":
		return 2 * time.Second
	case "1m":
		return 5 * time.Second
	case "5m":
		return 10 * time.Second
	case "15m":
		return 15 * time.Second
	}
	return 20 * time.Second // 1h/4h/1d
}
