package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}

	if err := validateURL("upstream.base_url", c.Upstream.BaseURL, "http", "https"); err != nil {
		return err
	}
	if c.Upstream.RateLimit <= 0 {
		return errors.New("upstream.rate_limit must be > 0")
	}
	if c.Upstream.RateBurst < 1 {
		return errors.New("upstream.rate_burst must be >= 1")
	}

	if err := validateURL("stream.url", c.Stream.URL, "ws", "wss"); err != nil {
		return err
	}
	if c.Stream.ReconnectDelay <= 0 {
		return errors.New("stream.reconnect_delay must be > 0")
	}

	if c.Feed.Concurrency < 1 {
		return errors.New("feed.concurrency must be >= 1")
	}
	if c.Feed.CandleLimit < 1 {
		return errors.New("feed.candle_limit must be >= 1")
	}
	if c.Feed.BookLimit < 1 {
		return errors.New("feed.book_limit must be >= 1")
	}

	if c.Account.FillsLimit < 1 {
		return errors.New("account.fills_limit must be >= 1")
	}
	if c.Account.PositionsLimit < 1 {
		return errors.New("account.positions_limit must be >= 1")
	}

	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use scheme %v, got %q", field, schemes, raw)
}
