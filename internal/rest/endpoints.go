package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bulktrade/terminal-data/internal/mapper"
	"github.com/bulktrade/terminal-data/internal/model"
)

// AccountRequest selects which account view to fetch.
type AccountRequest string

const (
	AccountFull           AccountRequest = "fullAccount"
	AccountOpenOrders     AccountRequest = "openOrders"
	AccountFills          AccountRequest = "fills"
	AccountPositions      AccountRequest = "positions"
	AccountFundingHistory AccountRequest = "fundingHistory"
	AccountOrderHistory   AccountRequest = "orderHistory"
)

// ExchangeInfo fetches the market list. The upstream root varies:
// "symbols", "markets" or a bare array all occur.
func (c *Client) ExchangeInfo(ctx context.Context) ([]model.Market, error) {
	var raw any
	if _, err := c.get(ctx, "/exchangeInfo", &raw); err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}

	rows := arrayRoot(raw, "symbols", "markets")
	markets := make([]model.Market, 0, len(rows))
	for _, row := range rows {
		m := mapper.MapMarket(row)
		if m.Symbol == "" {
			continue
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// Ticker fetches the ticker for one symbol.
func (c *Client) Ticker(ctx context.Context, symbol string) (model.Ticker, error) {
	var raw any
	if _, err := c.get(ctx, "/ticker/"+url.PathEscape(symbol), &raw); err != nil {
		return model.Ticker{}, fmt.Errorf("ticker %s: %w", symbol, err)
	}
	return mapper.MapTicker(symbol, raw), nil
}

// CandlesParams selects a candle range. Start and End are unix
// milliseconds; zero means unset.
type CandlesParams struct {
	Symbol   string
	Interval model.Interval
	Start    int64
	End      int64
	Limit    int
}

// Candles fetches a candle series. The upstream root varies ("klines",
// "data" or bare); when a limit is given only the trailing rows are
// returned.
func (c *Client) Candles(ctx context.Context, p CandlesParams) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", p.Symbol)
	q.Set("interval", string(p.Interval))
	if p.Start > 0 {
		q.Set("startTime", strconv.FormatInt(p.Start, 10))
	}
	if p.End > 0 {
		q.Set("endTime", strconv.FormatInt(p.End, 10))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	var raw any
	if _, err := c.get(ctx, "/klines?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("candles %s %s: %w", p.Symbol, p.Interval, err)
	}

	candles := mapper.MapCandles(rootValue(raw, "klines", "data"))
	if p.Limit > 0 && len(candles) > p.Limit {
		candles = candles[len(candles)-p.Limit:]
	}
	return candles, nil
}

// OrderBook fetches the level-2 book for one symbol. Limit and grouping
// are optional.
func (c *Client) OrderBook(ctx context.Context, symbol string, limit, grouping int) (model.OrderBook, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if grouping > 0 {
		q.Set("grouping", strconv.Itoa(grouping))
	}

	var raw any
	if _, err := c.get(ctx, "/l2book?"+q.Encode(), &raw); err != nil {
		return model.OrderBook{}, fmt.Errorf("order book %s: %w", symbol, err)
	}
	return mapper.MapOrderBook(symbol, raw), nil
}

// AccountData is one account view. Fills and Positions are mapped when
// the response carries them; Raw always holds the decoded body.
type AccountData struct {
	Fills     []model.Fill
	Positions []model.Position
	Raw       map[string]any
}

// Account performs an unsigned read-only account request.
func (c *Client) Account(ctx context.Context, wallet string, request AccountRequest, limit int) (AccountData, error) {
	body := map[string]any{
		"wallet":  wallet,
		"request": string(request),
	}
	if limit > 0 {
		body["limit"] = limit
	}

	var raw any
	if _, err := c.post(ctx, "/account", body, &raw); err != nil {
		return AccountData{}, fmt.Errorf("account %s: %w", request, err)
	}

	out := AccountData{}
	obj, _ := raw.(map[string]any)
	out.Raw = obj
	if obj != nil {
		if fills, ok := obj["fills"]; ok {
			out.Fills = mapper.MapFills(fills)
		}
		if positions, ok := obj["positions"]; ok {
			out.Positions = mapper.MapPositions(positions)
		}
	}
	return out, nil
}

// rootValue unwraps {"key": v} envelopes, probing keys in order; a value
// that is not so wrapped comes back as-is.
func rootValue(raw any, keys ...string) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			return v
		}
	}
	return raw
}

// arrayRoot is rootValue for array payloads.
func arrayRoot(raw any, keys ...string) []any {
	arr, _ := rootValue(raw, keys...).([]any)
	return arr
}
