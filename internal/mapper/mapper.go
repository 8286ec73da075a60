package mapper

import (
	"github.com/bulktrade/terminal-data/internal/model"
)

// Candidate keys per logical field, in probe priority order. Compact keys
// come from the push feed, long keys from REST.
var (
	symbolKeys = []string{"symbol", "s"}

	marketBaseKeys   = []string{"baseAsset", "base", "b"}
	marketQuoteKeys  = []string{"quoteAsset", "quote", "q"}
	marketStatusKeys = []string{"status", "st"}
	marketTickKeys   = []string{"tickSize", "tickSz", "ts"}
	marketStepKeys   = []string{"stepSize", "stepSz", "ss"}

	tickerLastKeys    = []string{"lastPrice", "last", "px", "c"}
	tickerMarkKeys    = []string{"markPrice", "mark", "markPx", "mp"}
	tickerOracleKeys  = []string{"oraclePrice", "oracle", "oraclePx", "op"}
	tickerFundingKeys = []string{"fundingRate", "fr", "funding"}
	tickerOIKeys      = []string{"openInterest", "oi"}
	tickerVolumeKeys  = []string{"quoteVolume", "volume", "volume24h", "v24h", "v"}
	tickerHighKeys    = []string{"highPrice", "high24h", "h24h", "h"}
	tickerLowKeys     = []string{"lowPrice", "low24h", "l24h", "l"}
	tickerChangeKeys  = []string{"priceChange", "change24h", "ch24h"}
	tickerPctKeys     = []string{"priceChangePercent", "change24hPct", "pct"}
	tickerTimeKeys    = []string{"timestamp", "ts", "time", "t"}

	bookBidsKeys = []string{"bids", "b"}
	bookAsksKeys = []string{"asks", "a"}
	bookTimeKeys = []string{"ts", "t"}

	contextSymbolKeys = []string{"symbol", "s", "coin"}

	sideKeys     = []string{"side", "sd"}
	priceKeys    = []string{"px", "price"}
	sizeKeys     = []string{"sz", "size", "qty"}
	feeKeys      = []string{"fee"}
	timeKeys     = []string{"ts", "t"}
	entryKeys    = []string{"entryPx", "epx", "entryPrice"}
	markPxKeys   = []string{"markPx", "mpx", "markPrice"}
	upnlKeys     = []string{"pnlUnrealized", "upnl"}
	leverageKeys = []string{"leverage", "lev"}
)

// MapMarket normalizes one exchange-metadata row.
func MapMarket(raw any) model.Market {
	m := asMap(raw)
	if m == nil {
		return model.Market{}
	}
	return model.Market{
		Symbol:     probeString(m, symbolKeys),
		BaseAsset:  probeString(m, marketBaseKeys),
		QuoteAsset: probeString(m, marketQuoteKeys),
		Status:     probeString(m, marketStatusKeys),
		TickSize:   probeNumber(m, marketTickKeys),
		StepSize:   probeNumber(m, marketStepKeys),
	}
}

// MapTicker normalizes one ticker payload for the given symbol. Fields the
// payload does not carry stay nil; the store's merge keeps earlier values.
func MapTicker(symbol string, raw any) model.Ticker {
	m := asMap(raw)
	if m == nil {
		return model.Ticker{Symbol: symbol}
	}
	return model.Ticker{
		Symbol:       symbol,
		Last:         probeNumber(m, tickerLastKeys),
		Mark:         probeNumber(m, tickerMarkKeys),
		Oracle:       probeNumber(m, tickerOracleKeys),
		FundingRate:  probeNumber(m, tickerFundingKeys),
		OpenInterest: probeNumber(m, tickerOIKeys),
		Volume24h:    probeNumber(m, tickerVolumeKeys),
		High24h:      probeNumber(m, tickerHighKeys),
		Low24h:       probeNumber(m, tickerLowKeys),
		Change24h:    probeNumber(m, tickerChangeKeys),
		Change24hPct: probeNumber(m, tickerPctKeys),
		Timestamp:    probeMillis(m, tickerTimeKeys),
	}
}

// MapContextRows maps a batched multi-symbol context push into tickers.
// Rows live under "ctx", sometimes nested in "data"; rows without a
// symbol are skipped.
func MapContextRows(raw any) []model.Ticker {
	obj := asMap(raw)
	rows := asSlice(obj["ctx"])
	if rows == nil {
		rows = asSlice(asMap(obj["data"])["ctx"])
	}
	out := make([]model.Ticker, 0, len(rows))
	for _, r := range rows {
		row := asMap(r)
		if row == nil {
			continue
		}
		symbol := probeString(row, contextSymbolKeys)
		if symbol == "" {
			continue
		}
		out = append(out, MapTicker(symbol, row))
	}
	return out
}

// MapCandles normalizes a candle list. Rows may be positional arrays
// [t,o,h,l,c,v] or named objects {t,o,h,l,c,v}. Rows with no resolvable
// open time are dropped.
func MapCandles(raw any) []model.Candle {
	rows := asSlice(raw)
	out := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		var c model.Candle
		var t *int64
		switch r := row.(type) {
		case []any:
			if len(r) < 6 {
				continue
			}
			t = Millis(r[0])
			c.Open = numOrZero(r[1])
			c.High = numOrZero(r[2])
			c.Low = numOrZero(r[3])
			c.Close = numOrZero(r[4])
			c.Volume = numOrZero(r[5])
		case map[string]any:
			t = probeMillis(r, []string{"t"})
			c.Open = probeOrZero(r, "o")
			c.High = probeOrZero(r, "h")
			c.Low = probeOrZero(r, "l")
			c.Close = probeOrZero(r, "c")
			c.Volume = probeOrZero(r, "v")
		default:
			continue
		}
		if t == nil {
			continue
		}
		c.OpenTime = *t
		out = append(out, c)
	}
	return out
}

// MapOrderBook normalizes a full order-book snapshot. Levels may be
// positional [px, sz] pairs or named {px, sz} objects.
func MapOrderBook(symbol string, raw any) model.OrderBook {
	m := asMap(raw)
	if m == nil {
		return model.OrderBook{Symbol: symbol}
	}
	bids, _ := probe(m, bookBidsKeys)
	asks, _ := probe(m, bookAsksKeys)
	return model.OrderBook{
		Symbol:    symbol,
		Bids:      mapLevels(bids),
		Asks:      mapLevels(asks),
		Timestamp: probeMillis(m, bookTimeKeys),
	}
}

func mapLevels(raw any) []model.BookLevel {
	rows := asSlice(raw)
	out := make([]model.BookLevel, 0, len(rows))
	for _, row := range rows {
		switch lv := row.(type) {
		case []any:
			if len(lv) < 2 {
				continue
			}
			out = append(out, model.BookLevel{Price: numOrZero(lv[0]), Size: numOrZero(lv[1])})
		case map[string]any:
			out = append(out, model.BookLevel{Price: probeOrZero(lv, "px"), Size: probeOrZero(lv, "sz")})
		}
	}
	return out
}

// MapFills normalizes a wallet's fill history.
func MapFills(raw any) []model.Fill {
	rows := asSlice(raw)
	out := make([]model.Fill, 0, len(rows))
	for _, row := range rows {
		m := asMap(row)
		if m == nil {
			continue
		}
		side := model.SideSell
		switch probeString(m, sideKeys) {
		case "buy", "B":
			side = model.SideBuy
		}
		out = append(out, model.Fill{
			Symbol:    probeString(m, symbolKeys),
			Side:      side,
			Price:     probeNumber(m, priceKeys),
			Size:      probeNumber(m, sizeKeys),
			Fee:       probeNumber(m, feeKeys),
			Timestamp: probeMillis(m, timeKeys),
		})
	}
	return out
}

// MapPositions normalizes a wallet's open positions.
func MapPositions(raw any) []model.Position {
	rows := asSlice(raw)
	out := make([]model.Position, 0, len(rows))
	for _, row := range rows {
		m := asMap(row)
		if m == nil {
			continue
		}
		side := model.PositionShort
		switch probeString(m, sideKeys) {
		case "long", "L":
			side = model.PositionLong
		}
		out = append(out, model.Position{
			Symbol:        probeString(m, symbolKeys),
			Side:          side,
			Size:          probeNumber(m, sizeKeys),
			EntryPrice:    probeNumber(m, entryKeys),
			MarkPrice:     probeNumber(m, markPxKeys),
			UnrealizedPnL: probeNumber(m, upnlKeys),
			Leverage:      probeNumber(m, leverageKeys),
		})
	}
	return out
}

func numOrZero(v any) float64 {
	if n := Number(v); n != nil {
		return *n
	}
	return 0
}

func probeOrZero(m map[string]any, key string) float64 {
	return numOrZero(m[key])
}
