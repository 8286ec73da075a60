package model

// -----------------------------------------------------------------------------
// Exchange Metadata
// -----------------------------------------------------------------------------

// Market describes one tradeable instrument from exchange metadata.
// Created once at bootstrap and read-only thereafter.
type Market struct {
	Symbol     string   // Primary key (e.g. "BTC-PERP")
	BaseAsset  string   // Base asset name
	QuoteAsset string   // Quote asset name
	Status     string   // Trading status as reported upstream
	TickSize   *float64 // Price increment
	StepSize   *float64 // Size increment
}

// -----------------------------------------------------------------------------
// Live Market Data
// -----------------------------------------------------------------------------

// Ticker is a per-symbol price summary. Every source (REST poll, batched
// context push, single-symbol push) may populate only a subset of fields.
type Ticker struct {
	Symbol       string
	Last         *float64 // Last traded price
	Mark         *float64 // Mark price
	Oracle       *float64 // Oracle price
	FundingRate  *float64
	OpenInterest *float64
	Volume24h    *float64 // Quote volume preferred over base when both exist
	High24h      *float64
	Low24h       *float64
	Change24h    *float64 // Absolute 24h change
	Change24hPct *float64 // Percent 24h change
	Timestamp    *int64   // Exchange timestamp (ms)
}

// BookLevel is a single price level in an order book.
type BookLevel struct {
	Price float64
	Size  float64
}

// OrderBook is a full per-symbol snapshot: bids descending, asks ascending.
// Updates replace the whole book, never patch levels.
type OrderBook struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp *int64 // Snapshot timestamp (ms)
}

// Candle is one OHLCV bar keyed by open time.
type Candle struct {
	OpenTime int64 // ms
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Interval is a candle interval accepted by the upstream klines route.
type Interval string

const (
	Interval10s Interval = "10s"
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// Valid reports whether the interval is one the upstream accepts.
func (i Interval) Valid() bool {
	switch i {
	case Interval10s, Interval1m, Interval5m, Interval15m, Interval1h, Interval4h, Interval1d:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Account Data
// -----------------------------------------------------------------------------

// Side is a taker direction for fills.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Fill is one historical trade execution for a tracked wallet.
type Fill struct {
	Symbol    string
	Side      Side
	Price     *float64
	Size      *float64
	Fee       *float64
	Timestamp *int64 // ms
}

// Position is the current open exposure for a tracked wallet on one symbol.
type Position struct {
	Symbol        string
	Side          PositionSide
	Size          *float64
	EntryPrice    *float64
	MarkPrice     *float64
	UnrealizedPnL *float64
	Leverage      *float64
}
