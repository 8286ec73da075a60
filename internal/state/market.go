package state

import (
	"sort"
	"sync"

	"github.com/bulktrade/terminal-data/internal/model"
)

// SelectionBufferSize bounds the selection-change feed.
const SelectionBufferSize = 16

// MarketState is the thread-safe authoritative table of per-symbol market
// data.
type MarketState struct {
	mu sync.RWMutex

	markets  []model.Market
	selected string

	tickers map[string]model.Ticker
	books   map[string]model.OrderBook
	candles map[string][]model.Candle

	// Output channel for orchestration (selection changes).
	selections chan string
}

// NewMarketState creates an empty store.
func NewMarketState() *MarketState {
	return &MarketState{
		tickers:    make(map[string]model.Ticker),
		books:      make(map[string]model.OrderBook),
		candles:    make(map[string][]model.Candle),
		selections: make(chan string, SelectionBufferSize),
	}
}

// SetMarkets replaces the market list. Markets are bootstrap metadata and
// read-only afterwards.
func (s *MarketState) SetMarkets(markets []model.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = append([]model.Market(nil), markets...)
}

// Markets returns a copy of the market list.
func (s *MarketState) Markets() []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Market(nil), s.markets...)
}

// SelectSymbol changes the selected symbol. It triggers no network activity
// itself; orchestration observes the change via Selections().
func (s *MarketState) SelectSymbol(symbol string) {
	s.mu.Lock()
	if s.selected == symbol {
		s.mu.Unlock()
		return
	}
	s.selected = symbol
	s.mu.Unlock()

	s.notifySelection(symbol)
}

// SelectedSymbol returns the currently selected symbol, "" if none.
func (s *MarketState) SelectedSymbol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selected
}

// Selections returns the selection-change feed.
func (s *MarketState) Selections() <-chan string {
	return s.selections
}

// UpsertTicker merges one ticker update into the stored ticker for its
// symbol. Defined incoming fields win; absent fields keep the stored value.
func (s *MarketState) UpsertTicker(t model.Ticker) {
	if t.Symbol == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickers[t.Symbol] = mergeTicker(s.tickers[t.Symbol], t)
}

// UpsertTickers merges a batch of ticker updates.
func (s *MarketState) UpsertTickers(batch []model.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range batch {
		if t.Symbol == "" {
			continue
		}
		s.tickers[t.Symbol] = mergeTicker(s.tickers[t.Symbol], t)
	}
}

// Ticker returns the stored ticker for a symbol.
func (s *MarketState) Ticker(symbol string) (model.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickers[symbol]
	return t, ok
}

// SetOrderBook replaces the stored book for the snapshot's symbol. No
// partial-level patching: delta payloads are treated as full re-snapshots.
func (s *MarketState) SetOrderBook(book model.OrderBook) {
	if book.Symbol == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[book.Symbol] = book
}

// OrderBook returns the stored book for a symbol.
func (s *MarketState) OrderBook(symbol string) (model.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[symbol]
	return b, ok
}

// SetCandles replaces the stored series for a symbol. The series is sorted
// ascending by open time and deduplicated by open time before storing, so
// consumers always see a clean series.
func (s *MarketState) SetCandles(symbol string, series []model.Candle) {
	if symbol == "" {
		return
	}

	cleaned := normalizeSeries(series)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.candles[symbol] = cleaned
}

// Candles returns the stored series for a symbol.
func (s *MarketState) Candles(symbol string) []model.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Candle(nil), s.candles[symbol]...)
}

// mergeTicker overlays next on prev field by field: a defined incoming value
// replaces, an absent one retains. This must hold for REST polls, batched
// context pushes, and single-symbol pushes alike.
func mergeTicker(prev, next model.Ticker) model.Ticker {
	out := prev
	out.Symbol = next.Symbol

	if next.Last != nil {
		out.Last = next.Last
	}
	if next.Mark != nil {
		out.Mark = next.Mark
	}
	if next.Oracle != nil {
		out.Oracle = next.Oracle
	}
	if next.FundingRate != nil {
		out.FundingRate = next.FundingRate
	}
	if next.OpenInterest != nil {
		out.OpenInterest = next.OpenInterest
	}
	if next.Volume24h != nil {
		out.Volume24h = next.Volume24h
	}
	if next.High24h != nil {
		out.High24h = next.High24h
	}
	if next.Low24h != nil {
		out.Low24h = next.Low24h
	}
	if next.Change24h != nil {
		out.Change24h = next.Change24h
	}
	if next.Change24hPct != nil {
		out.Change24hPct = next.Change24hPct
	}
	if next.Timestamp != nil {
		out.Timestamp = next.Timestamp
	}
	return out
}

// normalizeSeries sorts ascending by open time and keeps the last row per
// open time.
func normalizeSeries(series []model.Candle) []model.Candle {
	out := append([]model.Candle(nil), series...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime < out[j].OpenTime
	})

	deduped := out[:0]
	for _, c := range out {
		if n := len(deduped); n > 0 && deduped[n-1].OpenTime == c.OpenTime {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}
	return deduped
}

// notifySelection sends a change to the selections channel (non-blocking).
func (s *MarketState) notifySelection(symbol string) {
	select {
	case s.selections <- symbol:
	default:
		// Channel full, drop oldest by consuming one and retrying.
		select {
		case <-s.selections:
			s.selections <- symbol
		default:
		}
	}
}
