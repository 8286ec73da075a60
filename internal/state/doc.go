// Package state holds the authoritative in-process market and account
// tables.
//
// MarketState owns the per-symbol ticker, order-book, and candle tables;
// every other component holds at most transient copies. Mutation happens
// only through the exposed operations:
//   - tickers merge field-level, last-known-good
//   - order books and candle series replace wholesale per symbol
//   - selection changes are pure state transitions observed via Selections()
package state
