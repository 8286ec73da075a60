// Package feed keeps the in-memory market state synchronized with the
// exchange.
//
// The Engine drives the push feed: it subscribes the batched context
// topic plus the selected symbol's order-book topic and applies inbound
// updates to the store. REST pollers fill in what the stream lacks: a
// slow full-universe ticker sweep and a fast candle refresh for the
// selected symbol. Fetch failures degrade the affected data only; they
// never take the feed down.
package feed
