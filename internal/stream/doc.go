// Package stream maintains the persistent WebSocket connection to the
// exchange push feed.
//
// A Client owns one connection: it dials, re-dials on unrequested closes
// after a fixed delay, queues outbound messages while disconnected and
// flushes them in order once the socket opens. Inbound frames are
// classified into typed messages; anything unparsable is passed through
// as raw rather than dropped.
package stream
