// Package cache provides an optional Redis-backed TTL cache for CoinGecko
// GET responses.
//
// CoinGecko's free tier exposes no usable Expires or ETag contract, so
// entries live for a fixed, configured TTL rather than a server-driven one.
// Keys are derived from the request path and its sorted query string, so the
// same logical request always maps to the same entry regardless of query
// parameter order.
//
// The cache is a read-through layer in front of the dispatcher: a hit serves
// the stored body and headers without touching the network; a 200 response
// populates the cache on the way out. When no Redis client is configured the
// client runs without this package entirely.
package cache
