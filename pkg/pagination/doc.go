// Package pagination expands one logical paginated request into an ordered
// sequence of per-page fetches and merges the results.
//
// CoinGecko reports pagination metadata through the Total and Per-Page
// response headers. A bounded range fetches pages Start..End inclusive; an
// unbounded range (End == 0) fetches the first page, derives the page count
// from the metadata, and continues until the computed last page.
//
// Example usage:
//
//	pages, err := pagination.FetchRange(ctx, fetcher, pagination.Range{Start: 1, End: 3})
//
// Pages are fetched strictly sequentially in ascending order: page N+1 is only
// requested once page N's outcome is known, so the request sequence observed
// by the server is deterministic and any failure aborts the whole range.
package pagination
