package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies one cached response.
type Key struct {
	// Endpoint is the registry name of the endpoint, e.g. "coins_markets".
	Endpoint string

	// Path is the materialized request path, e.g. "/coins/bitcoin/tickers".
	Path string

	// Query holds the request's query parameters.
	Query url.Values
}

// KeyForURL derives a key from a fully materialized request URL. A URL that
// fails to parse degrades to a verbatim-string key rather than an error; the
// cache then simply keys on the raw URL.
func KeyForURL(endpointName, rawURL string) Key {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{Endpoint: endpointName, Path: rawURL}
	}
	return Key{
		Endpoint: endpointName,
		Path:     u.Path,
		Query:    u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: cg:endpoint:path:query1=val1:query2=val2
//
// Example:
//
//	cg:coins_markets:/api/v3/coins/markets:page=2:vs_currency=usd
func (k Key) String() string {
	parts := []string{"cg", k.Endpoint, k.Path}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Query.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}
