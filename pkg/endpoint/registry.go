// Package endpoint describes the remote CoinGecko operations the client can
// invoke: URL templates, their path slots, and their declared query
// parameters. The registry is built once at startup from static metadata and
// is immutable afterwards.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrMalformedCall is wrapped by every argument-shape error reported before a
// request is issued: wrong path-argument count, unknown query parameter, or a
// missing required query parameter.
var ErrMalformedCall = errors.New("malformed call")

// Param is one declared query parameter of an endpoint.
type Param struct {
	Name     string
	Required bool
}

// Endpoint identifies one remote GET operation.
type Endpoint struct {
	// Name is the registry key, e.g. "coins_id_tickers".
	Name string

	// Path is the URL template, e.g. "/coins/{id}/tickers".
	Path string

	// Query lists the declared query parameters.
	Query []Param

	// Paginated marks endpoints that accept page/per_page parameters and
	// can be driven through the pagination aggregator.
	Paginated bool

	// pathParams holds the slot names parsed from Path, in order.
	pathParams []string
}

var slotPattern = regexp.MustCompile(`\{([^}]*)\}`)

// PathParams returns the names of the path slots, in template order.
func (e *Endpoint) PathParams() []string {
	return e.pathParams
}

// queryParam looks up a declared query parameter by name.
func (e *Endpoint) queryParam(name string) (Param, bool) {
	for _, p := range e.Query {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// URL materializes the endpoint into a concrete request URL: path slots are
// substituted positionally from args and query values are appended as an
// encoded query string. Validation failures wrap ErrMalformedCall and are
// reported before any request is made.
func (e *Endpoint) URL(base string, args []string, query url.Values) (string, error) {
	if len(args) != len(e.pathParams) {
		return "", fmt.Errorf("%w: endpoint %s takes %d path argument(s), got %d",
			ErrMalformedCall, e.Name, len(e.pathParams), len(args))
	}

	path := e.Path
	for i, slot := range e.pathParams {
		if args[i] == "" {
			return "", fmt.Errorf("%w: endpoint %s: path argument %q is empty",
				ErrMalformedCall, e.Name, slot)
		}
		path = strings.Replace(path, "{"+slot+"}", url.PathEscape(args[i]), 1)
	}

	for name := range query {
		if _, ok := e.queryParam(name); !ok {
			return "", fmt.Errorf("%w: endpoint %s does not accept query parameter %q",
				ErrMalformedCall, e.Name, name)
		}
	}
	for _, p := range e.Query {
		if p.Required && query.Get(p.Name) == "" {
			return "", fmt.Errorf("%w: endpoint %s requires query parameter %q",
				ErrMalformedCall, e.Name, p.Name)
		}
	}

	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// Registry is an immutable mapping from endpoint name to its descriptor.
type Registry struct {
	byName map[string]*Endpoint
	names  []string
}

// NewRegistry builds a registry from endpoint descriptors. Slot names are
// parsed from each path template at construction time.
func NewRegistry(endpoints []Endpoint) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Endpoint, len(endpoints))}
	for i := range endpoints {
		ep := endpoints[i]
		if ep.Name == "" {
			return nil, fmt.Errorf("endpoint %q: name is required", ep.Path)
		}
		if !strings.HasPrefix(ep.Path, "/") {
			return nil, fmt.Errorf("endpoint %s: path must start with /", ep.Name)
		}
		if _, exists := r.byName[ep.Name]; exists {
			return nil, fmt.Errorf("endpoint %s: duplicate name", ep.Name)
		}
		for _, m := range slotPattern.FindAllStringSubmatch(ep.Path, -1) {
			if m[1] == "" {
				return nil, fmt.Errorf("endpoint %s: empty path slot", ep.Name)
			}
			ep.pathParams = append(ep.pathParams, m[1])
		}
		r.byName[ep.Name] = &ep
		r.names = append(r.names, ep.Name)
	}
	return r, nil
}

// Get returns the endpoint registered under name.
func (r *Registry) Get(name string) (*Endpoint, bool) {
	ep, ok := r.byName[name]
	return ep, ok
}

// Names returns all registered endpoint names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int {
	return len(r.names)
}
