package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Response headers carrying pagination metadata.
const (
	HeaderTotal   = "Total"
	HeaderPerPage = "Per-Page"
)

// ErrMissingMetadata is returned when an unbounded range cannot determine the
// page count from the first page's response metadata.
var ErrMissingMetadata = errors.New("pagination metadata missing or malformed")

// PageFetcher fetches a single page of a paginated request. Implementations
// set the page query parameter, perform the request (including any retry
// policy), and surface the response metadata headers.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (json.RawMessage, Meta, error)
}

// Meta is the server-reported pagination metadata of one response.
type Meta struct {
	Total      int
	PerPage    int
	HasTotal   bool
	HasPerPage bool
}

// MetaFromHeaders extracts pagination metadata from response headers. Absent
// headers leave the corresponding Has flag false; unparseable values are
// treated as absent.
func MetaFromHeaders(h http.Header) Meta {
	var m Meta
	if v := h.Get(HeaderTotal); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			m.Total = n
			m.HasTotal = true
		}
	}
	if v := h.Get(HeaderPerPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			m.PerPage = n
			m.HasPerPage = true
		}
	}
	return m
}

// Range describes the pages of one logical paginated request.
type Range struct {
	// Start is the first page number, 1-based.
	Start int

	// End is the last page, inclusive. Zero means unbounded: continue until
	// the server-reported total is covered.
	End int

	// PerPage is the caller-requested page size. Forwarded to the server
	// and used as the page-size fallback when the Per-Page header is absent.
	PerPage int
}

// Bounded reports whether the range has an explicit last page.
func (r Range) Bounded() bool {
	return r.End != 0
}

// Validate checks the range shape before any page is fetched.
func (r Range) Validate() error {
	if r.Start < 1 {
		return fmt.Errorf("page range: start must be >= 1, got %d", r.Start)
	}
	if r.End != 0 && r.End < r.Start {
		return fmt.Errorf("page range: end %d precedes start %d", r.End, r.Start)
	}
	if r.PerPage < 0 {
		return fmt.Errorf("page range: per_page must be >= 0, got %d", r.PerPage)
	}
	return nil
}

// Page is one fetched page: its number and the decoded body.
type Page struct {
	Number int
	Body   json.RawMessage
}

// FetchRange expands r into per-page fetches and returns the pages in
// ascending page order. Any fetch failure aborts the range and is returned
// with the failing page number attached.
func FetchRange(ctx context.Context, f PageFetcher, r Range) ([]Page, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if r.Bounded() {
		return fetchBounded(ctx, f, r)
	}
	return fetchUnbounded(ctx, f, r)
}

func fetchBounded(ctx context.Context, f PageFetcher, r Range) ([]Page, error) {
	pages := make([]Page, 0, r.End-r.Start+1)
	for n := r.Start; n <= r.End; n++ {
		body, _, err := f.FetchPage(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		pages = append(pages, Page{Number: n, Body: body})
	}
	return pages, nil
}

func fetchUnbounded(ctx context.Context, f PageFetcher, r Range) ([]Page, error) {
	body, meta, err := f.FetchPage(ctx, r.Start)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", r.Start, err)
	}

	perPage := r.PerPage
	if meta.HasPerPage {
		perPage = meta.PerPage
	}
	if !meta.HasTotal || perPage <= 0 {
		return nil, fmt.Errorf("%w: total=%v per_page=%d", ErrMissingMetadata, meta.HasTotal, perPage)
	}

	// ceil(total / perPage) pages overall, first one already fetched.
	numPages := (meta.Total + perPage - 1) / perPage
	if numPages < 1 {
		numPages = 1
	}

	pages := make([]Page, 0, numPages)
	pages = append(pages, Page{Number: r.Start, Body: body})
	for n := r.Start + 1; n <= r.Start+numPages-1; n++ {
		body, _, err := f.FetchPage(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		pages = append(pages, Page{Number: n, Body: body})
	}
	return pages, nil
}
