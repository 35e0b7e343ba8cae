package client

import (
	"encoding/json"
	"errors"

	"github.com/bytedance/sonic"

	"github.com/quantfold/coingecko-client/pkg/pagination"
)

// ErrPaginatedResult is returned by Result.Decode when the result holds pages
// instead of a single body.
var ErrPaginatedResult = errors.New("result is paginated, decode pages individually")

// Result is the outcome of one executed call: either a single decoded body
// (plain call) or an ordered sequence of pages (paginated call).
type Result struct {
	// Body is the response body of a plain call. Nil for paginated calls.
	Body json.RawMessage

	// Pages holds the per-page bodies of a paginated call in ascending page
	// order. Nil for plain calls.
	Pages []pagination.Page
}

// Paginated reports whether the result carries pages.
func (r Result) Paginated() bool {
	return r.Pages != nil
}

// Decode unmarshals the body of a plain result into v.
func (r Result) Decode(v any) error {
	if r.Paginated() {
		return ErrPaginatedResult
	}
	return sonic.Unmarshal(r.Body, v)
}

// DecodePage unmarshals the body of page i (by slice index) into v.
func (r Result) DecodePage(i int, v any) error {
	if i < 0 || i >= len(r.Pages) {
		return errors.New("page index out of range")
	}
	return sonic.Unmarshal(r.Pages[i].Body, v)
}
