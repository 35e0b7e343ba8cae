package client_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/coingecko-client/internal/testutil"
	"github.com/quantfold/coingecko-client/pkg/client"
	"github.com/quantfold/coingecko-client/pkg/endpoint"
	"github.com/quantfold/coingecko-client/pkg/pagination"
)

// testRegistry returns a small registry backed by the mock server's paths.
func testRegistry(t *testing.T) *endpoint.Registry {
	t.Helper()

	reg, err := endpoint.NewRegistry([]endpoint.Endpoint{
		{Name: "ping", Path: "/ping"},
		{Name: "coins_id", Path: "/coins/{id}"},
		{
			Name: "simple_price",
			Path: "/simple/price",
			Query: []endpoint.Param{
				{Name: "ids", Required: true},
				{Name: "vs_currencies", Required: true},
			},
		},
		{
			Name:      "coins_markets",
			Path:      "/coins/markets",
			Paginated: true,
			Query: []endpoint.Param{
				{Name: "vs_currency", Required: true},
				{Name: "page"},
				{Name: "per_page"},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

// noWait is an injectable backoff that returns immediately, so retry tests
// run instantly while still counting how often a delay was requested.
type noWait struct {
	calls []int
}

func (n *noWait) Wait(_ context.Context, attempt int) error {
	n.calls = append(n.calls, attempt)
	return nil
}

func newTestClient(t *testing.T, mock *testutil.MockAPI, expLimit int) (*client.Client, *noWait) {
	t.Helper()

	backoff := &noWait{}
	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Registry = testRegistry(t)
	cfg.ExpLimit = expLimit
	cfg.Backoff = backoff

	c, err := client.New(cfg)
	require.NoError(t, err)
	return c, backoff
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*client.Config)
	}{
		{"empty base URL", func(c *client.Config) { c.BaseURL = "" }},
		{"empty user agent", func(c *client.Config) { c.UserAgent = "" }},
		{"negative exp limit", func(c *client.Config) { c.ExpLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := client.DefaultConfig()
			tt.mutate(&cfg)
			_, err := client.New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := client.New(client.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, endpoint.Default().Len(), c.Registry().Len())
}

func TestDo_PlainCall(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/ping", testutil.NewOKResponse(`{"gecko_says": "(V3) To the Moon!"}`))

	c, _ := newTestClient(t, mock, 0)

	res, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.NoError(t, err)
	assert.False(t, res.Paginated())

	var body struct {
		GeckoSays string `json:"gecko_says"`
	}
	require.NoError(t, res.Decode(&body))
	assert.Equal(t, "(V3) To the Moon!", body.GeckoSays)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestDo_PathArgsAndQuery(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/simple/price", testutil.NewOKResponse(`{"bitcoin": {"usd": 50000}}`))

	c, _ := newTestClient(t, mock, 0)

	query := url.Values{}
	query.Set("ids", "bitcoin")
	query.Set("vs_currencies", "usd")

	_, err := c.Do(context.Background(), client.Call{Endpoint: "simple_price", Query: query})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetURLCount("/simple/price?ids=bitcoin&vs_currencies=usd"))
}

func TestDo_MalformedCall_NoRequestIssued(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c, _ := newTestClient(t, mock, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		call client.Call
	}{
		{"unknown endpoint", client.Call{Endpoint: "nope"}},
		{"missing path arg", client.Call{Endpoint: "coins_id"}},
		{"extra path arg", client.Call{Endpoint: "ping", PathArgs: []string{"x"}}},
		{"unknown query param", client.Call{
			Endpoint: "ping",
			Query:    url.Values{"bogus": []string{"1"}},
		}},
		{"missing required query param", client.Call{
			Endpoint: "simple_price",
			Query:    url.Values{"ids": []string{"bitcoin"}},
		}},
		{"pages on non-paginated endpoint", client.Call{
			Endpoint: "ping",
			Pages:    &pagination.Range{Start: 1, End: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Do(ctx, tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, endpoint.ErrMalformedCall)
		})
	}

	assert.Equal(t, 0, mock.GetRequestCount(), "malformed calls must not reach the wire")
}

func TestDo_RetriesOn429ThenSucceeds(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetRateLimitedThenOK("/ping", 3, `{"gecko_says": "ok"}`)

	c, backoff := newTestClient(t, mock, 5)

	res, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.NoError(t, err)
	assert.NotNil(t, res.Body)

	// 3 rate-limited attempts plus the successful one.
	assert.Equal(t, 4, mock.GetRequestCount())
	assert.Equal(t, []int{1, 2, 3}, backoff.calls)
}

func TestDo_RetryBudgetExhausted(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/ping", testutil.NewRateLimitResponse())

	expLimit := 3
	c, backoff := newTestClient(t, mock, expLimit)

	_, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrRateLimitExhausted)
	assert.Contains(t, err.Error(), "exp limit reached")

	// Exactly ExpLimit+1 attempts, with a delay before each retry.
	assert.Equal(t, expLimit+1, mock.GetRequestCount())
	assert.Len(t, backoff.calls, expLimit)
}

func TestDo_ZeroExpLimit_SingleAttempt(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/ping", testutil.NewRateLimitResponse())

	c, backoff := newTestClient(t, mock, 0)

	_, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.ErrorIs(t, err, client.ErrRateLimitExhausted)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Empty(t, backoff.calls)
}

func TestDo_StatusErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/coins/unknown-coin", testutil.NewNotFoundResponse())

	c, backoff := newTestClient(t, mock, 5)

	_, err := c.Do(context.Background(), client.Call{
		Endpoint: "coins_id",
		PathArgs: []string{"unknown-coin"},
	})
	require.Error(t, err)

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Empty(t, backoff.calls)
}

func TestDo_ServerErrorNotRetried(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/ping", testutil.NewServerErrorResponse())

	c, _ := newTestClient(t, mock, 5)

	_, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestDo_TransportError(t *testing.T) {
	mock := testutil.NewMockAPI()
	mock.Close() // server down: every dial fails

	c, backoff := newTestClient(t, mock, 5)

	_, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.Error(t, err)

	var transportErr *client.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Empty(t, backoff.calls, "transport errors are not retried")
}

func TestDo_UserAgentHeader(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c, _ := newTestClient(t, mock, 0)

	_, err := c.Do(context.Background(), client.Call{Endpoint: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "coingecko-client/0.1.0", mock.LastRequestHeader.Get("User-Agent"))
	assert.Equal(t, "application/json", mock.LastRequestHeader.Get("Accept"))
}

func TestDo_BoundedPagination(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPagedResponse("/coins/markets", 250, 100)

	c, _ := newTestClient(t, mock, 0)

	res, err := c.Do(context.Background(), client.Call{
		Endpoint: "coins_markets",
		Query:    url.Values{"vs_currency": []string{"usd"}},
		Pages:    &pagination.Range{Start: 1, End: 3, PerPage: 100},
	})
	require.NoError(t, err)
	require.True(t, res.Paginated())
	require.Len(t, res.Pages, 3)

	for i, page := range res.Pages {
		assert.Equal(t, i+1, page.Number)
	}
	assert.Equal(t, 3, mock.GetRequestCount())

	// Every request carried the page and per_page parameters.
	for i := 1; i <= 3; i++ {
		normalized := fmt.Sprintf("/coins/markets?page=%d&per_page=100&vs_currency=usd", i)
		assert.Equal(t, 1, mock.GetURLCount(normalized))
	}
}

func TestDo_UnboundedPagination(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	// total=19, per_page=5: ceil(19/5) = 4 pages.
	mock.SetPagedResponse("/coins/markets", 19, 5)

	c, _ := newTestClient(t, mock, 0)

	res, err := c.Do(context.Background(), client.Call{
		Endpoint: "coins_markets",
		Query:    url.Values{"vs_currency": []string{"usd"}},
		Pages:    &pagination.Range{Start: 1, PerPage: 5},
	})
	require.NoError(t, err)
	require.Len(t, res.Pages, 4)
	assert.Equal(t, 4, mock.GetRequestCount())

	// Pages arrive in ascending order.
	for i, page := range res.Pages {
		assert.Equal(t, i+1, page.Number)

		var body []struct {
			Page int `json:"page"`
		}
		require.NoError(t, res.DecodePage(i, &body))
		require.Len(t, body, 1)
		assert.Equal(t, i+1, body[0].Page)
	}
}

func TestDo_PaginationAbortsOnPageFailure(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	})

	c, _ := newTestClient(t, mock, 0)

	_, err := c.Do(context.Background(), client.Call{
		Endpoint: "coins_markets",
		Query:    url.Values{"vs_currency": []string{"usd"}},
		Pages:    &pagination.Range{Start: 1, End: 4},
	})
	require.Error(t, err)

	var statusErr *client.StatusError
	assert.ErrorAs(t, err, &statusErr)

	// Page 1 succeeded, page 2 failed, pages 3 and 4 were never requested.
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestDo_InvalidPageRange(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	c, _ := newTestClient(t, mock, 0)

	_, err := c.Do(context.Background(), client.Call{
		Endpoint: "coins_markets",
		Query:    url.Values{"vs_currency": []string{"usd"}},
		Pages:    &pagination.Range{Start: 3, End: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, endpoint.ErrMalformedCall)
	assert.Equal(t, 0, mock.GetRequestCount())
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/ping", testutil.NewRateLimitResponse())

	ctx, cancel := context.WithCancel(context.Background())

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.Registry = testRegistry(t)
	cfg.ExpLimit = 5
	cfg.Backoff = client.BackoffFunc(func(ctx context.Context, attempt int) error {
		cancel()
		<-ctx.Done()
		return fmt.Errorf("%w: %v", client.ErrContextCancelled, ctx.Err())
	})

	c, err := client.New(cfg)
	require.NoError(t, err)

	_, err = c.Do(ctx, client.Call{Endpoint: "ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrContextCancelled)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestResult_DecodePaginatedBody(t *testing.T) {
	res := client.Result{Pages: []pagination.Page{{Number: 1, Body: []byte(`[]`)}}}

	var v any
	err := res.Decode(&v)
	assert.ErrorIs(t, err, client.ErrPaginatedResult)

	assert.Error(t, res.DecodePage(5, &v))
	assert.NoError(t, res.DecodePage(0, &v))
}

func TestExponentialBackoff_Bounds(t *testing.T) {
	b := &client.ExponentialBackoff{Initial: 1, Max: 8, Multiplier: 2.0}

	// Attempt 4 would be 8ns before the cap; jitter keeps it within ±20%.
	ctx := context.Background()
	for attempt := 1; attempt <= 6; attempt++ {
		require.NoError(t, b.Wait(ctx, attempt))
	}

	slow := &client.ExponentialBackoff{Initial: time.Minute, Max: time.Minute, Multiplier: 2.0}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := slow.Wait(cctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrContextCancelled), "cancelled context should abort the wait")
}
