// Package client implements the CoinGecko API runtime: a retrying dispatcher
// for individual GET requests, deferred execution of calls queued under
// caller-chosen identifiers, and multi-page aggregation of paginated
// endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/coingecko-client/pkg/cache"
	"github.com/quantfold/coingecko-client/pkg/endpoint"
	"github.com/quantfold/coingecko-client/pkg/pagination"
	"github.com/quantfold/coingecko-client/pkg/ratelimit"
)

// Call describes one invocation of a registered endpoint.
type Call struct {
	// Endpoint is the registry name, e.g. "coins_id_tickers".
	Endpoint string

	// PathArgs fill the endpoint's path slots positionally.
	PathArgs []string

	// Query holds the query-parameter values. May be nil.
	Query url.Values

	// Pages, when set, turns the call into a paginated call expanded by the
	// pagination aggregator. The endpoint must be marked Paginated.
	Pages *pagination.Range
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without a trailing slash.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// HTTPClient performs the actual requests. Defaults to an *http.Client
	// with a 30s timeout.
	HTTPClient *http.Client

	// Registry of invocable endpoints. Defaults to endpoint.Default().
	Registry *endpoint.Registry

	// ExpLimit bounds the number of extra attempts after the first for a
	// single rate-limited request: a request is attempted at most
	// ExpLimit+1 times before ErrRateLimitExhausted.
	ExpLimit int

	// Backoff delay between rate-limited attempts. When nil, an
	// ExponentialBackoff built from the three fields below is used.
	Backoff           Backoff
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// Redis enables the optional response cache and the shared 429
	// cooldown tracker. Both are disabled when nil.
	Redis *redis.Client

	// CacheTTL is the lifetime of cached 200 responses.
	CacheTTL time.Duration

	// Cooldown is how long cooperating processes hold off after an
	// observed 429.
	Cooldown time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           endpoint.BaseURL,
		UserAgent:         "coingecko-client/0.1.0",
		ExpLimit:          5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		CacheTTL:          30 * time.Second,
		Cooldown:          60 * time.Second,
	}
}

// Client invokes CoinGecko endpoints either immediately or deferred through
// the call queue. All methods are safe for concurrent use; queue drains are
// serialized.
type Client struct {
	httpClient *http.Client
	registry   *endpoint.Registry
	backoff    Backoff
	cache      *cache.Manager
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger

	queue callQueue
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.ExpLimit < 0 {
		return nil, fmt.Errorf("exp_limit must be >= 0 (got %d)", cfg.ExpLimit)
	}

	logger := log.With().Str("component", "coingecko-client").Logger()

	registry := cfg.Registry
	if registry == nil {
		registry = endpoint.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	backoff := cfg.Backoff
	if backoff == nil {
		initial := cfg.InitialBackoff
		if initial <= 0 {
			initial = 1 * time.Second
		}
		max := cfg.MaxBackoff
		if max <= 0 {
			max = 30 * time.Second
		}
		multiplier := cfg.BackoffMultiplier
		if multiplier < 1 {
			multiplier = 2.0
		}
		backoff = &ExponentialBackoff{Initial: initial, Max: max, Multiplier: multiplier}
	}

	c := &Client{
		httpClient: httpClient,
		registry:   registry,
		backoff:    backoff,
		config:     cfg,
		logger:     logger,
	}
	c.queue.init()

	if cfg.Redis != nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		cooldown := cfg.Cooldown
		if cooldown <= 0 {
			cooldown = 60 * time.Second
		}
		c.cache = cache.NewManager(cfg.Redis, ttl)
		c.tracker = ratelimit.NewTracker(cfg.Redis, cooldown, logger)
	}

	return c, nil
}

// Registry returns the endpoint registry the client invokes against.
func (c *Client) Registry() *endpoint.Registry {
	return c.registry
}

// Do invokes a call immediately. Plain calls return the decoded body;
// paginated calls return the aggregated pages in ascending page order.
func (c *Client) Do(ctx context.Context, call Call) (Result, error) {
	ep, err := c.resolve(call)
	if err != nil {
		return Result{}, err
	}

	if call.Pages != nil {
		pages, err := pagination.FetchRange(ctx, &pageFetcher{c: c, ep: ep, call: call}, *call.Pages)
		if err != nil {
			return Result{}, fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
		return Result{Pages: pages}, nil
	}

	rawURL, err := ep.URL(c.config.BaseURL, call.PathArgs, call.Query)
	if err != nil {
		return Result{}, err
	}
	body, _, err := c.fetch(ctx, ep.Name, rawURL)
	if err != nil {
		return Result{}, err
	}
	return Result{Body: body}, nil
}

// resolve validates the call shape against the registry before any request.
func (c *Client) resolve(call Call) (*endpoint.Endpoint, error) {
	ep, ok := c.registry.Get(call.Endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: unknown endpoint %q", endpoint.ErrMalformedCall, call.Endpoint)
	}
	if call.Pages != nil {
		if !ep.Paginated {
			return nil, fmt.Errorf("%w: endpoint %s is not paginated", endpoint.ErrMalformedCall, ep.Name)
		}
		if err := call.Pages.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", endpoint.ErrMalformedCall, err)
		}
	}
	return ep, nil
}

// fetch performs one GET with rate-limit retry, returning the response body
// and headers. 429 responses are retried with backoff until the retry budget
// is spent; transport errors and other non-200 statuses fail immediately.
func (c *Client) fetch(ctx context.Context, epName, rawURL string) (json.RawMessage, http.Header, error) {
	start := time.Now()
	defer func() {
		cgRequestDuration.WithLabelValues(epName).Observe(time.Since(start).Seconds())
	}()

	if c.tracker != nil {
		if err := c.awaitCooldown(ctx, epName); err != nil {
			return nil, nil, err
		}
	}

	var key cache.Key
	if c.cache != nil {
		key = cache.KeyForURL(epName, rawURL)
		if entry, err := c.cache.Get(ctx, key); err == nil {
			c.logger.Debug().Str("endpoint", epName).Msg("Serving response from cache")
			return entry.Data, entry.Headers, nil
		} else if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", epName).Msg("Cache get error")
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, &TransportError{URL: rawURL, Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			cgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			cgRequestsTotal.WithLabelValues(epName, "network_error").Inc()
			c.logger.Error().Err(err).Str("endpoint", epName).Msg("HTTP request failed")
			return nil, nil, &TransportError{URL: rawURL, Err: err}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		cgRequestsTotal.WithLabelValues(epName, strconv.Itoa(resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				cgErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
				return nil, nil, &TransportError{URL: rawURL, Err: readErr}
			}
			if c.tracker != nil {
				if err := c.tracker.ObserveSuccess(ctx); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to record success in rate limit tracker")
				}
			}
			if c.cache != nil {
				entry := cache.NewEntry(body, resp.StatusCode, resp.Header)
				if err := c.cache.Set(ctx, key, entry); err != nil {
					c.logger.Warn().Err(err).Str("endpoint", epName).Msg("Failed to cache response")
				}
			}
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", epName).
					Int("attempt", attempt+1).
					Msg("Request succeeded after rate-limit retry")
			}
			return body, resp.Header, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			cgErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			if c.tracker != nil {
				if err := c.tracker.Observe429(ctx); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to record 429 in rate limit tracker")
				}
			}
			if attempt >= c.config.ExpLimit {
				cgRetryExhaustedTotal.Inc()
				c.logger.Warn().
					Str("endpoint", epName).
					Int("attempts", attempt+1).
					Msg("Rate-limit retry budget exhausted")
				return nil, nil, fmt.Errorf("GET %s: %w", rawURL, ErrRateLimitExhausted)
			}

			cgRetriesTotal.Inc()
			c.logger.Debug().
				Str("endpoint", epName).
				Int("attempt", attempt+1).
				Msg("Rate limited, backing off before retry")

			waitStart := time.Now()
			if err := c.backoff.Wait(ctx, attempt+1); err != nil {
				return nil, nil, err
			}
			cgRetryBackoffSeconds.Observe(time.Since(waitStart).Seconds())

		default:
			class := classify(resp.StatusCode, nil)
			cgErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("endpoint", epName).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Request failed with unexpected status")
			return nil, nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}
	}
}

// awaitCooldown waits out any shared 429 cooldown before dispatching.
func (c *Client) awaitCooldown(ctx context.Context, epName string) error {
	remaining, err := c.tracker.CooldownRemaining(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Cooldown check failed, proceeding")
		return nil
	}
	if remaining <= 0 {
		return nil
	}

	c.logger.Info().
		Str("endpoint", epName).
		Dur("remaining", remaining).
		Msg("Shared rate-limit cooldown active, waiting")

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(remaining):
		return nil
	}
}

// pageFetcher adapts one paginated Call to the pagination.PageFetcher
// capability: each page fetch materializes a page-scoped URL and runs it
// through the retrying dispatcher.
type pageFetcher struct {
	c    *Client
	ep   *endpoint.Endpoint
	call Call
}

// FetchPage implements pagination.PageFetcher.
func (f *pageFetcher) FetchPage(ctx context.Context, page int) (json.RawMessage, pagination.Meta, error) {
	query := make(url.Values, len(f.call.Query)+2)
	for k, vs := range f.call.Query {
		query[k] = vs
	}
	query.Set("page", strconv.Itoa(page))
	if f.call.Pages.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(f.call.Pages.PerPage))
	}

	rawURL, err := f.ep.URL(f.c.config.BaseURL, f.call.PathArgs, query)
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	body, headers, err := f.c.fetch(ctx, f.ep.Name, rawURL)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	cgPagesFetchedTotal.Inc()
	return body, pagination.MetaFromHeaders(headers), nil
}
