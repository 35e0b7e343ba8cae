// Command cgfetch invokes a registered CoinGecko endpoint from the command
// line and prints the JSON response to stdout.
//
// Usage:
//
//	cgfetch -endpoint ping
//	cgfetch -endpoint coins_id -args bitcoin
//	cgfetch -endpoint simple_price -query ids=bitcoin,vs_currencies=usd
//	cgfetch -endpoint coins_markets -query vs_currency=usd -pages 1-3 -per-page 100
//	cgfetch -list
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/coingecko-client/pkg/client"
	"github.com/quantfold/coingecko-client/pkg/logging"
	"github.com/quantfold/coingecko-client/pkg/pagination"
)

func main() {
	var (
		endpointName = flag.String("endpoint", "", "registered endpoint name to invoke")
		pathArgs     = flag.String("args", "", "comma-separated path arguments")
		queryPairs   = flag.String("query", "", "comma-separated key=value query parameters")
		pages        = flag.String("pages", "", "page range, e.g. 1-3, or a start page for unbounded fetch")
		perPage      = flag.Int("per-page", 0, "items per page for paginated calls")
		expLimit     = flag.Int("exp-limit", 5, "extra attempts allowed for rate-limited requests")
		timeout      = flag.Duration("timeout", 2*time.Minute, "overall request timeout")
		list         = flag.Bool("list", false, "list registered endpoints and exit")
		pretty       = flag.Bool("pretty", false, "human-readable log output")
	)
	flag.Parse()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: *pretty,
	})

	cfg := client.DefaultConfig()
	cfg.ExpLimit = *expLimit
	if base := os.Getenv("COINGECKO_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if ua := os.Getenv("COINGECKO_USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	c, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	if *list {
		for _, name := range c.Registry().Names() {
			ep, _ := c.Registry().Get(name)
			suffix := ""
			if ep.Paginated {
				suffix = " (paginated)"
			}
			fmt.Printf("%-32s %s%s\n", name, ep.Path, suffix)
		}
		return
	}

	if *endpointName == "" {
		flag.Usage()
		os.Exit(2)
	}

	call := client.Call{Endpoint: *endpointName}
	if *pathArgs != "" {
		call.PathArgs = strings.Split(*pathArgs, ",")
	}

	query, err := parseQuery(*queryPairs)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -query value")
	}
	call.Query = query

	if *pages != "" {
		r, err := parsePages(*pages, *perPage)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -pages value")
		}
		call.Pages = r
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := c.Do(ctx, call)
	if err != nil {
		log.Fatal().Err(err).Str("endpoint", *endpointName).Msg("Request failed")
	}

	if res.Paginated() {
		for _, page := range res.Pages {
			fmt.Println(string(page.Body))
		}
		return
	}
	fmt.Println(string(res.Body))
}

// parseQuery turns "k1=v1,k2=v2" into url.Values.
func parseQuery(pairs string) (url.Values, error) {
	if pairs == "" {
		return nil, nil
	}
	query := url.Values{}
	for _, pair := range strings.Split(pairs, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("query pair %q is not key=value", pair)
		}
		query.Add(key, value)
	}
	return query, nil
}

// parsePages turns "3" or "1-5" into a pagination range. A bare number is an
// unbounded fetch starting there; "start-end" fetches exactly that range.
func parsePages(spec string, perPage int) (*pagination.Range, error) {
	start, end, bounded := strings.Cut(spec, "-")

	startPage, err := strconv.Atoi(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start page %q", start)
	}

	r := &pagination.Range{Start: startPage, PerPage: perPage}
	if bounded {
		endPage, err := strconv.Atoi(end)
		if err != nil {
			return nil, fmt.Errorf("invalid end page %q", end)
		}
		r.End = endPage
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
