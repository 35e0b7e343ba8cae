package endpoint

// CoinGecko v3 endpoint metadata. The table mirrors the public API
// description; it is the external metadata the runtime consumes, so the
// client core never hardcodes paths or parameter names.

// BaseURL is the production CoinGecko API v3 base URL.
const BaseURL = "https://api.coingecko.com/api/v3"

// pageParams are the shared query parameters of paginated endpoints.
var pageParams = []Param{
	{Name: "page"},
	{Name: "per_page"},
}

// Default returns the registry of supported CoinGecko v3 endpoints.
func Default() *Registry {
	r, err := NewRegistry(coingeckoV3)
	if err != nil {
		// The table below is static; a construction error is a programming
		// error, not a runtime condition.
		panic("endpoint: invalid built-in table: " + err.Error())
	}
	return r
}

var coingeckoV3 = []Endpoint{
	{
		Name: "ping",
		Path: "/ping",
	},
	{
		Name: "simple_price",
		Path: "/simple/price",
		Query: []Param{
			{Name: "ids", Required: true},
			{Name: "vs_currencies", Required: true},
			{Name: "include_market_cap"},
			{Name: "include_24hr_vol"},
			{Name: "include_24hr_change"},
			{Name: "include_last_updated_at"},
		},
	},
	{
		Name: "simple_supported_vs_currencies",
		Path: "/simple/supported_vs_currencies",
	},
	{
		Name: "coins_list",
		Path: "/coins/list",
		Query: []Param{
			{Name: "include_platform"},
		},
	},
	{
		Name: "coins_markets",
		Path: "/coins/markets",
		Query: append([]Param{
			{Name: "vs_currency", Required: true},
			{Name: "ids"},
			{Name: "category"},
			{Name: "order"},
			{Name: "sparkline"},
			{Name: "price_change_percentage"},
		}, pageParams...),
		Paginated: true,
	},
	{
		Name: "coins_id",
		Path: "/coins/{id}",
		Query: []Param{
			{Name: "localization"},
			{Name: "tickers"},
			{Name: "market_data"},
			{Name: "community_data"},
			{Name: "developer_data"},
			{Name: "sparkline"},
		},
	},
	{
		Name: "coins_id_tickers",
		Path: "/coins/{id}/tickers",
		Query: append([]Param{
			{Name: "exchange_ids"},
			{Name: "include_exchange_logo"},
			{Name: "order"},
			{Name: "depth"},
		}, pageParams...),
		Paginated: true,
	},
	{
		Name: "coins_id_history",
		Path: "/coins/{id}/history",
		Query: []Param{
			{Name: "date", Required: true},
			{Name: "localization"},
		},
	},
	{
		Name: "coins_id_market_chart",
		Path: "/coins/{id}/market_chart",
		Query: []Param{
			{Name: "vs_currency", Required: true},
			{Name: "days", Required: true},
			{Name: "interval"},
		},
	},
	{
		Name: "coins_id_market_chart_range",
		Path: "/coins/{id}/market_chart/range",
		Query: []Param{
			{Name: "vs_currency", Required: true},
			{Name: "from", Required: true},
			{Name: "to", Required: true},
		},
	},
	{
		Name: "coins_id_contract_contract_address",
		Path: "/coins/{id}/contract/{contract_address}",
	},
	{
		Name:      "exchanges",
		Path:      "/exchanges",
		Query:     pageParams,
		Paginated: true,
	},
	{
		Name: "exchanges_list",
		Path: "/exchanges/list",
	},
	{
		Name: "exchanges_id",
		Path: "/exchanges/{id}",
	},
	{
		Name: "exchanges_id_tickers",
		Path: "/exchanges/{id}/tickers",
		Query: append([]Param{
			{Name: "coin_ids"},
			{Name: "include_exchange_logo"},
			{Name: "depth"},
			{Name: "order"},
		}, pageParams...),
		Paginated: true,
	},
	{
		Name: "derivatives",
		Path: "/derivatives",
		Query: []Param{
			{Name: "include_tickers"},
		},
	},
	{
		Name:      "derivatives_exchanges",
		Path:      "/derivatives/exchanges",
		Query:     append([]Param{{Name: "order"}}, pageParams...),
		Paginated: true,
	},
	{
		Name: "search_trending",
		Path: "/search/trending",
	},
	{
		Name: "global",
		Path: "/global",
	},
	{
		Name: "global_decentralized_finance_defi",
		Path: "/global/decentralized_finance_defi",
	},
}
