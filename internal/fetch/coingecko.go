package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/yourorg/marketdata-aggregator/internal/config"
)

// Cache TTLs for CoinGecko endpoints.
const (
	geckoMarketsTTL   = 2 * time.Minute
	geckoCoinTTL      = time.Minute
	geckoChartTTL     = time.Minute
	geckoGlobalTTL    = 5 * time.Minute
	geckoPlatformsTTL = 5 * time.Minute
)

// geckoRetryAfterDefault matches CoinGecko's per-minute quota window.
const geckoRetryAfterDefault = 60 * time.Second

// CoinGeckoClient is the secondary provider client. Without an API key it
// still works against the free tier, just under tighter upstream quotas.
type CoinGeckoClient struct {
	*client
}

// NewCoinGeckoClient creates the secondary provider client from configuration.
func NewCoinGeckoClient(cfg config.Config) *CoinGeckoClient {
	c := newClient("coingecko", cfg.CoinGeckoURL,
		cfg.CoinGeckoRateLimit, cfg.CoinGeckoRateWindow,
		cfg.RequestTimeout, geckoRetryAfterDefault)

	if cfg.CoinGeckoKey != "" {
		c.headers["x-cg-demo-api-key"] = cfg.CoinGeckoKey
	}
	return &CoinGeckoClient{client: c}
}

// CoinGeckoMarket is the provider-shaped market record returned by the
// /coins/markets endpoint.
type CoinGeckoMarket struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume"`
	Change24h     float64 `json:"price_change_percentage_24h"`
	Change7d      float64 `json:"price_change_percentage_7d_in_currency"`
}

// CoinGeckoGlobal is the provider-shaped market-wide statistics record.
type CoinGeckoGlobal struct {
	Data struct {
		ActiveCryptocurrencies int                `json:"active_cryptocurrencies"`
		TotalMarketCap         map[string]float64 `json:"total_market_cap"`
		TotalVolume            map[string]float64 `json:"total_volume"`
		MarketCapPercentage    map[string]float64 `json:"market_cap_percentage"`
		MarketCapChange24h     float64            `json:"market_cap_change_percentage_24h_usd"`
		UpdatedAt              int64              `json:"updated_at"`
	} `json:"data"`
}

// CoinGeckoPlatform is one blockchain network from /asset_platforms.
type CoinGeckoPlatform struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	NativeCoinID string `json:"native_coin_id"`
}

// Markets retrieves one page of market records ordered by the given sort.
func (c *CoinGeckoClient) Markets(ctx context.Context, page, perPage int, order string) ([]CoinGeckoMarket, error) {
	if order == "" {
		order = "market_cap_desc"
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", order)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("price_change_percentage", "24h,7d")

	key := fmt.Sprintf("markets:%s:%d:%d", order, page, perPage)
	var markets []CoinGeckoMarket
	if err := c.getJSON(ctx, "/coins/markets", params, key, geckoMarketsTTL, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// Coin retrieves the market record for a single asset id.
func (c *CoinGeckoClient) Coin(ctx context.Context, id string) (*CoinGeckoMarket, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", id)
	params.Set("price_change_percentage", "24h,7d")

	var markets []CoinGeckoMarket
	if err := c.getJSON(ctx, "/coins/markets", params, "coin:"+id, geckoCoinTTL, &markets); err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("%w: coingecko: %s", ErrNotFound, id)
	}
	return &markets[0], nil
}

// OHLC retrieves candles for an asset over the given day span. The
// provider shape is a bare array: [timestamp_ms, open, high, low, close].
func (c *CoinGeckoClient) OHLC(ctx context.Context, id string, days int) ([][]float64, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))

	key := fmt.Sprintf("ohlc:%s:%d", id, days)
	var rows [][]float64
	if err := c.getJSON(ctx, "/coins/"+id+"/ohlc", params, key, geckoChartTTL, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Global retrieves market-wide statistics.
func (c *CoinGeckoClient) Global(ctx context.Context) (*CoinGeckoGlobal, error) {
	var global CoinGeckoGlobal
	if err := c.getJSON(ctx, "/global", nil, "global", geckoGlobalTTL, &global); err != nil {
		return nil, err
	}
	return &global, nil
}

// AssetPlatforms retrieves the list of tracked blockchain networks.
func (c *CoinGeckoClient) AssetPlatforms(ctx context.Context) ([]CoinGeckoPlatform, error) {
	var platforms []CoinGeckoPlatform
	if err := c.getJSON(ctx, "/asset_platforms", nil, "platforms", geckoPlatformsTTL, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}
