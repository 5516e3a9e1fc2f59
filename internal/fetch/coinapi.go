package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/yourorg/marketdata-aggregator/internal/config"
)

// Cache TTLs for CoinAPI endpoints, sized to data volatility.
const (
	coinAPIAssetsTTL    = 2 * time.Minute
	coinAPIOHLCVTTL     = time.Minute
	coinAPIOrderbookTTL = 5 * time.Second
	coinAPITradesTTL    = 10 * time.Second
)

// coinAPIRetryAfterDefault applies when a 429 carries no Retry-After header.
const coinAPIRetryAfterDefault = 2 * time.Second

// CoinAPIClient is the primary provider client. CoinAPI requires a key;
// without one every call resolves to ErrAuth and the engine falls through
// to the secondary provider.
type CoinAPIClient struct {
	*client
	hasKey bool
}

// NewCoinAPIClient creates the primary provider client from configuration.
func NewCoinAPIClient(cfg config.Config) *CoinAPIClient {
	c := newClient("coinapi", cfg.CoinAPIURL,
		cfg.CoinAPIRateLimit, cfg.CoinAPIRateWindow,
		cfg.RequestTimeout, coinAPIRetryAfterDefault)

	hasKey := cfg.CoinAPIKey != ""
	if hasKey {
		c.headers["X-CoinAPI-Key"] = cfg.CoinAPIKey
	}
	return &CoinAPIClient{client: c, hasKey: hasKey}
}

// CoinAPIAsset is the provider-shaped asset record.
type CoinAPIAsset struct {
	AssetID      string  `json:"asset_id"`
	Name         string  `json:"name"`
	TypeIsCrypto int     `json:"type_is_crypto"`
	PriceUSD     float64 `json:"price_usd"`
	Volume1DUSD  float64 `json:"volume_1day_usd"`
	Change1D     float64 `json:"change_1day_pct"`
	Change7D     float64 `json:"change_7day_pct"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}

// CoinAPICandle is the provider-shaped OHLCV point.
type CoinAPICandle struct {
	TimePeriodStart time.Time `json:"time_period_start"`
	PriceOpen       float64   `json:"price_open"`
	PriceHigh       float64   `json:"price_high"`
	PriceLow        float64   `json:"price_low"`
	PriceClose      float64   `json:"price_close"`
	VolumeTraded    float64   `json:"volume_traded"`
}

// CoinAPIOrderbook is the provider-shaped orderbook snapshot.
type CoinAPIOrderbook struct {
	SymbolID string              `json:"symbol_id"`
	Time     time.Time           `json:"time_exchange"`
	Bids     []CoinAPIBookLevel  `json:"bids"`
	Asks     []CoinAPIBookLevel  `json:"asks"`
}

// CoinAPIBookLevel is one orderbook price level.
type CoinAPIBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// CoinAPITrade is a provider-shaped executed trade.
type CoinAPITrade struct {
	TimeExchange time.Time `json:"time_exchange"`
	Price        float64   `json:"price"`
	Size         float64   `json:"size"`
	TakerSide    string    `json:"taker_side"`
}

// Assets retrieves the full crypto asset list.
func (c *CoinAPIClient) Assets(ctx context.Context) ([]CoinAPIAsset, error) {
	if !c.hasKey {
		return nil, fmt.Errorf("%w: coinapi: COINAPI_KEY not set", ErrAuth)
	}

	params := url.Values{}
	params.Set("filter_type", "crypto")

	var assets []CoinAPIAsset
	if err := c.getJSON(ctx, "/v1/assets", params, "assets", coinAPIAssetsTTL, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Asset retrieves a single asset record by its exchange symbol.
func (c *CoinAPIClient) Asset(ctx context.Context, symbol string) (*CoinAPIAsset, error) {
	if !c.hasKey {
		return nil, fmt.Errorf("%w: coinapi: COINAPI_KEY not set", ErrAuth)
	}

	var assets []CoinAPIAsset
	if err := c.getJSON(ctx, "/v1/assets/"+symbol, nil, "asset:"+symbol, coinAPIAssetsTTL, &assets); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: coinapi: %s", ErrNotFound, symbol)
	}
	return &assets[0], nil
}

// OHLCV retrieves the latest candles for a symbol. Period is the canonical
// period string used across the platform ("1h", "4h", "1d", ...).
func (c *CoinAPIClient) OHLCV(ctx context.Context, symbol, period string, limit int) ([]CoinAPICandle, error) {
	if !c.hasKey {
		return nil, fmt.Errorf("%w: coinapi: COINAPI_KEY not set", ErrAuth)
	}

	params := url.Values{}
	params.Set("period_id", coinAPIPeriod(period))
	params.Set("limit", strconv.Itoa(limit))

	key := fmt.Sprintf("ohlcv:%s:%s:%d", symbol, period, limit)
	var candles []CoinAPICandle
	if err := c.getJSON(ctx, "/v1/ohlcv/"+symbol+"/latest", params, key, coinAPIOHLCVTTL, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// Orderbook retrieves the current orderbook snapshot for a symbol.
func (c *CoinAPIClient) Orderbook(ctx context.Context, symbol string) (*CoinAPIOrderbook, error) {
	if !c.hasKey {
		return nil, fmt.Errorf("%w: coinapi: COINAPI_KEY not set", ErrAuth)
	}

	var book CoinAPIOrderbook
	key := "orderbook:" + symbol
	if err := c.getJSON(ctx, "/v1/orderbooks/"+symbol+"/current", nil, key, coinAPIOrderbookTTL, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Trades retrieves the latest executed trades for a symbol.
func (c *CoinAPIClient) Trades(ctx context.Context, symbol string, limit int) ([]CoinAPITrade, error) {
	if !c.hasKey {
		return nil, fmt.Errorf("%w: coinapi: COINAPI_KEY not set", ErrAuth)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	key := fmt.Sprintf("trades:%s:%d", symbol, limit)
	var trades []CoinAPITrade
	if err := c.getJSON(ctx, "/v1/trades/"+symbol+"/latest", params, key, coinAPITradesTTL, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// coinAPIPeriod maps canonical period strings to CoinAPI period ids.
func coinAPIPeriod(period string) string {
	switch period {
	case "1m":
		return "1MIN"
	case "5m":
		return "5MIN"
	case "15m":
		return "15MIN"
	case "1h":
		return "1HRS"
	case "4h":
		return "4HRS"
	case "1d":
		return "1DAY"
	case "7d":
		return "7DAY"
	default:
		return "1HRS"
	}
}
