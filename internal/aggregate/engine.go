// Package aggregate implements the aggregation engine: per-operation
// provider failover, schema normalization, and health tracking over the
// two provider clients and the static fallback dataset.
package aggregate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/marketdata-aggregator/internal/fallback"
	"github.com/yourorg/marketdata-aggregator/internal/fetch"
	"github.com/yourorg/marketdata-aggregator/internal/health"
	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// PrimaryProvider is the symbol-keyed provider (CoinAPI): market-structure
// endpoints plus an asset list without aggregate fields.
type PrimaryProvider interface {
	Assets(ctx context.Context) ([]fetch.CoinAPIAsset, error)
	Asset(ctx context.Context, symbol string) (*fetch.CoinAPIAsset, error)
	OHLCV(ctx context.Context, symbol, period string, limit int) ([]fetch.CoinAPICandle, error)
	Orderbook(ctx context.Context, symbol string) (*fetch.CoinAPIOrderbook, error)
	Trades(ctx context.Context, symbol string, limit int) ([]fetch.CoinAPITrade, error)
}

// SecondaryProvider is the id-keyed provider (CoinGecko): richer aggregate
// fields, no orderbook or trade endpoints.
type SecondaryProvider interface {
	Markets(ctx context.Context, page, perPage int, order string) ([]fetch.CoinGeckoMarket, error)
	Coin(ctx context.Context, id string) (*fetch.CoinGeckoMarket, error)
	OHLC(ctx context.Context, id string, days int) ([][]float64, error)
	Global(ctx context.Context) (*fetch.CoinGeckoGlobal, error)
	AssetPlatforms(ctx context.Context) ([]fetch.CoinGeckoPlatform, error)
}

// ChainReader supplies live Ethereum head data for chain-stat enrichment.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GasPriceGwei(ctx context.Context) (float64, error)
}

// marketListSize is how much of the market the engine pulls for list
// operations (movers, heatmap, screener, overview).
const marketListSize = 250

// Engine orchestrates failover between the providers and the static
// dataset. It is constructed once at startup and injected into the HTTP
// layer; public operations never return an error. Degraded responses are
// signalled through the Source field only.
type Engine struct {
	primary   PrimaryProvider
	secondary SecondaryProvider
	chain     ChainReader

	primaryHealth   *health.Tracker
	secondaryHealth *health.Tracker
	metrics         *Metrics
}

// New creates an engine over the two providers.
func New(primary PrimaryProvider, secondary SecondaryProvider) *Engine {
	return &Engine{
		primary:         primary,
		secondary:       secondary,
		primaryHealth:   health.NewTracker("coinapi"),
		secondaryHealth: health.NewTracker("coingecko"),
	}
}

// WithChainReader attaches an optional on-chain enrichment source.
func (e *Engine) WithChainReader(r ChainReader) *Engine {
	e.chain = r
	return e
}

// WithMetrics attaches Prometheus instruments.
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// Status reports both providers' advisory health.
func (e *Engine) Status() []model.ProviderStatus {
	return []model.ProviderStatus{
		e.primaryHealth.Status(),
		e.secondaryHealth.Status(),
	}
}

// recordPrimary and recordSecondary drive the health trackers on every
// provider attempt and report whether the attempt succeeded.
func (e *Engine) recordPrimary(op string, err error) bool {
	return e.record("coinapi", e.primaryHealth, op, err)
}

func (e *Engine) recordSecondary(op string, err error) bool {
	return e.record("coingecko", e.secondaryHealth, op, err)
}

func (e *Engine) record(provider string, t *health.Tracker, op string, err error) bool {
	if err != nil {
		t.Failure()
		e.metrics.recordRequest(provider, false)
		e.metrics.recordHealth(provider, t.Healthy())
		logrus.Debugf("%s: provider %s failed: %v", op, provider, err)
		return false
	}
	t.Success()
	e.metrics.recordRequest(provider, true)
	e.metrics.recordHealth(provider, true)
	return true
}

// marketList fetches the canonical market list, secondary first. The
// returned bool is false when the static snapshot had to be served.
func (e *Engine) marketList(ctx context.Context, op string) ([]model.Asset, bool) {
	markets, err := e.secondary.Markets(ctx, 1, marketListSize, "market_cap_desc")
	if e.recordSecondary(op, err) && len(markets) > 0 {
		return assetsFromGecko(markets), true
	}

	assets, err := e.primary.Assets(ctx)
	if e.recordPrimary(op, err) && len(assets) > 0 {
		return assetsFromCoinAPI(assets), true
	}

	e.metrics.recordFallback(op)
	logrus.Warnf("%s: all providers failed, serving static dataset", op)
	return fallback.Assets(), false
}

// TopMovers returns the biggest 24h gainers and losers.
func (e *Engine) TopMovers(ctx context.Context, limit int) model.TopMovers {
	if limit <= 0 {
		limit = 10
	}

	assets, _ := e.marketList(ctx, "top_movers")

	sortAssets(assets, "change_24h", "desc")
	gainers := firstN(assets, limit)

	losers := make([]model.Asset, len(assets))
	copy(losers, assets)
	sortAssets(losers, "change_24h", "asc")
	losers = firstN(losers, limit)

	return model.TopMovers{
		Gainers: gainers,
		Losers:  losers,
		Source:  listSource(assets),
	}
}

// HeatmapData returns the top assets by market cap for heatmap rendering.
func (e *Engine) HeatmapData(ctx context.Context, limit int) []model.Asset {
	if limit <= 0 {
		limit = 100
	}
	assets, _ := e.marketList(ctx, "heatmap")
	sortAssets(assets, "market_cap", "desc")
	return firstN(assets, limit)
}

// TokenScreener filters, sorts, and paginates the market list.
func (e *Engine) TokenScreener(ctx context.Context, q ScreenerQuery) ScreenerResult {
	assets, _ := e.marketList(ctx, "screener")
	return applyScreener(assets, q)
}

// Momentum is the screener specialized to 24h change ordering.
func (e *Engine) Momentum(ctx context.Context, limit int, minChange float64) ScreenerResult {
	q := ScreenerQuery{
		SortBy:    "change_24h",
		Order:     "desc",
		PerPage:   limit,
		MinChange: minChange,
	}
	assets, _ := e.marketList(ctx, "momentum")
	return applyScreener(assets, q)
}

// MarketOverview returns global statistics plus the top assets.
func (e *Engine) MarketOverview(ctx context.Context) model.MarketOverview {
	global := e.GlobalMetrics(ctx)
	assets, _ := e.marketList(ctx, "overview")
	sortAssets(assets, "market_cap", "desc")
	top := firstN(assets, 10)

	return model.MarketOverview{
		Global:    global,
		TopAssets: top,
		Source:    listSource(top),
	}
}

// GlobalMetrics returns market-wide statistics. The primary provider has
// no global endpoint, so its tier derives the figures from the asset list.
func (e *Engine) GlobalMetrics(ctx context.Context) model.GlobalMetrics {
	global, err := e.secondary.Global(ctx)
	if e.recordSecondary("global", err) {
		return globalFromGecko(global)
	}

	assets, err := e.primary.Assets(ctx)
	if e.recordPrimary("global", err) && len(assets) > 0 {
		return globalFromAssets(assetsFromCoinAPI(assets), time.Now().Unix())
	}

	e.metrics.recordFallback("global")
	logrus.Warn("global: all providers failed, serving static dataset")
	return fallback.Global()
}

// ChainStats returns per-chain statistics. Only the secondary provider
// has a chain endpoint; the Ethereum entry is enriched from the RPC
// reader when one is configured.
func (e *Engine) ChainStats(ctx context.Context) []model.ChainStat {
	var chains []model.ChainStat

	platforms, err := e.secondary.AssetPlatforms(ctx)
	if e.recordSecondary("chains", err) && len(platforms) > 0 {
		chains = chainsFromPlatforms(platforms)
	} else {
		e.metrics.recordFallback("chains")
		chains = fallback.Chains()
	}

	e.enrichEthereum(ctx, chains)
	return chains
}

// enrichEthereum folds live block and gas data into the Ethereum entry.
// RPC failures leave the entry untouched.
func (e *Engine) enrichEthereum(ctx context.Context, chains []model.ChainStat) {
	if e.chain == nil {
		return
	}

	rpcCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for i := range chains {
		if chains[i].ID != "ethereum" {
			continue
		}
		if block, err := e.chain.BlockNumber(rpcCtx); err == nil {
			chains[i].BlockNumber = block
		} else {
			logrus.Debugf("chains: block number lookup failed: %v", err)
		}
		if gas, err := e.chain.GasPriceGwei(rpcCtx); err == nil {
			chains[i].GasPriceGwei = gas
		}
		return
	}
}

// AssetDetail returns the canonical record for one asset id. The primary
// provider is tried first; a static record (synthesized for unknown ids)
// is the terminal fallback.
func (e *Engine) AssetDetail(ctx context.Context, id string) model.Asset {
	symbol := fallback.SymbolFor(id)

	asset, err := e.primary.Asset(ctx, symbol)
	if e.recordPrimary("asset_detail", err) {
		out := assetFromCoinAPI(*asset)
		out.ID = id
		return out
	}

	coin, err := e.secondary.Coin(ctx, id)
	if e.recordSecondary("asset_detail", err) {
		return assetFromGecko(*coin)
	}

	e.metrics.recordFallback("asset_detail")
	return fallback.Asset(id)
}

// OHLCV returns candles for one asset. The secondary tier maps the period
// onto its day-ranged endpoint; the terminal fallback synthesizes a flat
// series around the static reference price.
func (e *Engine) OHLCV(ctx context.Context, id, period string, limit int) []model.Candle {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	symbol := fallback.SymbolFor(id)
	candles, err := e.primary.OHLCV(ctx, symbol, period, limit)
	if e.recordPrimary("ohlcv", err) && len(candles) > 0 {
		return candlesFromCoinAPI(candles)
	}

	rows, err := e.secondary.OHLC(ctx, id, daysForPeriod(period, limit))
	if e.recordSecondary("ohlcv", err) && len(rows) > 0 {
		out := candlesFromGeckoOHLC(rows)
		if len(out) > limit {
			out = out[len(out)-limit:]
		}
		return out
	}

	e.metrics.recordFallback("ohlcv")
	return fallback.SyntheticCandles(fallback.Asset(id).Price, period, limit)
}

// Orderbook returns the book snapshot for one asset. Primary only; the
// secondary has no orderbook endpoint, so failure goes straight to a
// synthetic book rather than the static dataset.
func (e *Engine) Orderbook(ctx context.Context, id string) model.Orderbook {
	symbol := fallback.SymbolFor(id)

	book, err := e.primary.Orderbook(ctx, symbol)
	if e.recordPrimary("orderbook", err) {
		return orderbookFromCoinAPI(symbol, book)
	}

	e.metrics.recordFallback("orderbook")
	return fallback.SyntheticOrderbook(symbol, fallback.Asset(id).Price)
}

// Trades returns recent trades for one asset. Primary only; failure
// yields an empty list, never an error.
func (e *Engine) Trades(ctx context.Context, id string, limit int) []model.Trade {
	if limit <= 0 {
		limit = 50
	}
	symbol := fallback.SymbolFor(id)

	trades, err := e.primary.Trades(ctx, symbol, limit)
	if e.recordPrimary("trades", err) {
		return tradesFromCoinAPI(symbol, trades)
	}

	e.metrics.recordFallback("trades")
	return []model.Trade{}
}

// daysForPeriod converts a period/limit pair into the secondary's
// day-ranged candle span, clamped to its supported range.
func daysForPeriod(period string, limit int) int {
	var per time.Duration
	switch period {
	case "1m":
		per = time.Minute
	case "5m":
		per = 5 * time.Minute
	case "15m":
		per = 15 * time.Minute
	case "4h":
		per = 4 * time.Hour
	case "1d":
		per = 24 * time.Hour
	case "7d":
		per = 7 * 24 * time.Hour
	default:
		per = time.Hour
	}

	days := int((per*time.Duration(limit) + 24*time.Hour - 1) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}
	return days
}

func firstN(assets []model.Asset, n int) []model.Asset {
	if n < len(assets) {
		return assets[:n]
	}
	return assets
}

func listSource(assets []model.Asset) model.Source {
	if len(assets) == 0 {
		return model.SourceStatic
	}
	return assets[0].Source
}
