// Package fallback holds the hardcoded reference snapshot served when
// every live provider is unavailable. The snapshot is versioned in code
// and updated alongside releases; its numbers are deliberately round and
// its provenance is always model.SourceStatic.
package fallback

import (
	"sort"
	"strings"
	"time"

	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// SnapshotVersion identifies the embedded dataset revision.
const SnapshotVersion = "2025-07"

// staticAssets is the reference snapshot, ordered by market-cap rank.
var staticAssets = []model.Asset{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Price: 65000, MarketCap: 1_280_000_000_000, Volume24h: 28_000_000_000, Change24h: 1.2, Change7d: 3.5, Rank: 1},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Price: 3400, MarketCap: 410_000_000_000, Volume24h: 14_000_000_000, Change24h: 0.8, Change7d: 2.1, Rank: 2},
	{ID: "tether", Symbol: "USDT", Name: "Tether", Price: 1.0, MarketCap: 112_000_000_000, Volume24h: 45_000_000_000, Change24h: 0.01, Change7d: 0.02, Rank: 3},
	{ID: "binancecoin", Symbol: "BNB", Name: "BNB", Price: 580, MarketCap: 85_000_000_000, Volume24h: 1_600_000_000, Change24h: -0.4, Change7d: 1.9, Rank: 4},
	{ID: "solana", Symbol: "SOL", Name: "Solana", Price: 150, MarketCap: 70_000_000_000, Volume24h: 2_500_000_000, Change24h: 2.7, Change7d: 8.3, Rank: 5},
	{ID: "usd-coin", Symbol: "USDC", Name: "USDC", Price: 1.0, MarketCap: 33_000_000_000, Volume24h: 6_000_000_000, Change24h: 0.0, Change7d: -0.01, Rank: 6},
	{ID: "ripple", Symbol: "XRP", Name: "XRP", Price: 0.52, MarketCap: 29_000_000_000, Volume24h: 1_100_000_000, Change24h: -1.1, Change7d: -2.4, Rank: 7},
	{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Price: 0.12, MarketCap: 18_000_000_000, Volume24h: 800_000_000, Change24h: 3.4, Change7d: -1.2, Rank: 8},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano", Price: 0.38, MarketCap: 13_500_000_000, Volume24h: 320_000_000, Change24h: -0.7, Change7d: 0.9, Rank: 9},
	{ID: "tron", Symbol: "TRX", Name: "TRON", Price: 0.13, MarketCap: 11_500_000_000, Volume24h: 290_000_000, Change24h: 0.3, Change7d: 1.4, Rank: 10},
	{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche", Price: 26, MarketCap: 10_300_000_000, Volume24h: 260_000_000, Change24h: 1.8, Change7d: 4.6, Rank: 11},
	{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", Price: 14, MarketCap: 8_500_000_000, Volume24h: 310_000_000, Change24h: 2.2, Change7d: 5.1, Rank: 12},
}

var staticChains = []model.ChainStat{
	{ID: "ethereum", Name: "Ethereum", NativeAsset: "ethereum"},
	{ID: "binance-smart-chain", Name: "BNB Smart Chain", NativeAsset: "binancecoin"},
	{ID: "solana", Name: "Solana", NativeAsset: "solana"},
	{ID: "tron", Name: "TRON", NativeAsset: "tron"},
	{ID: "avalanche", Name: "Avalanche", NativeAsset: "avalanche-2"},
	{ID: "base", Name: "Base", NativeAsset: "ethereum"},
}

// Assets returns a copy of the snapshot, tagged with static provenance.
func Assets() []model.Asset {
	out := make([]model.Asset, len(staticAssets))
	copy(out, staticAssets)
	for i := range out {
		out[i].Source = model.SourceStatic
	}
	return out
}

// Asset returns the snapshot record for id. Unknown ids get a synthesized
// placeholder record so asset-detail responses stay structurally valid.
func Asset(id string) model.Asset {
	for _, a := range staticAssets {
		if a.ID == id {
			a.Source = model.SourceStatic
			return a
		}
	}
	return model.Asset{
		ID:     id,
		Symbol: strings.ToUpper(shortSymbol(id)),
		Name:   titleCase(id),
		Source: model.SourceStatic,
	}
}

// SymbolFor maps an asset id to its exchange symbol, used by the primary
// provider whose endpoints are symbol-keyed. Unknown ids fall back to an
// uppercased prefix of the id.
func SymbolFor(id string) string {
	for _, a := range staticAssets {
		if a.ID == id {
			return a.Symbol
		}
	}
	return strings.ToUpper(shortSymbol(id))
}

// Global returns the snapshot's market-wide statistics.
func Global() model.GlobalMetrics {
	var totalCap, totalVol float64
	for _, a := range staticAssets {
		totalCap += a.MarketCap
		totalVol += a.Volume24h
	}
	return model.GlobalMetrics{
		TotalMarketCap: totalCap,
		TotalVolume24h: totalVol,
		BTCDominance:   staticAssets[0].MarketCap / totalCap * 100,
		ETHDominance:   staticAssets[1].MarketCap / totalCap * 100,
		ActiveAssets:   len(staticAssets),
		UpdatedAt:      time.Now().Unix(),
		Source:         model.SourceStatic,
	}
}

// Chains returns the snapshot's chain list.
func Chains() []model.ChainStat {
	out := make([]model.ChainStat, len(staticChains))
	copy(out, staticChains)
	for i := range out {
		out[i].Source = model.SourceStatic
	}
	return out
}

// SyntheticOrderbook builds a plausible book around a reference price.
// Served only when the primary provider is down; the secondary has no
// orderbook endpoints.
func SyntheticOrderbook(symbol string, price float64) model.Orderbook {
	if price <= 0 {
		price = 100
	}
	const depth = 10
	bids := make([]model.BookLevel, 0, depth)
	asks := make([]model.BookLevel, 0, depth)
	for i := 1; i <= depth; i++ {
		spread := price * 0.0005 * float64(i)
		bids = append(bids, model.BookLevel{Price: price - spread, Size: float64(i) * 0.5})
		asks = append(asks, model.BookLevel{Price: price + spread, Size: float64(i) * 0.5})
	}
	return model.Orderbook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().Unix(),
		Source:    model.SourceStatic,
	}
}

// SyntheticCandles builds a flat candle series around a reference price,
// most recent last.
func SyntheticCandles(price float64, period string, limit int) []model.Candle {
	if price <= 0 {
		price = 100
	}
	step := periodDuration(period)
	now := time.Now().Truncate(step)

	candles := make([]model.Candle, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * step)
		// A deterministic wobble keeps charts readable without looking live.
		wobble := price * 0.001 * float64(i%5-2)
		candles = append(candles, model.Candle{
			Time:  ts.Unix(),
			Open:  price + wobble,
			High:  price + wobble + price*0.002,
			Low:   price + wobble - price*0.002,
			Close: price + wobble*0.5,
		})
	}
	return candles
}

// TopAssets returns the n highest-ranked snapshot assets.
func TopAssets(n int) []model.Asset {
	assets := Assets()
	sort.Slice(assets, func(i, j int) bool { return assets[i].Rank < assets[j].Rank })
	if n > 0 && n < len(assets) {
		assets = assets[:n]
	}
	return assets
}

func periodDuration(period string) time.Duration {
	switch period {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

func titleCase(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func shortSymbol(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		id = id[:i]
	}
	if len(id) > 5 {
		id = id[:5]
	}
	return id
}
