// Package model defines the canonical market-data schema that every
// provider response is normalized into before reaching callers.
package model

import (
	"time"
)

// Source identifies which tier produced a response.
type Source string

// Response provenance tiers.
const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceStatic    Source = "static"
)

// Asset is the canonical market record for a single crypto asset.
// Every provider-specific shape is mapped into this struct; the Source
// field is the only signal that degraded data was served.
type Asset struct {
	// ID is the platform-wide asset identifier, e.g. "bitcoin"
	ID string `json:"id"`

	// Symbol is the ticker, uppercased, e.g. "BTC"
	Symbol string `json:"symbol"`

	// Name is the display name, e.g. "Bitcoin"
	Name string `json:"name"`

	// Price is the current USD price
	Price float64 `json:"price"`

	// MarketCap is the USD market capitalization
	MarketCap float64 `json:"market_cap"`

	// Volume24h is the trailing 24h USD volume
	Volume24h float64 `json:"volume_24h"`

	// Change24h is the 24h price change in percent
	Change24h float64 `json:"change_24h"`

	// Change7d is the 7d price change in percent, when the provider has it
	Change7d float64 `json:"change_7d,omitempty"`

	// Rank is the market-cap rank, 1-based
	Rank int `json:"rank"`

	// Source records which tier produced this record
	Source Source `json:"source"`
}

// Candle is a canonical OHLCV data point.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BookLevel is one price level of an orderbook side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Orderbook is the canonical orderbook snapshot for one symbol.
type Orderbook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp int64       `json:"timestamp"`
	Source    Source      `json:"source"`
}

// Trade is a canonical executed trade.
type Trade struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	Side   string  `json:"side"`
	Time   int64   `json:"time"`
	Source Source  `json:"source"`
}

// GlobalMetrics is the canonical market-wide statistics record.
type GlobalMetrics struct {
	TotalMarketCap  float64 `json:"total_market_cap"`
	TotalVolume24h  float64 `json:"total_volume_24h"`
	BTCDominance    float64 `json:"btc_dominance"`
	ETHDominance    float64 `json:"eth_dominance"`
	ActiveAssets    int     `json:"active_assets"`
	MarketCapChange float64 `json:"market_cap_change_24h"`
	UpdatedAt       int64   `json:"updated_at"`
	Source          Source  `json:"source"`
}

// ChainStat describes one blockchain network tracked by the platform.
type ChainStat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NativeAsset string `json:"native_asset"`

	// BlockNumber and GasPriceGwei are populated from an RPC endpoint
	// when one is configured, otherwise left at their source values.
	BlockNumber  uint64  `json:"block_number,omitempty"`
	GasPriceGwei float64 `json:"gas_price_gwei,omitempty"`

	Source Source `json:"source"`
}

// TopMovers splits the market's biggest 24h gainers and losers.
type TopMovers struct {
	Gainers []Asset `json:"gainers"`
	Losers  []Asset `json:"losers"`
	Source  Source  `json:"source"`
}

// MarketOverview is a compact market summary for dashboard consumers.
type MarketOverview struct {
	Global    GlobalMetrics `json:"global"`
	TopAssets []Asset       `json:"top_assets"`
	Source    Source        `json:"source"`
}

// ProviderStatus is the advisory health snapshot for one provider.
// ConsecutiveFailures resets to zero on any success; Healthy flips false
// once three consecutive failures accumulate and flips true again only on
// a later success.
type ProviderStatus struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"is_healthy"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}
