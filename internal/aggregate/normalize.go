package aggregate

import (
	"strings"

	"github.com/yourorg/marketdata-aggregator/internal/fetch"
	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// Normalization maps each provider's response shape into the canonical
// schema. One mapping function per provider type; provenance is tagged
// here and nowhere else.

func assetFromGecko(m fetch.CoinGeckoMarket) model.Asset {
	return model.Asset{
		ID:        m.ID,
		Symbol:    strings.ToUpper(m.Symbol),
		Name:      m.Name,
		Price:     m.CurrentPrice,
		MarketCap: m.MarketCap,
		Volume24h: m.TotalVolume,
		Change24h: m.Change24h,
		Change7d:  m.Change7d,
		Rank:      m.MarketCapRank,
		Source:    model.SourceSecondary,
	}
}

func assetsFromGecko(markets []fetch.CoinGeckoMarket) []model.Asset {
	out := make([]model.Asset, 0, len(markets))
	for _, m := range markets {
		out = append(out, assetFromGecko(m))
	}
	return out
}

func assetFromCoinAPI(a fetch.CoinAPIAsset) model.Asset {
	return model.Asset{
		ID:        slugify(a.Name),
		Symbol:    strings.ToUpper(a.AssetID),
		Name:      a.Name,
		Price:     a.PriceUSD,
		MarketCap: a.MarketCapUSD,
		Volume24h: a.Volume1DUSD,
		Change24h: a.Change1D,
		Change7d:  a.Change7D,
		Source:    model.SourcePrimary,
	}
}

// assetsFromCoinAPI drops non-priced records and assigns ranks by market
// cap, which the primary provider does not supply.
func assetsFromCoinAPI(assets []fetch.CoinAPIAsset) []model.Asset {
	out := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if a.TypeIsCrypto != 1 || a.PriceUSD <= 0 {
			continue
		}
		out = append(out, assetFromCoinAPI(a))
	}
	sortAssets(out, "market_cap", "desc")
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func candlesFromCoinAPI(candles []fetch.CoinAPICandle) []model.Candle {
	out := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		out = append(out, model.Candle{
			Time:   c.TimePeriodStart.Unix(),
			Open:   c.PriceOpen,
			High:   c.PriceHigh,
			Low:    c.PriceLow,
			Close:  c.PriceClose,
			Volume: c.VolumeTraded,
		})
	}
	return out
}

// candlesFromGeckoOHLC maps the secondary's bare-array candle rows
// [timestamp_ms, open, high, low, close]. The endpoint carries no volume.
func candlesFromGeckoOHLC(rows [][]float64) []model.Candle {
	out := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 5 {
			continue
		}
		out = append(out, model.Candle{
			Time:  int64(r[0] / 1000),
			Open:  r[1],
			High:  r[2],
			Low:   r[3],
			Close: r[4],
		})
	}
	return out
}

func orderbookFromCoinAPI(symbol string, book *fetch.CoinAPIOrderbook) model.Orderbook {
	bids := make([]model.BookLevel, 0, len(book.Bids))
	for _, l := range book.Bids {
		bids = append(bids, model.BookLevel{Price: l.Price, Size: l.Size})
	}
	asks := make([]model.BookLevel, 0, len(book.Asks))
	for _, l := range book.Asks {
		asks = append(asks, model.BookLevel{Price: l.Price, Size: l.Size})
	}
	return model.Orderbook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: book.Time.Unix(),
		Source:    model.SourcePrimary,
	}
}

func tradesFromCoinAPI(symbol string, trades []fetch.CoinAPITrade) []model.Trade {
	out := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		side := strings.ToLower(t.TakerSide)
		if side != "buy" && side != "sell" {
			side = "unknown"
		}
		out = append(out, model.Trade{
			Symbol: symbol,
			Price:  t.Price,
			Size:   t.Size,
			Side:   side,
			Time:   t.TimeExchange.Unix(),
			Source: model.SourcePrimary,
		})
	}
	return out
}

func globalFromGecko(g *fetch.CoinGeckoGlobal) model.GlobalMetrics {
	return model.GlobalMetrics{
		TotalMarketCap:  g.Data.TotalMarketCap["usd"],
		TotalVolume24h:  g.Data.TotalVolume["usd"],
		BTCDominance:    g.Data.MarketCapPercentage["btc"],
		ETHDominance:    g.Data.MarketCapPercentage["eth"],
		ActiveAssets:    g.Data.ActiveCryptocurrencies,
		MarketCapChange: g.Data.MarketCapChange24h,
		UpdatedAt:       g.Data.UpdatedAt,
		Source:          model.SourceSecondary,
	}
}

// globalFromAssets derives market-wide statistics from an asset list for
// providers without a global endpoint.
func globalFromAssets(assets []model.Asset, now int64) model.GlobalMetrics {
	var totalCap, totalVol, btcCap, ethCap float64
	for _, a := range assets {
		totalCap += a.MarketCap
		totalVol += a.Volume24h
		switch a.ID {
		case "bitcoin":
			btcCap = a.MarketCap
		case "ethereum":
			ethCap = a.MarketCap
		}
	}
	g := model.GlobalMetrics{
		TotalMarketCap: totalCap,
		TotalVolume24h: totalVol,
		ActiveAssets:   len(assets),
		UpdatedAt:      now,
		Source:         model.SourcePrimary,
	}
	if totalCap > 0 {
		g.BTCDominance = btcCap / totalCap * 100
		g.ETHDominance = ethCap / totalCap * 100
	}
	return g
}

func chainsFromPlatforms(platforms []fetch.CoinGeckoPlatform) []model.ChainStat {
	out := make([]model.ChainStat, 0, len(platforms))
	for _, p := range platforms {
		if p.ID == "" {
			continue
		}
		out = append(out, model.ChainStat{
			ID:          p.ID,
			Name:        p.Name,
			NativeAsset: p.NativeCoinID,
			Source:      model.SourceSecondary,
		})
	}
	return out
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
