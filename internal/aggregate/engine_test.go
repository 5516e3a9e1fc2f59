package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/marketdata-aggregator/internal/fallback"
	"github.com/yourorg/marketdata-aggregator/internal/fetch"
	"github.com/yourorg/marketdata-aggregator/internal/model"
)

var errDown = errors.New("provider down")

type fakePrimary struct {
	assets  []fetch.CoinAPIAsset
	asset   *fetch.CoinAPIAsset
	candles []fetch.CoinAPICandle
	book    *fetch.CoinAPIOrderbook
	trades  []fetch.CoinAPITrade
	err     error
	calls   []string
}

func (f *fakePrimary) Assets(ctx context.Context) ([]fetch.CoinAPIAsset, error) {
	f.calls = append(f.calls, "assets")
	return f.assets, f.err
}

func (f *fakePrimary) Asset(ctx context.Context, symbol string) (*fetch.CoinAPIAsset, error) {
	f.calls = append(f.calls, "asset:"+symbol)
	return f.asset, f.err
}

func (f *fakePrimary) OHLCV(ctx context.Context, symbol, period string, limit int) ([]fetch.CoinAPICandle, error) {
	f.calls = append(f.calls, "ohlcv:"+symbol)
	return f.candles, f.err
}

func (f *fakePrimary) Orderbook(ctx context.Context, symbol string) (*fetch.CoinAPIOrderbook, error) {
	f.calls = append(f.calls, "orderbook:"+symbol)
	return f.book, f.err
}

func (f *fakePrimary) Trades(ctx context.Context, symbol string, limit int) ([]fetch.CoinAPITrade, error) {
	f.calls = append(f.calls, "trades:"+symbol)
	return f.trades, f.err
}

type fakeSecondary struct {
	markets   []fetch.CoinGeckoMarket
	coin      *fetch.CoinGeckoMarket
	ohlc      [][]float64
	global    *fetch.CoinGeckoGlobal
	platforms []fetch.CoinGeckoPlatform
	err       error
	calls     []string
}

func (f *fakeSecondary) Markets(ctx context.Context, page, perPage int, order string) ([]fetch.CoinGeckoMarket, error) {
	f.calls = append(f.calls, "markets")
	return f.markets, f.err
}

func (f *fakeSecondary) Coin(ctx context.Context, id string) (*fetch.CoinGeckoMarket, error) {
	f.calls = append(f.calls, "coin:"+id)
	return f.coin, f.err
}

func (f *fakeSecondary) OHLC(ctx context.Context, id string, days int) ([][]float64, error) {
	f.calls = append(f.calls, "ohlc:"+id)
	return f.ohlc, f.err
}

func (f *fakeSecondary) Global(ctx context.Context) (*fetch.CoinGeckoGlobal, error) {
	f.calls = append(f.calls, "global")
	return f.global, f.err
}

func (f *fakeSecondary) AssetPlatforms(ctx context.Context) ([]fetch.CoinGeckoPlatform, error) {
	f.calls = append(f.calls, "platforms")
	return f.platforms, f.err
}

type fakeChain struct {
	block uint64
	gas   float64
	err   error
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) { return f.block, f.err }
func (f *fakeChain) GasPriceGwei(ctx context.Context) (float64, error) {
	return f.gas, f.err
}

func testMarkets() []fetch.CoinGeckoMarket {
	return []fetch.CoinGeckoMarket{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 65000, MarketCap: 1e12, TotalVolume: 3e10, Change24h: 2.0, MarketCapRank: 1},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: 3400, MarketCap: 4e11, TotalVolume: 1e10, Change24h: -3.5, MarketCapRank: 2},
		{ID: "solana", Symbol: "sol", Name: "Solana", CurrentPrice: 150, MarketCap: 7e10, TotalVolume: 2e9, Change24h: 8.1, MarketCapRank: 3},
		{ID: "cardano", Symbol: "ada", Name: "Cardano", CurrentPrice: 0.38, MarketCap: 1.3e10, TotalVolume: 3e8, Change24h: -0.2, MarketCapRank: 4},
	}
}

func TestTopMovers_SecondaryPreferredWhilePrimaryOffline(t *testing.T) {
	primary := &fakePrimary{err: errDown}
	secondary := &fakeSecondary{markets: testMarkets()}
	e := New(primary, secondary)

	movers := e.TopMovers(context.Background(), 2)

	require.NotEmpty(t, movers.Gainers)
	require.NotEmpty(t, movers.Losers)
	assert.Equal(t, model.SourceSecondary, movers.Source)
	assert.Equal(t, "solana", movers.Gainers[0].ID)
	assert.Equal(t, "ethereum", movers.Losers[0].ID)
	assert.Empty(t, primary.calls, "secondary succeeded, primary must not be attempted")
}

func TestTopMovers_FailsOverToPrimary(t *testing.T) {
	primary := &fakePrimary{assets: []fetch.CoinAPIAsset{
		{AssetID: "BTC", Name: "Bitcoin", TypeIsCrypto: 1, PriceUSD: 65000, MarketCapUSD: 1e12, Volume1DUSD: 3e10, Change1D: 1.0},
		{AssetID: "ETH", Name: "Ethereum", TypeIsCrypto: 1, PriceUSD: 3400, MarketCapUSD: 4e11, Volume1DUSD: 1e10, Change1D: -2.0},
	}}
	secondary := &fakeSecondary{err: errDown}
	e := New(primary, secondary)

	movers := e.TopMovers(context.Background(), 2)

	assert.Equal(t, model.SourcePrimary, movers.Source)
	assert.Equal(t, []string{"markets"}, secondary.calls)
	assert.Equal(t, []string{"assets"}, primary.calls)
}

func TestTopMovers_StaticWhenBothProvidersDown(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{err: errDown})

	movers := e.TopMovers(context.Background(), 5)

	assert.Equal(t, model.SourceStatic, movers.Source)
	assert.NotEmpty(t, movers.Gainers)
	assert.NotEmpty(t, movers.Losers)
}

func TestGlobalMetrics_StaticWhenBothProvidersDown(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{err: errDown})

	got := e.GlobalMetrics(context.Background())
	want := fallback.Global()

	assert.Equal(t, model.SourceStatic, got.Source)
	assert.Equal(t, want.TotalMarketCap, got.TotalMarketCap)
	assert.Equal(t, want.TotalVolume24h, got.TotalVolume24h)
	assert.Equal(t, want.BTCDominance, got.BTCDominance)
	assert.Equal(t, want.ActiveAssets, got.ActiveAssets)
}

func TestGlobalMetrics_FromSecondary(t *testing.T) {
	g := &fetch.CoinGeckoGlobal{}
	g.Data.TotalMarketCap = map[string]float64{"usd": 2.5e12}
	g.Data.TotalVolume = map[string]float64{"usd": 9e10}
	g.Data.MarketCapPercentage = map[string]float64{"btc": 52.1, "eth": 16.4}
	g.Data.ActiveCryptocurrencies = 12000
	g.Data.UpdatedAt = 1700000000

	e := New(&fakePrimary{err: errDown}, &fakeSecondary{global: g})
	got := e.GlobalMetrics(context.Background())

	assert.Equal(t, model.SourceSecondary, got.Source)
	assert.Equal(t, 2.5e12, got.TotalMarketCap)
	assert.Equal(t, 52.1, got.BTCDominance)
	assert.Equal(t, 12000, got.ActiveAssets)
}

func TestGlobalMetrics_DerivedFromPrimaryAssets(t *testing.T) {
	primary := &fakePrimary{assets: []fetch.CoinAPIAsset{
		{AssetID: "BTC", Name: "Bitcoin", TypeIsCrypto: 1, PriceUSD: 65000, MarketCapUSD: 600, Volume1DUSD: 50},
		{AssetID: "ETH", Name: "Ethereum", TypeIsCrypto: 1, PriceUSD: 3400, MarketCapUSD: 400, Volume1DUSD: 30},
	}}
	e := New(primary, &fakeSecondary{err: errDown})

	got := e.GlobalMetrics(context.Background())

	assert.Equal(t, model.SourcePrimary, got.Source)
	assert.Equal(t, 1000.0, got.TotalMarketCap)
	assert.Equal(t, 60.0, got.BTCDominance)
	assert.Equal(t, 40.0, got.ETHDominance)
}

func TestAssetDetail_PrimaryFirst(t *testing.T) {
	primary := &fakePrimary{asset: &fetch.CoinAPIAsset{
		AssetID: "BTC", Name: "Bitcoin", TypeIsCrypto: 1, PriceUSD: 64000, MarketCapUSD: 1e12,
	}}
	secondary := &fakeSecondary{}
	e := New(primary, secondary)

	got := e.AssetDetail(context.Background(), "bitcoin")

	assert.Equal(t, "bitcoin", got.ID)
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, model.SourcePrimary, got.Source)
	assert.Equal(t, []string{"asset:BTC"}, primary.calls)
	assert.Empty(t, secondary.calls)
}

func TestAssetDetail_StaticPathOnly(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{err: errDown})

	got := e.AssetDetail(context.Background(), "bitcoin")

	assert.Equal(t, "bitcoin", got.ID)
	assert.Equal(t, model.SourceStatic, got.Source)
	assert.Greater(t, got.Price, 0.0)
}

func TestAssetDetail_UnknownIDSynthesized(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{err: errDown})

	got := e.AssetDetail(context.Background(), "obscure-token")

	assert.Equal(t, "obscure-token", got.ID)
	assert.Equal(t, model.SourceStatic, got.Source)
}

func TestOHLCV_PrimaryThenSecondaryThenSynthetic(t *testing.T) {
	now := time.Now()

	t.Run("primary serves candles", func(t *testing.T) {
		primary := &fakePrimary{candles: []fetch.CoinAPICandle{
			{TimePeriodStart: now, PriceOpen: 1, PriceHigh: 2, PriceLow: 0.5, PriceClose: 1.5, VolumeTraded: 100},
		}}
		e := New(primary, &fakeSecondary{err: errDown})

		candles := e.OHLCV(context.Background(), "bitcoin", "1h", 10)
		require.Len(t, candles, 1)
		assert.Equal(t, 1.5, candles[0].Close)
		assert.Equal(t, 100.0, candles[0].Volume)
	})

	t.Run("secondary rows mapped and truncated", func(t *testing.T) {
		rows := [][]float64{
			{float64(now.UnixMilli()), 1, 2, 0.5, 1.2},
			{float64(now.UnixMilli() + 3600000), 1.2, 2.2, 0.9, 1.8},
			{float64(now.UnixMilli() + 7200000), 1.8, 2.4, 1.1, 2.0},
		}
		e := New(&fakePrimary{err: errDown}, &fakeSecondary{ohlc: rows})

		candles := e.OHLCV(context.Background(), "bitcoin", "1h", 2)
		require.Len(t, candles, 2)
		assert.Equal(t, 2.0, candles[1].Close, "most recent candles kept")
	})

	t.Run("synthetic when both down", func(t *testing.T) {
		e := New(&fakePrimary{err: errDown}, &fakeSecondary{err: errDown})

		candles := e.OHLCV(context.Background(), "bitcoin", "1h", 24)
		require.Len(t, candles, 24)
		for _, c := range candles {
			assert.Greater(t, c.Close, 0.0)
			assert.GreaterOrEqual(t, c.High, c.Low)
		}
	})
}

func TestOrderbook_PrimaryOnlyWithSyntheticFallback(t *testing.T) {
	t.Run("primary book normalized", func(t *testing.T) {
		primary := &fakePrimary{book: &fetch.CoinAPIOrderbook{
			SymbolID: "BTC",
			Time:     time.Unix(1700000000, 0),
			Bids:     []fetch.CoinAPIBookLevel{{Price: 64990, Size: 1.5}},
			Asks:     []fetch.CoinAPIBookLevel{{Price: 65010, Size: 2.0}},
		}}
		secondary := &fakeSecondary{}
		e := New(primary, secondary)

		book := e.Orderbook(context.Background(), "bitcoin")

		assert.Equal(t, model.SourcePrimary, book.Source)
		assert.Equal(t, "BTC", book.Symbol)
		require.Len(t, book.Bids, 1)
		assert.Equal(t, 64990.0, book.Bids[0].Price)
		assert.Empty(t, secondary.calls, "secondary has no orderbook endpoint")
	})

	t.Run("synthetic book when primary down", func(t *testing.T) {
		e := New(&fakePrimary{err: errDown}, &fakeSecondary{})

		book := e.Orderbook(context.Background(), "bitcoin")

		assert.Equal(t, model.SourceStatic, book.Source)
		assert.NotEmpty(t, book.Bids)
		assert.NotEmpty(t, book.Asks)
		for i := range book.Bids {
			assert.Less(t, book.Bids[i].Price, book.Asks[i].Price, "book must not be crossed")
		}
	})
}

func TestTrades_EmptyListWhenPrimaryDown(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{})

	trades := e.Trades(context.Background(), "bitcoin", 20)

	assert.NotNil(t, trades)
	assert.Empty(t, trades)
}

func TestTrades_Normalized(t *testing.T) {
	primary := &fakePrimary{trades: []fetch.CoinAPITrade{
		{TimeExchange: time.Unix(1700000000, 0), Price: 65000, Size: 0.1, TakerSide: "BUY"},
		{TimeExchange: time.Unix(1700000001, 0), Price: 64990, Size: 0.2, TakerSide: "SELL"},
	}}
	e := New(primary, &fakeSecondary{})

	trades := e.Trades(context.Background(), "bitcoin", 20)

	require.Len(t, trades, 2)
	assert.Equal(t, "buy", trades[0].Side)
	assert.Equal(t, "sell", trades[1].Side)
	assert.Equal(t, model.SourcePrimary, trades[0].Source)
}

func TestChainStats_SecondaryThenStatic(t *testing.T) {
	t.Run("platforms mapped", func(t *testing.T) {
		secondary := &fakeSecondary{platforms: []fetch.CoinGeckoPlatform{
			{ID: "ethereum", Name: "Ethereum", NativeCoinID: "ethereum"},
			{ID: "solana", Name: "Solana", NativeCoinID: "solana"},
		}}
		e := New(&fakePrimary{}, secondary)

		chains := e.ChainStats(context.Background())
		require.Len(t, chains, 2)
		assert.Equal(t, model.SourceSecondary, chains[0].Source)
	})

	t.Run("static fallback", func(t *testing.T) {
		e := New(&fakePrimary{}, &fakeSecondary{err: errDown})

		chains := e.ChainStats(context.Background())
		assert.NotEmpty(t, chains)
		assert.Equal(t, model.SourceStatic, chains[0].Source)
	})
}

func TestChainStats_EthereumEnrichedFromRPC(t *testing.T) {
	e := New(&fakePrimary{}, &fakeSecondary{err: errDown}).
		WithChainReader(&fakeChain{block: 19_000_000, gas: 25.5})

	chains := e.ChainStats(context.Background())

	var eth *model.ChainStat
	for i := range chains {
		if chains[i].ID == "ethereum" {
			eth = &chains[i]
		}
	}
	require.NotNil(t, eth)
	assert.Equal(t, uint64(19_000_000), eth.BlockNumber)
	assert.Equal(t, 25.5, eth.GasPriceGwei)
}

func TestHealthTracking_FlipsAfterThreeFailuresAndRecovers(t *testing.T) {
	secondary := &fakeSecondary{err: errDown}
	e := New(&fakePrimary{err: errDown}, secondary)

	for i := 0; i < 3; i++ {
		e.GlobalMetrics(context.Background())
	}

	statuses := e.Status()
	require.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.False(t, st.Healthy, "%s should be unhealthy after 3 failures", st.Name)
		assert.Equal(t, 3, st.ConsecutiveFailures)
	}

	// One success flips the secondary back.
	g := &fetch.CoinGeckoGlobal{}
	g.Data.TotalMarketCap = map[string]float64{"usd": 1}
	secondary.err = nil
	secondary.global = g
	e.GlobalMetrics(context.Background())

	for _, st := range e.Status() {
		if st.Name == "coingecko" {
			assert.True(t, st.Healthy)
			assert.Equal(t, 0, st.ConsecutiveFailures)
		}
	}
}

func TestMarketOverview_TopTenByMarketCap(t *testing.T) {
	secondary := &fakeSecondary{markets: testMarkets()}
	g := &fetch.CoinGeckoGlobal{}
	g.Data.TotalMarketCap = map[string]float64{"usd": 2e12}
	secondary.global = g

	e := New(&fakePrimary{err: errDown}, secondary)
	overview := e.MarketOverview(context.Background())

	require.NotEmpty(t, overview.TopAssets)
	assert.Equal(t, "bitcoin", overview.TopAssets[0].ID)
	assert.Equal(t, model.SourceSecondary, overview.Source)
	assert.Equal(t, 2e12, overview.Global.TotalMarketCap)
}

func TestHeatmapData_LimitApplied(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{markets: testMarkets()})

	assets := e.HeatmapData(context.Background(), 2)

	require.Len(t, assets, 2)
	assert.Equal(t, "bitcoin", assets[0].ID)
	assert.Equal(t, "ethereum", assets[1].ID)
}

func TestMomentum_FiltersByMinChange(t *testing.T) {
	e := New(&fakePrimary{err: errDown}, &fakeSecondary{markets: testMarkets()})

	res := e.Momentum(context.Background(), 10, 1.0)

	require.NotEmpty(t, res.Assets)
	for _, a := range res.Assets {
		assert.GreaterOrEqual(t, a.Change24h, 1.0)
	}
	assert.Equal(t, "solana", res.Assets[0].ID, "sorted by 24h change descending")
}
