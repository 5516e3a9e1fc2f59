package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/marketdata-aggregator/internal/model"
)

func TestAssets_AllTaggedStatic(t *testing.T) {
	assets := Assets()
	require.NotEmpty(t, assets)
	for _, a := range assets {
		assert.Equal(t, model.SourceStatic, a.Source)
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Symbol)
	}
}

func TestAsset_KnownAndSynthesized(t *testing.T) {
	btc := Asset("bitcoin")
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Greater(t, btc.Price, 0.0)
	assert.Equal(t, model.SourceStatic, btc.Source)

	unknown := Asset("some-new-token")
	assert.Equal(t, "some-new-token", unknown.ID)
	assert.Equal(t, "SOME", unknown.Symbol)
	assert.Equal(t, "Some New Token", unknown.Name)
	assert.Equal(t, model.SourceStatic, unknown.Source)
}

func TestSymbolFor(t *testing.T) {
	assert.Equal(t, "BTC", SymbolFor("bitcoin"))
	assert.Equal(t, "AVAX", SymbolFor("avalanche-2"))
	assert.Equal(t, "MYSTE", SymbolFor("mysterycoin"))
}

func TestGlobal_ConsistentWithSnapshot(t *testing.T) {
	g := Global()
	assert.Equal(t, model.SourceStatic, g.Source)
	assert.Greater(t, g.TotalMarketCap, 0.0)
	assert.Greater(t, g.BTCDominance, g.ETHDominance, "BTC leads the snapshot")
	assert.InDelta(t, 100, g.BTCDominance+g.ETHDominance, 100, "dominance shares are percentages")
}

func TestSyntheticOrderbook_NotCrossed(t *testing.T) {
	book := SyntheticOrderbook("BTC", 65000)
	require.NotEmpty(t, book.Bids)
	require.Equal(t, len(book.Bids), len(book.Asks))

	for i := range book.Bids {
		assert.Less(t, book.Bids[i].Price, 65000.0)
		assert.Greater(t, book.Asks[i].Price, 65000.0)
	}
	assert.Equal(t, model.SourceStatic, book.Source)
}

func TestSyntheticOrderbook_ZeroPriceGuard(t *testing.T) {
	book := SyntheticOrderbook("XYZ", 0)
	require.NotEmpty(t, book.Bids)
	assert.Greater(t, book.Bids[0].Price, 0.0)
}

func TestSyntheticCandles(t *testing.T) {
	candles := SyntheticCandles(100, "1h", 24)
	require.Len(t, candles, 24)

	for i, c := range candles {
		assert.GreaterOrEqual(t, c.High, c.Low, "candle %d", i)
		if i > 0 {
			assert.Greater(t, c.Time, candles[i-1].Time, "candles ordered oldest first")
		}
	}
}
