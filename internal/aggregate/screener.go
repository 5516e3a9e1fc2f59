package aggregate

import (
	"sort"

	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// ScreenerQuery carries the filter, sort, and pagination parameters of a
// screener request. Zero values mean "no constraint".
type ScreenerQuery struct {
	SortBy       string
	Order        string
	Page         int
	PerPage      int
	MinMarketCap float64
	MinVolume    float64
	MinChange    float64
}

// ScreenerResult is one page of filtered canonical records.
type ScreenerResult struct {
	Assets  []model.Asset `json:"assets"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
	Source  model.Source  `json:"source"`
}

const (
	defaultPerPage = 50
	maxPerPage     = 250
)

// applyScreener filters, sorts, and paginates a canonical asset list.
func applyScreener(assets []model.Asset, q ScreenerQuery) ScreenerResult {
	filtered := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if a.MarketCap < q.MinMarketCap {
			continue
		}
		if a.Volume24h < q.MinVolume {
			continue
		}
		if q.MinChange != 0 && a.Change24h < q.MinChange {
			continue
		}
		filtered = append(filtered, a)
	}

	sortAssets(filtered, q.SortBy, q.Order)

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	total := len(filtered)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	var source model.Source
	if len(assets) > 0 {
		source = assets[0].Source
	}

	return ScreenerResult{
		Assets:  filtered[start:end],
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Source:  source,
	}
}

// sortAssets orders a canonical list in place. Unknown sort keys fall back
// to market cap; order is descending unless "asc" is asked for, matching
// how screener consumers read the endpoint.
func sortAssets(assets []model.Asset, sortBy, order string) {
	asc := order == "asc"
	less := func(a, b model.Asset) bool { return a.MarketCap < b.MarketCap }

	switch sortBy {
	case "price":
		less = func(a, b model.Asset) bool { return a.Price < b.Price }
	case "volume", "volume_24h":
		less = func(a, b model.Asset) bool { return a.Volume24h < b.Volume24h }
	case "change_24h":
		less = func(a, b model.Asset) bool { return a.Change24h < b.Change24h }
	case "change_7d":
		less = func(a, b model.Asset) bool { return a.Change7d < b.Change7d }
	case "rank":
		// rank 1 is the largest asset, so ascending rank == descending size
		less = func(a, b model.Asset) bool { return a.Rank > b.Rank }
	}

	sort.SliceStable(assets, func(i, j int) bool {
		if asc {
			return less(assets[i], assets[j])
		}
		return less(assets[j], assets[i])
	})
}
