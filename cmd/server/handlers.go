package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yourorg/marketdata-aggregator/internal/aggregate"
	"github.com/yourorg/marketdata-aggregator/internal/fallback"
	"github.com/yourorg/marketdata-aggregator/internal/model"
)

// MarketEngine is the slice of the aggregation engine the HTTP layer
// consumes. Narrowed to an interface so handlers can be tested with a stub.
type MarketEngine interface {
	TopMovers(ctx context.Context, limit int) model.TopMovers
	HeatmapData(ctx context.Context, limit int) []model.Asset
	TokenScreener(ctx context.Context, q aggregate.ScreenerQuery) aggregate.ScreenerResult
	Momentum(ctx context.Context, limit int, minChange float64) aggregate.ScreenerResult
	MarketOverview(ctx context.Context) model.MarketOverview
	GlobalMetrics(ctx context.Context) model.GlobalMetrics
	ChainStats(ctx context.Context) []model.ChainStat
	AssetDetail(ctx context.Context, id string) model.Asset
	OHLCV(ctx context.Context, id, period string, limit int) []model.Candle
	Orderbook(ctx context.Context, id string) model.Orderbook
	Trades(ctx context.Context, id string, limit int) []model.Trade
	Status() []model.ProviderStatus
}

// apiResponse is the envelope every endpoint answers with. Business-level
// failures never surface as 4xx/5xx; degraded data is flagged by the
// source field inside the payload.
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Message: msg})
}

func (s *Server) handleTopMovers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	writeSuccess(w, s.engine.TopMovers(r.Context(), limit))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	writeSuccess(w, s.engine.HeatmapData(r.Context(), limit))
}

func (s *Server) handleScreener(w http.ResponseWriter, r *http.Request) {
	q := aggregate.ScreenerQuery{
		SortBy:       r.URL.Query().Get("sort_by"),
		Order:        r.URL.Query().Get("order"),
		Page:         queryInt(r, "page", 1),
		PerPage:      queryInt(r, "per_page", 50),
		MinMarketCap: queryFloat(r, "min_market_cap", 0),
		MinVolume:    queryFloat(r, "min_volume", 0),
	}
	writeSuccess(w, s.engine.TokenScreener(r.Context(), q))
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	q := aggregate.ScreenerQuery{
		SortBy:  r.URL.Query().Get("sort_by"),
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "per_page", 50),
	}
	writeSuccess(w, s.engine.TokenScreener(r.Context(), q))
}

func (s *Server) handleMomentum(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	minChange := queryFloat(r, "min_change", 0)
	writeSuccess(w, s.engine.Momentum(r.Context(), limit, minChange))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.engine.MarketOverview(r.Context()))
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.engine.GlobalMetrics(r.Context()))
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, s.engine.ChainStats(r.Context()))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeSuccess(w, s.engine.AssetDetail(r.Context(), id))
}

func (s *Server) handleOHLCV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1h"
	}
	limit := queryInt(r, "limit", 100)
	writeSuccess(w, s.engine.OHLCV(r.Context(), id, period, limit))
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeSuccess(w, s.engine.Orderbook(r.Context(), id))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := queryInt(r, "limit", 50)
	writeSuccess(w, s.engine.Trades(r.Context(), id, limit))
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"status":           "operational",
		"uptime":           time.Since(startTime).String(),
		"providers":        s.engine.Status(),
		"snapshot_version": fallback.SnapshotVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
