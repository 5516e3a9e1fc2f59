// Package main is the entry point for the market-data aggregation service:
// a normalized, always-available market-data API over two upstream
// providers and an embedded static fallback.
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/yourorg/marketdata-aggregator/internal/aggregate"
	"github.com/yourorg/marketdata-aggregator/internal/config"
	"github.com/yourorg/marketdata-aggregator/internal/fetch"
	"github.com/yourorg/marketdata-aggregator/internal/otel"
)

const version = "1.0.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server ties the HTTP surface to the aggregation engine.
type Server struct {
	cfg     config.Config
	engine  MarketEngine
	server  *http.Server
	limiter *rate.Limiter
	metrics *serverMetrics
}

// serverMetrics holds the HTTP-level Prometheus instruments.
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func registerServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketdata_requests_total",
				Help: "Total HTTP requests by endpoint",
			},
			[]string{"endpoint"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketdata_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
	}
	reg.MustRegister(m.requestCounter, m.requestDuration)
	return m
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	setupLogging()

	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	primary := fetch.NewCoinAPIClient(cfg)
	secondary := fetch.NewCoinGeckoClient(cfg)
	if cfg.CoinAPIKey == "" {
		logrus.Warn("COINAPI_KEY not set, primary provider will be skipped")
	}
	if cfg.CoinGeckoKey == "" {
		logrus.Warn("COINGECKO_API_KEY not set, secondary provider running on free tier")
	}

	engine := aggregate.New(primary, secondary).
		WithMetrics(aggregate.NewMetrics(prometheus.DefaultRegisterer))

	if reader := fetch.NewEthChainReader(cfg.EthRPCEndpoint); reader != nil {
		defer reader.Close()
		engine = engine.WithChainReader(reader)
		logrus.Info("Ethereum RPC enrichment enabled for chain stats")
	}

	server := NewServer(cfg, engine, prometheus.DefaultRegisterer)
	server.Start()
}

// setupLogging configures logrus from the environment. When LOG_FILE is
// set, output is duplicated to a size-rotated file.
func setupLogging() {
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	if lvl, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}
}

// NewServer wires the routes and inbound rate limiter.
func NewServer(cfg config.Config, engine MarketEngine, reg prometheus.Registerer) *Server {
	s := &Server{
		cfg:     cfg,
		engine:  engine,
		limiter: rate.NewLimiter(rate.Limit(cfg.APIRateLimit), cfg.APIRateBurst),
		metrics: registerServerMetrics(reg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /market/top-movers", s.wrap("top_movers", s.handleTopMovers))
	mux.HandleFunc("GET /market/heatmap", s.wrap("heatmap", s.handleHeatmap))
	mux.HandleFunc("GET /market/screener", s.wrap("screener", s.handleScreener))
	mux.HandleFunc("GET /market/assets", s.wrap("assets", s.handleAssets))
	mux.HandleFunc("GET /market/momentum", s.wrap("momentum", s.handleMomentum))
	mux.HandleFunc("GET /market/overview", s.wrap("overview", s.handleOverview))
	mux.HandleFunc("GET /market/global", s.wrap("global", s.handleGlobal))
	mux.HandleFunc("GET /market/chains", s.wrap("chains", s.handleChains))
	mux.HandleFunc("GET /market/tokens/{id}", s.wrap("token", s.handleToken))
	mux.HandleFunc("GET /market/tokens/{id}/ohlcv", s.wrap("ohlcv", s.handleOHLCV))
	mux.HandleFunc("GET /market/tokens/{id}/orderbook", s.wrap("orderbook", s.handleOrderbook))
	mux.HandleFunc("GET /market/tokens/{id}/trades", s.wrap("trades", s.handleTrades))
	mux.HandleFunc("GET /market/status", s.wrap("status", s.handleMarketStatus))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // covers both providers' retry budgets
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// wrap applies inbound rate limiting, tracing, and request metrics to a
// market endpoint.
func (s *Server) wrap(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		ctx, span := otel.Tracer().Start(r.Context(), endpoint)
		defer span.End()

		start := time.Now()
		h(w, r.WithContext(ctx))

		s.metrics.requestCounter.WithLabelValues(endpoint).Inc()
		s.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() {
	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}
