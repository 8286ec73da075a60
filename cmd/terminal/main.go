package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/bulktrade/terminal-data/internal/config"
	"github.com/bulktrade/terminal-data/internal/feed"
	"github.com/bulktrade/terminal-data/internal/proxy"
	"github.com/bulktrade/terminal-data/internal/rest"
	"github.com/bulktrade/terminal-data/internal/state"
	"github.com/bulktrade/terminal-data/internal/stream"
	"github.com/bulktrade/terminal-data/internal/version"
)

func main() {
	// .env is optional; real env vars win either way.
	godotenv.Load()

	configPath := flag.String("config", "configs/terminal.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting terminal-data",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration; run on pure defaults when no file exists.
	var cfg *config.Config
	if _, err := os.Stat(*configPath); err == nil {
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("no config file, using defaults", "path", *configPath)
		cfg = config.Default()
	}

	logger.Info("configuration loaded",
		"listen_addr", cfg.Server.ListenAddr,
		"upstream", cfg.Upstream.BaseURL,
		"stream_url", cfg.Stream.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Stores
	store := state.NewMarketState()
	account := state.NewAccountState()

	// Caching gateway in front of the exchange REST API
	gateway := proxy.NewService(cfg.Upstream.BaseURL,
		proxy.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
		proxy.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Upstream.RateLimit), cfg.Upstream.RateBurst)),
		proxy.WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/bulk", gateway.Handler())
	registerDebugHandlers(mux, store)

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}
	go func() {
		logger.Info("gateway server listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("gateway server error", "error", err)
		}
	}()

	// Typed REST client, pointed at our own gateway so every read shares
	// the cache and dedup.
	apiClient := rest.NewClient(localBaseURL(cfg.Server.ListenAddr)+"/api/bulk",
		rest.WithLogger(logger),
		rest.WithTimeout(cfg.Feed.RequestTimeout),
	)

	feedCfg := feed.Config{
		TickerPollInterval: cfg.Feed.TickerPollInterval,
		CandlePollInterval: cfg.Feed.CandlePollInterval,
		Concurrency:        cfg.Feed.Concurrency,
		RequestTimeout:     cfg.Feed.RequestTimeout,
		CandleLimit:        cfg.Feed.CandleLimit,
		BookLimit:          cfg.Feed.BookLimit,
		FillsLimit:         cfg.Account.FillsLimit,
		PositionsLimit:     cfg.Account.PositionsLimit,
	}

	engine := feed.NewEngine(feedCfg, apiClient, store,
		func(h stream.Handlers) feed.Streamer {
			opts := []stream.Option{
				stream.WithLogger(logger),
				stream.WithReconnectDelay(cfg.Stream.ReconnectDelay),
			}
			if cfg.Stream.HeartbeatInterval > 0 {
				opts = append(opts, stream.WithHeartbeat(cfg.Stream.HeartbeatInterval))
			}
			return stream.NewClient(cfg.Stream.URL, h, opts...)
		},
		logger,
	)

	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start feed engine", "error", err)
		os.Exit(1)
	}

	// Initial load. The stream still delivers if this fails, so a dead
	// upstream at boot degrades rather than kills.
	if err := engine.Bootstrap(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
	}

	tickerPoller := feed.NewTickerPoller(feedCfg, apiClient, store, logger)
	if err := tickerPoller.Start(ctx); err != nil {
		logger.Error("failed to start ticker poller", "error", err)
		os.Exit(1)
	}

	candlePoller := feed.NewCandlePoller(feedCfg, apiClient, store, engine.Interval, logger)
	if err := candlePoller.Start(ctx); err != nil {
		logger.Error("failed to start candle poller", "error", err)
		os.Exit(1)
	}

	if cfg.Account.Wallet != "" {
		loader := feed.NewAccountLoader(feedCfg, apiClient, account, logger)
		go func() {
			if err := loader.Load(ctx, cfg.Account.Wallet); err != nil {
				logger.Warn("account load failed", "error", err)
			}
		}()
	}

	logger.Info("terminal-data running",
		"markets", len(store.Markets()),
		"selected", store.SelectedSymbol(),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	candlePoller.Stop(shutdownCtx)
	tickerPoller.Stop(shutdownCtx)
	engine.Stop(shutdownCtx)
	server.Shutdown(shutdownCtx)

	logger.Info("terminal-data stopped")
}

// registerDebugHandlers adds the health and market inspection endpoints.
func registerDebugHandlers(mux *http.ServeMux, store *state.MarketState) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		markets := store.Markets()

		health := struct {
			Status   string         `json:"status"`
			Markets  int            `json:"markets"`
			Selected string         `json:"selected"`
			Extra    map[string]any `json:"components,omitempty"`
		}{
			Status:   "healthy",
			Markets:  len(markets),
			Selected: store.SelectedSymbol(),
		}
		if len(markets) == 0 {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/markets", func(w http.ResponseWriter, r *http.Request) {
		markets := store.Markets()

		// Limit to first 100 for debugging
		limit := 100
		shown := markets
		if len(shown) > limit {
			shown = shown[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":   len(markets),
			"showing": len(shown),
			"markets": shown,
		})
	})
}

// localBaseURL turns a listen address into a loopback base URL.
func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + addr
}
