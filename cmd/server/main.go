// Package main runs the performance API server:
// - HTTP JSON API over curves, trade statistics, portfolio, daily series and volatility
// - Minute bar feed ingestion (optional)
// - Periodic ATR sample recording (optional)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"equity-lab/internal/config"
	"equity-lab/internal/fixtures"
	"equity-lab/internal/marketdata"
	"equity-lab/internal/performance"
	"equity-lab/internal/storage"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file")
	configPath := flag.String("config", os.Getenv("EQUITY_LAB_CONFIG"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	loadFixtures := flag.Bool("fixtures", false, "Load demo fixtures into in-memory storage")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadEnvFile(*envFile); err != nil {
		logger.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if *loadFixtures {
		if !cfg.Storage.UseMemory {
			logger.Fatal("--fixtures requires in-memory storage")
		}
		if err := fixtures.Load(ctx, stores.Stores); err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}
		logger.Printf("Loaded demo fixtures for account %q", fixtures.Account)
	}

	svc := performance.NewService(stores.Stores, cfg.Engine.InitialEquity, logger)
	api := NewAPI(svc, cfg.Engine.Benchmark, logger)
	if stores.closeCache != nil {
		api = api.WithCacheStats(stores.closeCache.Stats)
	}

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup

	if cfg.Feed.Endpoint != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runFeed(ctx, cfg, stores.MinuteBars, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Feed stopped: %v", err)
			}
		}()
	}

	if len(cfg.Volatility.Symbols) > 0 {
		sampler := NewSampler(svc, cfg.Volatility.Symbols, cfg.Volatility.Timeframe, cfg.Volatility.SampleInterval,
			log.New(os.Stdout, "[sampler] ", log.LstdFlags|log.Lshortfile))
		sampler.schedule = cfg.Volatility.Schedule
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sampler.Run(ctx); err != nil {
				logger.Printf("Sampler stopped: %v", err)
			}
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", cfg.Server.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("HTTP server error: %v", err)
		cancel()
	}

	wg.Wait()
	logger.Println("Shutdown complete")
}

// runFeed streams minute bars from the configured endpoint into store until ctx is done.
func runFeed(ctx context.Context, cfg *config.Config, store storage.MinuteBarStore, logger *log.Logger) error {
	feedLogger := log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile)

	client, err := marketdata.NewClient(ctx, cfg.Feed.Endpoint, nil, feedLogger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Subscribe(ctx, cfg.Feed.Symbols); err != nil {
		return err
	}
	logger.Printf("Feed subscribed to %v", client.Symbols())

	ingestor := marketdata.NewIngestor(client.Bars(), store, marketdata.IngestorConfig{
		BatchSize:     cfg.Feed.BatchSize,
		FlushInterval: cfg.Feed.FlushInterval,
	}, feedLogger)

	err = ingestor.Run(ctx)
	logger.Printf("Feed ingested %d bars (%d duplicates skipped)", ingestor.Stored(), ingestor.Skipped())
	return err
}
