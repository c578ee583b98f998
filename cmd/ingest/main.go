// Package main ingests market data:
// - live: streams minute bars from a WebSocket feed into storage
// - closes: loads benchmark daily closes from a CSV file (symbol,date,close)
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/marketdata"
	"equity-lab/internal/observability"
	"equity-lab/internal/series"
	"equity-lab/internal/storage"
	chstore "equity-lab/internal/storage/clickhouse"
	"equity-lab/internal/storage/memory"
	"equity-lab/internal/storage/migrations"
)

// closeHourUTC is the timestamp hour assigned to a daily close row.
const closeHourUTC = 21

func main() {
	// Parse flags (env vars as defaults)
	mode := flag.String("mode", "live", "Ingestion mode: live or closes")
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("FEED_ENDPOINT"), "Minute bar WebSocket endpoint")
	symbols := flag.String("symbols", os.Getenv("FEED_SYMBOLS"), "Comma-separated symbols to subscribe to")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	closesFile := flag.String("file", "", "CSV file of daily closes (closes mode)")
	batchSize := flag.Int("batch-size", 500, "Bars per storage batch")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "Maximum time bars stay buffered")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, flushing and shutting down...", sig)
		cancel()
	}()

	var (
		bars   storage.MinuteBarStore  = memory.NewMinuteBarStore()
		closes storage.DailyCloseStore = memory.NewDailyCloseStore()
	)
	if !*useMemory {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN, logger)
		if err != nil {
			logger.Fatalf("ClickHouse: %v", err)
		}
		defer conn.Close()
		bars = chstore.NewMinuteBarStore(conn)
		closes = chstore.NewDailyCloseStore(conn)
	}

	switch *mode {
	case "live":
		if *feedEndpoint == "" || *symbols == "" {
			logger.Fatal("--feed-endpoint and --symbols are required in live mode")
		}
		err := runLive(ctx, *feedEndpoint, splitSymbols(*symbols), bars, marketdata.IngestorConfig{
			BatchSize:     *batchSize,
			FlushInterval: *flushInterval,
		}, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("Live ingestion failed: %v", err)
		}
	case "closes":
		if *closesFile == "" {
			logger.Fatal("--file is required in closes mode")
		}
		f, err := os.Open(*closesFile)
		if err != nil {
			logger.Fatalf("Open closes file: %v", err)
		}
		defer f.Close()

		rows, err := parseCloses(f)
		if err != nil {
			logger.Fatalf("Parse closes: %v", err)
		}
		if err := closes.InsertBulk(ctx, rows); err != nil {
			logger.Fatalf("Insert closes: %v", err)
		}
		logger.Printf("Inserted %d daily closes", len(rows))
	default:
		logger.Fatalf("Unknown mode %q (want live or closes)", *mode)
	}

	logger.Println("Ingestion complete")
}

// runLive streams bars until ctx is done, then flushes what is buffered.
func runLive(ctx context.Context, endpoint string, symbols []string, store storage.MinuteBarStore, cfg marketdata.IngestorConfig, logger *log.Logger) error {
	client, err := marketdata.NewClient(ctx, endpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer client.Close()

	if err := client.Subscribe(ctx, symbols); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Printf("Subscribed to %v", client.Symbols())

	ingestor := marketdata.NewIngestor(client.Bars(), store, cfg, logger)
	err = ingestor.Run(ctx)
	logger.Printf("Stored %d bars, skipped %d duplicates", ingestor.Stored(), ingestor.Skipped())
	return err
}

// parseCloses reads "symbol,date,close" rows. A header row is skipped.
// Dates are YYYY-MM-DD; each close is stamped at closeHourUTC on that day.
func parseCloses(r io.Reader) ([]*domain.DailyClose, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	var out []*domain.DailyClose
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(rec[0], "symbol") {
			continue
		}

		day, err := series.ParseDay(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}

		out = append(out, &domain.DailyClose{
			Symbol:      strings.ToUpper(strings.TrimSpace(rec[0])),
			TimestampMs: day.UnixMilli() + closeHourUTC*domain.HourMs,
			Close:       price,
		})
	}
	return out, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
