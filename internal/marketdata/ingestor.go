package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/observability"
	"equity-lab/internal/storage"
)

// IngestorConfig controls batching of received bars.
type IngestorConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultIngestorConfig returns default batching parameters.
func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
	}
}

// Ingestor drains a bar channel into a MinuteBarStore in batches.
type Ingestor struct {
	bars   <-chan *domain.Bar
	store  storage.MinuteBarStore
	config IngestorConfig
	logger *log.Logger

	buffer []*domain.Bar
	stored int
	skips  int
}

// NewIngestor creates an ingestor reading from bars.
func NewIngestor(bars <-chan *domain.Bar, store storage.MinuteBarStore, config IngestorConfig, logger *log.Logger) *Ingestor {
	def := DefaultIngestorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{
		bars:   bars,
		store:  store,
		config: config,
		logger: logger,
		buffer: make([]*domain.Bar, 0, config.BatchSize),
	}
}

// Run consumes bars until ctx is done or the channel is closed.
// Buffered bars are flushed before returning.
func (in *Ingestor) Run(ctx context.Context) error {
	ticker := time.NewTicker(in.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush must outlive the cancelled context
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := in.flush(flushCtx)
			cancel()
			return err
		case bar, ok := <-in.bars:
			if !ok {
				return in.flush(ctx)
			}
			in.buffer = append(in.buffer, bar)
			if len(in.buffer) >= in.config.BatchSize {
				if err := in.flush(ctx); err != nil {
					in.logger.Printf("ingest: flush failed: %v", err)
				}
			}
		case <-ticker.C:
			if err := in.flush(ctx); err != nil {
				in.logger.Printf("ingest: flush failed: %v", err)
			}
		}
	}
}

// Stored returns the number of bars written so far.
func (in *Ingestor) Stored() int {
	return in.stored
}

// Skipped returns the number of duplicate bars dropped so far.
func (in *Ingestor) Skipped() int {
	return in.skips
}

// flush writes the buffer. On a duplicate key the batch is retried bar by bar
// and duplicates are skipped. On any other error the buffer is kept.
func (in *Ingestor) flush(ctx context.Context) error {
	if len(in.buffer) == 0 {
		return nil
	}

	batch := dedupe(in.buffer)
	written := 0
	err := in.store.InsertBulk(ctx, batch)
	switch {
	case err == nil:
		written = len(batch)
	case errors.Is(err, storage.ErrDuplicateKey):
		for i, bar := range batch {
			if err := in.store.InsertBulk(ctx, []*domain.Bar{bar}); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					in.skips++
					continue
				}
				in.stored += written
				in.buffer = append(in.buffer[:0], batch[i:]...)
				observability.RecordFeedFlush(written, len(in.buffer))
				return fmt.Errorf("insert bar %s@%d: %w", bar.Symbol, bar.TimestampMs, err)
			}
			written++
		}
	default:
		observability.RecordFeedFlush(0, len(in.buffer))
		return fmt.Errorf("insert batch: %w", err)
	}

	in.stored += written
	in.buffer = in.buffer[:0]
	observability.RecordFeedFlush(written, 0)
	return nil
}

// dedupe keeps the last bar per (symbol, timestamp), preserving first-seen order.
func dedupe(bars []*domain.Bar) []*domain.Bar {
	index := make(map[string]int, len(bars))
	out := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		key := fmt.Sprintf("%s:%d", b.Symbol, b.TimestampMs)
		if i, ok := index[key]; ok {
			out[i] = b
			continue
		}
		index[key] = len(out)
		out = append(out, b)
	}
	return out
}
