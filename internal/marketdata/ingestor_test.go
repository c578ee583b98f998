package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage/memory"
)

func minuteBar(symbol string, minute int64, close float64) *domain.Bar {
	return &domain.Bar{
		Symbol:      symbol,
		TimestampMs: minute * domain.MinuteMs,
		Open:        close,
		High:        close + 1,
		Low:         close - 1,
		Close:       close,
		Volume:      100,
	}
}

type failingStore struct {
	*memory.MinuteBarStore
	err error
}

func (s *failingStore) InsertBulk(ctx context.Context, bars []*domain.Bar) error {
	if s.err != nil {
		return s.err
	}
	return s.MinuteBarStore.InsertBulk(ctx, bars)
}

func TestIngestor_FlushesOnBatchSize(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMinuteBarStore()
	bars := make(chan *domain.Bar, 10)

	in := NewIngestor(bars, store, IngestorConfig{BatchSize: 2, FlushInterval: time.Hour}, nil)

	bars <- minuteBar("SPY", 1, 100)
	bars <- minuteBar("SPY", 2, 101)
	bars <- minuteBar("SPY", 3, 102)
	close(bars)

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := store.GetByTimeRange(ctx, "SPY", 0, 10*domain.MinuteMs)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(got))
	}
	if in.Stored() != 3 {
		t.Errorf("expected 3 stored, got %d", in.Stored())
	}
}

func TestIngestor_FlushesOnCancel(t *testing.T) {
	store := memory.NewMinuteBarStore()
	bars := make(chan *domain.Bar, 10)
	in := NewIngestor(bars, store, IngestorConfig{BatchSize: 100, FlushInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	bars <- minuteBar("QQQ", 1, 300)
	// Let Run pick the bar up before cancelling
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	got, _ := store.GetByTimeRange(context.Background(), "QQQ", 0, domain.HourMs)
	if len(got) != 1 {
		t.Errorf("expected buffered bar to be flushed, got %d", len(got))
	}
}

func TestIngestor_FlushesOnInterval(t *testing.T) {
	store := memory.NewMinuteBarStore()
	bars := make(chan *domain.Bar, 10)
	in := NewIngestor(bars, store, IngestorConfig{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go in.Run(ctx)

	bars <- minuteBar("IWM", 5, 200)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := store.GetByTimeRange(context.Background(), "IWM", 0, domain.HourMs)
		if len(got) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("bar was not flushed by the interval ticker")
}

func TestIngestor_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMinuteBarStore()
	if err := store.InsertBulk(ctx, []*domain.Bar{minuteBar("SPY", 1, 100)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	bars := make(chan *domain.Bar, 10)
	in := NewIngestor(bars, store, IngestorConfig{BatchSize: 10, FlushInterval: time.Hour}, nil)

	bars <- minuteBar("SPY", 1, 100)
	bars <- minuteBar("SPY", 2, 101)
	bars <- minuteBar("SPY", 2, 102) // same minute, later update wins
	close(bars)

	if err := in.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if in.Stored() != 1 || in.Skipped() != 1 {
		t.Errorf("expected 1 stored and 1 skipped, got %d and %d", in.Stored(), in.Skipped())
	}

	got, _ := store.GetByTimeRange(ctx, "SPY", 0, domain.HourMs)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[1].Close != 102 {
		t.Errorf("expected last update to win, got close %v", got[1].Close)
	}
}

func TestIngestor_StoreErrorKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MinuteBarStore: memory.NewMinuteBarStore(), err: errors.New("connection reset")}

	bars := make(chan *domain.Bar, 1)
	in := NewIngestor(bars, store, IngestorConfig{BatchSize: 10, FlushInterval: time.Hour}, nil)

	bars <- minuteBar("DIA", 1, 350)
	close(bars)

	if err := in.Run(ctx); err == nil {
		t.Fatal("expected flush error")
	}

	store.err = nil
	if err := in.flush(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	got, _ := store.GetByTimeRange(ctx, "DIA", 0, domain.HourMs)
	if len(got) != 1 {
		t.Errorf("expected retained bar to be written, got %d", len(got))
	}
}
