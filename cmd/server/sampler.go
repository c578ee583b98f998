package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"equity-lab/internal/domain"
)

// sampleService records one volatility observation.
type sampleService interface {
	RecordSample(ctx context.Context, symbol, timeframe string, refMs int64) (domain.VolatilityContext, error)
}

// Sampler periodically appends ATR samples for a fixed symbol list.
type Sampler struct {
	svc       sampleService
	symbols   []string
	timeframe string
	interval  time.Duration
	schedule  string // cron expression, overrides interval when set
	logger    *log.Logger
	now       func() time.Time
}

// NewSampler creates a sampler recording every interval, aligned to the interval.
func NewSampler(svc sampleService, symbols []string, timeframe string, interval time.Duration, logger *log.Logger) *Sampler {
	if logger == nil {
		logger = log.Default()
	}
	return &Sampler{
		svc:       svc,
		symbols:   symbols,
		timeframe: timeframe,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// cronSpec returns the schedule the sampler registers.
func (s *Sampler) cronSpec() string {
	if s.schedule != "" {
		return s.schedule
	}
	return fmt.Sprintf("@every %s", s.interval)
}

// Run records samples on schedule until ctx is done.
// Runs that overlap a still-running one are skipped.
func (s *Sampler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.VerbosePrintfLogger(s.logger))),
	)
	if _, err := c.AddFunc(s.cronSpec(), func() { s.RecordAll(ctx) }); err != nil {
		return fmt.Errorf("register schedule %q: %w", s.cronSpec(), err)
	}

	s.logger.Printf("Starting ATR sampler for %v (schedule: %s)", s.symbols, s.cronSpec())
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RecordAll records one sample per symbol at the current interval boundary.
func (s *Sampler) RecordAll(ctx context.Context) int {
	ref := s.now().Truncate(s.interval).UnixMilli()
	recorded := 0
	for _, symbol := range s.symbols {
		vc, err := s.svc.RecordSample(ctx, symbol, s.timeframe, ref)
		if err != nil {
			s.logger.Printf("Sample %s failed: %v", symbol, err)
			continue
		}
		recorded++
		s.logger.Printf("Sample %s: %s p%d atr=%.4f", symbol, vc.State, vc.Percentile, vc.ATR)
	}
	return recorded
}
