package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"equity-lab/internal/benchmark"
	"equity-lab/internal/cache"
	"equity-lab/internal/domain"
	"equity-lab/internal/metrics"
	"equity-lab/internal/observability"
	"equity-lab/internal/performance"
	"equity-lab/internal/series"
)

// service is the subset of performance.Service the API serves.
type service interface {
	EngineCurve(ctx context.Context, engine, horizon string) (*domain.CompositeCurve, error)
	TradeStats(ctx context.Context, symbol, timeframe string) (domain.RStats, error)
	Portfolio(ctx context.Context, account string, unrealized *float64) (domain.PortfolioMetrics, error)
	DailySeries(ctx context.Context, account, startDate, endDate string, startingEquity float64) ([]domain.DailySeriesItem, error)
	Benchmark(ctx context.Context, symbolOrAlias string, subject []domain.EquityPoint) (*domain.BenchmarkCurve, error)
	Volatility(ctx context.Context, symbol, timeframe string, refMs int64) domain.VolatilityContext
	InitialEquity() float64
}

// API serves performance views as JSON.
type API struct {
	svc        service
	benchmark  string
	logger     *log.Logger
	cacheStats func() cache.Stats
	started    time.Time
	now        func() time.Time
}

// NewAPI creates the HTTP API. defaultBenchmark is used when a request names none.
func NewAPI(svc service, defaultBenchmark string, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		svc:       svc,
		benchmark: defaultBenchmark,
		logger:    logger,
		started:   time.Now(),
		now:       time.Now,
	}
}

// WithCacheStats exposes daily close cache statistics on /status.
func (a *API) WithCacheStats(stats func() cache.Stats) *API {
	a.cacheStats = stats
	return a
}

// Routes returns the instrumented HTTP handler.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/curves", a.handleCurves)
	mux.HandleFunc("GET /api/trade-stats", a.handleTradeStats)
	mux.HandleFunc("GET /api/portfolio", a.handlePortfolio)
	mux.HandleFunc("GET /api/daily", a.handleDaily)
	mux.HandleFunc("GET /api/benchmark", a.handleBenchmark)
	mux.HandleFunc("GET /api/volatility", a.handleVolatility)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", a.handleStatus)

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	return instrument(mux)
}

// CurvesResponse is the JSON response for /api/curves.
type CurvesResponse struct {
	Curve     *domain.CompositeCurve `json:"curve"`
	Benchmark *domain.BenchmarkCurve `json:"benchmark,omitempty"`
}

func (a *API) handleCurves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine, horizon := q.Get("engine"), q.Get("horizon")
	if engine == "" || horizon == "" {
		writeError(w, http.StatusBadRequest, "engine and horizon are required")
		return
	}

	cc, err := a.svc.EngineCurve(r.Context(), engine, horizon)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	resp := CurvesResponse{Curve: cc}
	if sym := q.Get("benchmark"); sym != "" {
		bc, err := a.svc.Benchmark(r.Context(), sym, cc.Points)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		resp.Benchmark = bc
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol, timeframe := strings.ToUpper(q.Get("symbol")), q.Get("timeframe")
	if symbol == "" || timeframe == "" {
		writeError(w, http.StatusBadRequest, "symbol and timeframe are required")
		return
	}

	stats, err := a.svc.TradeStats(r.Context(), symbol, timeframe)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// PortfolioResponse is the JSON response for /api/portfolio.
type PortfolioResponse struct {
	Metrics domain.PortfolioMetrics `json:"metrics"`
	Issues  []string                `json:"issues,omitempty"`
}

func (a *API) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account := q.Get("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	var unrealized *float64
	if raw := q.Get("unrealized"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unrealized must be a number")
			return
		}
		unrealized = &v
	}

	m, err := a.svc.Portfolio(r.Context(), account, unrealized)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PortfolioResponse{Metrics: m, Issues: metrics.ConsistencyIssues(m)})
}

func (a *API) handleDaily(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	account, start, end := q.Get("account"), q.Get("start"), q.Get("end")
	if account == "" || start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "account, start and end are required")
		return
	}

	startingEquity := a.svc.InitialEquity()
	if raw := q.Get("startingEquity"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "startingEquity must be a number")
			return
		}
		startingEquity = v
	}

	items, err := a.svc.DailySeries(r.Context(), account, start, end, startingEquity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine, horizon := q.Get("engine"), q.Get("horizon")
	if engine == "" || horizon == "" {
		writeError(w, http.StatusBadRequest, "engine and horizon are required")
		return
	}
	symbol := q.Get("symbol")
	if symbol == "" {
		symbol = a.benchmark
	}

	cc, err := a.svc.EngineCurve(r.Context(), engine, horizon)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	bc, err := a.svc.Benchmark(r.Context(), symbol, cc.Points)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if bc == nil {
		writeError(w, http.StatusNotFound, "no benchmark data for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, bc)
}

func (a *API) handleVolatility(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := strings.ToUpper(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	timeframe := q.Get("timeframe")
	if timeframe == "" {
		timeframe = "1h"
	}
	at := a.now().UnixMilli()
	if raw := q.Get("at"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be a Unix timestamp in milliseconds")
			return
		}
		at = v
	}

	writeJSON(w, http.StatusOK, a.svc.Volatility(r.Context(), symbol, timeframe, at))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status string       `json:"status"`
	Uptime string       `json:"uptime"`
	Cache  *cache.Stats `json:"cache,omitempty"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(a.started).Round(time.Second).String(),
	}
	if a.cacheStats != nil {
		stats := a.cacheStats()
		resp.Cache = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps service errors to HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, performance.ErrNoCurves):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, series.ErrInvalidDate), errors.Is(err, benchmark.ErrInvalidSymbol),
		errors.Is(err, performance.ErrSpanTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request duration by path and status class.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Pattern is set by the mux; unmatched paths share one label
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		observability.RecordHTTPRequest(path, rec.status, time.Since(start).Seconds())
	})
}
