package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-lab/internal/domain"
	"equity-lab/internal/fixtures"
	"equity-lab/internal/performance"
	"equity-lab/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *performance.Service) {
	t.Helper()
	stores := performance.Stores{
		Trades:     memory.NewClosedTradeStore(),
		Snapshots:  memory.NewEquitySnapshotStore(),
		Samples:    memory.NewATRSampleStore(),
		MinuteBars: memory.NewMinuteBarStore(),
		Closes:     memory.NewDailyCloseStore(),
		Curves:     memory.NewEquityCurveStore(),
	}
	require.NoError(t, fixtures.Load(context.Background(), stores))

	svc := performance.NewService(stores, 100000, nil)
	api := NewAPI(svc, "^GSPC", nil)
	api.now = func() time.Time { return time.UnixMilli(fixtures.RefMs()) }

	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)
	return server, svc
}

func get(t *testing.T, server *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func TestAPI_Curves(t *testing.T) {
	server, _ := newTestServer(t)

	var resp CurvesResponse
	status := get(t, server, "/api/curves?engine=trend&horizon=1d&benchmark=SP500", &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Curve)
	assert.Equal(t, []string{"QQQ", "SPY"}, resp.Curve.Symbols)
	assert.Len(t, resp.Curve.Points, fixtures.Days)
	assert.Equal(t, 100.0, resp.Curve.Points[0].V)
	require.NotNil(t, resp.Benchmark)
	assert.Equal(t, "^GSPC", resp.Benchmark.Symbol)

	assert.Equal(t, http.StatusNotFound, get(t, server, "/api/curves?engine=none&horizon=1d", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/curves?engine=trend", nil))
}

func TestAPI_TradeStats(t *testing.T) {
	server, _ := newTestServer(t)

	var raw map[string]any
	status := get(t, server, "/api/trade-stats?symbol=spy&timeframe=1h", &raw)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(fixtures.Days), raw["count"])

	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/trade-stats?symbol=SPY", nil))
}

func TestAPI_Portfolio(t *testing.T) {
	server, svc := newTestServer(t)

	var resp PortfolioResponse
	status := get(t, server, "/api/portfolio?account=demo&unrealized=0", &resp)
	require.Equal(t, http.StatusOK, status)

	want, err := svc.Portfolio(context.Background(), fixtures.Account, new(float64))
	require.NoError(t, err)
	assert.Equal(t, want.ClosedTrades, resp.Metrics.ClosedTrades)
	assert.InDelta(t, want.Equity, resp.Metrics.Equity, 1e-6)

	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/portfolio?account=demo&unrealized=abc", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/portfolio", nil))
}

func TestAPI_Daily(t *testing.T) {
	server, _ := newTestServer(t)

	var items []domain.DailySeriesItem
	status := get(t, server, "/api/daily?account=demo&start="+fixtures.StartDate+"&end="+fixtures.EndDate, &items)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items, fixtures.Days)
	assert.Equal(t, fixtures.StartDate, items[0].Key)

	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/daily?account=demo&start=2024-13-01&end=2024-01-05", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/daily?account=demo&start=0001-01-01&end=9999-12-31", nil))
}

func TestAPI_Benchmark(t *testing.T) {
	server, _ := newTestServer(t)

	var bc domain.BenchmarkCurve
	status := get(t, server, "/api/benchmark?engine=trend&horizon=1d&symbol=NASDAQ", &bc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "^IXIC", bc.Symbol)
	assert.Len(t, bc.Points, fixtures.Days)

	assert.Equal(t, http.StatusNotFound, get(t, server, "/api/benchmark?engine=trend&horizon=1d&symbol=KO", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/benchmark?engine=trend&horizon=1d&symbol=bad%20symbol", nil))
}

func TestAPI_Volatility(t *testing.T) {
	server, _ := newTestServer(t)

	var vc domain.VolatilityContext
	status := get(t, server, "/api/volatility?symbol=spy", &vc)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, vc.State.IsValid())
	assert.Greater(t, vc.ATR, 0.0)
	assert.GreaterOrEqual(t, vc.Percentile, 1)
	assert.LessOrEqual(t, vc.Percentile, 99)

	// Far in the past there are no bars
	status = get(t, server, "/api/volatility?symbol=SPY&at="+strconv.FormatInt(fixtures.StartMs, 10), &vc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.VolatilityNormal, vc.State)
	assert.Equal(t, 50, vc.Percentile)

	assert.Equal(t, http.StatusBadRequest, get(t, server, "/api/volatility?symbol=SPY&at=yesterday", nil))
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	server, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, get(t, server, "/health", nil))
	assert.Equal(t, http.StatusOK, get(t, server, "/metrics", nil))

	var st StatusResponse
	require.Equal(t, http.StatusOK, get(t, server, "/status", &st))
	assert.Equal(t, "running", st.Status)
	assert.Nil(t, st.Cache)
}
