package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/api/handlers"
	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/internal/settings"
	"github.com/wonny/alphapulse/internal/store"
	"github.com/wonny/alphapulse/pkg/httputil"
	"github.com/wonny/alphapulse/pkg/logger"
	"github.com/wonny/alphapulse/pkg/redis"
)

const uploadJSON = `{
	"initial_capital": 1000,
	"trades": {
		"breakout_v2": {"trades": {"ETHUSDT": [
			{"quantity":"1","side":"buy","price":"100","time":1704153600000},
			{"quantity":"1","side":"sell","price":"120","time":1704240000000},
			{"quantity":"1","side":"buy","price":"120","time":1706745600000},
			{"quantity":"1","side":"sell","price":"90","time":1706832000000}
		]}}
	}
}`

const uploadCSV = "Quantity,Side,Price,Time\n1,BUY,100,1704153600000\n1,SELL,110,1704240000000\n"

func newTestRouter(t *testing.T, limiter Limiter, maxBytes int64) http.Handler {
	t.Helper()
	log := logger.Nop()
	svc := analysis.NewService(settings.Default(), redis.Disabled(), store.NewMemory(), log)
	fetcher := ingest.NewFetcher(httputil.New(nil, log).DisableRetry(), maxBytes)

	return NewRouter(
		handlers.NewAnalysisHandler(svc, fetcher, 10000, maxBytes, log),
		handlers.NewStreamHandler(svc, maxBytes, log),
		limiter,
		log,
	)
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func analyze(t *testing.T, h http.Handler) contracts.AnalysisReport {
	t.Helper()
	rec := do(t, h, "POST", "/api/analyze", "application/json", uploadJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report contracts.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return report
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, nil, 1<<20), "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAnalyze_JSONAndCSV(t *testing.T) {
	h := newTestRouter(t, nil, 1<<20)

	report := analyze(t, h)
	assert.Equal(t, "breakout_v2", report.StrategyKey)
	assert.Equal(t, "ETHUSDT Strategy", report.Metrics.StrategyName)
	assert.Equal(t, 2, report.Metrics.RoundTrips())

	rec := do(t, h, "POST", "/api/analyze?format=csv&capital=500", "", uploadCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var csvReport contracts.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &csvReport))
	assert.Equal(t, ingest.CSVStrategyKey, csvReport.StrategyKey)
	assert.Equal(t, 500.0, csvReport.Metrics.InitialCapital)
	assert.InDelta(t, 0.02, csvReport.Metrics.TotalReturn, 1e-9)

	rec = do(t, h, "POST", "/api/analyze", "text/csv", uploadCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &csvReport))
	assert.Equal(t, 10000.0, csvReport.Metrics.InitialCapital, "csv falls back to the configured capital")
}

func TestAnalyze_ErrorStatus(t *testing.T) {
	h := newTestRouter(t, nil, 256)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"bad capital", "/api/analyze?capital=-1", uploadJSON[:10], http.StatusBadRequest},
		{"unsupported format", "/api/analyze?format=xml", "<x/>", http.StatusBadRequest},
		{"malformed json", "/api/analyze", "{", http.StatusBadRequest},
		{"field parse", "/api/analyze", `{"initial_capital":1,"trades":{"s":{"trades":{"X":[
			{"quantity":"1","side":"hold","price":"1","time":1},{"quantity":"1","side":"sell","price":"1","time":2}]}}}}`, http.StatusBadRequest},
		{"too large", "/api/analyze", uploadJSON, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", tt.target, "application/json", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestReports(t *testing.T) {
	h := newTestRouter(t, nil, 1<<20)
	report := analyze(t, h)

	rec := do(t, h, "GET", "/api/reports", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reports []contracts.ReportSummary `json:"reports"`
		Count   int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, report.ID, list.Reports[0].ID)

	rec = do(t, h, "GET", "/api/reports/"+report.ID, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/reports/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "GET", "/api/reports?limit=zero", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportViews(t *testing.T) {
	h := newTestRouter(t, nil, 1<<20)
	report := analyze(t, h)
	base := "/api/reports/" + report.ID

	rec := do(t, h, "GET", base+"/filter?start=2024-02-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered contracts.ProcessedMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered.Trades, 1)
	assert.Equal(t, "2024-02-02", filtered.Trades[0].Date)
	assert.Equal(t, report.Metrics.TotalReturn, filtered.TotalReturn)

	rec = do(t, h, "GET", base+"/filter?start=02/01/2024", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "GET", base+"/drawdowns?limit=3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(t, h, "GET", base+"/projection?simulations=10&seed=42", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var proj risk.Projection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proj))
	assert.Equal(t, int64(42), proj.Config.Seed)
	assert.Len(t, proj.Points, len(report.Metrics.EquityCurve))

	rec = do(t, h, "GET", base+"/projection?simulations=0", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRemote(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/run.json":
			w.Write([]byte(uploadJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	h := newTestRouter(t, nil, 1<<20)

	rec := do(t, h, "POST", "/api/analyze/remote", "application/json", `{"url":"`+upstream.URL+`/run.json","capital":2000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report contracts.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2000.0, report.Metrics.InitialCapital)

	rec = do(t, h, "POST", "/api/analyze/remote", "application/json", `{"url":"`+upstream.URL+`/gone.json"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, h, "POST", "/api/analyze/remote", "application/json", `{"url":"ftp://example.com/x.json"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/analyze/remote", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, NewLocalLimiter(2), 1<<20)

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, "POST", "/api/analyze", "application/json", uploadJSON).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// reads are not limited
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/reports", "", "").Code)
}

func TestLocalLimiter_PerClient(t *testing.T) {
	l := NewLocalLimiter(1)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestNewLimiter_FallsBackWithoutRedis(t *testing.T) {
	_, ok := NewLimiter(redis.Disabled(), 5).(*LocalLimiter)
	assert.True(t, ok)
}

func TestStream(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, nil, 1<<20))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var frame handlers.StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, handlers.FrameError, frame.Type)
	assert.Equal(t, 1, frame.Seq)
	assert.Equal(t, http.StatusBadRequest, frame.Status)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(uploadJSON)))
	frame = handlers.StreamFrame{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, handlers.FrameMetrics, frame.Type)
	assert.Equal(t, 2, frame.Seq)
	require.NotNil(t, frame.Report)
	assert.Equal(t, "breakout_v2", frame.Report.StrategyKey)
}

func TestStream_LastDatasetWins(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t, nil, 1<<20))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	const sends = 5
	for i := 1; i <= sends; i++ {
		body := strings.Replace(uploadJSON, `"initial_capital": 1000`, fmt.Sprintf(`"initial_capital": %d`, 1000+i), 1)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(body)))
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// earlier datasets may or may not report, but never after a later one
	lastSeq := 0
	for lastSeq < sends {
		var frame handlers.StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, handlers.FrameMetrics, frame.Type, frame.Error)
		require.Greater(t, frame.Seq, lastSeq)
		lastSeq = frame.Seq

		if frame.Seq == sends {
			require.NotNil(t, frame.Report)
			assert.Equal(t, float64(1000+sends), frame.Report.Metrics.InitialCapital)
		}
	}
}
