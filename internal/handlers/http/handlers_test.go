package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	"streampulse/internal/infrastructure/middleware"
	"streampulse/internal/infrastructure/repositories/memory"
	"streampulse/pkg/logger"
	"streampulse/pkg/retry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	router  *gin.Engine
	monitor *services.HealthMonitorService
}

func newFixture(t *testing.T, control ...gin.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	zl := zaptest.NewLogger(t)
	log := zl.Sugar()

	monitor, err := services.NewHealthMonitorService(services.MonitorConfig{TickInterval: 10 * time.Millisecond}, log)
	require.NoError(t, err)
	t.Cleanup(func() { monitor.StopMonitoring() })

	reports := services.NewHealthReportService(monitor, memory.NewMemoryReportRepository(0, 0), retry.DefaultConfig(), log)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(logger.NewContextLogger(zl)))
	NewHealthHandler(context.Background(), monitor).SetupRoutes(router, control...)
	NewReportHandler(reports).SetupRoutes(router, control...)

	return &fixture{router: router, monitor: monitor}
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthHandler_Reads(t *testing.T) {
	f := newFixture(t)
	f.monitor.Tick()

	w := f.do(http.MethodGet, "/api/v1/health/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap domain.HealthSnapshot
	decode(t, w, &snap)
	assert.Equal(t, int64(services.FramesPerTick), snap.TotalFrames)

	w = f.do(http.MethodGet, "/api/v1/health/score", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var score struct {
		Score          int                 `json:"score"`
		Status         domain.HealthStatus `json:"status"`
		DropPercentage float64             `json:"dropPercentage"`
	}
	decode(t, w, &score)
	assert.Equal(t, f.monitor.HealthScore(), score.Score)
	assert.Equal(t, domain.StatusForScore(score.Score), score.Status)

	w = f.do(http.MethodGet, "/api/v1/health/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Count int `json:"count"`
	}
	decode(t, w, &history)
	assert.Equal(t, 1, history.Count)

	w = f.do(http.MethodGet, "/api/v1/health/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alerts":[]`)

	for _, path := range []string{"/api/v1/health/metrics", "/api/v1/health/recommendation", "/api/v1/health/status", "/api/v1/optimization"} {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, path, nil).Code, path)
	}
}

// reportOnlyMonitor serves a fixed report; any other read panics through the
// nil embedded interface.
type reportOnlyMonitor struct {
	ports.HealthMonitor
	report domain.HealthReport
}

func (m reportOnlyMonitor) Report() domain.HealthReport { return m.report }

func TestHealthHandler_ScoreFromOneReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	monitor := reportOnlyMonitor{report: domain.HealthReport{HealthScore: 62, DropPercentage: 4.5}}
	NewHealthHandler(context.Background(), monitor).SetupRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/score", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var score struct {
		Score          int                 `json:"score"`
		Status         domain.HealthStatus `json:"status"`
		DropPercentage float64             `json:"dropPercentage"`
	}
	decode(t, w, &score)
	assert.Equal(t, 62, score.Score)
	assert.Equal(t, domain.StatusForScore(62), score.Status)
	assert.Equal(t, 4.5, score.DropPercentage)
}

func TestHealthHandler_Export(t *testing.T) {
	f := newFixture(t)
	f.monitor.Tick()

	w := f.do(http.MethodGet, "/api/v1/health/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	var report domain.HealthReport
	decode(t, w, &report)
	assert.Len(t, report.History, 1)
}

func TestHealthHandler_StartStop(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/monitoring/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"started":true,"isMonitoring":true}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/v1/monitoring/start", nil)
	assert.JSONEq(t, `{"started":false,"isMonitoring":true}`, w.Body.String())

	// the loop outlives the request that started it
	assert.Eventually(t, func() bool { return len(f.monitor.HealthHistory()) > 0 }, time.Second, 10*time.Millisecond)

	w = f.do(http.MethodPost, "/api/v1/monitoring/stop", nil)
	assert.JSONEq(t, `{"stopped":true,"isMonitoring":false}`, w.Body.String())
}

func TestHealthHandler_AdjustBitrate(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/bitrate", map[string]float64{"bitrate": 2500})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2500.0, f.monitor.CurrentHealth().Bitrate)

	w = f.do(http.MethodPost, "/api/v1/bitrate", map[string]float64{"bitrate": -10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")

	w = f.do(http.MethodPost, "/api/v1/bitrate", map[string]string{"other": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 2500.0, f.monitor.CurrentHealth().Bitrate)
}

func TestHealthHandler_Alerts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.monitor.ManualBitrateAdjust(1500))
	f.monitor.Tick()
	require.Len(t, f.monitor.Alerts(), 1)

	w := f.do(http.MethodPost, "/api/v1/alerts/low-bitrate/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.monitor.Alerts()[0].Resolved)

	w = f.do(http.MethodPost, "/api/v1/alerts/unknown/resolve", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/v1/alerts/High_CPU/resolve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/health/alerts?active=true", nil)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = f.do(http.MethodDelete, "/api/v1/alerts/resolved", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.monitor.Alerts())
}

func TestHealthHandler_ResetAndOptimization(t *testing.T) {
	f := newFixture(t)
	f.monitor.Tick()

	w := f.do(http.MethodPost, "/api/v1/metrics/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.monitor.HealthHistory())

	w = f.do(http.MethodPut, "/api/v1/optimization", map[string]bool{"autoOptimize": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"autoOptimize":true,"autoBitrateAdjustment":false}`, w.Body.String())

	w = f.do(http.MethodPut, "/api/v1/optimization", map[string]bool{"autoBitrateAdjustment": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.monitor.OptimizationSettings().Enabled())
}

func TestReportHandler(t *testing.T) {
	f := newFixture(t)
	f.monitor.Tick()

	w := f.do(http.MethodPost, "/api/v1/reports", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var summary domain.ReportSummary
	decode(t, w, &summary)
	require.NotEmpty(t, summary.ID)

	w = f.do(http.MethodGet, "/api/v1/reports?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), summary.ID)

	w = f.do(http.MethodGet, "/api/v1/reports/"+summary.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.HealthReport
	decode(t, w, &report)
	assert.Equal(t, summary.HealthScore, report.HealthScore)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/reports/report_missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/reports?limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/reports/bad.id", nil).Code)

	w = f.do(http.MethodDelete, "/api/v1/reports/"+summary.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/reports/"+summary.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/reports/"+summary.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/api/v1/reports/bad.id", nil).Code)
}

func TestControlRoutesUseMiddleware(t *testing.T) {
	guard := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	f := newFixture(t, guard)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/v1/monitoring/start", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/v1/reports", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodDelete, "/api/v1/reports/report_abc", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/health/current", nil).Code)
	assert.False(t, f.monitor.IsMonitoring())
}

// MockReportService covers failures the in-memory store never produces
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) SaveReport(ctx context.Context) (*domain.ReportSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportSummary), args.Error(1)
}

func (m *MockReportService) GetReport(ctx context.Context, id string) (*domain.StoredReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredReport), args.Error(1)
}

func (m *MockReportService) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReportSummary), args.Error(1)
}

func (m *MockReportService) DeleteReport(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestReportHandler_StorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(MockReportService)
	svc.On("SaveReport", mock.Anything).Return(nil, assert.AnError)
	svc.On("ListReports", mock.Anything, 0).Return([]domain.ReportSummary{}, nil)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(logger.NewContextLogger(zaptest.NewLogger(t))))
	NewReportHandler(svc).SetupRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reports":[],"count":0}`, w.Body.String())

	svc.AssertExpectations(t)
}
