package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"streampulse/internal/core/domain"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Save(ctx context.Context, report *domain.StoredReport) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportRepository) GetByID(ctx context.Context, id string) (*domain.StoredReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredReport), args.Error(1)
}

func (m *MockReportRepository) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReportSummary), args.Error(1)
}

func (m *MockReportRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestSaveReport_PersistsMonitorState(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	m.Tick()

	repo := new(MockReportRepository)
	var saved *domain.StoredReport
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.StoredReport")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.StoredReport) }).
		Return(nil).Once()

	svc := NewHealthReportService(m, repo, fastRetry(), zaptest.NewLogger(t).Sugar())
	summary, err := svc.SaveReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, saved.ID, summary.ID)
	assert.Contains(t, summary.ID, "report_")
	assert.Equal(t, m.HealthScore(), summary.HealthScore)
	assert.Equal(t, m.CurrentHealth().Status, summary.Status)

	var report domain.HealthReport
	require.NoError(t, json.Unmarshal(saved.Data, &report))
	assert.Len(t, report.History, 1)
	repo.AssertExpectations(t)
}

func TestSaveReport_RetriesTransientFailures(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	repo := new(MockReportRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewHealthReportService(m, repo, fastRetry(), nil)
	_, err := svc.SaveReport(context.Background())
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestSaveReport_GivesUp(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	repo := new(MockReportRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewHealthReportService(m, repo, fastRetry(), nil)
	_, err := svc.SaveReport(context.Background())
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeInternal, appErr.Code)
	repo.AssertNumberOfCalls(t, "Save", 3)
}

func TestGetReport(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	repo := new(MockReportRepository)
	stored := &domain.StoredReport{ID: "report_abc", Data: []byte("{}")}
	repo.On("GetByID", mock.Anything, "report_abc").Return(stored, nil)
	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrReportNotFound)
	repo.On("GetByID", mock.Anything, "broken").Return(nil, errors.New("io"))

	svc := NewHealthReportService(m, repo, fastRetry(), nil)
	ctx := context.Background()

	got, err := svc.GetReport(ctx, "report_abc")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = svc.GetReport(ctx, "missing")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetAppError(err).Code)

	_, err = svc.GetReport(ctx, "broken")
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetAppError(err).Code)

	_, err = svc.GetReport(ctx, "")
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)
}

func TestListReports_ClampsLimit(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	repo := new(MockReportRepository)
	repo.On("List", mock.Anything, DefaultReportListLimit).Return(nil, nil).Once()
	repo.On("List", mock.Anything, MaxReportListLimit).Return([]domain.ReportSummary{{ID: "a"}}, nil).Once()
	repo.On("List", mock.Anything, 5).Return([]domain.ReportSummary{{ID: "b"}}, nil).Once()

	svc := NewHealthReportService(m, repo, fastRetry(), nil)
	ctx := context.Background()

	list, err := svc.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = svc.ListReports(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, "a", list[0].ID)

	list, err = svc.ListReports(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "b", list[0].ID)

	repo.AssertExpectations(t)
}

func TestDeleteReport(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{})
	repo := new(MockReportRepository)
	repo.On("Delete", mock.Anything, "report_abc").Return(nil).Once()
	repo.On("Delete", mock.Anything, "missing").Return(domain.ErrReportNotFound).Once()
	repo.On("Delete", mock.Anything, "broken").Return(errors.New("io")).Once()

	svc := NewHealthReportService(m, repo, fastRetry(), nil)
	ctx := context.Background()

	require.NoError(t, svc.DeleteReport(ctx, "report_abc"))

	err := svc.DeleteReport(ctx, "missing")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetAppError(err).Code)

	err = svc.DeleteReport(ctx, "broken")
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetAppError(err).Code)

	err = svc.DeleteReport(ctx, "")
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetAppError(err).Code)

	repo.AssertExpectations(t)
}

func TestNewHealthReportService_LeavesCallerRetryConfigAlone(t *testing.T) {
	errStop := errors.New("stop")
	cfg := fastRetry()
	cfg.NonRetryableErrors = make([]error, 1, 4)
	cfg.NonRetryableErrors[0] = errStop

	svc := NewHealthReportService(newTestMonitor(t, MonitorConfig{}), new(MockReportRepository), cfg, nil)

	backing := cfg.NonRetryableErrors[:cap(cfg.NonRetryableErrors)]
	assert.Nil(t, backing[1])
	assert.Equal(t, []error{errStop, context.Canceled}, svc.retryCfg.NonRetryableErrors)
}
