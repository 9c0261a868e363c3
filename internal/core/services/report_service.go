package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	apperrors "streampulse/pkg/errors"
	"streampulse/pkg/retry"
	"streampulse/pkg/tracing"
	"streampulse/pkg/utils"

	"go.uber.org/zap"
)

const (
	DefaultReportListLimit = 20
	MaxReportListLimit     = 100
)

// HealthReportService snapshots the monitor into the report repository
type HealthReportService struct {
	monitor  ports.HealthMonitor
	repo     ports.ReportRepository
	retryCfg retry.Config
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewHealthReportService(
	monitor ports.HealthMonitor,
	repo ports.ReportRepository,
	retryCfg retry.Config,
	logger *zap.SugaredLogger,
) *HealthReportService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	retryCfg.NonRetryableErrors = append(append([]error(nil), retryCfg.NonRetryableErrors...), context.Canceled)
	return &HealthReportService{
		monitor:  monitor,
		repo:     repo,
		retryCfg: retryCfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SaveReport captures the current monitor state and persists it
func (s *HealthReportService) SaveReport(ctx context.Context) (*domain.ReportSummary, error) {
	ctx, span := tracing.TraceReportOperation(ctx, "save")
	defer span.End()

	report := s.monitor.Report()
	data, err := json.Marshal(report)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to encode health report", http.StatusInternalServerError)
	}

	stored := &domain.StoredReport{
		ID:          utils.GenerateReportID(),
		CreatedAt:   s.now().UTC(),
		HealthScore: report.HealthScore,
		Status:      report.CurrentHealth.Status,
		Data:        data,
	}
	span.SetAttributes(
		tracing.ReportIDKey.String(stored.ID),
		tracing.HealthScoreKey.Int(stored.HealthScore),
		tracing.HealthTierKey.String(string(stored.Status)),
	)

	err = retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		return s.repo.Save(ctx, stored)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("failed to save health report", "report_id", stored.ID, "error", err)
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to save health report", http.StatusInternalServerError)
	}

	s.logger.Infow("health report saved",
		"report_id", stored.ID,
		"health_score", stored.HealthScore,
		"status", stored.Status,
		"bytes", len(data),
	)

	summary := stored.Summary()
	return &summary, nil
}

func (s *HealthReportService) GetReport(ctx context.Context, id string) (*domain.StoredReport, error) {
	ctx, span := tracing.TraceReportOperation(ctx, "get")
	defer span.End()
	span.SetAttributes(tracing.ReportIDKey.String(id))

	if id == "" {
		return nil, apperrors.NewInvalidInputError("report id is required")
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, apperrors.NewNotFoundError("report").WithContext("report_id", id)
		}
		tracing.RecordError(ctx, err)
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to load health report", http.StatusInternalServerError)
	}
	return report, nil
}

// ListReports returns summaries newest first. limit <= 0 selects the default;
// larger values are capped at MaxReportListLimit.
func (s *HealthReportService) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	ctx, span := tracing.TraceReportOperation(ctx, "list")
	defer span.End()

	switch {
	case limit <= 0:
		limit = DefaultReportListLimit
	case limit > MaxReportListLimit:
		limit = MaxReportListLimit
	}

	summaries, err := s.repo.List(ctx, limit)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to list health reports", http.StatusInternalServerError)
	}
	if summaries == nil {
		summaries = []domain.ReportSummary{}
	}
	return summaries, nil
}

func (s *HealthReportService) DeleteReport(ctx context.Context, id string) error {
	ctx, span := tracing.TraceReportOperation(ctx, "delete")
	defer span.End()
	span.SetAttributes(tracing.ReportIDKey.String(id))

	if id == "" {
		return apperrors.NewInvalidInputError("report id is required")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return apperrors.NewNotFoundError("report").WithContext("report_id", id)
		}
		tracing.RecordError(ctx, err)
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to delete health report", http.StatusInternalServerError)
	}

	s.logger.Infow("health report deleted", "report_id", id)
	return nil
}

var _ ports.ReportService = (*HealthReportService)(nil)
