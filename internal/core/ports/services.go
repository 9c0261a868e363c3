package ports

import (
	"context"
	"time"

	"streampulse/internal/core/domain"
)

// HealthMonitor is the operation set consumed by the HTTP layer and the
// report scheduler.
type HealthMonitor interface {
	StartMonitoring(ctx context.Context) bool
	StopMonitoring() bool
	IsMonitoring() bool

	CurrentHealth() domain.HealthSnapshot
	Metrics() domain.AggregateMetrics
	Alerts() []domain.Alert
	HealthHistory() []domain.HealthSnapshot
	HealthScore() int
	DropPercentage() float64
	BitrateRecommendation() domain.BitrateRecommendation

	ResolveAlert(key domain.AlertKey)
	ClearResolvedAlerts()
	ManualBitrateAdjust(kbps float64) error
	ResetMetrics()
	OptimizationSettings() domain.OptimizationSettings
	SetOptimizationSettings(settings domain.OptimizationSettings)

	Report() domain.HealthReport
	ExportHealthReport() ([]byte, error)
	Subscribe(buffer int) (<-chan domain.HealthEvent, func())
}

// ReportService persists exported reports
type ReportService interface {
	SaveReport(ctx context.Context) (*domain.ReportSummary, error)
	GetReport(ctx context.Context, id string) (*domain.StoredReport, error)
	ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error)
	DeleteReport(ctx context.Context, id string) error
}

// MetricsRecorder receives monitor activity for an external metrics backend
type MetricsRecorder interface {
	RecordTick(snapshot domain.HealthSnapshot, score int, dropPct float64, duration time.Duration)
	RecordAlert(alert domain.Alert)
	RecordBitrateAdjustment(adj domain.BitrateAdjustment)
	RecordMonitoring(active bool)
}

// NopMetricsRecorder discards everything
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) RecordTick(domain.HealthSnapshot, int, float64, time.Duration) {}
func (NopMetricsRecorder) RecordAlert(domain.Alert) {}
func (NopMetricsRecorder) RecordBitrateAdjustment(domain.BitrateAdjustment) {}
func (NopMetricsRecorder) RecordMonitoring(bool) {}
