package ports

import (
	"context"

	"streampulse/internal/core/domain"
)

// ReportRepository stores exported health reports as opaque blobs
type ReportRepository interface {
	Save(ctx context.Context, report *domain.StoredReport) error
	GetByID(ctx context.Context, id string) (*domain.StoredReport, error)
	// List returns the newest reports first
	List(ctx context.Context, limit int) ([]domain.ReportSummary, error)
	Delete(ctx context.Context, id string) error
}
