package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
)

// MemoryReportRepository keeps reports in process. maxReports <= 0 and
// ttl <= 0 disable the respective limit.
type MemoryReportRepository struct {
	reports    map[string]*domain.StoredReport
	maxReports int
	ttl        time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

func NewMemoryReportRepository(maxReports int, ttl time.Duration) ports.ReportRepository {
	return &MemoryReportRepository{
		reports:    make(map[string]*domain.StoredReport),
		maxReports: maxReports,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemoryReportRepository) Save(ctx context.Context, report *domain.StoredReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *report
	stored.Data = append([]byte(nil), report.Data...)
	r.reports[report.ID] = &stored

	r.pruneLocked()
	return nil
}

func (r *MemoryReportRepository) GetByID(ctx context.Context, id string) (*domain.StoredReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[id]
	if !exists || r.expired(report) {
		return nil, domain.ErrReportNotFound
	}

	out := *report
	out.Data = append([]byte(nil), report.Data...)
	return &out, nil
}

func (r *MemoryReportRepository) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]domain.ReportSummary, 0, len(r.reports))
	for _, report := range r.newestFirstLocked() {
		if r.expired(report) {
			continue
		}
		summaries = append(summaries, report.Summary())
		if limit > 0 && len(summaries) == limit {
			break
		}
	}
	return summaries, nil
}

func (r *MemoryReportRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[id]; !exists {
		return domain.ErrReportNotFound
	}
	delete(r.reports, id)
	return nil
}

func (r *MemoryReportRepository) expired(report *domain.StoredReport) bool {
	return r.ttl > 0 && r.now().Sub(report.CreatedAt) > r.ttl
}

func (r *MemoryReportRepository) newestFirstLocked() []*domain.StoredReport {
	all := make([]*domain.StoredReport, 0, len(r.reports))
	for _, report := range r.reports {
		all = append(all, report)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

// pruneLocked drops expired reports, then the oldest beyond maxReports
func (r *MemoryReportRepository) pruneLocked() {
	for id, report := range r.reports {
		if r.expired(report) {
			delete(r.reports, id)
		}
	}
	if r.maxReports <= 0 || len(r.reports) <= r.maxReports {
		return
	}
	for _, report := range r.newestFirstLocked()[r.maxReports:] {
		delete(r.reports, report.ID)
	}
}
