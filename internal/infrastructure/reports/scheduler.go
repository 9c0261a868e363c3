package reports

import (
	"context"
	"sync"
	"time"

	"streampulse/internal/core/ports"

	"go.uber.org/zap"
)

// Scheduler persists a health report on a fixed interval while the monitor
// is running
type Scheduler struct {
	reports  ports.ReportService
	monitor  ports.HealthMonitor
	interval time.Duration
	logger   *zap.SugaredLogger

	stopChan chan struct{}
	stopOnce sync.Once
}

func NewScheduler(
	reports ports.ReportService,
	monitor ports.HealthMonitor,
	interval time.Duration,
	logger *zap.SugaredLogger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		reports:  reports,
		monitor:  monitor,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("report scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infow("report scheduler started", "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// RunOnce saves one report. It reports whether a report was written.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.monitor.IsMonitoring() {
		s.logger.Debug("monitoring stopped, skipping scheduled report")
		return false
	}

	summary, err := s.reports.SaveReport(ctx)
	if err != nil {
		s.logger.Errorw("scheduled report failed", "error", err)
		return false
	}

	s.logger.Infow("scheduled report saved",
		"report_id", summary.ID,
		"health_score", summary.HealthScore,
	)
	return true
}
