package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/pkg/tracing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const cleanupInterval = time.Hour

// ReportRepository stores report blobs in a single SQLite table. Retention
// (ttl and maxReports) is enforced on open, hourly and after each insert.
type ReportRepository struct {
	db         *sql.DB
	maxReports int
	ttl        time.Duration
	logger     *zap.SugaredLogger

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewReportRepository(path string, maxReports int, ttl time.Duration, logger *zap.SugaredLogger) (*ReportRepository, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(3)
	db.SetMaxIdleConns(2)
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// modernc.org/sqlite takes PRAGMAs as statements, not DSN parameters
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r := &ReportRepository{
		db:         db,
		maxReports: maxReports,
		ttl:        ttl,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}

	r.cleanup(context.Background())

	r.wg.Add(1)
	go r.cleanupLoop()

	return r, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS health_reports (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		health_score INTEGER NOT NULL,
		status TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_health_reports_created_at ON health_reports(created_at)`)
	return err
}

func (r *ReportRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		err = r.db.Close()
	})
	return err
}

// Ping is used by the readiness check
func (r *ReportRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ReportRepository) Save(ctx context.Context, report *domain.StoredReport) error {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "sqlite", "insert")
	defer span.End()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO health_reports (id, created_at, health_score, status, data) VALUES (?, ?, ?, ?, ?)`,
		report.ID, report.CreatedAt.UTC(), report.HealthScore, string(report.Status), report.Data,
	)
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("insert report: %w", err)
	}

	r.cleanup(ctx)
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.StoredReport, error) {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "sqlite", "select")
	defer span.End()

	var (
		report domain.StoredReport
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, health_score, status, data FROM health_reports WHERE id = ?`, id,
	).Scan(&report.ID, &report.CreatedAt, &report.HealthScore, &status, &report.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	report.Status = domain.HealthStatus(status)
	return &report, nil
}

func (r *ReportRepository) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "sqlite", "list")
	defer span.End()

	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, health_score, status FROM health_reports
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ReportSummary, 0)
	for rows.Next() {
		var (
			s      domain.ReportSummary
			status string
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.HealthScore, &status); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		s.Status = domain.HealthStatus(status)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM health_reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func (r *ReportRepository) cleanup(ctx context.Context) {
	if r.ttl > 0 {
		cutoff := time.Now().UTC().Add(-r.ttl)
		res, err := r.db.ExecContext(ctx, `DELETE FROM health_reports WHERE created_at < ?`, cutoff)
		if err != nil {
			r.logger.Warnw("report cleanup (age) failed", "error", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			r.logger.Infow("report cleanup: removed expired", "count", n)
		}
	}

	if r.maxReports > 0 {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM health_reports WHERE id NOT IN (
				SELECT id FROM health_reports ORDER BY created_at DESC, id DESC LIMIT ?
			)`, r.maxReports)
		if err != nil {
			r.logger.Warnw("report cleanup (count) failed", "error", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			r.logger.Debugw("report cleanup: trimmed to max", "removed", n, "max", r.maxReports)
		}
	}
}

func (r *ReportRepository) cleanupLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.cleanup(context.Background())
		}
	}
}
