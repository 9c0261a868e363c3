package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/tracing"

	"github.com/redis/go-redis/v9"
)

const (
	reportKeyPrefix = "streampulse:report:"
	reportIndexKey  = "streampulse:reports:index"
)

// reportRecord is the stored JSON value; Data is base64 encoded by encoding/json
type reportRecord struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	HealthScore int                 `json:"health_score"`
	Status      domain.HealthStatus `json:"status"`
	Data        []byte              `json:"data"`
}

// RedisReportRepository stores each report under its own key with a TTL and
// keeps a sorted set of IDs scored by creation time.
type RedisReportRepository struct {
	client     *redis.Client
	maxReports int
	ttl        time.Duration
}

func NewRedisReportRepository(client *redis.Client, maxReports int, ttl time.Duration) ports.ReportRepository {
	return &RedisReportRepository{
		client:     client,
		maxReports: maxReports,
		ttl:        ttl,
	}
}

func (r *RedisReportRepository) reportKey(id string) string {
	return reportKeyPrefix + id
}

func (r *RedisReportRepository) Save(ctx context.Context, report *domain.StoredReport) error {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "redis", "save")
	defer span.End()

	data, err := json.Marshal(reportRecord{
		ID:          report.ID,
		CreatedAt:   report.CreatedAt,
		HealthScore: report.HealthScore,
		Status:      report.Status,
		Data:        report.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.reportKey(report.ID), data, r.ttl)
		pipe.ZAdd(ctx, reportIndexKey, redis.Z{
			Score:  float64(report.CreatedAt.UnixNano()),
			Member: report.ID,
		})
		return nil
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to store report in Redis: %w", err)
	}

	return r.trim(ctx)
}

// trim drops index entries older than the TTL and the oldest reports beyond
// maxReports
func (r *RedisReportRepository) trim(ctx context.Context) error {
	if r.ttl > 0 {
		cutoff := time.Now().Add(-r.ttl).UnixNano()
		if err := r.client.ZRemRangeByScore(ctx, reportIndexKey, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
			return fmt.Errorf("failed to trim expired reports: %w", err)
		}
	}
	if r.maxReports <= 0 {
		return nil
	}

	count, err := r.client.ZCard(ctx, reportIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}
	excess := count - int64(r.maxReports)
	if excess <= 0 {
		return nil
	}

	oldest, err := r.client.ZRange(ctx, reportIndexKey, 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("failed to list oldest reports: %w", err)
	}
	keys := make([]string, len(oldest))
	members := make([]interface{}, len(oldest))
	for i, id := range oldest {
		keys[i] = r.reportKey(id)
		members[i] = id
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, reportIndexKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to evict old reports: %w", err)
	}
	return nil
}

func (r *RedisReportRepository) GetByID(ctx context.Context, id string) (*domain.StoredReport, error) {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "redis", "get")
	defer span.End()

	data, err := r.client.Get(ctx, r.reportKey(id)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report from Redis: %w", err)
	}

	var rec reportRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &domain.StoredReport{
		ID:          rec.ID,
		CreatedAt:   rec.CreatedAt,
		HealthScore: rec.HealthScore,
		Status:      rec.Status,
		Data:        rec.Data,
	}, nil
}

func (r *RedisReportRepository) List(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	ctx, span := tracing.TraceRepositoryOperation(ctx, "redis", "list")
	defer span.End()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, reportIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read report index: %w", err)
	}

	summaries := make([]domain.ReportSummary, 0, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.reportKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between index read and MGET
			continue
		}
		var rec reportRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		summaries = append(summaries, domain.ReportSummary{
			ID:          rec.ID,
			CreatedAt:   rec.CreatedAt,
			HealthScore: rec.HealthScore,
			Status:      rec.Status,
		})
	}
	return summaries, nil
}

func (r *RedisReportRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.reportKey(id))
		pipe.ZRem(ctx, reportIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}
