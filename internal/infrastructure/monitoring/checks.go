package monitoring

import (
	"context"
	"time"

	"streampulse/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

func (h *HealthChecker) AddRedisCheck(client *redis.Client, timeout time.Duration) {
	h.AddCheck("redis", func(ctx context.Context) (bool, error) {
		if err := client.Ping(ctx).Err(); err != nil {
			return false, err
		}
		return true, nil
	}, timeout)
}

// AddRepositoryCheck lists a single report as a round trip to the store
func (h *HealthChecker) AddRepositoryCheck(repo ports.ReportRepository, timeout time.Duration) {
	h.AddCheck("reports", func(ctx context.Context) (bool, error) {
		if _, err := repo.List(ctx, 1); err != nil {
			return false, err
		}
		return true, nil
	}, timeout)
}
