package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schemaVersionKey     = "streampulse:schema:version"
	currentSchemaVersion = 1
)

// Migration upgrades the key layout by one version
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client) error
}

// Migrate runs all pending migrations in order
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Debugw("redis schema is up to date", "version", currentVersion)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running redis migration", "version", migration.Version)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			// v1: the report index must only reference live report keys
			Version: 1,
			Up: func(ctx context.Context, client *redis.Client) error {
				_, err := pruneDanglingIndex(ctx, client, reportKeyPrefix, reportIndexKey)
				return err
			},
		},
	}
}

// pruneDanglingIndex removes index members whose report key has expired
func pruneDanglingIndex(ctx context.Context, client *redis.Client, prefix, indexKey string) (int, error) {
	ids, err := client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		exists, err := client.Exists(ctx, prefix+id).Result()
		if err != nil {
			return removed, err
		}
		if exists == 0 {
			if err := client.ZRem(ctx, indexKey, id).Err(); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
