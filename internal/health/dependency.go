package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DBChecker pings the account store's connection pool.
type DBChecker struct {
	db *gorm.DB
}

// NewDBChecker returns nil for a nil handle; NewProbeRunner skips nil checkers.
func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	sqlDB, err := c.db.DB()
	if err != nil {
		return unhealthy("db", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unhealthy("db", err)
	}
	return CheckResult{Name: "db", Healthy: true}
}

// RedisChecker is registered only when the distributed rate limiter is on.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unhealthy("redis", err)
	}
	return CheckResult{Name: "redis", Healthy: true}
}

func unhealthy(name string, err error) CheckResult {
	return CheckResult{Name: name, Healthy: false, Error: err.Error()}
}
