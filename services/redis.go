package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/redis/go-redis/v9"
)

// RedisService is an optional fast path in front of the blacklisted-token
// table. When REDIS_ADDR is unset every method is a no-op and the database
// remains the source of truth.
type RedisService struct {
	appContext.DefaultService
	redis *redis.Client
}

const REDIS_SVC = "redis_svc"

const blacklistKeyPrefix = "blacklist:jti:"

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.initRedisClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis != nil {
		ctx := context.Background()
		_, err := svc.redis.Ping(ctx).Result()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		_ = svc.redis.Close()
	}
}

func (svc *RedisService) initRedisClient() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	svc.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
}

func (svc *RedisService) Enabled() bool {
	return svc.redis != nil
}

// CacheBlacklistedJTI remembers a revoked access-token JTI until the token
// would have expired anyway.
func (svc *RedisService) CacheBlacklistedJTI(ctx context.Context, jti string, ttl time.Duration) error {
	if svc.redis == nil || ttl <= 0 {
		return nil
	}
	return svc.redis.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err()
}

// IsJTIBlacklisted answers from the cache only. A miss means "unknown", the
// caller still consults the database.
func (svc *RedisService) IsJTIBlacklisted(ctx context.Context, jti string) (bool, error) {
	if svc.redis == nil {
		return false, nil
	}

	_, err := svc.redis.Get(ctx, blacklistKeyPrefix+jti).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
