package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeghana/internal/api/middleware"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("set ttl on %s: %w", key, err)
		}
	}
	return count, nil
}

// ensureTTL 为没有过期时间的计数键补设 TTL，否则该用户会被永久限流。
func ensureTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) error {
	remaining, err := client.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining >= 0 {
		return nil
	}
	return client.Expire(ctx, key, ttl).Err()
}

const aiRateWindow = time.Minute

// aiRateLimitMiddleware 按用户限制 AI 接口每分钟请求数。limit<=0 或 client 为空时不限制；
// Redis 不可用时放行。
func aiRateLimitMiddleware(client redisRateCounter, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}
		userID, ok := middleware.UserIDFromContext(c)
		if !ok {
			AbortUnauthorized(c)
			return
		}

		key := fmt.Sprintf("ai_rate:%d", userID)
		count, err := incrWithTTL(c.Request.Context(), client, key, aiRateWindow)
		if err != nil {
			loggerFrom(c).Warn("ai rate limit check failed, allowing request", "error", err)
			c.Next()
			return
		}
		if count > int64(limit) {
			if err := ensureTTL(c.Request.Context(), client, key, aiRateWindow); err != nil {
				loggerFrom(c).Warn("ai rate limit ttl repair failed", "key", key, "error", err)
			}
			c.Header("Retry-After", strconv.Itoa(int(aiRateWindow.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
