package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig config for the Redis-backed submission limiter.
type RateLimitConfig struct {
	Redis          *redis.Client
	DefaultRPS     int           // fallback if the client has no own limit
	KeyPrefix      string        // e.g. "rl:client:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited

	counter windowCounter // tests
	now     func() time.Time
}

// windowCounter increments a window key and returns its new value.
type windowCounter interface {
	Hit(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct{ rdb *redis.Client }

func (r redisCounter) Hit(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rdb.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}

// RateLimitMiddleware applies a fixed-window limit per client and form, so
// one busy form cannot starve the client's other forms. It expects
// client_id in echo.Context (set by APIKeyMiddleware) and reads the
// :form_id route param when present.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:client:"
	}
	if cfg.counter == nil && cfg.Redis != nil {
		cfg.counter = redisCounter{rdb: cfg.Redis}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID, ok := ClientIDFromCtx(c)
			if !ok || clientID <= 0 {
				return next(c)
			}

			max := cfg.DefaultRPS
			if vv := c.Get(ctxClientRPS); vv != nil {
				if m, ok := vv.(int); ok && m > 0 {
					max = m
				}
			}
			if max <= 0 || cfg.counter == nil {
				// no limit configured or redis missing (dev): allow
				return next(c)
			}

			now := cfg.now()
			window := now.UnixNano() / int64(cfg.Window)
			key := rateLimitKey(cfg.KeyPrefix, clientID, c.Param("form_id"), window)

			cnt, err := cfg.counter.Hit(c.Request().Context(), key, cfg.Window*2)
			if err != nil {
				// fail open, intake must not depend on redis
				return next(c)
			}

			if cnt > int64(max) {
				if cfg.RetryAfterHint {
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					secs := int((remain + time.Second - 1) / time.Second)
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
			}
			return next(c)
		}
	}
}

// rateLimitKey builds rl:client:{id}:form:{form_id}:{window}; routes
// without a form share the client-wide bucket rl:client:{id}:{window}.
func rateLimitKey(prefix string, clientID int64, formID string, window int64) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(strconv.FormatInt(clientID, 10))
	if formID = strings.TrimSpace(formID); formID != "" {
		sb.WriteString(":form:")
		sb.WriteString(formID)
	}
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(window, 10))
	return sb.String()
}
