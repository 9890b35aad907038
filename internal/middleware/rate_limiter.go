package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ucsattendance/internal/apierror"
	"ucsattendance/internal/infra"
	"ucsattendance/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const rateLimitKeyPrefix = "attendance:ratelimit:"

// RateLimiter limits each client IP to perMinute requests. With a redis
// client the window is shared across instances (fixed one-minute window);
// without one, or while redis is failing, an in-process token bucket per IP
// is used instead. A non-positive perMinute disables limiting.
func RateLimiter(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	local := newLocalLimiter(perMinute, 10*time.Minute)
	if rdb == nil {
		return local.handler()
	}
	breaker := infra.NewBreaker(infra.BreakerConfig{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		OnTransition: func(from, to infra.BreakerState) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("redis rate limiter breaker")
		},
	})
	return redisRateLimiter(rdb, breaker, local, perMinute)
}

// ── Redis fixed window ────────────────────────────────────────────────────────

func redisRateLimiter(rdb *redis.Client, breaker *infra.Breaker, fallback *localLimiter, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		key := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, c.ClientIP(), now.Unix()/60)

		var count int64
		err := breaker.Do(func() error {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()
			n, err := incrWindow(ctx, rdb, key)
			count = n
			return err
		})
		if err != nil {
			if !errors.Is(err, infra.ErrBreakerOpen) {
				log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter redis unavailable")
			}
			fallback.handler()(c)
			return
		}
		if count > int64(perMinute) {
			reject(c, "redis", time.Duration(60-now.Unix()%60)*time.Second)
			return
		}
		c.Next()
	}
}

func incrWindow(ctx context.Context, rdb *redis.Client, key string) (int64, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// ── In-process token bucket ───────────────────────────────────────────────────

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
}

func newLocalLimiter(perMinute int, ttl time.Duration) *localLimiter {
	return &localLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		ttl:      ttl,
		lastGC:   time.Now(),
	}
}

func (l *localLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Idle visitors are purged inline instead of from a background goroutine.
	if now.Sub(l.lastGC) > l.ttl {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.ttl {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *localLimiter) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP(), time.Now()).Allow() {
			reject(c, "local", time.Second)
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, backend string, retryAfter time.Duration) {
	metrics.RateLimited.WithLabelValues(backend).Inc()
	c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many requests. Try again shortly."))
}
