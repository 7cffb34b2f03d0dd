package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/alphapulse/pkg/logger"
	"github.com/wonny/alphapulse/pkg/redis"
)

// Limiter decides whether a client may upload now
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// NewLimiter returns the Redis sliding window when Redis is enabled,
// otherwise an in-process token bucket per client
func NewLimiter(client *redis.Client, perMinute int) Limiter {
	if client.Enabled() {
		return &redisLimiter{
			limiter:   redis.NewRateLimiter(client, "alphapulse"),
			perMinute: perMinute,
		}
	}
	return NewLocalLimiter(perMinute)
}

type redisLimiter struct {
	limiter   *redis.RateLimiter
	perMinute int
}

func (l *redisLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.UploadRateLimit(clientKey, l.perMinute))
	return allowed, err
}

// LocalLimiter keeps one token bucket per client in process
type LocalLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewLocalLimiter allows perMinute uploads per client with a burst of the same size
func NewLocalLimiter(perMinute int) *LocalLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &LocalLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes one token for the client
func (l *LocalLimiter) Allow(_ context.Context, clientKey string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[clientKey]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[clientKey] = lim
	}
	l.mu.Unlock()

	return lim.Allow(), nil
}

// rateLimitMiddleware rejects uploads over the per-client limit.
// A limiter error lets the request through.
func rateLimitMiddleware(limiter Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable")
			} else if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "upload rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
