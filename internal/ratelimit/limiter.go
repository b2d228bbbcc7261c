package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/employease/employease-api/internal/httputil"
	"github.com/employease/employease-api/internal/logging"
)

// Limiter is a fixed-window request budget per client and purpose, counted in Redis
type Limiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

func NewLimiter(client *redis.Client, requests int, window time.Duration) *Limiter {
	return &Limiter{client: client, requests: requests, window: window}
}

func windowKey(purpose, client string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, client)
}

// Allow counts one request for client. When the budget is spent it returns
// false and the time left in the current window.
func (l *Limiter) Allow(ctx context.Context, purpose, client string) (bool, time.Duration, error) {
	key := windowKey(purpose, client)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count request: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to start rate window: %w", err)
		}
	}

	if count <= int64(l.requests) {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read rate window: %w", err)
	}
	if ttl < 0 {
		// window without expiry, restart it
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to start rate window: %w", err)
		}
		ttl = l.window
	}
	return false, ttl, nil
}

// Middleware enforces the budget for purpose on every request. Redis
// failures let the request through.
func (l *Limiter) Middleware(purpose string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())
			ip := clientIP(r)

			allowed, retryAfter, err := l.Allow(r.Context(), purpose, ip)
			if err != nil {
				logger.Error("rate limiter unavailable, allowing request", "purpose", purpose, "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.Warn("rate limit exceeded", "purpose", purpose, "ip", ip)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				httputil.RespondErrorWithCode(w, "too many requests", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the peer address, or the forwarded one when the router
// trusts proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
