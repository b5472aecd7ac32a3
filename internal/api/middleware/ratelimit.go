package middleware

import (
	"context"
	"emi-engine/internal/config"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type counterStore interface {
	Pipeline() redis.Pipeliner
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiterMiddleware limits requests per client IP. A shared Redis
// counter is used when a client is configured so limits hold across
// replicas; otherwise each process keeps its own token buckets.
type RateLimiterMiddleware struct {
	store    counterStore
	limiters sync.Map
	cfg      config.RateLimitConfig
	logger   *slog.Logger
	window   time.Duration
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient *redis.Client, logger *slog.Logger) *RateLimiterMiddleware {
	logger.Info("Initializing rate limiter middleware component...")

	rl := &RateLimiterMiddleware{
		cfg:    cfg,
		logger: logger,
		window: 1 * time.Second,
	}

	switch {
	case !cfg.Enabled:
		logger.Info("Rate limiting is disabled via configuration.")
	case redisClient != nil:
		rl.store = redisClient
		logger.Info("Rate limiter using Redis counters", "rps", cfg.RPS, "window", rl.window)
	default:
		logger.Warn("Rate limiting enabled without Redis; using in-process limiter", "rps", cfg.RPS, "burst", cfg.Burst)
		go rl.cleanupLimiters()
	}

	return rl
}

func (rl *RateLimiterMiddleware) IsEnabled() bool {
	return rl.cfg.Enabled
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst))
	return limiter.(*rate.Limiter)
}

func (rl *RateLimiterMiddleware) cleanupLimiters() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.limiters.Range(func(key, value interface{}) bool {
			limiter := value.(*rate.Limiter)
			if limiter.Tokens() >= float64(rl.cfg.Burst) {
				rl.limiters.Delete(key)
			}
			return true
		})
	}
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		ip := strings.TrimSpace(ips[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	xRealIP := r.Header.Get("X-Real-IP")
	if xRealIP != "" {
		ip := strings.TrimSpace(xRealIP)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return ip
	}

	parsedIP := net.ParseIP(r.RemoteAddr)
	if parsedIP != nil {
		return parsedIP.String()
	}

	rl.logger.Warn("Could not determine client IP for rate limiting", "remoteAddr", r.RemoteAddr, "x-forwarded-for", xff, "x-real-ip", xRealIP)
	return "unknown"
}

// allowShared reports whether the request fits in the current Redis window.
// Redis failures let the request through.
func (rl *RateLimiterMiddleware) allowShared(ctx context.Context, ip string) bool {
	key := fmt.Sprintf("ratelimit:%s", ip)

	pipe := rl.store.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Error("Redis pipeline failed during rate limiting check", "error", err, "ip", ip, "key", key)
		return true
	}

	currentCount, err := incrCmd.Result()
	if err != nil {
		rl.logger.Error("Failed to get INCR result after pipeline exec", "error", err, "ip", ip, "key", key)
		return true
	}
	ttl, err := ttlCmd.Result()
	if err != nil {
		rl.logger.Error("Failed to get TTL result after pipeline exec", "error", err, "ip", ip, "key", key)
	}
	if ttl < 0 {
		if err := rl.store.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.Error("Failed to set Redis EXPIRE for rate limit key", "error", err, "ip", ip, "key", key)
		}
	}

	limit := int64(rl.cfg.RPS)
	if rl.cfg.Burst > 0 && int64(rl.cfg.Burst) > limit {
		limit = int64(rl.cfg.Burst)
	}
	return currentCount <= limit
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.IsEnabled() {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)
		if ip == "unknown" {
			rl.logger.Error("Blocking request due to unknown client IP for rate limiting")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var allowed bool
		if rl.store != nil {
			allowed = rl.allowShared(r.Context(), ip)
		} else {
			allowed = rl.getLimiter(ip).Allow()
		}

		if !allowed {
			rl.logger.Warn("Rate limit exceeded", "ip", ip, "limit", rl.cfg.RPS)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
