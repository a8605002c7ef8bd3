package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client address. Buckets live in an
// expiring LRU so idle clients are forgotten.
type RateLimiter struct {
	buckets      *expirable.LRU[string, *rate.Limiter]
	limit        rate.Limit
	burst        int
	trustHeaders bool
}

// NewRateLimiter builds a limiter from cfg.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		buckets:      expirable.NewLRU[string, *rate.Limiter](cfg.CacheSize, nil, cfg.TTL),
		limit:        rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute)),
		burst:        cfg.Burst,
		trustHeaders: cfg.TrustHeaders,
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if limiter, ok := l.buckets.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Add(key, limiter)
	return limiter
}

func (l *RateLimiter) clientKey(r *http.Request) string {
	if l.trustHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := l.limiter(l.clientKey(r))

		reservation := limiter.Reserve()
		if !reservation.OK() {
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Too many requests", shared.ErrRateLimited)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Too many requests", shared.ErrRateLimited)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Max(0, math.Floor(limiter.Tokens())))))
		next.ServeHTTP(w, r)
	})
}
