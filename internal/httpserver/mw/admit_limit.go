package mw

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/checkit/internal/logger"
	"github.com/MrSnakeDoc/checkit/internal/utils"
)

// AdmitLimitConfig caps how fast a single client can add domains.
type AdmitLimitConfig struct {
	Burst      int // admissions accepted back to back
	PerMinute  int // steady admission rate once the burst is spent
	MaxClients int // tracked clients; 0 means unbounded
	TrustProxy bool
	Now        func() time.Time
}

type admitClient struct {
	lim  *rate.Limiter
	seen time.Time
}

// admitLimiter keeps one rate.Limiter per client address. A client idle for
// longer than refill has a full bucket again, so forgetting it loses nothing.
type admitLimiter struct {
	cfg     AdmitLimitConfig
	every   rate.Limit
	refill  time.Duration
	mu      sync.Mutex
	clients map[string]*admitClient
}

func newAdmitLimiter(cfg AdmitLimitConfig) *admitLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	every := rate.Limit(float64(cfg.PerMinute) / 60)
	return &admitLimiter{
		cfg:     cfg,
		every:   every,
		refill:  time.Duration(float64(cfg.Burst) / float64(every) * float64(time.Second)),
		clients: make(map[string]*admitClient),
	}
}

func (l *admitLimiter) limiter(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok {
		if l.cfg.MaxClients > 0 && len(l.clients) >= l.cfg.MaxClients {
			l.forgetLocked(now)
		}
		c = &admitClient{lim: rate.NewLimiter(l.every, l.cfg.Burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim
}

// forgetLocked drops clients whose bucket has refilled. When none has, the
// least recently seen client goes.
func (l *admitLimiter) forgetLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, c := range l.clients {
		if now.Sub(c.seen) >= l.refill {
			delete(l.clients, k)
			continue
		}
		if oldestKey == "" || c.seen.Before(oldest) {
			oldestKey, oldest = k, c.seen
		}
	}
	if len(l.clients) >= l.cfg.MaxClients && oldestKey != "" {
		delete(l.clients, oldestKey)
	}
}

// take consumes one admission for key. On refusal it returns how long until
// the next admission is possible.
func (l *admitLimiter) take(key string, now time.Time) (ok bool, remaining int, retry time.Duration) {
	lim := l.limiter(key, now)
	if lim.AllowN(now, 1) {
		return true, int(math.Floor(lim.TokensAt(now))), 0
	}
	missing := 1 - lim.TokensAt(now)
	return false, 0, time.Duration(missing / float64(l.every) * float64(time.Second))
}

func (l *admitLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// AdmitLimit answers 429 with Retry-After once a client spent its admission
// budget.
func AdmitLimit(cfg AdmitLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	l := newAdmitLimiter(cfg)
	burst := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := l.cfg.Now()
			client := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, retry := l.take(client, now)
			w.Header().Set("X-RateLimit-Limit", burst)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			secs := int(math.Ceil(retry.Seconds()))
			if secs < 1 {
				secs = 1
			}
			log.Warn("admission throttled",
				logger.String("client", client),
				logger.Int("retry_after_s", secs))

			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "too many admission requests",
				"retry_after": secs,
			})
		})
	}
}
