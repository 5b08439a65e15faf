package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with an id and a logger carrying it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		logger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

// AccessLog writes one line per request once the handler chain finishes.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := zerolog.Ctx(c.Request.Context()).Info()
		if status >= http.StatusInternalServerError {
			ev = zerolog.Ctx(c.Request.Context()).Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Str("client", c.ClientIP()).
			Dur("took", time.Since(start)).
			Msg("Request handled")
	}
}

// CORS allows any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

// RateLimit applies a token bucket per client IP. A non-positive rps
// disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := newClientLimiters(rps, burst, time.Now)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many detection requests, slow down"})
			return
		}
		c.Next()
	}
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// clientLimiters holds one limiter per client. Entries idle for longer than
// idle are dropped; by then their bucket has refilled, so a fresh limiter
// behaves the same.
type clientLimiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientLimiter
}

func newClientLimiters(rps float64, burst int, now func() time.Time) *clientLimiters {
	if burst < 1 {
		burst = 1
	}
	refill := time.Duration(float64(burst) / rps * float64(time.Second))
	return &clientLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		idle:      max(refill, time.Minute),
		now:       now,
		lastSweep: now(),
		clients:   make(map[string]*clientLimiter),
	}
}

func (l *clientLimiters) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = cl
	}
	cl.seen = now
	l.mu.Unlock()

	return cl.lim.AllowN(now, 1)
}

func (l *clientLimiters) sweepLocked(now time.Time) {
	for key, cl := range l.clients {
		if now.Sub(cl.seen) >= l.idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
