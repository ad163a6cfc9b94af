package http

import (
	"crypto/subtle"
	"math"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yanqian/epg-server/internal/domain/admission"
	"github.com/yanqian/epg-server/internal/infra/accesslog"
	"github.com/yanqian/epg-server/internal/infra/config"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	queryKey        = "epg_query"
)

// Operator route and the header carrying its token.
const (
	AdminFlushPath   = "/admin/flush-cache"
	AdminTokenHeader = "X-Admin-Token"
)

// AccessLogger records one line per admitted or rejected request.
type AccessLogger interface {
	Record(e accesslog.Entry) error
}

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := toHTTPError(c.Errors.Last().Err)
		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}

		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		} else {
			logger.Warn("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		}

		c.Data(httpErr.Status, "text/plain; charset=utf-8", []byte(message))
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// queryMiddleware parses the raw query once. "?" separators are accepted
// like "&", and "5+" is kept literal so CCTV5+ survives form decoding.
func queryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(queryKey, parseQuery(c.Request.URL.RawQuery))
		c.Next()
	}
}

func queryFrom(c *gin.Context) query {
	if v, ok := c.Get(queryKey); ok {
		if q, ok := v.(query); ok {
			return q
		}
	}
	return parseQuery(c.Request.URL.RawQuery)
}

// admissionMiddleware runs the gate and writes the access log line before a
// denial is returned.
func admissionMiddleware(gate admission.Service, accessLog AccessLogger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := queryFrom(c)
		clientIP := admission.ClientIP(c.Request.Header, c.Request.RemoteAddr)
		decision := gate.Decide(c.Request.Context(), admission.Request{
			Token:      q.get("token"),
			UserAgent:  c.Request.UserAgent(),
			ClientIP:   clientIP,
			OutputType: q.get("type"),
		})

		if accessLog != nil {
			err := accessLog.Record(accesslog.Entry{
				Time:      time.Now(),
				ClientIP:  clientIP,
				Denial:    decision.Message,
				Method:    c.Request.Method,
				URI:       c.Request.RequestURI,
				UserAgent: c.Request.UserAgent(),
			})
			if err != nil {
				logger.Warn("access log write failed", "error", err)
			}
		}

		if !decision.Allowed {
			logger.Info("request denied", "reason", string(decision.Reason), "ip", clientIP)
			abortWithError(c, NewHTTPError(http.StatusForbidden, string(decision.Reason), decision.Message, nil))
			return
		}
		c.Next()
	}
}

// adminMiddleware admits operator calls carrying the configured token.
func adminMiddleware(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AdminTokenHeader))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "admin_denied", "forbidden", nil))
			return
		}
		c.Next()
	}
}

func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPRateLimiter(cfg)
	return func(c *gin.Context) {
		ip := admission.ClientIP(c.Request.Header, c.Request.RemoteAddr)
		if limiter.allow(ip) {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

type ipRateLimiter struct {
	visitors      map[string]*visitor
	mu            sync.Mutex
	ratePerMinute float64
	burst         float64
	ttl           time.Duration
	now           func() time.Time
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

func newIPRateLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	return &ipRateLimiter{
		visitors:      make(map[string]*visitor),
		ratePerMinute: float64(cfg.RequestsPerMinute),
		burst:         float64(cfg.Burst),
		ttl:           5 * time.Minute,
		now:           time.Now,
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{tokens: l.burst, lastSeen: now}
		l.visitors[ip] = v
	} else {
		elapsed := now.Sub(v.lastSeen).Minutes()
		if elapsed > 0 {
			refill := elapsed * l.ratePerMinute
			v.tokens = math.Min(l.burst, v.tokens+refill)
		}
		v.lastSeen = now
	}
	l.cleanupLocked(now)
	if v.tokens < 1 {
		return false
	}
	v.tokens -= 1
	return true
}

func (l *ipRateLimiter) cleanupLocked(now time.Time) {
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}
