package gateway

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID keeps a caller supplied X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("client", c.ClientIP()),
			zap.String(requestIDKey, c.GetString(requestIDKey)),
		)
	}
}

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 10000
)

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterPool holds one token bucket per client. Buckets idle past ttl are
// swept, and the pool never holds more than max clients.
type limiterPool struct {
	mu        sync.Mutex
	m         map[string]*clientLimiter
	rps       float64
	burst     int
	ttl       time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &limiterPool{
		m:     make(map[string]*clientLimiter),
		rps:   rps,
		burst: burst,
		ttl:   limiterIdleTTL,
		max:   limiterMaxClients,
		now:   time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.ttl {
		p.sweep(now)
	}
	if cl, ok := p.m[key]; ok {
		cl.seen = now
		return cl.lim
	}
	if len(p.m) >= p.max {
		p.sweep(now)
		if len(p.m) >= p.max {
			p.evictOldest()
		}
	}
	cl := &clientLimiter{lim: rate.NewLimiter(rate.Limit(p.rps), p.burst), seen: now}
	p.m[key] = cl
	return cl.lim
}

func (p *limiterPool) sweep(now time.Time) {
	for k, cl := range p.m {
		if now.Sub(cl.seen) > p.ttl {
			delete(p.m, k)
		}
	}
	p.lastSweep = now
}

func (p *limiterPool) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for k, cl := range p.m {
		if !found || cl.seen.Before(at) {
			oldest, at, found = k, cl.seen, true
		}
	}
	if found {
		delete(p.m, oldest)
	}
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// RateLimit rejects clients exceeding rps requests per second with 429.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	pool := newLimiterPool(rps, burst)
	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

type httpMetrics struct {
	requests *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kontribute_http_requests_total",
			Help: "Gateway requests by route and status.",
		}, []string{"route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}
	return m
}

func (m *httpMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
