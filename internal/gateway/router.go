package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kontribute/internal/watch"
)

type RouterOptions struct {
	RateLimit float64
	RateBurst int
	// Registry receives the gateway's own metrics and is served on /metrics.
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// NewRouter wires the handler and the watch endpoint into a gin engine.
func NewRouter(h *Handler, w *watch.Handler, opts RouterOptions) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := newHTTPMetrics(reg)

	router := gin.New()
	// story keys may contain %2F; route on the raw path and unescape per handler
	router.UseRawPath = true
	router.UnescapePathValues = false
	router.Use(gin.Recovery(), RequestID(), AccessLog(log.Named("http")), metrics.middleware())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		body := gin.H{"status": "ready"}
		if w != nil {
			body["watch"] = w.Hub.Stats()
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := router.Group("")
	api.Use(RateLimit(opts.RateLimit, opts.RateBurst))
	h.RegisterRoutes(api)
	if w != nil {
		api.GET("/ws/marketplace/:author", w.Serve)
	}
	return router
}
