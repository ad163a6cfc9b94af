package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/epg-server/internal/domain/admission"
	"github.com/yanqian/epg-server/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, gate admission.Service, accessLog AccessLogger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", handler.Health)
	if dir := strings.TrimSpace(cfg.EPG.IconDir); dir != "" {
		router.Static("/data/icon", dir)
	}

	if token := strings.TrimSpace(cfg.HTTP.AdminToken); token != "" {
		router.POST(AdminFlushPath, adminMiddleware(token), handler.FlushCache)
	}

	guide := router.Group("/", queryMiddleware(), admissionMiddleware(gate, accessLog, handler.logger))
	{
		guide.GET("/", handler.Fetch)
		guide.GET("/index.php", handler.Fetch)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds(), "request_id", c.GetString(requestIDKey))
	}
}
