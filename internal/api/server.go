package api

import (
	"context"
	"net/http"
	"time"

	"qrwatcher/internal/config"
	"qrwatcher/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
const Version = "1.0.0"

// Ingestor handles bot events received over HTTP
type Ingestor interface {
	RegisterBot(ctx context.Context, id, name, description string) (domain.Result, error)
	CheckRegistered(ctx context.Context, botID string) (domain.Result, error)
	UpdateQR(ctx context.Context, botID, raw string) (domain.Result, error)
	SetAuthState(ctx context.Context, botID, state string) (domain.Result, error)
	CustomNotify(ctx context.Context, botID, senderName, message string) (domain.Result, error)
}

// Options configures the HTTP server
type Options struct {
	Addr      string
	Secret    string
	RateLimit config.RateLimitConfig
	// Redis backs the rate limiter; nil disables it
	Redis *redis.Client
	// Gatherer is exposed on /metrics; nil uses the default registry
	Gatherer prometheus.Gatherer
}

// Server is the ingestion HTTP server
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *zap.Logger
}

// NewServer builds the ingestion server and registers its routes
func NewServer(opts Options, ingest Ingestor, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(requestLogger(logger))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &handler{ingest: ingest, logger: logger}

	e.GET("/api/status", h.status)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	wa := e.Group("/api/whatsapp")
	wa.Use(tokenBucket(opts.RateLimit, opts.Redis, logger))
	wa.Use(secretKey(opts.Secret, logger))
	wa.POST("/register", h.register)
	wa.POST("/check_register", h.checkRegister)
	wa.POST("/update_qr", h.updateQR)
	wa.POST("/update_auth_state", h.updateAuthState)
	wa.POST("/custom_notify", h.customNotify)

	return &Server{echo: e, addr: opts.Addr, logger: logger}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("API server listening", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			logger.Info("HTTP request",
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			)
			return nil
		}
	}
}
