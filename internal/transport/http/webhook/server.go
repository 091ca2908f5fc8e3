package webhookhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tradegate/internal/logger"
	"tradegate/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Server 提供信号 webhook、健康检查与 Prometheus 指标。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 webhook HTTP 服务依赖。
type ServerConfig struct {
	Addr        string
	WebhookPath string
	Handler     SignalHandler
}

// NewServer 构建 webhook HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("webhook http server requires a signal handler")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/api/signal"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.CustomRecovery(recoverJSON), requestLogger())
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	NewRouter(cfg.Handler).Register(router, cfg.WebhookPath)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func recoverJSON(c *gin.Context, recovered any) {
	logger.Errorf("HTTP %s %s panic: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal Server Error",
		"details": fmt.Sprint(recovered),
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, c.Writer.Status(), client, time.Since(start))
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("webhook http listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
