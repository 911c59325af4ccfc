// Package opshttp 提供运维 HTTP 服务：指标导出与决策日志查询。
package opshttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sibyl/internal/logger"
	"sibyl/internal/metrics"
	"sibyl/internal/store/decisionlog"

	"github.com/gin-gonic/gin"
)

// Server 暴露 /metrics、/healthz 与 /api/decisions。
type Server struct {
	addr   string
	router *gin.Engine
	httpd  *http.Server
}

// ServerConfig 描述 ops HTTP 服务依赖。
type ServerConfig struct {
	Addr       string
	Collectors []metrics.Collector
	Logs       *decisionlog.Store
}

// NewServer 构建 ops HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if len(cfg.Collectors) == 0 && cfg.Logs == nil {
		return nil, errors.New("ops http server requires collectors or logs")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9102"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metricsHandler(cfg.Collectors))

	r := NewRouter(cfg.Logs)
	r.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// metricsHandler 扇出全部采集器；单个采集器失败记日志后跳过，
// 渲染剩余样本。
func metricsHandler(collectors []metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		var samples []metrics.Sample
		for _, collector := range collectors {
			got, err := collector.Collect(c.Request.Context())
			if err != nil {
				logger.Warnf("采集器 %s 失败，本轮跳过: %v", collector.Name(), err)
				continue
			}
			samples = append(samples, got...)
		}
		body := metrics.Render(samples)
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(body))
	}
}

// Start 阻塞运行直至 ctx 取消，随后优雅退出。
func (s *Server) Start(ctx context.Context) error {
	s.httpd = &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("✓ ops HTTP 服务已启动: %s", s.addr)
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpd.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
