// Package server 合成流程的 HTTP 接口。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/assets"
	"github.com/chaos-io/yeezyframe/config"
	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/pipeline"
	"github.com/chaos-io/yeezyframe/util"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Collector
	version  string

	engine  *gin.Engine
	sweeper *cron.Cron
}

func New(cfg *config.Config, p *pipeline.Pipeline, m *metrics.Collector, version string) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		metrics:  m,
		version:  version,
	}
	s.engine = s.router()
	return s
}

// Handler 测试里直接用 httptest 调用
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.Upload.MaxSize + 1<<20
	r.Use(gin.Recovery())
	r.Use(Logger())
	if s.metrics != nil {
		r.Use(Metrics(s.metrics))
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": s.version,
		})
	})

	r.GET("/assets/"+assets.OverlayName, func(c *gin.Context) {
		if path := s.cfg.Surface.OverlayPath; path != "" {
			c.File(path)
			return
		}
		c.Data(http.StatusOK, "image/png", assets.Overlay())
	})

	h := NewCompositionHandler(s.pipeline, s.cfg.Upload.MaxSize, s.cfg.Export.PreviewMax)

	api := r.Group("/api/v1/compositions")
	{
		api.POST("", h.Create)
		api.GET("/current", h.Current)
		api.DELETE("/current", h.Reset)
		api.PATCH("/:id/overlay", h.UpdateOverlay)
		api.GET("/:id/preview", h.Preview)
		api.POST("/:id/export", h.Export)
	}

	return r
}

// StartSweeper 定时回收长时间无人操作的合成
func (s *Server) StartSweeper() error {
	spec := s.cfg.Session.SweepSpec
	ttl := s.cfg.Session.IdleTTL
	if spec == "" || ttl <= 0 {
		util.Logger.Info("idle sweeper disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if s.pipeline.SweepIdle(ttl) {
			util.Logger.Info("idle composition released", zap.Duration("idle_ttl", ttl))
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.sweeper = c

	util.Logger.Info("idle sweeper started", zap.String("spec", spec), zap.Duration("idle_ttl", ttl))
	return nil
}

// StopSweeper 等待正在执行的任务结束
func (s *Server) StopSweeper() {
	if s.sweeper == nil {
		return
	}
	<-s.sweeper.Stop().Done()
	s.sweeper = nil
}

// Run 启动 HTTP 服务，ctx 结束时优雅退出
func (s *Server) Run(ctx context.Context) error {
	if err := s.StartSweeper(); err != nil {
		return err
	}
	defer s.StopSweeper()

	srv := &http.Server{
		Addr:              s.cfg.Server.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Logger.Info("server starting", zap.String("port", s.cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	util.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.pipeline.Reset()
	return nil
}
