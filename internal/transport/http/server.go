// Package http 组装 Gin 服务器并挂载各 API 路由。
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hmatrend/internal/config/writer"
	"hmatrend/internal/gateway/database"
	"hmatrend/internal/logger"
	"hmatrend/internal/service"
	analysisapi "hmatrend/internal/transport/http/analysis"
)

type ServerConfig struct {
	Addr string
	Svc  *service.Service
	DB   *database.AnalysisStore
	Jobs *writer.JobsWriter
}

// Server 持有 Gin 引擎与底层 http.Server，支持优雅退出。
type Server struct {
	addr   string
	router *gin.Engine
	srv    *http.Server
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/analysis")
	analysisapi.NewRouter(cfg.Svc, cfg.DB, cfg.Jobs).Register(api)

	return &Server{
		addr:   cfg.Addr,
		router: router,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run 阻塞运行直到 ctx 取消，然后优雅关闭。
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] 监听 %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
