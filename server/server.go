// Package server 暴露推荐服务的 HTTP 接口。
//
//	GET /api/recommend?user_id=&n=&with_meta=&exclude=
//	GET /api/users?limit=&offset=
//	GET /api/health
//	GET /metrics
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/service"
)

// Backend 是 HTTP 层依赖的推荐能力，由 service.Service 实现。
type Backend interface {
	Recommend(ctx context.Context, req service.Request) ([]service.Result, error)
	Users(ctx context.Context, limit, offset int) ([]core.UserStat, error)
	Health() service.Health
}

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// RateLimit 每 IP 每分钟请求数，0 表示不限
	RateLimit int
}

type Server struct {
	cfg     Config
	backend Backend
	logger  zerolog.Logger
	http    *http.Server
}

func New(cfg Config, backend Backend, logger zerolog.Logger) *Server {
	s := &Server{cfg: cfg, backend: backend, logger: logger}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe 阻塞直到服务器关闭；正常关闭时返回 nil。
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭，最多等待 ShutdownTimeout。
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}
