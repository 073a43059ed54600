// Command server 运行文章推荐 HTTP 服务。
//
// 配置来自 config.yaml（或 CONFIG_PATH）与环境变量，启动前会读取当前目录下的 .env。
// SIGHUP 触发模型重新加载，SIGINT/SIGTERM 优雅退出。
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/logging"
	"github.com/rushteam/artrec/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	app, err := build(context.Background(), cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize")
	}
	defer app.Close()

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
	}, app.service, logging.Component("http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Recommend.LoadOnStartup {
		// 后台预热，失败只记录日志，首个请求会再次尝试
		go func() {
			if err := app.service.Load(ctx); err != nil {
				logging.Error().Err(err).Msg("startup model load failed")
			}
		}()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logging.Info().Msg("reloading model")
				if err := app.service.Reload(ctx); err != nil {
					logging.Error().Err(err).Msg("model reload failed, keeping current snapshot")
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("http server stopped")
		}
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
