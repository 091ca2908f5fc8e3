package app

import (
	"context"
	"fmt"

	"tradegate/internal/config"
	"tradegate/internal/logger"
	webhookhttp "tradegate/internal/transport/http/webhook"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 webhook 服务。
type App struct {
	cfg     *config.Config
	server  *webhookhttp.Server
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 webhook 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("webhook server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("webhook http server error: %w", err)
		}
		return nil
	})
	err := group.Wait()
	logger.Infof("tradegate stopped")
	return err
}

// Server exposes the HTTP server (for in-process tests).
func (a *App) Server() *webhookhttp.Server {
	if a == nil {
		return nil
	}
	return a.server
}
