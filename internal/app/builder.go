package app

import (
	"context"
	"fmt"

	"tradegate/internal/config"
	"tradegate/internal/dispatch"
	"tradegate/internal/gateway"
	"tradegate/internal/gateway/ledger"
	"tradegate/internal/gateway/notifier"
	"tradegate/internal/pipeline"
	"tradegate/internal/risk"
	webhookhttp "tradegate/internal/transport/http/webhook"
)

type AppBuilder struct {
	cfg *config.Config

	ledgerFn   func(*config.Config) (ledger.Ledger, error)
	notifierFn func(*config.Config) notifier.TextNotifier
	serverFn   func(config.AppConfig, webhookhttp.SignalHandler) (*webhookhttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithLedger replaces the configured ledger driver.
func WithLedger(l ledger.Ledger) AppBuilderOption {
	return func(b *AppBuilder) {
		b.ledgerFn = func(*config.Config) (ledger.Ledger, error) { return l, nil }
	}
}

// WithNotifier replaces the configured notifier; nil disables notification.
func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.notifierFn = func(*config.Config) notifier.TextNotifier { return n }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		ledgerFn:   gateway.NewLedgerFromConfig,
		notifierFn: gateway.NewNotifierFromConfig,
		serverFn:   buildWebhookServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b == nil || b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	led, err := b.ledgerFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}
	tn := b.notifierFn(cfg)

	p := buildPipeline(cfg, led, tn)
	server, err := b.serverFn(cfg.App, p)
	if err != nil {
		return nil, fmt.Errorf("build webhook server: %w", err)
	}
	return &App{
		cfg:     cfg,
		server:  server,
		Summary: newStartupSummary(cfg, tn != nil),
	}, nil
}

func buildPipeline(cfg *config.Config, led ledger.Ledger, tn notifier.TextNotifier) *pipeline.Pipeline {
	timeout := cfg.Ledger.Timeout()
	equity := risk.NewEquityResolver(led, cfg.Risk.BaseCapital, timeout)
	gate := risk.NewOpenPositionGate(led, cfg.Risk.MaxOpenPositions, cfg.Risk.GateFailClosed, timeout)
	var appender dispatch.TradeAppender
	if led != nil {
		appender = led
	}
	d := dispatch.NewDispatcher(tn, appender, dispatch.Options{
		Env:           cfg.App.Env,
		NotifyTimeout: cfg.Notify.Telegram.Timeout(),
		LogTimeout:    timeout,
		DisplayPlaces: cfg.Risk.DisplayPlaces,
	})
	return pipeline.New(cfg, equity, gate, d)
}

func buildWebhookServer(cfg config.AppConfig, handler webhookhttp.SignalHandler) (*webhookhttp.Server, error) {
	return webhookhttp.NewServer(webhookhttp.ServerConfig{
		Addr:        cfg.HTTPAddr,
		WebhookPath: cfg.WebhookPath,
		Handler:     handler,
	})
}
