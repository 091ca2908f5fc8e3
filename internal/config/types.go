package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config 是 tradegate 的主配置载体，进程启动时加载一次，之后只读。
type Config struct {
	App    AppConfig    `toml:"app"`
	Auth   AuthConfig   `toml:"auth"`
	Risk   RiskConfig   `toml:"risk"`
	Ledger LedgerConfig `toml:"ledger"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogPath     string `toml:"log_path"`
	HTTPAddr    string `toml:"http_addr"`
	WebhookPath string `toml:"webhook_path"`
}

type AuthConfig struct {
	Secret string `toml:"secret"`
}

// RiskConfig holds the sizing inputs shared by every request.
type RiskConfig struct {
	BaseCapital        decimal.Decimal `toml:"base_capital"`
	RiskPct            decimal.Decimal `toml:"risk_pct"` // percent of equity, 1 = 1%
	StopPct            decimal.Decimal `toml:"stop_pct"` // fraction of price, 0.01 = 1%
	MaxOpenPositions   int             `toml:"max_open_positions"`
	TakeProfitMultiple decimal.Decimal `toml:"take_profit_multiple"`
	DisplayPlaces      int32           `toml:"display_places"`
	GateFailClosed     bool            `toml:"gate_fail_closed"`
}

// LedgerConfig 描述交易台账/权益服务的访问方式。
type LedgerConfig struct {
	Driver                 string `toml:"driver"` // "http" | "memory"
	URL                    string `toml:"url"`
	Token                  string `toml:"token"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

func (l LedgerConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func (l LedgerConfig) BreakerCooldown() time.Duration {
	return time.Duration(l.BreakerCooldownSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled        bool   `toml:"enabled"`
	BotToken       string `toml:"bot_token"`
	ChatID         string `toml:"chat_id"`
	APIBase        string `toml:"api_base"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (t TelegramConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// keySet 用于追踪显式设置（配置文件或环境变量）的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
