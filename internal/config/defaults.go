package config

import (
	"strings"

	"github.com/shopspring/decimal"
)

// 默认值常量
const (
	defaultAppEnv             = "staging"
	defaultAppLogLevel        = "info"
	defaultAppHTTPAddr        = ":9991"
	defaultAppWebhookPath     = "/api/signal"
	defaultMaxOpenPositions   = 3
	defaultDisplayPlaces      = 2
	defaultLedgerDriver       = LedgerDriverHTTP
	defaultLedgerTimeout      = 5
	defaultBreakerThreshold   = 5
	defaultBreakerCooldown    = 30
	defaultTelegramAPIBase    = "https://api.telegram.org"
	defaultTelegramTimeoutSec = 10
)

const (
	LedgerDriverHTTP   = "http"
	LedgerDriverMemory = "memory"
)

var (
	defaultBaseCapital        = decimal.NewFromInt(5000)
	defaultRiskPct            = decimal.NewFromInt(1)
	defaultStopPct            = decimal.RequireFromString("0.01")
	defaultTakeProfitMultiple = decimal.NewFromInt(2)
)

// applyDefaults fills fields that were neither in the file nor the env.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Notify.Telegram.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.webhook_path", &a.WebhookPath, defaultAppWebhookPath),
	)
	if p := strings.TrimSpace(a.WebhookPath); p != "" && !strings.HasPrefix(p, "/") {
		a.WebhookPath = "/" + p
	}
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		decimalFieldDefault("risk.base_capital", &r.BaseCapital, defaultBaseCapital),
		decimalFieldDefault("risk.risk_pct", &r.RiskPct, defaultRiskPct),
		decimalFieldDefault("risk.stop_pct", &r.StopPct, defaultStopPct),
		decimalFieldDefault("risk.take_profit_multiple", &r.TakeProfitMultiple, defaultTakeProfitMultiple),
		fieldDefault{
			key:   "risk.max_open_positions",
			need:  func() bool { return r.MaxOpenPositions == 0 },
			apply: func() { r.MaxOpenPositions = defaultMaxOpenPositions },
		},
		fieldDefault{
			key:   "risk.display_places",
			need:  func() bool { return r.DisplayPlaces <= 0 },
			apply: func() { r.DisplayPlaces = defaultDisplayPlaces },
		},
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	l.Driver = strings.ToLower(strings.TrimSpace(l.Driver))
	l.URL = strings.TrimSpace(l.URL)
	applyFieldDefaults(keys,
		stringFieldDefault("ledger.driver", &l.Driver, defaultLedgerDriver),
		fieldDefault{
			key:   "ledger.timeout_seconds",
			need:  func() bool { return l.TimeoutSeconds <= 0 },
			apply: func() { l.TimeoutSeconds = defaultLedgerTimeout },
		},
		fieldDefault{
			key:   "ledger.breaker_threshold",
			need:  func() bool { return l.BreakerThreshold <= 0 },
			apply: func() { l.BreakerThreshold = defaultBreakerThreshold },
		},
		fieldDefault{
			key:   "ledger.breaker_cooldown_seconds",
			need:  func() bool { return l.BreakerCooldownSeconds <= 0 },
			apply: func() { l.BreakerCooldownSeconds = defaultBreakerCooldown },
		},
	)
}

func (t *TelegramConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	t.BotToken = strings.TrimSpace(t.BotToken)
	t.ChatID = strings.TrimSpace(t.ChatID)
	// Credentials alone are enough to turn the channel on, as the env-only
	// deployment never had an explicit switch.
	if !keys.isSet("notify.telegram.enabled") && t.BotToken != "" && t.ChatID != "" {
		t.Enabled = true
	}
	applyFieldDefaults(keys,
		stringFieldDefault("notify.telegram.api_base", &t.APIBase, defaultTelegramAPIBase),
		fieldDefault{
			key:   "notify.telegram.timeout_seconds",
			need:  func() bool { return t.TimeoutSeconds <= 0 },
			apply: func() { t.TimeoutSeconds = defaultTelegramTimeoutSec },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func decimalFieldDefault(key string, target *decimal.Decimal, def decimal.Decimal) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && target.IsZero() },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
