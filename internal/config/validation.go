package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return fmt.Errorf("auth.secret cannot be empty")
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Notify.Telegram.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if !r.BaseCapital.IsPositive() {
		return fmt.Errorf("risk.base_capital must be > 0")
	}
	if !r.RiskPct.IsPositive() || r.RiskPct.GreaterThan(hundred) {
		return fmt.Errorf("risk.risk_pct must be in (0, 100]")
	}
	if !r.StopPct.IsPositive() || r.StopPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("risk.stop_pct must be a fraction in (0, 1), got %s", r.StopPct)
	}
	if r.MaxOpenPositions < 0 {
		return fmt.Errorf("risk.max_open_positions must be >= 0")
	}
	if !r.TakeProfitMultiple.IsPositive() {
		return fmt.Errorf("risk.take_profit_multiple must be > 0")
	}
	if r.DisplayPlaces < 0 || r.DisplayPlaces > 12 {
		return fmt.Errorf("risk.display_places must be within [0, 12]")
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	switch l.Driver {
	case LedgerDriverMemory:
		return nil
	case LedgerDriverHTTP:
		if l.URL == "" {
			return fmt.Errorf("ledger.url is required for the http driver")
		}
		u, err := url.Parse(l.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("ledger.url is not an absolute URL: %q", l.URL)
		}
		return nil
	default:
		return fmt.Errorf("unsupported ledger.driver: %s", l.Driver)
	}
}

func (t *TelegramConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
