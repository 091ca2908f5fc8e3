package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// envBindings maps config keys to environment variables. The first non-empty
// variable wins.
var envBindings = map[string][]string{
	"app.env":                         {"ENV"},
	"app.log_level":                   {"LOG_LEVEL"},
	"app.log_path":                    {"LOG_PATH"},
	"app.http_addr":                   {"HTTP_ADDR"},
	"auth.secret":                     {"WEBHOOK_SECRET"},
	"risk.base_capital":               {"DEMO_CAPITAL_USD"},
	"risk.risk_pct":                   {"RISK_PCT_PER_TRADE"},
	"risk.stop_pct":                   {"STOP_FRACTION"},
	"risk.max_open_positions":         {"MAX_OPEN_POSITIONS"},
	"risk.gate_fail_closed":           {"GATE_FAIL_CLOSED"},
	"ledger.driver":                   {"LEDGER_DRIVER"},
	"ledger.url":                      {"LEDGER_URL", "SHEETS_WEBHOOK_URL"},
	"ledger.token":                    {"LEDGER_TOKEN"},
	"notify.telegram.enabled":         {"TELEGRAM_ENABLED"},
	"notify.telegram.bot_token":       {"TELEGRAM_BOT_TOKEN"},
	"notify.telegram.chat_id":         {"TELEGRAM_CHAT_ID"},
	"notify.telegram.timeout_seconds": {"TELEGRAM_TIMEOUT_SECONDS"},
}

// legacyStopPctEnv carries the stop as a percent (1 = 1%) while
// risk.stop_pct is a fraction, so it is converted instead of bound.
const legacyStopPctEnv = "STOP_PCT"

// Load reads the optional YAML file at path, overlays environment variables
// and returns a validated configuration. An empty path means env only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if p := strings.TrimSpace(path); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", p, err)
		}
	}
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s failed: %w", key, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			decimalDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(v.AllSettings(), setKeys)
	if err := applyLegacyStopPct(&cfg, setKeys); err != nil {
		return nil, err
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyLegacyStopPct(cfg *Config, set keySet) error {
	raw := strings.TrimSpace(os.Getenv(legacyStopPctEnv))
	if raw == "" {
		return nil
	}
	if set.isSet("risk.stop_pct") {
		return fmt.Errorf("%s (percent) conflicts with risk.stop_pct/STOP_FRACTION (fraction), set only one", legacyStopPctEnv)
	}
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", legacyStopPctEnv, raw, err)
	}
	cfg.Risk.StopPct = pct.Div(decimal.NewFromInt(100))
	set.mark("risk.stop_pct")
	return nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalDecodeHook lets YAML numbers and env strings land in decimal fields
// without a float round trip for string input.
func decimalDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != decimalType {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				return decimal.Zero, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("invalid decimal %q: %w", val, err)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(val), nil
		case float32:
			return decimal.NewFromFloat32(val), nil
		case int:
			return decimal.NewFromInt(int64(val)), nil
		case int64:
			return decimal.NewFromInt(val), nil
		case decimal.Decimal:
			return val, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into decimal", data)
		}
	}
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
