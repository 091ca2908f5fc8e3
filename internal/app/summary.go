package app

import (
	"fmt"
	"strings"

	"tradegate/internal/config"
	"tradegate/internal/logger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// StartupSummary 启动配置摘要，不包含任何密钥。
type StartupSummary struct {
	Env          string
	HTTPAddr     string
	WebhookPath  string
	BaseCapital  string
	RiskPct      string
	StopPct      string
	MaxOpen      int
	TPMultiple   string
	GatePolicy   string
	LedgerDriver string
	LedgerURL    string
	Telegram     bool
}

func newStartupSummary(cfg *config.Config, notifyEnabled bool) *StartupSummary {
	policy := "fail-open"
	if cfg.Risk.GateFailClosed {
		policy = "fail-closed"
	}
	return &StartupSummary{
		Env:          cfg.App.Env,
		HTTPAddr:     cfg.App.HTTPAddr,
		WebhookPath:  cfg.App.WebhookPath,
		BaseCapital:  cfg.Risk.BaseCapital.String(),
		RiskPct:      cfg.Risk.RiskPct.String() + "%",
		StopPct:      cfg.Risk.StopPct.String(),
		MaxOpen:      cfg.Risk.MaxOpenPositions,
		TPMultiple:   cfg.Risk.TakeProfitMultiple.String(),
		GatePolicy:   policy,
		LedgerDriver: cfg.Ledger.Driver,
		LedgerURL:    redactURL(cfg.Ledger.URL),
		Telegram:     notifyEnabled,
	}
}

// Render 生成摘要表格文本。
func (s *StartupSummary) Render() string {
	t := table.NewWriter()
	t.SetTitle("STARTUP SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Env", s.Env},
		{"Listen", s.HTTPAddr},
		{"Webhook", "POST " + s.WebhookPath},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Base capital", s.BaseCapital},
		{"Risk / trade", s.RiskPct},
		{"Stop", s.StopPct},
		{"Take-profit", s.TPMultiple + "x stop distance"},
		{"Max open", s.MaxOpen},
		{"Gate on read error", s.GatePolicy},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Ledger", fmt.Sprintf("%s %s", s.LedgerDriver, s.LedgerURL)},
		{"Telegram", onOff(s.Telegram)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 60, Align: text.AlignLeft},
	})
	return t.Render()
}

// Print writes the table through the logger so it also lands in app.log_path.
func (s *StartupSummary) Print() {
	logger.InfoBlock(s.Render())
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

// redactURL keeps scheme and host only; Apps Script URLs embed deployment ids.
func redactURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "(set)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host + "/…"
}
