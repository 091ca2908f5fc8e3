package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradegate/internal/config"
)

const defaultTelegramAPIBase = "https://api.telegram.org"

// Telegram 通知器：信号被接受后，把下单摘要推送到指定群/频道。
// 单次尝试，不做重试。
type Telegram struct {
	BotToken string
	ChatID   string
	APIBase  string
	Client   *http.Client
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if base == "" {
		base = defaultTelegramAPIBase
	}
	return &Telegram{
		BotToken: strings.TrimSpace(cfg.BotToken),
		ChatID:   strings.TrimSpace(cfg.ChatID),
		APIBase:  base,
		Client:   &http.Client{Timeout: timeout},
	}
}

// SendText posts text through sendMessage with Markdown parse mode.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.BotToken)

	payload := map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding telegram payload failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building telegram request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return nil
}
