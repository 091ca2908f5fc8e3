package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradegate/internal/config"
	"tradegate/internal/pkg/circuit"
	"tradegate/internal/pkg/text"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	actionPnL           = "pnl"
	actionOpenPositions = "open_positions"
	maxResponseBytes    = 1 << 20
)

var maxCount = decimal.NewFromInt(math.MaxInt)

// Client talks to a single-endpoint ledger web app: reads are GETs with an
// action query parameter, appends are POSTs of the trade record. Reads
// abandoned by the caller do not count against the breaker.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	token      string
	breaker    *circuit.Breaker
}

// NewClient builds a ledger client from configuration. Reads share one
// circuit breaker so an unreachable ledger fails fast into the defaults.
func NewClient(cfg config.LedgerConfig) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("ledger.url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger.url failed: %w", err)
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint:   parsed,
		httpClient: &http.Client{Timeout: timeout},
		token:      strings.TrimSpace(cfg.Token),
		breaker:    circuit.New("ledger", cfg.BreakerThreshold, cfg.BreakerCooldown()),
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Breaker exposes the read breaker so callers can observe state changes.
func (c *Client) Breaker() *circuit.Breaker {
	return c.breaker
}

// CumulativePnL reads {"total_pnl": <number|string>}.
func (c *Client) CumulativePnL(ctx context.Context) (decimal.Decimal, error) {
	var pnl decimal.Decimal
	err := c.breaker.DoContext(ctx, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, actionPnL, nil)
		if err != nil {
			return err
		}
		pnl, err = decimalField(body, "total_pnl")
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger pnl read: %w", err)
	}
	return pnl, nil
}

// OpenPositionCount reads {"open_count": <int>}.
func (c *Client) OpenPositionCount(ctx context.Context) (int, error) {
	var count int
	err := c.breaker.DoContext(ctx, func(ctx context.Context) error {
		body, err := c.doRequest(ctx, http.MethodGet, actionOpenPositions, nil)
		if err != nil {
			return err
		}
		n, err := decimalField(body, "open_count")
		if err != nil {
			return err
		}
		if !n.IsInteger() || n.IsNegative() || n.GreaterThan(maxCount) {
			return fmt.Errorf("%w: open_count=%s", ErrMalformed, n)
		}
		count = int(n.IntPart())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ledger open position read: %w", err)
	}
	return count, nil
}

// AppendTrade posts one record. It is not retried.
func (c *Client) AppendTrade(ctx context.Context, rec TradeRecord) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "", rec); err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, action string, payload any) ([]byte, error) {
	if c == nil || c.endpoint == nil {
		return nil, fmt.Errorf("ledger client not initialized")
	}
	endpoint := *c.endpoint
	if action != "" {
		q := endpoint.Query()
		q.Set("action", action)
		endpoint.RawQuery = q.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request failed: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := text.Truncate(strings.TrimSpace(string(data)), 256)
		if msg == "" {
			return nil, fmt.Errorf("ledger returned %s", resp.Status)
		}
		return nil, fmt.Errorf("ledger returned %s: %s", resp.Status, msg)
	}
	return data, nil
}

// decimalField accepts the field at the top level or under "data", as a
// JSON number or a numeric string.
func decimalField(body []byte, name string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, fmt.Errorf("%w: body is not JSON", ErrMalformed)
	}
	res := gjson.GetBytes(body, name)
	if !res.Exists() {
		res = gjson.GetBytes(body, "data."+name)
	}
	var text string
	switch res.Type {
	case gjson.Number:
		text = res.Raw
	case gjson.String:
		text = strings.TrimSpace(res.Str)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s missing", ErrMalformed, name)
	}
	val, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrMalformed, name, text)
	}
	return val, nil
}
