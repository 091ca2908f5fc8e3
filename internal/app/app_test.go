package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tradegate/internal/config"
	"tradegate/internal/gateway/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingNotifier) SendText(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "staging", LogLevel: "info", HTTPAddr: "127.0.0.1:0", WebhookPath: "/api/signal"},
		Auth: config.AuthConfig{Secret: "s3cret"},
		Risk: config.RiskConfig{
			BaseCapital:        decimal.NewFromInt(5000),
			RiskPct:            decimal.NewFromInt(1),
			StopPct:            decimal.RequireFromString("0.01"),
			MaxOpenPositions:   2,
			TakeProfitMultiple: decimal.NewFromInt(2),
			DisplayPlaces:      2,
		},
		Ledger: config.LedgerConfig{Driver: config.LedgerDriverMemory, TimeoutSeconds: 1},
	}
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/signal", strings.NewReader(body)))
	return rec
}

func TestApp_EndToEndWithMemoryLedger(t *testing.T) {
	mem := ledger.NewMemory()
	tn := &recordingNotifier{}
	a, err := NewAppBuilder(testConfig(), WithLedger(mem), WithNotifier(tn)).Build(context.Background())
	require.NoError(t, err)
	h := a.Server().Handler()

	body := `{"secret":"s3cret","symbol":"btcusdt","side":"BUY","price":100}`
	for i := 0; i < 2; i++ {
		rec := post(t, h, body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, gjson.Get(rec.Body.String(), "ok").Bool())
		assert.Equal(t, int64(50), gjson.Get(rec.Body.String(), "qty").Int())
	}

	// memory ledger counts every appended trade as open
	rec := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REJECTED_MAX_OPEN", gjson.Get(rec.Body.String(), "error").String())
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "openCount").Int())

	records := mem.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "BTCUSDT", records[0].Symbol)
	assert.Equal(t, "staging", records[0].Env)
	assert.Len(t, tn.texts, 2)
}

func TestApp_PnLMovesEquity(t *testing.T) {
	mem := ledger.NewMemory()
	mem.SetPnL(decimal.NewFromInt(1000))
	a, err := NewAppBuilder(testConfig(), WithLedger(mem), WithNotifier(nil)).Build(context.Background())
	require.NoError(t, err)

	rec := post(t, a.Server().Handler(), `{"secret":"s3cret","symbol":"ETHUSDT","side":"SELL","price":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6000.0, gjson.Get(rec.Body.String(), "equity").Float())
	assert.Equal(t, 60.0, gjson.Get(rec.Body.String(), "riskUsd").Float())
	assert.Equal(t, int64(60), gjson.Get(rec.Body.String(), "qty").Int())
	assert.Equal(t, 98.0, gjson.Get(rec.Body.String(), "takeProfit").Float())
}

func TestNewApp_BuildsFromConfig(t *testing.T) {
	_, err := NewApp(nil)
	require.Error(t, err)

	a, err := NewApp(testConfig())
	require.NoError(t, err)
	require.NotNil(t, a.Server())
	assert.Equal(t, "127.0.0.1:0", a.Server().Addr())
}

func TestBuild_UnknownLedgerDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.Driver = "sheets-v0"
	_, err := NewAppBuilder(cfg).Build(context.Background())
	assert.ErrorContains(t, err, "unsupported ledger driver")
}

func TestStartupSummary_RendersWithoutSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.Driver = config.LedgerDriverHTTP
	cfg.Ledger.URL = "https://script.google.com/macros/s/AKfyc-secret-id/exec"
	out := newStartupSummary(cfg, true).Render()

	assert.Contains(t, out, "STARTUP SUMMARY")
	assert.Contains(t, out, "fail-open")
	assert.Contains(t, out, "https://script.google.com/")
	assert.NotContains(t, out, "AKfyc-secret-id")
	assert.NotContains(t, out, "s3cret")
}
