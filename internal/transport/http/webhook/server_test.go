package webhookhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradegate/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type funcHandler func(ctx context.Context, body []byte) pipeline.Result

func (f funcHandler) Handle(ctx context.Context, body []byte) pipeline.Result { return f(ctx, body) }

func newTestServer(t *testing.T, h SignalHandler) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", WebhookPath: "/api/signal", Handler: h})
	require.NoError(t, err)
	gin.SetMode(gin.TestMode)
	return srv.Handler()
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestNewServer_RequiresHandler(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestSignalRoute_PassesBodyThrough(t *testing.T) {
	var got string
	h := newTestServer(t, funcHandler(func(_ context.Context, body []byte) pipeline.Result {
		got = string(body)
		return pipeline.Result{Status: http.StatusOK, Body: pipeline.AcceptedBody{OK: true, Symbol: "BTCUSDT", Qty: 50, Stop: 99}}
	}))

	rec := serve(h, http.MethodPost, "/api/signal", `{"symbol":"btcusdt"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"symbol":"btcusdt"}`, got)
	body := rec.Body.Bytes()
	assert.True(t, gjson.GetBytes(body, "ok").Bool())
	assert.Equal(t, int64(50), gjson.GetBytes(body, "qty").Int())
	assert.Equal(t, 99.0, gjson.GetBytes(body, "stop").Float())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestSignalRoute_StatusFromResult(t *testing.T) {
	h := newTestServer(t, funcHandler(func(context.Context, []byte) pipeline.Result {
		return pipeline.Result{Status: http.StatusUnauthorized, Body: pipeline.ErrorBody{Error: "Unauthorized"}}
	}))
	rec := serve(h, http.MethodPost, "/api/signal", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestSignalRoute_MethodNotAllowed(t *testing.T) {
	called := false
	h := newTestServer(t, funcHandler(func(context.Context, []byte) pipeline.Result {
		called = true
		return pipeline.Result{Status: http.StatusOK}
	}))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := serve(h, method, "/api/signal", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rec.Body.String())
	}
	assert.False(t, called)
}

func TestSignalRoute_PanicIsShaped(t *testing.T) {
	h := newTestServer(t, funcHandler(func(context.Context, []byte) pipeline.Result {
		panic("kaboom")
	}))
	rec := serve(h, http.MethodPost, "/api/signal", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","details":"kaboom"}`, rec.Body.String())
}

func TestSignalRoute_RejectsOversizedBody(t *testing.T) {
	h := newTestServer(t, funcHandler(func(context.Context, []byte) pipeline.Result {
		t.Fatal("handler must not run")
		return pipeline.Result{}
	}))
	rec := serve(h, http.MethodPost, "/api/signal", strings.Repeat("a", maxBodyBytes+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, funcHandler(func(context.Context, []byte) pipeline.Result {
		return pipeline.Result{Status: http.StatusOK}
	}))

	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tradegate_equity_usd")

	rec = serve(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Handler: funcHandler(func(context.Context, []byte) pipeline.Result {
		return pipeline.Result{Status: http.StatusOK}
	})})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
