package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juicy-forest/server/pkg/config"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, chatURL string) *Gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Get()
	cfg.Gateway.ChatURL = chatURL
	cfg.Gateway.AuthURL = chatURL
	cfg.Gateway.SensorURL = chatURL
	cfg.Gateway.ClientOrigin = "http://localhost:5173"

	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	g, err := New(cfg, log)
	require.NoError(t, err)
	return g
}

func perform(g *Gateway, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	// ReverseProxy needs a cancellable request context; without one it falls
	// back to http.CloseNotifier, which ResponseRecorder does not implement
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	g.server.Handler.ServeHTTP(w, req)
	return w
}

func TestGatewayStripsPrefixBeforeForwarding(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"path": r.URL.Path})
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	w := perform(g, http.MethodGet, "/chat/channel")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/channel", resp["path"])

	// The bare prefix forwards as the upstream root
	w = perform(g, http.MethodGet, "/chat")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/", resp["path"])
}

func TestGatewayDownUpstream(t *testing.T) {
	// Nothing listens here
	g := newTestGateway(t, "http://127.0.0.1:1")

	w := perform(g, http.MethodGet, "/chat/channel")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error": "Service chat unavailable"}`, w.Body.String())
}

func TestGatewayCircuitOpensAfterRepeatedFailures(t *testing.T) {
	g := newTestGateway(t, "http://127.0.0.1:1")

	// Enough consecutive failures to trip the breaker
	for i := 0; i < 6; i++ {
		w := perform(g, http.MethodGet, "/chat/channel")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}

	w := perform(g, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Services map[string]struct {
			Circuit string                 `json:"circuit"`
			Metrics map[string]interface{} `json:"metrics"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "open", health.Services["chat"].Circuit)
	// The sixth request was short-circuited, so only five failures were recorded
	assert.EqualValues(t, 5, health.Services["chat"].Metrics["total_failures"])

	// Short-circuited requests still answer with the unavailable body
	w = perform(g, http.MethodGet, "/chat/channel")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error": "Service chat unavailable"}`, w.Body.String())
}

func TestGatewayUpstreamProbes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	t.Run("live upstream reports up", func(t *testing.T) {
		g := newTestGateway(t, upstream.URL)
		g.checker.RunChecks()

		status := g.checker.GetStatus()
		component, ok := status["upstream-chat"]
		require.True(t, ok)
		assert.Equal(t, "up", string(component.Status))
	})

	t.Run("dead upstream reports down", func(t *testing.T) {
		g := newTestGateway(t, "http://127.0.0.1:1")
		g.checker.RunChecks()

		status := g.checker.GetStatus()
		component, ok := status["upstream-chat"]
		require.True(t, ok)
		assert.Equal(t, "down", string(component.Status))
	})
}

func TestGatewayCORS(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	g := newTestGateway(t, upstream.URL)

	w := perform(g, http.MethodGet, "/chat/channel")
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = perform(g, http.MethodOptions, "/chat/channel")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
