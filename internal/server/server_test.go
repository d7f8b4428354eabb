package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/keepsake-app/keepsake/internal/config"
	"github.com/keepsake-app/keepsake/internal/server"
	"github.com/keepsake-app/keepsake/internal/services"
	"github.com/keepsake-app/keepsake/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0, // random port
		},
		Storage: config.StorageConfig{
			Engine:   "sqlite",
			DataPath: t.TempDir(),
		},
		Security: config.SecurityConfig{
			Mode: "development",
		},
		Features: config.FeaturesConfig{
			EnableREST:      true,
			EnableWebsocket: true,
			EnableImport:    true,
		},
	}
}

// startTestServer starts a server against an in-memory store and returns its
// base URL. Shutdown is registered with t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err, "failed to open in-memory store")

	service := services.NewCaptureService(store, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())

	addr, hub, err := server.Start(ctx, cfg, service, nil)
	require.NoError(t, err, "server failed to start")
	_ = hub

	// Give the listener a moment before the first request
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
		_ = store.Close()
	})

	return "http://" + addr
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, testConfig(t))

	assert.NotEmpty(t, baseURL)
	assert.True(t, strings.HasPrefix(baseURL, "http://"))

	parts := strings.Split(baseURL, "://")
	require.Len(t, parts, 2)

	host, port, err := net.SplitHostPort(parts[1])
	assert.NoError(t, err, "address should be valid host:port format")
	assert.NotEmpty(t, host)
	assert.NotEqual(t, "0", port, "port should be resolved, not 0")
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, testConfig(t))

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "failed to GET /api/health")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.Equal(t, "ok", healthResp["status"])
}

func TestServer_MemoryRoundTrip(t *testing.T) {
	baseURL := startTestServer(t, testConfig(t))

	body := strings.NewReader(`{"content_type":"text","content":"first entry"}`)
	resp, err := http.Post(baseURL+"/api/memories", "application/json", body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	getResp, err := http.Get(baseURL + "/api/memories/" + id)
	require.NoError(t, err)
	defer func() { _ = getResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestServer_RESTDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.EnableREST = false

	baseURL := startTestServer(t, cfg)

	// Health stays up, API routes do not
	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(baseURL + "/api/memories")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ProductionRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.Mode = "production"
	cfg.Security.APIToken = "test-token"

	baseURL := startTestServer(t, cfg)

	resp, err := http.Get(baseURL + "/api/memories")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest("GET", baseURL+"/api/memories", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_GoalRoutes(t *testing.T) {
	baseURL := startTestServer(t, testConfig(t))

	body := strings.NewReader(`{"name":"Work Travel"}`)
	resp, err := http.Post(baseURL+"/api/goals", "application/json", body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	putReq, err := http.NewRequest("PUT", baseURL+"/api/goals/active",
		strings.NewReader(`{"id":"`+id+`"}`))
	require.NoError(t, err)
	putReq.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(putReq)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(baseURL + "/api/goals/active")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var active map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	assert.Equal(t, id, active["id"])

	delReq, err := http.NewRequest("DELETE", baseURL+"/api/goals/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
