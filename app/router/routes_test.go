package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/ihancer-relay/app/dto"
	"github.com/amirphl/ihancer-relay/app/handlers"
	"github.com/amirphl/ihancer-relay/app/services"
	businessflow "github.com/amirphl/ihancer-relay/business_flow"
	"github.com/amirphl/ihancer-relay/config"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.ProductionConfig {
	return &config.ProductionConfig{
		Server: config.ServerConfig{
			Port:           8080,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			IdleTimeout:    5 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Security: config.SecurityConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			CORSMaxAge:     60,
			CSPPolicy:      "default-src 'self'; img-src 'self' blob:",
			XFrameOptions:  "DENY",
			ReferrerPolicy: "no-referrer",
		},
		Logging:    config.LoggingConfig{Level: "info", Output: "stdout", EnableAccessLog: true},
		Metrics:    config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Enhancer:   config.EnhancerConfig{Provider: "mock"},
		Upload:     config.UploadConfig{MaxBytes: 1024, DefaultMethod: "1", DefaultSize: "low"},
		Deployment: config.DeploymentConfig{Environment: "production", Version: "test"},
	}
}

func newTestRouter(t *testing.T, cfg *config.ProductionConfig, provider services.EnhancementProvider) (*fiber.App, *bytes.Buffer) {
	t.Helper()
	accessLog := &bytes.Buffer{}
	h := handlers.NewEnhanceHandler(businessflow.NewEnhanceFlow(provider), cfg.Upload, cfg.Server.RequestTimeout)
	r := NewFiberRouter(cfg, accessLog, h)
	r.SetupRoutes()
	return r.GetApp(), accessLog
}

func body(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data
}

func TestShellPage(t *testing.T) {
	app, _ := newTestRouter(t, testConfig(), services.NewMockEnhancementProvider())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "blob:")
	page := string(body(t, resp))
	assert.Contains(t, page, `/api/enhance`)
	assert.Contains(t, page, `name="method"`)
	assert.Contains(t, page, `name="size"`)
}

func TestHealthCheck(t *testing.T) {
	app, accessLog := newTestRouter(t, testConfig(), services.NewMockEnhancementProvider())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out dto.APIResponse
	require.NoError(t, json.Unmarshal(body(t, resp), &out))
	assert.True(t, out.Success)
	data, ok := out.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "mock", data["provider"])
	assert.Equal(t, "test", data["version"])

	assert.Empty(t, accessLog.String())
}

func TestEnhanceRoute(t *testing.T) {
	provider := services.NewMockEnhancementProvider()
	provider.Response = []byte("enhanced")
	app, accessLog := newTestRouter(t, testConfig(), provider)

	payload := &bytes.Buffer{}
	w := multipart.NewWriter(payload)
	require.NoError(t, w.WriteField("method", "2"))
	require.NoError(t, w.WriteField("size", "medium"))
	fw, err := w.CreateFormFile("file", "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("img"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/enhance", payload)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	assert.Equal(t, []byte("enhanced"), body(t, resp))
	require.Len(t, provider.GetCalls(), 1)

	assert.Contains(t, accessLog.String(), `"path":"/api/enhance"`)
	assert.Contains(t, accessLog.String(), `"status":200`)
}

func TestEnhanceRouteRejectsGet(t *testing.T) {
	provider := services.NewMockEnhancementProvider()
	app, _ := newTestRouter(t, testConfig(), provider)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/enhance", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "Method Not Allowed", string(body(t, resp)))
	assert.Empty(t, provider.GetCalls())
}

// The body limit is enforced by the server before routing, so it is
// exercised over a real socket rather than app.Test.
func TestEnhanceRouteBodyLimit(t *testing.T) {
	provider := services.NewMockEnhancementProvider()
	cfg := testConfig()
	app, _ := newTestRouter(t, cfg, provider)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = app.Shutdown() })

	oversized := bytes.Repeat([]byte("a"), cfg.Upload.BodyLimit()+1)
	resp, err := http.Post("http://"+ln.Addr().String()+"/api/enhance", "multipart/form-data; boundary=xyz", bytes.NewReader(oversized))
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body(t, resp), &out))
	assert.Equal(t, "Request Entity Too Large", out.Error)
	assert.Empty(t, provider.GetCalls())
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestRouter(t, testConfig(), services.NewMockEnhancementProvider())

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body(t, resp)), "http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	app, _ := newTestRouter(t, cfg, services.NewMockEnhancementProvider())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSwaggerOnlyInDevelopment(t *testing.T) {
	app, _ := newTestRouter(t, testConfig(), services.NewMockEnhancementProvider())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/swagger.json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cfg := testConfig()
	cfg.Deployment.Environment = "development"
	app, _ = newTestRouter(t, cfg, services.NewMockEnhancementProvider())
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/swagger.json", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(body(t, resp), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/enhance")
}

func TestNotFound(t *testing.T) {
	app, _ := newTestRouter(t, testConfig(), services.NewMockEnhancementProvider())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var out dto.APIResponse
	require.NoError(t, json.Unmarshal(body(t, resp), &out))
	assert.False(t, out.Success)
	assert.Equal(t, "The requested resource was not found", out.Message)
}
