package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp3dr4/snip/config"
	"github.com/sp3dr4/snip/internal/application"
	"github.com/sp3dr4/snip/internal/infrastructure/cache"
	"github.com/sp3dr4/snip/internal/infrastructure/memory"
	"github.com/sp3dr4/snip/internal/pkg/metrics"
)

const testBaseURL = "http://localhost:8080"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewLinkRepository()
	recorder := application.NewClickRecorder(repo, application.RecorderOptions{Workers: 1}, logger)
	t.Cleanup(func() { _ = recorder.Close(context.Background()) })

	service := application.NewLinkService(repo, cache.NewNoOpCache(), recorder, application.Options{BaseURL: testBaseURL}, logger)
	health := application.NewHealthReporter(repo, nil, application.HealthOptions{Version: "test"}, logger)

	cfg := &config.Config{App: config.AppConfig{BaseURL: testBaseURL}}
	return NewRouter(NewHandlers(service, health, repo, 0), logger, cfg, metrics.NewNoOpRegistry())
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeLink(t *testing.T, w *httptest.ResponseRecorder) application.LinkResponse {
	t.Helper()

	var resp application.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlers_HandleCreateLink_ValidationErrorCasing(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name           string
		payload        string
		expectedFields []string
	}{
		{
			name:           "invalid customCode should return customCode in error",
			payload:        `{"url": "https://example.com", "customCode": "ab"}`,
			expectedFields: []string{"customCode"},
		},
		{
			name:           "missing url should return url in error",
			payload:        `{"customCode": "valid123"}`,
			expectedFields: []string{"url"},
		},
		{
			name:           "invalid url should return url in error",
			payload:        `{"url": "not-a-url", "customCode": "valid123"}`,
			expectedFields: []string{"url"},
		},
		{
			name:           "multiple validation errors should return correct field names",
			payload:        `{"url": "not-a-url", "customCode": "ab"}`,
			expectedFields: []string{"url", "customCode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, http.MethodPost, "/api/links", tt.payload)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var response ValidationErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "Validation failed", response.Error)
			assert.Len(t, response.Details, len(tt.expectedFields))
			for _, field := range tt.expectedFields {
				assert.Contains(t, response.Details, field)
			}
		})
	}
}

func TestHandlers_HandleCreateLink(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeLink(t, w)
	assert.Equal(t, "https://example.com", created.URL)
	assert.Equal(t, testBaseURL+"/"+created.Code, created.ShortURL)

	w = doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.Code, decodeLink(t, w).Code)

	w = doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com", "customCode": "promo1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.org", "customCode": "promo1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, server, http.MethodPost, "/api/links", `{"url": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HandleRedirect(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com/landing", "customCode": "land123"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, server, http.MethodGet, "/land123", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))

	w = doRequest(t, server, http.MethodGet, "/land123", "")
	assert.Equal(t, http.StatusFound, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/links/land123", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeLink(t, w)
	assert.Equal(t, int64(2), stats.Clicks)
	assert.NotNil(t, stats.LastClicked)

	w = doRequest(t, server, http.MethodGet, "/missing1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "Short URL not found", errResp.Error["message"])
}

func TestHandlers_HeadRedirectDoesNotCountClick(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com/landing", "customCode": "land123"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	for i := 0; i < 3; i++ {
		w = doRequest(t, server, http.MethodHead, "/land123", "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://example.com/landing", w.Header().Get("Location"))
	}

	w = doRequest(t, server, http.MethodGet, "/api/links/land123", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeLink(t, w)
	assert.Zero(t, stats.Clicks)
	assert.Nil(t, stats.LastClicked)

	w = doRequest(t, server, http.MethodHead, "/missing1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_CreateLink_ReservedCode(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com", "customCode": "healthz"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "customCode is reserved", resp.Details["customCode"])

	w = doRequest(t, server, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_ListAndDelete(t *testing.T) {
	server := newTestServer(t)

	for _, code := range []string{"first1", "second", "third1"} {
		w := doRequest(t, server, http.MethodPost, "/api/links", `{"url": "https://example.com/`+code+`", "customCode": "`+code+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, server, http.MethodGet, "/api/links?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var links []application.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	assert.Len(t, links, 2)

	w = doRequest(t, server, http.MethodGet, "/api/links?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, server, http.MethodDelete, "/api/links/second", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodDelete, "/api/links/second", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, server, http.MethodGet, "/second", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, server, http.MethodGet, "/api/links", "")
	require.Equal(t, http.StatusOK, w.Code)
	links = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links, 2)
	for _, link := range links {
		assert.NotEqual(t, "second", link.Code)
	}
}

func TestHandlers_HealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = doRequest(t, server, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report application.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.OK)
	assert.Equal(t, "test", report.Version)
	assert.Equal(t, application.StatusConnected, report.Database)
	assert.Equal(t, application.StatusDisabled, report.Cache)
}

func TestLoggingMiddleware_TraceID(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-Id", "abc123trace")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, "abc123trace", w.Header().Get("X-Trace-Id"))

	w = doRequest(t, server, http.MethodGet, "/health", "")
	assert.Len(t, w.Header().Get("X-Trace-Id"), 32)
}
