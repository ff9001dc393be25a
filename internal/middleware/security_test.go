package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatomy-twin-server/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/regions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(RequestIDKey)})
	})
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func serve(r http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newRouter(SecurityHeaders()), http.MethodGet, "/regions/heart", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS_Preflight(t *testing.T) {
	r := newRouter(CORS())

	w := serve(r, http.MethodOptions, "/regions/heart", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/regions/heart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())

	tests := []struct {
		name   string
		header http.Header
		check  func(t *testing.T, id string)
	}{
		{
			name:  "generated",
			check: func(t *testing.T, id string) { assert.Len(t, id, 36) },
		},
		{
			name:   "propagated",
			header: http.Header{"X-Request-Id": {"abc-123"}},
			check:  func(t *testing.T, id string) { assert.Equal(t, "abc-123", id) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/regions/heart", tt.header)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			tt.check(t, body["request_id"])
			assert.Equal(t, body["request_id"], w.Header().Get("X-Request-ID"))
		})
	}
}

func TestMetrics(t *testing.T) {
	m := metrics.New("test")
	r := newRouter(Metrics(m))

	serve(r, http.MethodGet, "/regions/heart", nil)
	serve(r, http.MethodGet, "/regions/lungs", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	expected := `
# HELP test_http_requests_total HTTP requests by route and status.
# TYPE test_http_requests_total counter
test_http_requests_total{method="GET",route="/regions/:id",status="200"} 2
test_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "test_http_requests_total"))

	// A nil collector is tolerated.
	w := serve(newRouter(Metrics(nil)), http.MethodGet, "/regions/heart", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := newRouter(RequestID(), AccessLog(logger))
	serve(r, http.MethodGet, "/regions/heart", http.Header{"X-Request-Id": {"req-1"}})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/regions/heart", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "info", entry["level"])

	buf.Reset()
	serve(r, http.MethodGet, "/broken", nil)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
}
