package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/objzip/internal/api/middleware"
	"github.com/andresuchdata/objzip/internal/service"
)

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " ", "https://c.example"})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, origins)

	origins, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
	assert.Empty(t, origins)
}

func TestRouterServesHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&Services{HealthService: service.NewHealthService()}, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://console.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Everything is working fine","data":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "https://console.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterKeepsCallerRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&Services{HealthService: service.NewHealthService()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestRouterWithoutArchiveServiceHasNoCompressRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&Services{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/s3/compress-objects", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
