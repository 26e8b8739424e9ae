package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/pharmacy-pos/internal/config"
	"github.com/your-org/pharmacy-pos/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.Any("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestID(t *testing.T) {
	r := newEngine(middleware.RequestID())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "till-7-0001")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "till-7-0001", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{
		CORSAllowedOrigins: []string{"https://pos.example.com", "*.pharmacy.test"},
		CORSAllowedMethods: []string{"GET", "POST"},
	}}
	r := newEngine(middleware.CORS(cfg))

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://pos.example.com", true},
		{"https://branch.pharmacy.test", true},
		{"https://Branch.Pharmacy.test:8443", true},
		{"https://pharmacy.test", false},
		{"https://evilpharmacy.test", false},
		{"https://pharmacy.test.evil.com", false},
		{"ftp://branch.pharmacy.test", false},
		{"https://other.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
		if tt.allowed {
			assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
			assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"), tt.origin)
			assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"), tt.origin)
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"), tt.origin)
		}
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestSizeLimit(t *testing.T) {
	r := newEngine(middleware.RequestSizeLimit(8))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAbortWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/known", func(c *gin.Context) {
		middleware.AbortWithError(c, apperrors.InsufficientStock("Paracetamol", 23, 25))
	})
	r.GET("/unknown", func(c *gin.Context) {
		middleware.AbortWithError(c, assert.AnError)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/known", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INSUFFICIENT_STOCK"`)
	assert.Contains(t, rec.Body.String(), `"available":23`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
