package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func engineWith(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	return r
}

func TestRateLimiter_LocalBucketPerIP(t *testing.T) {
	r := engineWith(RateLimiter(nil, 3))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234").Code)
	}
	w := serve(r, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.2:1234").Code)
}

func TestRateLimiter_DisabledWhenNonPositive(t *testing.T) {
	r := engineWith(RateLimiter(nil, 0))
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234").Code)
	}
}

func TestRateLimiter_RedisUnavailableFallsBackToLocal(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	r := engineWith(RateLimiter(rdb, 2))

	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "10.0.0.1:1234").Code)
	// Breaker is open by now; the local bucket still applies.
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.9:1234").Code)
}

func TestLocalLimiter_PurgesIdleVisitors(t *testing.T) {
	l := newLocalLimiter(60, time.Minute)
	start := time.Now()
	l.get("a", start)
	l.get("b", start)

	l.get("c", start.Add(2*time.Minute))

	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "c")
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := engineWith(RequestID())

	w := serve(r, "10.0.0.1:1")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "kiosk-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "kiosk-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "kiosk-42", w.Body.String())
}

func TestErrorHandler_WrapsFaultDescription(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("disk full")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error: disk full"}`, w.Body.String())
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "panic: boom")
}

func TestErrorHandler_EchoesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("disk full")) })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "kiosk-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"detail":"Internal server error: disk full","request_id":"kiosk-42"}`, w.Body.String())
}

func TestRecovery_EchoesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(RequestIDHeader, "kiosk-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error: panic: boom","request_id":"kiosk-7"}`, w.Body.String())
}

func TestCORS_AllowListedOrigin(t *testing.T) {
	r := engineWith(CORS([]string{"https://kiosk.example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://kiosk.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://kiosk.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
