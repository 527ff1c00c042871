package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		w := serve(h, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := serve(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "rate limit exceeded", body.Error)

	// Another client has its own bucket.
	w = serve(h, func(r *http.Request) { r.RemoteAddr = "10.0.0.2:1234" })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_KeyAndSkip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("api_key") },
		Skip:    func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})(okHandler())

	withKey := func(k string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("api_key", k) }
	}
	assert.Equal(t, http.StatusOK, serve(h, withKey("a")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, withKey("a")).Code)
	assert.Equal(t, http.StatusOK, serve(h, withKey("b")).Code)

	healthz := func(r *http.Request) {
		r.URL.Path = "/livez"
		r.Header.Set("api_key", "a")
	}
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(h, healthz).Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", want: "192.168.1.1"},
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: "203.0.113.50"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:4444"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestLimiterEvict(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	now := time.Now()
	l.get("old", now.Add(-2*time.Minute))
	l.get("fresh", now)

	l.evict(now)
	assert.NotContains(t, l.buckets, "old")
	assert.Contains(t, l.buckets, "fresh")
}
