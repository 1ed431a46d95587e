package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/middleware"
)

func TestRateLimiter_Burst(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	assert.Equal(t, "ip:192.0.2.1", middleware.ClientKey(req))

	req = req.WithContext(context.WithValue(req.Context(), middleware.SubjectKey, "svc"))
	assert.Equal(t, "sub:svc", middleware.ClientKey(req))

	req.Header.Set(middleware.ClientKeyHeader, " tab-7 ")
	assert.Equal(t, "key:tab-7", middleware.ClientKey(req))
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := middleware.NewJWTService("test-secret-key-minimum-32-characters-long")

	token, err := svc.GenerateToken("user-1", "Jane", "aad-1", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "aad-1", claims.Oid)

	other := middleware.NewJWTService("another-secret-key-minimum-32-characters")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired, err := svc.GenerateToken("user-1", "", "", -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.Error(t, err)
}

func TestJWTMiddleware_SetsIdentity(t *testing.T) {
	svc := middleware.NewJWTService("test-secret-key-minimum-32-characters-long")
	token, err := svc.GenerateToken("user-1", "", "aad-1", time.Minute)
	require.NoError(t, err)

	var gotSub, gotOid string
	h := middleware.JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, _ = middleware.GetSubjectFromContext(r.Context())
		gotOid, _ = middleware.GetAADObjectIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", gotSub)
	assert.Equal(t, "aad-1", gotOid)
}

func TestCORS_PreflightAllowsClientKey(t *testing.T) {
	h := middleware.CORS([]string{"https://teams.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/feed", nil)
	req.Header.Set("Origin", "https://teams.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", middleware.ClientKeyHeader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "https://teams.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, http.CanonicalHeaderKey(w.Header().Get("Access-Control-Allow-Headers")), "X-Client-Key")
	assert.Equal(t, "300", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/feed", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
