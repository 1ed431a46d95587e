package lnbits_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/infra/gateway/lnbits"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// fakeTokens hands out "tok-N", bumping N on every Invalidate
type fakeTokens struct {
	generation  atomic.Int32
	invalidated atomic.Int32
}

func (f *fakeTokens) GetOrFetch(ctx context.Context) (string, error) {
	return "tok-" + string(rune('0'+f.generation.Load())), nil
}

func (f *fakeTokens) Invalidate() {
	f.invalidated.Add(1)
	f.generation.Add(1)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*lnbits.Client, *fakeTokens) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := lnbits.NewClient("http://unused", time.Second, logger.Discard())
	client.SetBaseURL(server.URL)
	client.SetRetryBackoff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })

	tokens := &fakeTokens{}
	client.SetTokenSource(tokens)
	return client, tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// Authenticate
// =============================================================================

func TestClient_Authenticate(t *testing.T) {
	var body lnbits.AuthRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "abc"})
	})

	token, err := client.Authenticate(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.Equal(t, lnbits.AuthRequest{Username: "admin", Password: "secret"}, body)
}

func TestClient_Authenticate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "bad credentials"})
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				io.WriteString(w, "<html>login</html>")
			},
		},
		{
			name: "missing token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.Authenticate(context.Background(), "admin", "secret")
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// Users and wallets
// =============================================================================

func TestClient_ListUsers_BothShapes(t *testing.T) {
	users := []map[string]any{
		{"id": "u1", "username": "jane.doe@example.com", "email": "jane.doe@example.com", "extra": map[string]string{"aadObjectId": "aad-1"}},
		{"id": "u2", "username": "bob", "extra": nil},
	}

	for _, shape := range []string{"paged", "bare"} {
		t.Run(shape, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/api/v1/user", r.URL.Path)
				assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
				if shape == "paged" {
					writeJSON(w, http.StatusOK, map[string]any{"data": users, "total": 2})
					return
				}
				writeJSON(w, http.StatusOK, users)
			})

			got, err := client.ListUsers(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "aad-1", got[0].Extra.AADObjectID)
			assert.Equal(t, "bob", got[1].Username)
		})
	}
}

func TestClient_Bearer401_RefreshesOnce(t *testing.T) {
	var calls atomic.Int32
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, []lnbits.WalletData{{ID: "w1", Name: "Allowance"}})
	})

	wallets, err := client.ListUserWallets(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), tokens.invalidated.Load())
}

func TestClient_Bearer401_Twice_Fails(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListUserWallets(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, lnbits.IsAPIError(err, http.StatusUnauthorized))
	assert.Equal(t, int32(1), tokens.invalidated.Load())
}

// =============================================================================
// Retry policy
// =============================================================================

func TestClient_GetRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []lnbits.PaymentData{})
	})

	_, err := client.ListPayments(context.Background(), "inkey", 100)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GetGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ListPayments(context.Background(), "inkey", 100)
	require.Error(t, err)
	assert.True(t, lnbits.IsAPIError(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GetDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.ListPayments(context.Background(), "inkey", 100)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_PostIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.CreateInvoice(context.Background(), "inkey", lnbits.CreateInvoiceRequest{Amount: 10})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// Payments
// =============================================================================

func TestClient_ListPayments_KeyAndLimit(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments", r.URL.Path)
		assert.Equal(t, "inkey-1", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		io.WriteString(w, `[{"checking_id":"internal_x","wallet_id":"w1","amount":5000,"memo":"hi","time":1700000000,"extra":{"tag":"zap"}}]`)
	})

	got, err := client.ListPayments(context.Background(), "inkey-1", 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "internal_x", got[0].CheckingID)
	assert.Equal(t, int64(5000), got[0].Amount)
	assert.JSONEq(t, `1700000000`, string(got[0].Time))
}

func TestClient_CreateInvoice(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "inkey-b", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]string{"bolt11": "lnbc1", "payment_hash": "h"})
	})

	resp, err := client.CreateInvoice(context.Background(), "inkey-b", lnbits.CreateInvoiceRequest{
		Amount: 21,
		Memo:   "gm",
		Extra:  map[string]any{"tag": "zap"},
	})
	require.NoError(t, err)

	assert.Equal(t, "lnbc1", resp.PaymentRequest, "bolt11 is accepted as the payment request")
	assert.Equal(t, false, body["out"])
	assert.Equal(t, float64(21), body["amount"])
	assert.Equal(t, "gm", body["memo"])
	assert.Equal(t, map[string]any{"tag": "zap"}, body["extra"])
}

func TestClient_PayInvoice(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "admin-a", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, lnbits.PayInvoiceResponse{PaymentHash: "h", CheckingID: "h"})
	})

	resp, err := client.PayInvoice(context.Background(), "admin-a", lnbits.PayInvoiceRequest{Bolt11: "lnbc1"})
	require.NoError(t, err)

	assert.Equal(t, "h", resp.PaymentHash)
	assert.Equal(t, true, body["out"])
	assert.Equal(t, "lnbc1", body["bolt11"])
}

func TestClient_TopUp(t *testing.T) {
	var body lnbits.TopUpRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/api/v1/topup", r.URL.Path)
		assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	require.NoError(t, client.TopUp(context.Background(), "w1", 25000))
	assert.Equal(t, lnbits.TopUpRequest{ID: "w1", Amount: "25000"}, body)
}

func TestClient_NoTokenSource(t *testing.T) {
	client := lnbits.NewClient("http://127.0.0.1:0", time.Second, logger.Discard())
	_, err := client.ListUsers(context.Background())
	assert.Error(t, err)
}
