package lnbits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/kislikjeka/zapfeed/pkg/logger"
)

const (
	defaultTimeout = 15 * time.Second
	maxAttempts    = 3
)

// TokenSource supplies the bearer token for admin endpoints
type TokenSource interface {
	GetOrFetch(ctx context.Context) (string, error)
	Invalidate()
}

// RequestRecorder observes the duration of LNbits requests
type RequestRecorder interface {
	Record(duration time.Duration, service, method, endpoint string, statusCode int)
}

// Client is an HTTP client for the LNbits REST API
type Client struct {
	http       *resty.Client
	tokens     TokenSource
	metrics    RequestRecorder
	newBackOff func() backoff.BackOff
	logger     *logger.Logger
}

// NewClient creates a new LNbits API client. Bearer calls fail until a
// token source is set.
func NewClient(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     log.WithField("component", "lnbits"),
	}
}

// SetBaseURL overrides the base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.http.SetBaseURL(strings.TrimRight(url, "/"))
}

// SetTokenSource wires the bearer token provider
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// SetMetrics records request durations per endpoint
func (c *Client) SetMetrics(m RequestRecorder) {
	c.metrics = m
}

// SetRetryBackoff replaces the GET retry policy (useful for testing)
func (c *Client) SetRetryBackoff(f func() backoff.BackOff) {
	c.newBackOff = f
}

type authMode int

const (
	authNone authMode = iota
	authBearer
	authAPIKey
)

type call struct {
	op     string // metrics endpoint label
	method string
	path   string
	auth   authMode
	apiKey string
	query  map[string]string
	body   any
	out    any
}

// do runs the call. GETs are retried with exponential backoff on 429, 5xx
// and transport errors; writes run exactly once.
func (c *Client) do(ctx context.Context, cl call) error {
	if cl.method != http.MethodGet {
		return c.attempt(ctx, cl)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), maxAttempts-1), ctx)
	return backoff.RetryNotify(func() error {
		err := c.attempt(ctx, cl)
		if err != nil && !isRetryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("request failed, retrying",
			"method", cl.method,
			"path", cl.path,
			"backoff_ms", wait.Milliseconds(),
			"error", err)
	})
}

// attempt sends the request once, or twice when a bearer call is rejected
// with 401 and a fresh token is obtained.
func (c *Client) attempt(ctx context.Context, cl call) error {
	for try := 0; ; try++ {
		resp, err := c.send(ctx, cl)
		if err != nil {
			return err
		}

		if resp.StatusCode() == http.StatusUnauthorized && cl.auth == authBearer && try == 0 {
			c.logger.Info("bearer token rejected, refreshing", "path", cl.path)
			c.tokens.Invalidate()
			continue
		}

		if !resp.IsSuccess() {
			c.logger.Error("API error", "method", cl.method, "path", cl.path, "status_code", resp.StatusCode())
			return &APIError{
				StatusCode: resp.StatusCode(),
				Method:     cl.method,
				Path:       cl.path,
				Body:       truncate(string(resp.Body()), 512),
			}
		}

		if cl.out != nil {
			if err := json.Unmarshal(resp.Body(), cl.out); err != nil {
				return fmt.Errorf("failed to decode %s %s response: %w", cl.method, cl.path, err)
			}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, cl call) (*resty.Response, error) {
	start := time.Now()
	req := c.http.R().SetContext(ctx)

	switch cl.auth {
	case authBearer:
		if c.tokens == nil {
			return nil, errors.New("lnbits: no token source configured")
		}
		token, err := c.tokens.GetOrFetch(ctx)
		if err != nil {
			return nil, err
		}
		req.SetAuthToken(token)
	case authAPIKey:
		req.SetHeader("X-Api-Key", cl.apiKey)
	}

	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		c.record(cl, start, 0)
		return nil, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}
	c.record(cl, start, resp.StatusCode())

	c.logger.Debug("API response",
		"method", cl.method,
		"path", cl.path,
		"status_code", resp.StatusCode(),
		"duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (c *Client) record(cl call, start time.Time, status int) {
	if c.metrics == nil {
		return
	}
	c.metrics.Record(time.Since(start), "lnbits", cl.method, cl.op, status)
}

// Authenticate exchanges the admin credentials for an access token
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	cl := call{
		method: http.MethodPost,
		op:     "auth",
		path:   "/api/v1/auth",
		body:   AuthRequest{Username: username, Password: password},
	}

	resp, err := c.send(ctx, cl)
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", &APIError{StatusCode: resp.StatusCode(), Method: cl.method, Path: cl.path, Body: truncate(string(resp.Body()), 512)}
	}
	if ct := resp.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return "", fmt.Errorf("auth response is not JSON (content type %q)", ct)
	}

	var out AuthResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("access_token is missing in the auth response")
	}
	return out.AccessToken, nil
}

// ListUsers returns every account of the users extension
func (c *Client) ListUsers(ctx context.Context) ([]UserData, error) {
	var users UserList
	err := c.do(ctx, call{
		method: http.MethodGet,
		op:     "list_users",
		path:   "/users/api/v1/user",
		auth:   authBearer,
		out:    &users,
	})
	if err != nil {
		return nil, fmt.Errorf("ListUsers failed: %w", err)
	}
	return users, nil
}

// ListUserWallets returns the wallets of one user, deleted ones included
func (c *Client) ListUserWallets(ctx context.Context, userID string) ([]WalletData, error) {
	var wallets []WalletData
	err := c.do(ctx, call{
		method: http.MethodGet,
		op:     "list_wallets",
		path:   "/users/api/v1/user/" + userID + "/wallet",
		auth:   authBearer,
		out:    &wallets,
	})
	if err != nil {
		return nil, fmt.Errorf("ListUserWallets failed: %w", err)
	}
	return wallets, nil
}

// ListPayments returns the latest payments of the wallet owning apiKey
func (c *Client) ListPayments(ctx context.Context, apiKey string, limit int) ([]PaymentData, error) {
	var payments []PaymentData
	err := c.do(ctx, call{
		op:     "list_payments",
		method: http.MethodGet,
		path:   "/api/v1/payments",
		auth:   authAPIKey,
		apiKey: apiKey,
		query:  map[string]string{"limit": strconv.Itoa(limit)},
		out:    &payments,
	})
	if err != nil {
		return nil, fmt.Errorf("ListPayments failed: %w", err)
	}
	return payments, nil
}

// CreateInvoice asks the wallet owning inKey for a bolt11 invoice
func (c *Client) CreateInvoice(ctx context.Context, inKey string, req CreateInvoiceRequest) (*CreateInvoiceResponse, error) {
	req.Out = false
	var out CreateInvoiceResponse
	err := c.do(ctx, call{
		op:     "create_invoice",
		method: http.MethodPost,
		path:   "/api/v1/payments",
		auth:   authAPIKey,
		apiKey: inKey,
		body:   req,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice failed: %w", err)
	}
	if out.PaymentRequest == "" {
		out.PaymentRequest = out.Bolt11
	}
	if out.PaymentRequest == "" {
		return nil, errors.New("CreateInvoice failed: response has no payment_request")
	}
	return &out, nil
}

// PayInvoice pays a bolt11 invoice from the wallet owning adminKey
func (c *Client) PayInvoice(ctx context.Context, adminKey string, req PayInvoiceRequest) (*PayInvoiceResponse, error) {
	req.Out = true
	var out PayInvoiceResponse
	err := c.do(ctx, call{
		op:     "pay_invoice",
		method: http.MethodPost,
		path:   "/api/v1/payments",
		auth:   authAPIKey,
		apiKey: adminKey,
		body:   req,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("PayInvoice failed: %w", err)
	}
	return &out, nil
}

// TopUp credits a wallet with sats out of thin air (admin only)
func (c *Client) TopUp(ctx context.Context, walletID string, amountSats int64) error {
	err := c.do(ctx, call{
		method: http.MethodPut,
		op:     "topup",
		path:   "/users/api/v1/topup",
		auth:   authBearer,
		body:   TopUpRequest{ID: walletID, Amount: strconv.FormatInt(amountSats, 10)},
	})
	if err != nil {
		return fmt.Errorf("TopUp failed: %w", err)
	}
	return nil
}

// Ping checks that LNbits accepts our credentials
func (c *Client) Ping(ctx context.Context) error {
	if c.tokens == nil {
		return errors.New("lnbits: no token source configured")
	}
	_, err := c.tokens.GetOrFetch(ctx)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
