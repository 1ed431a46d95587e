package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// fetchTimeout bounds one shared token request. The request does not
// inherit the cancellation of the caller that started it.
const fetchTimeout = 30 * time.Second

// TokenFetcher exchanges credentials for a bearer token
type TokenFetcher interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// Provider owns the process-wide bearer token. Concurrent callers during a
// fetch share one request. The token does not expire; callers drop it
// with Invalidate when the server rejects it.
type Provider struct {
	fetcher  TokenFetcher
	username string
	password string
	logger   *logger.Logger

	mu    sync.RWMutex
	token string
	group singleflight.Group
}

// NewProvider creates a token provider for one account
func NewProvider(fetcher TokenFetcher, username, password string, log *logger.Logger) *Provider {
	return &Provider{
		fetcher:  fetcher,
		username: username,
		password: password,
		logger:   log.WithField("component", "credential"),
	}
}

// GetOrFetch returns the cached token or fetches a new one
func (p *Provider) GetOrFetch(ctx context.Context) (string, error) {
	if token := p.cached(); token != "" {
		return token, nil
	}

	ch := p.group.DoChan(p.username, func() (any, error) {
		// another flight may have finished between the check and DoChan
		if token := p.cached(); token != "" {
			return token, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		token, err := p.fetcher.Authenticate(fetchCtx, p.username, p.password)
		if err != nil {
			return "", wrapAuthError(err)
		}
		if token == "" {
			return "", &AuthError{Reason: "response has no access_token"}
		}

		p.mu.Lock()
		p.token = token
		p.mu.Unlock()

		p.logger.Info("access token acquired")
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			p.logger.Error("failed to acquire access token", "error", res.Err, "shared", res.Shared)
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next call fetches a new one
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
	p.logger.Debug("access token invalidated")
}

func (p *Provider) cached() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// AuthError is a failure to obtain a bearer token
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError checks if an error is (or wraps) an AuthError
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func wrapAuthError(err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &AuthError{Reason: "token request failed", Err: err}
}
