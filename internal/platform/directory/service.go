package directory

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kislikjeka/zapfeed/internal/platform/credential"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// Service reads users and wallets
type Service struct {
	source      Source
	cache       Cache
	concurrency int
	logger      *logger.Logger
}

// NewService creates a directory service. cache may be nil.
func NewService(source Source, cache Cache, concurrency int, log *logger.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		source:      source,
		cache:       cache,
		concurrency: concurrency,
		logger:      log.WithField("component", "directory"),
	}
}

// ListUsers returns every account
func (s *Service) ListUsers(ctx context.Context) ([]user.User, error) {
	users, err := s.source.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.NewFetchError("users", "", err)
	}
	return users, nil
}

// ListWallets returns the user's wallets without tombstones
func (s *Service) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	if userID == "" {
		return nil, user.ErrInvalidID
	}
	wallets, err := s.source.ListWallets(ctx, userID)
	if err != nil {
		return nil, apperrors.NewFetchError("wallets", userID, err)
	}
	return wallet.FilterActive(wallets), nil
}

// Snapshot reads every user and then every user's wallets. Failing to list
// users is fatal; a failure for one user's wallets is logged and that user
// is skipped. Authentication failures are always fatal.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.cached(ctx); snap != nil {
		return snap, nil
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]wallet.Wallet, len(users))
	errs := make([]error, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range users {
		g.Go(func() error {
			wallets, err := s.ListWallets(gctx, u.ID)
			if err != nil {
				if credential.IsAuthError(err) {
					return err
				}
				errs[i] = err
				return nil
			}
			results[i] = wallets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Users:   users,
		Wallets: make(map[string][]wallet.Wallet, len(users)),
	}
	for i, u := range users {
		if errs[i] != nil {
			var fe *apperrors.FetchError
			if !errors.As(errs[i], &fe) {
				fe = apperrors.NewFetchError("wallets", u.ID, errs[i])
			}
			snap.Skipped = append(snap.Skipped, u.ID)
			snap.Failures = append(snap.Failures, fe)
			s.logger.Warn("skipping user wallets", "user_id", u.ID, "error", errs[i])
			continue
		}
		snap.Wallets[u.ID] = results[i]
	}

	s.logger.Debug("directory loaded", "users", len(users), "skipped", len(snap.Skipped))

	if snap.Complete() {
		s.store(ctx, snap)
	}
	return snap, nil
}

// FindUserByAADObjectID resolves a Teams identity to a user and their wallets
func (s *Service) FindUserByAADObjectID(ctx context.Context, aad string) (*Snapshot, *user.User, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	u := snap.UserByAADObjectID(aad)
	if u == nil {
		return snap, nil, fmt.Errorf("aad object id %q: %w", aad, user.ErrUserNotFound)
	}
	return snap, u, nil
}

// Invalidate drops the cached snapshot so the next read sees fresh balances
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("directory cache invalidation failed", "error", err)
	}
}

func (s *Service) cached(ctx context.Context) *Snapshot {
	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Warn("directory cache read failed", "error", err)
		return nil
	}
	return snap
}

func (s *Service) store(ctx context.Context, snap *Snapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		s.logger.Warn("directory cache write failed", "error", err)
	}
}
