package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// ErrSuperseded is returned to a request whose caller has since issued a
// newer one. Its result is discarded.
var ErrSuperseded = errors.New("feed request superseded by a newer request")

// Query selects and orders one page of the feed
type Query struct {
	Since    time.Time
	Sort     SortField
	Order    SortOrder
	Page     int
	PageSize int
}

// Warning names a resource that was skipped while building a result
type Warning struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
	Message  string `json:"message"`
}

// Result is a feed page plus what could not be read
type Result struct {
	FeedID   string    `json:"feed_id"`
	Page     Page      `json:"page"`
	Warnings []Warning `json:"warnings"`
}

// WalletLogResult is the attributed history of one wallet
type WalletLogResult struct {
	Wallet   wallet.Wallet        `json:"wallet"`
	Entries  []reconcile.LogEntry `json:"entries"`
	Warnings []Warning            `json:"warnings"`
}

type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

// Service assembles feeds. Requests are keyed by caller; a newer request
// for the same key cancels the older one and only the newest result is
// returned.
type Service struct {
	directory  Directory
	payments   PaymentFetcher
	engine     *reconcile.Engine
	maxRecords int
	metrics    Recorder
	logger     *logger.Logger

	mu         sync.Mutex
	generation uint64
	requests   map[string]inflight
}

// NewService creates a feed service
func NewService(dir Directory, payments PaymentFetcher, engine *reconcile.Engine, maxRecords int, log *logger.Logger) *Service {
	if maxRecords <= 0 {
		maxRecords = reconcile.DefaultMaxRecords
	}
	return &Service{
		directory:  dir,
		payments:   payments,
		engine:     engine,
		maxRecords: maxRecords,
		logger:     log.WithField("component", "feed"),
		requests:   make(map[string]inflight),
	}
}

// SetMetrics records the outcome of every Feed call
func (s *Service) SetMetrics(m Recorder) {
	s.metrics = m
}

func (s *Service) record(outcome string, warnings int) {
	if s.metrics != nil {
		s.metrics.RecordFeed(outcome, warnings)
	}
}

// Feed computes, sorts and paginates the transfer feed for caller key
func (s *Service) Feed(ctx context.Context, key string, q Query) (*Result, error) {
	feedID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.FeedIDKey, feedID)

	ctx, gen, release := s.begin(ctx, key)
	defer release()

	start := time.Now()
	rows, warnings, err := s.Transfers(ctx, q.Since)
	if !s.isCurrent(key, gen) {
		s.logger.WithContext(ctx).Debug("discarding superseded feed", "key", key)
		s.record("superseded", 0)
		return nil, ErrSuperseded
	}
	if err != nil {
		s.record("error", 0)
		return nil, err
	}

	field, order := q.Sort, q.Order
	if field == "" {
		field = SortByTime
	}
	if order == "" {
		order = OrderDesc
	}
	page := Paginate(Sort(rows, field, order), q.Page, q.PageSize)

	s.logger.WithContext(ctx).WithDuration(time.Since(start)).Info("feed assembled",
		"transfers", len(rows),
		"warnings", len(warnings))
	s.record("success", len(warnings))

	return &Result{FeedID: feedID, Page: page, Warnings: warnings}, nil
}

// Transfers runs one full reconciliation: directory, payments of every
// allowance and private wallet, then the engine.
func (s *Service) Transfers(ctx context.Context, since time.Time) ([]reconcile.ReconciledTransfer, []Warning, error) {
	snap, err := s.directory.Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load directory: %w", err)
	}

	payments, report := s.payments.FetchBatch(ctx, snap.TransferWallets(), since)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	warnings := collectWarnings(snap.Failures, report)
	rows := s.engine.Reconcile(snap, payments, reconcile.Options{Since: since, MaxRecords: s.maxRecords})
	return rows, warnings, nil
}

// WalletLog returns the history of the role wallet of the user with the
// given Teams identity.
func (s *Service) WalletLog(ctx context.Context, aadObjectID string, role wallet.Role, since time.Time) (*WalletLogResult, error) {
	if role != wallet.RoleAllowance && role != wallet.RolePrivate {
		return nil, wallet.ErrUnknownRole
	}

	snap, u, err := s.directory.FindUserByAADObjectID(ctx, aadObjectID)
	if err != nil {
		return nil, err
	}

	selected, ok := wallet.FindByRole(snap.WalletsOf(u.ID), role)
	if !ok {
		return nil, fmt.Errorf("%s wallet for user %s: %w", role, u.ID, wallet.ErrWalletNotFound)
	}

	all, report := s.payments.FetchBatch(ctx, snap.TransferWallets(), since)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, fe := range report.Failed {
		if fe.ID == selected.ID {
			return nil, fe
		}
	}

	own := make([]payment.RawPayment, 0)
	for _, p := range all {
		if p.WalletID == selected.ID {
			own = append(own, p)
		}
	}

	return &WalletLogResult{
		Wallet:   selected,
		Entries:  s.engine.WalletLog(snap, selected.ID, own, all),
		Warnings: collectWarnings(snap.Failures, report),
	}, nil
}

func (s *Service) begin(ctx context.Context, key string) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	if prev, ok := s.requests[key]; ok {
		prev.cancel()
	}
	s.requests[key] = inflight{generation: gen, cancel: cancel}
	s.mu.Unlock()

	return ctx, gen, func() {
		s.mu.Lock()
		if cur, ok := s.requests[key]; ok && cur.generation == gen {
			delete(s.requests, key)
		}
		s.mu.Unlock()
		cancel()
	}
}

func (s *Service) isCurrent(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requests[key]
	return ok && cur.generation == gen
}

func collectWarnings(dirFailures []*apperrors.FetchError, report *payment.BatchReport) []Warning {
	warnings := make([]Warning, 0)
	for _, fe := range dirFailures {
		warnings = append(warnings, Warning{Resource: fe.Resource, ID: fe.ID, Message: fe.Err.Error()})
	}
	if report != nil {
		for _, fe := range report.Failed {
			warnings = append(warnings, Warning{Resource: fe.Resource, ID: fe.ID, Message: fe.Err.Error()})
		}
	}
	return warnings
}
