package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

const (
	DefaultPageSize    = 100
	DefaultConcurrency = 1
)

// Fetcher reads raw payments per wallet
type Fetcher struct {
	source      Source
	pageSize    int
	concurrency int
	logger      *logger.Logger
}

// NewFetcher creates a payment fetcher. pageSize and concurrency fall back
// to their defaults when not positive.
func NewFetcher(source Source, pageSize, concurrency int, log *logger.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Fetcher{
		source:      source,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      log.WithField("component", "payment_fetcher"),
	}
}

// ListPayments returns at most one page of payments for the wallet. The
// server does not filter by time, so since is applied here; payments whose
// time could not be parsed are kept. A zero since disables the filter.
func (f *Fetcher) ListPayments(ctx context.Context, w wallet.Wallet, since time.Time) ([]RawPayment, error) {
	if w.InKey == "" {
		return nil, apperrors.NewFetchError("payments", w.ID, fmt.Errorf("wallet has no invoice key"))
	}

	payments, err := f.source.ListPayments(ctx, w.InKey, f.pageSize)
	if err != nil {
		return nil, apperrors.NewFetchError("payments", w.ID, err)
	}

	out := make([]RawPayment, 0, len(payments))
	for _, p := range payments {
		if p.WalletID == "" {
			p.WalletID = w.ID
		}
		if p.Time.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// BatchReport lists wallets whose payments could not be read
type BatchReport struct {
	Failed []*apperrors.FetchError
	err    *multierror.Error
}

// Err is the aggregated failure, nil when every wallet was read
func (r *BatchReport) Err() error {
	if r == nil {
		return nil
	}
	return r.err.ErrorOrNil()
}

// FailedWalletIDs lists the ids of wallets that were skipped
func (r *BatchReport) FailedWalletIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for _, fe := range r.Failed {
		ids = append(ids, fe.ID)
	}
	return ids
}

// FetchBatch reads every wallet, skipping the ones that fail. Results are
// concatenated in wallet order whatever the concurrency. Cancellation of ctx
// is reported as a failure for the wallets not yet read.
func (f *Fetcher) FetchBatch(ctx context.Context, wallets []wallet.Wallet, since time.Time) ([]RawPayment, *BatchReport) {
	results := make([][]RawPayment, len(wallets))
	errs := make([]error, len(wallets))

	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)

	for i, w := range wallets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = apperrors.NewFetchError("payments", w.ID, err)
				return nil
			}
			payments, err := f.ListPayments(ctx, w, since)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = payments
			return nil
		})
	}
	_ = g.Wait()

	report := &BatchReport{}
	var total int
	for i, w := range wallets {
		if errs[i] != nil {
			fe, ok := errs[i].(*apperrors.FetchError)
			if !ok {
				fe = apperrors.NewFetchError("payments", w.ID, errs[i])
			}
			report.Failed = append(report.Failed, fe)
			report.err = multierror.Append(report.err, fe)
			f.logger.Warn("skipping wallet payments", "wallet_id", w.ID, "error", errs[i])
			continue
		}
		total += len(results[i])
	}

	out := make([]RawPayment, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}

	f.logger.Debug("payments fetched",
		"wallets", len(wallets),
		"failed", len(report.Failed),
		"payments", len(out))

	return out, report
}
