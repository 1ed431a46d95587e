package feed

import (
	"context"
	"time"

	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
)

// Directory provides the users and wallets of one feed computation
type Directory interface {
	Snapshot(ctx context.Context) (*directory.Snapshot, error)
	FindUserByAADObjectID(ctx context.Context, aad string) (*directory.Snapshot, *user.User, error)
}

// PaymentFetcher reads payments for many wallets, skipping failures
type PaymentFetcher interface {
	FetchBatch(ctx context.Context, wallets []wallet.Wallet, since time.Time) ([]payment.RawPayment, *payment.BatchReport)
}

// Recorder counts feed computations
type Recorder interface {
	RecordFeed(outcome string, warnings int)
}
