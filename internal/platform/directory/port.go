package directory

import (
	"context"

	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
)

// Source reads accounts and wallets from LNbits
type Source interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	// ListWallets returns every wallet of the user, deleted ones included
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
}

// Cache stores a complete directory snapshot for a short time.
// Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, snap *Snapshot) error
	Invalidate(ctx context.Context) error
}
