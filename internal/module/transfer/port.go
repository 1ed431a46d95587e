package transfer

import (
	"context"

	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
)

// Gateway performs the two LNbits writes of a transfer
type Gateway interface {
	// CreateInvoice creates an invoice for amountSats on the wallet owning inKey
	CreateInvoice(ctx context.Context, inKey string, amountSats int64, memo string, extra payment.Extra) (*Invoice, error)
	// PayInvoice pays bolt11 from the wallet owning adminKey
	PayInvoice(ctx context.Context, adminKey, bolt11 string, extra payment.Extra) (*Payment, error)
}

// Directory resolves users and their wallets. The snapshot may come from
// a cache without admin keys, so the sender's wallets are read with
// ListWallets. Invalidate is called after a transfer moved money so cached
// balances are not served again.
type Directory interface {
	Snapshot(ctx context.Context) (*directory.Snapshot, error)
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
	Invalidate(ctx context.Context)
}

// Recorder counts transfer attempts that reached LNbits
type Recorder interface {
	RecordTransfer(outcome string, amountSats int64)
}
