package allowance

import (
	"context"

	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
)

// Directory reads users and fresh wallet balances
type Directory interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
}

// Transferer moves a cleared balance to the host wallet
type Transferer interface {
	SendTransfer(ctx context.Context, from, to wallet.Wallet, amountSats int64, memo string, extra payment.Extra) (*transfer.Result, error)
}

// TopUpper credits a wallet from the LNbits admin account
type TopUpper interface {
	TopUp(ctx context.Context, walletID string, amountSats int64) error
}

// Recorder counts the results of a run
type Recorder interface {
	RecordAllowance(toppedUp int, failedStages []string)
}
