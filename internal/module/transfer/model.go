package transfer

import (
	"github.com/kislikjeka/zapfeed/internal/platform/user"
)

// Request is a zap from one user's allowance wallet to another user's
// private wallet.
type Request struct {
	FromUserID string `json:"from_user_id" validate:"required,max=128"`
	ToUserID   string `json:"to_user_id" validate:"required,max=128,nefield=FromUserID"`
	AmountSats int64  `json:"amount_sats" validate:"gt=0"`
	Memo       string `json:"memo" validate:"max=639"`
}

// Invoice is a bolt11 invoice created on the receiving wallet
type Invoice struct {
	PaymentRequest string
	PaymentHash    string
	CheckingID     string
}

// Payment is the settled outgoing side
type Payment struct {
	PaymentHash string
	CheckingID  string
}

// Result describes a completed transfer
type Result struct {
	From           *user.User `json:"from,omitempty"`
	To             *user.User `json:"to,omitempty"`
	FromWalletID   string     `json:"from_wallet_id"`
	ToWalletID     string     `json:"to_wallet_id"`
	AmountSats     int64      `json:"amount_sats"`
	Memo           string     `json:"memo"`
	PaymentRequest string     `json:"payment_request"`
	PaymentHash    string     `json:"payment_hash"`
	CheckingID     string     `json:"checking_id,omitempty"`
}
