package payment

// InternalMarker prefixes the credit-side checking id of an internal transfer
const InternalMarker = "internal_"

// RawPayment is one payment row as LNbits reports it for a single wallet.
// Amount is signed millisatoshis: negative is a debit from WalletID.
type RawPayment struct {
	CheckingID  string    `json:"checking_id"`
	PaymentHash string    `json:"payment_hash,omitempty"`
	WalletID    string    `json:"wallet_id"`
	Amount      int64     `json:"amount"`
	Memo        string    `json:"memo"`
	Time        Timestamp `json:"time"`
	Extra       Extra     `json:"extra"`
	Bolt11      string    `json:"bolt11,omitempty"`
	Pending     bool      `json:"pending"`
}

// IsDebit reports whether the payment left its wallet
func (p *RawPayment) IsDebit() bool {
	return p.Amount < 0
}

// IsIncoming reports whether the payment credited its wallet
func (p *RawPayment) IsIncoming() bool {
	return p.Amount > 0
}
