package lnbits

import (
	"bytes"
	"encoding/json"
)

// AuthRequest is the body of POST /api/v1/auth
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the body returned by POST /api/v1/auth
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// UserData is one account from the users extension
type UserData struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Extra    UserExtra `json:"extra"`
}

// UserExtra holds the custom fields the Teams app stores on each account
type UserExtra struct {
	AADObjectID       string `json:"aadObjectId"`
	DisplayName       string `json:"displayName"`
	Type              string `json:"type"`
	PrivateWalletID   string `json:"privateWalletId"`
	AllowanceWalletID string `json:"allowanceWalletId"`
}

// UnmarshalJSON tolerates a null or non-object extra
func (e *UserExtra) UnmarshalJSON(b []byte) error {
	type plain UserExtra
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		*e = UserExtra{}
		return nil
	}
	*e = UserExtra(p)
	return nil
}

// UserList accepts both {"data":[...]} and a bare array
type UserList []UserData

func (l *UserList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var users []UserData
		if err := json.Unmarshal(b, &users); err != nil {
			return err
		}
		*l = users
		return nil
	}

	var page struct {
		Data  []UserData `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	*l = page.Data
	return nil
}

// WalletData is one wallet from GET /users/api/v1/user/{id}/wallet
type WalletData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	User        string `json:"user"`
	AdminKey    string `json:"adminkey"`
	InKey       string `json:"inkey"`
	BalanceMsat int64  `json:"balance_msat"`
	Deleted     bool   `json:"deleted"`
}

// PaymentData is one row of GET /api/v1/payments. Time and Extra vary in
// shape between LNbits versions and are decoded by the adapter.
type PaymentData struct {
	CheckingID  string          `json:"checking_id"`
	PaymentHash string          `json:"payment_hash"`
	WalletID    string          `json:"wallet_id"`
	Amount      int64           `json:"amount"`
	Memo        string          `json:"memo"`
	Time        json.RawMessage `json:"time"`
	Extra       json.RawMessage `json:"extra"`
	Bolt11      string          `json:"bolt11"`
	Pending     bool            `json:"pending"`
	Status      string          `json:"status"`
}

// CreateInvoiceRequest is POST /api/v1/payments with out=false. Amount is in sats.
type CreateInvoiceRequest struct {
	Out    bool           `json:"out"`
	Amount int64          `json:"amount"`
	Memo   string         `json:"memo"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// CreateInvoiceResponse carries the bolt11 string. Newer servers call it bolt11.
type CreateInvoiceResponse struct {
	PaymentRequest string `json:"payment_request"`
	Bolt11         string `json:"bolt11"`
	PaymentHash    string `json:"payment_hash"`
	CheckingID     string `json:"checking_id"`
}

// PayInvoiceRequest is POST /api/v1/payments with out=true
type PayInvoiceRequest struct {
	Out    bool           `json:"out"`
	Bolt11 string         `json:"bolt11"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// PayInvoiceResponse is returned for a settled payment
type PayInvoiceResponse struct {
	PaymentHash string `json:"payment_hash"`
	CheckingID  string `json:"checking_id"`
}

// TopUpRequest is PUT /users/api/v1/topup. Amount is sats, sent as a string.
type TopUpRequest struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}
