package lnbits

import (
	"context"

	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// Adapter converts LNbits wire types into domain types
type Adapter struct {
	client *Client
	logger *logger.Logger
}

// Compile-time checks that Adapter serves every consumer
var (
	_ directory.Source = (*Adapter)(nil)
	_ payment.Source   = (*Adapter)(nil)
	_ transfer.Gateway = (*Adapter)(nil)
)

// NewAdapter creates a new LNbits adapter
func NewAdapter(client *Client, log *logger.Logger) *Adapter {
	return &Adapter{client: client, logger: log.WithField("component", "lnbits_adapter")}
}

// ListUsers fetches all accounts as domain users
func (a *Adapter) ListUsers(ctx context.Context) ([]user.User, error) {
	data, err := a.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]user.User, 0, len(data))
	for _, d := range data {
		if d.ID == "" {
			continue
		}
		users = append(users, convertUser(d))
	}
	return users, nil
}

// ListWallets fetches one user's wallets, tombstones included
func (a *Adapter) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	data, err := a.client.ListUserWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	wallets := make([]wallet.Wallet, 0, len(data))
	for _, d := range data {
		w := convertWallet(d)
		if w.UserID == "" {
			w.UserID = userID
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// ListPayments fetches one wallet's payments
func (a *Adapter) ListPayments(ctx context.Context, apiKey string, limit int) ([]payment.RawPayment, error) {
	data, err := a.client.ListPayments(ctx, apiKey, limit)
	if err != nil {
		return nil, err
	}

	payments := make([]payment.RawPayment, 0, len(data))
	for _, d := range data {
		payments = append(payments, a.convertPayment(d))
	}
	return payments, nil
}

// CreateInvoice creates an incoming invoice for amountSats
func (a *Adapter) CreateInvoice(ctx context.Context, inKey string, amountSats int64, memo string, extra payment.Extra) (*transfer.Invoice, error) {
	resp, err := a.client.CreateInvoice(ctx, inKey, CreateInvoiceRequest{
		Amount: amountSats,
		Memo:   memo,
		Extra:  extra.Wire(),
	})
	if err != nil {
		return nil, err
	}
	return &transfer.Invoice{
		PaymentRequest: resp.PaymentRequest,
		PaymentHash:    resp.PaymentHash,
		CheckingID:     resp.CheckingID,
	}, nil
}

// PayInvoice pays bolt11 from the wallet owning adminKey
func (a *Adapter) PayInvoice(ctx context.Context, adminKey, bolt11 string, extra payment.Extra) (*transfer.Payment, error) {
	resp, err := a.client.PayInvoice(ctx, adminKey, PayInvoiceRequest{
		Bolt11: bolt11,
		Extra:  extra.Wire(),
	})
	if err != nil {
		return nil, err
	}
	return &transfer.Payment{PaymentHash: resp.PaymentHash, CheckingID: resp.CheckingID}, nil
}

// TopUp credits a wallet
func (a *Adapter) TopUp(ctx context.Context, walletID string, amountSats int64) error {
	return a.client.TopUp(ctx, walletID, amountSats)
}

// Ping checks LNbits reachability through the token endpoint
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func convertUser(d UserData) user.User {
	name := d.Extra.DisplayName
	if name == "" {
		name = d.Name
	}
	if name == "" {
		name = user.DeriveDisplayName(d.Username, d.ID)
	}
	return user.User{
		ID:          d.ID,
		Username:    d.Username,
		DisplayName: name,
		Email:       d.Email,
		AADObjectID: d.Extra.AADObjectID,
		Type:        user.ParseType(d.Extra.Type),
	}
}

func convertWallet(d WalletData) wallet.Wallet {
	return wallet.Wallet{
		ID:          d.ID,
		Name:        d.Name,
		UserID:      d.User,
		InKey:       d.InKey,
		AdminKey:    d.AdminKey,
		BalanceMsat: d.BalanceMsat,
		Deleted:     d.Deleted,
	}
}

func (a *Adapter) convertPayment(d PaymentData) payment.RawPayment {
	extra, err := payment.DecodeExtra(d.Extra)
	if err != nil {
		a.logger.Warn("dropping invalid payment extra", "checking_id", d.CheckingID, "error", err)
	}

	ts := payment.ParseTimestamp(d.Time)
	if !ts.Valid && len(d.Time) > 0 {
		a.logger.Debug("unparseable payment time", "checking_id", d.CheckingID, "time", string(d.Time))
	}

	return payment.RawPayment{
		CheckingID:  d.CheckingID,
		PaymentHash: d.PaymentHash,
		WalletID:    d.WalletID,
		Amount:      d.Amount,
		Memo:        d.Memo,
		Time:        ts,
		Extra:       extra,
		Bolt11:      d.Bolt11,
		Pending:     d.Pending || d.Status == "pending",
	}
}
