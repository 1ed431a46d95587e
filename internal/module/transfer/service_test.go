package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// =============================================================================
// Mocks
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateInvoice(ctx context.Context, inKey string, amountSats int64, memo string, extra payment.Extra) (*transfer.Invoice, error) {
	args := m.Called(ctx, inKey, amountSats, memo, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Invoice), args.Error(1)
}

func (m *MockGateway) PayInvoice(ctx context.Context, adminKey, bolt11 string, extra payment.Extra) (*transfer.Payment, error) {
	args := m.Called(ctx, adminKey, bolt11, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Payment), args.Error(1)
}

var _ transfer.Gateway = (*MockGateway)(nil)

// staticDirectory serves snap; live overrides the wallets returned by
// ListWallets, as a fresh read would
type staticDirectory struct {
	snap          *directory.Snapshot
	live          map[string][]wallet.Wallet
	err           error
	walletsErr    error
	invalidations *int
}

func (d staticDirectory) Snapshot(ctx context.Context) (*directory.Snapshot, error) {
	return d.snap, d.err
}

func (d staticDirectory) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	if d.walletsErr != nil {
		return nil, d.walletsErr
	}
	if w, ok := d.live[userID]; ok {
		return w, nil
	}
	return d.snap.WalletsOf(userID), nil
}

func (d staticDirectory) Invalidate(ctx context.Context) {
	if d.invalidations != nil {
		*d.invalidations++
	}
}

func testSnapshot() *directory.Snapshot {
	return &directory.Snapshot{
		Users: []user.User{
			{ID: "alice", DisplayName: "Alice"},
			{ID: "bob", DisplayName: "Bob"},
			{ID: "carol", DisplayName: "Carol"},
		},
		Wallets: map[string][]wallet.Wallet{
			"alice": {
				{ID: "a-allow", Name: "Allowance", UserID: "alice", AdminKey: "a-admin", InKey: "a-in", BalanceMsat: 10_000_000},
				{ID: "a-priv", Name: "Private", UserID: "alice", AdminKey: "a-padmin", InKey: "a-pin"},
			},
			"bob": {
				{ID: "b-priv", Name: "Private", UserID: "bob", AdminKey: "b-admin", InKey: "b-in"},
			},
			"carol": {
				{ID: "c-allow", Name: "Allowance", UserID: "carol", AdminKey: "c-admin", InKey: "c-in"},
			},
		},
	}
}

func newService(gw transfer.Gateway) *transfer.Service {
	return transfer.NewService(gw, staticDirectory{snap: testSnapshot()}, logger.Discard())
}

// =============================================================================
// Send
// =============================================================================

func TestSend_Success(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(500), "thanks", mock.MatchedBy(func(e payment.Extra) bool {
		return e.FromUserID == "alice" && e.ToUserID == "bob" && e.ToWalletID == "b-priv" && e.Tag == payment.TagZap
	})).Return(&transfer.Invoice{PaymentRequest: "lnbc1", PaymentHash: "h1"}, nil)
	gw.On("PayInvoice", mock.Anything, "a-admin", "lnbc1", mock.Anything).
		Return(&transfer.Payment{PaymentHash: "h1", CheckingID: "h1"}, nil)

	res, err := newService(gw).Send(context.Background(), transfer.Request{
		FromUserID: "alice",
		ToUserID:   "bob",
		AmountSats: 500,
		Memo:       "thanks",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", res.From.DisplayName)
	assert.Equal(t, "Bob", res.To.DisplayName)
	assert.Equal(t, "a-allow", res.FromWalletID)
	assert.Equal(t, "b-priv", res.ToWalletID)
	assert.Equal(t, "lnbc1", res.PaymentRequest)
	assert.Equal(t, "h1", res.PaymentHash)
	gw.AssertExpectations(t)
}

func TestSend_InvalidatesDirectoryOnlyOnSuccess(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(1), "", mock.Anything).
		Return(&transfer.Invoice{PaymentRequest: "lnbc1"}, nil).Once()
	gw.On("PayInvoice", mock.Anything, "a-admin", "lnbc1", mock.Anything).
		Return(&transfer.Payment{PaymentHash: "h1"}, nil).Once()
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(2), "", mock.Anything).
		Return(nil, errors.New("wallet locked")).Once()

	var invalidations int
	svc := transfer.NewService(gw, staticDirectory{snap: testSnapshot(), invalidations: &invalidations}, logger.Discard())
	rec := &outcomeRecorder{}
	svc.SetMetrics(rec)

	_, err := svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 1})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 2})
	require.Error(t, err)

	assert.Equal(t, 1, invalidations)
	assert.Equal(t, []string{"success", "error"}, rec.outcomes)
}

type outcomeRecorder struct {
	outcomes []string
}

func (r *outcomeRecorder) RecordTransfer(outcome string, amountSats int64) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestSend_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  transfer.Request
	}{
		{"missing sender", transfer.Request{ToUserID: "bob", AmountSats: 1}},
		{"missing recipient", transfer.Request{FromUserID: "alice", AmountSats: 1}},
		{"self transfer", transfer.Request{FromUserID: "alice", ToUserID: "alice", AmountSats: 1}},
		{"zero amount", transfer.Request{FromUserID: "alice", ToUserID: "bob"}},
		{"negative amount", transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			_, err := newService(gw).Send(context.Background(), tt.req)
			assert.ErrorIs(t, err, transfer.ErrInvalidRequest)
			gw.AssertNumberOfCalls(t, "CreateInvoice", 0)
		})
	}
}

func TestSend_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		req  transfer.Request
		want error
	}{
		{"unknown sender", transfer.Request{FromUserID: "zed", ToUserID: "bob", AmountSats: 1}, user.ErrUserNotFound},
		{"unknown recipient", transfer.Request{FromUserID: "alice", ToUserID: "zed", AmountSats: 1}, user.ErrUserNotFound},
		{"sender without allowance", transfer.Request{FromUserID: "bob", ToUserID: "alice", AmountSats: 1}, transfer.ErrNoAllowanceWallet},
		{"recipient without private", transfer.Request{FromUserID: "alice", ToUserID: "carol", AmountSats: 1}, transfer.ErrNoPrivateWallet},
		{"insufficient balance", transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 10_001}, transfer.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			_, err := newService(gw).Send(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			gw.AssertNumberOfCalls(t, "CreateInvoice", 0)
		})
	}
}

func TestSend_DirectoryFailure(t *testing.T) {
	svc := transfer.NewService(new(MockGateway), staticDirectory{err: errors.New("down")}, logger.Discard())

	_, err := svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}

// =============================================================================
// SendTransfer stage errors
// =============================================================================

func TestSendTransfer_InvoiceStageFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(10), "", mock.Anything).Return(nil, errors.New("400"))

	from := wallet.Wallet{ID: "a", AdminKey: "a-admin"}
	to := wallet.Wallet{ID: "b", InKey: "b-in"}
	_, err := newService(gw).SendTransfer(context.Background(), from, to, 10, "", payment.Extra{})

	var te *transfer.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, transfer.StageInvoice, te.Stage)
	assert.Empty(t, te.PaymentRequest)
	gw.AssertNumberOfCalls(t, "PayInvoice", 0)
}

func TestSendTransfer_PaymentStageFailureCarriesInvoice(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(10), "hi", mock.Anything).
		Return(&transfer.Invoice{PaymentRequest: "lnbc-orphan"}, nil)
	gw.On("PayInvoice", mock.Anything, "a-admin", "lnbc-orphan", mock.Anything).
		Return(nil, errors.New("insufficient funds"))

	from := wallet.Wallet{ID: "a", AdminKey: "a-admin"}
	to := wallet.Wallet{ID: "b", InKey: "b-in"}
	_, err := newService(gw).SendTransfer(context.Background(), from, to, 10, "hi", payment.Extra{})

	require.True(t, transfer.IsTransferError(err))
	var te *transfer.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, transfer.StagePayment, te.Stage)
	assert.Equal(t, "lnbc-orphan", te.PaymentRequest)
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestSendTransfer_MissingKeys(t *testing.T) {
	gw := new(MockGateway)
	_, err := newService(gw).SendTransfer(context.Background(), wallet.Wallet{ID: "a"}, wallet.Wallet{ID: "b", InKey: "x"}, 1, "", payment.Extra{})
	assert.ErrorIs(t, err, transfer.ErrMissingKey)
}

func TestSend_PaysWithFreshSenderWallet(t *testing.T) {
	// a cached snapshot carries no admin keys
	cached := testSnapshot()
	for userID, wallets := range cached.Wallets {
		for i := range wallets {
			cached.Wallets[userID][i].AdminKey = ""
		}
	}
	live := map[string][]wallet.Wallet{
		"alice": {{ID: "a-allow", Name: "Allowance", UserID: "alice", AdminKey: "a-admin-live", InKey: "a-in", BalanceMsat: 2_000}},
	}

	gw := new(MockGateway)
	gw.On("CreateInvoice", mock.Anything, "b-in", int64(2), "", mock.Anything).
		Return(&transfer.Invoice{PaymentRequest: "lnbc2"}, nil).Once()
	gw.On("PayInvoice", mock.Anything, "a-admin-live", "lnbc2", mock.Anything).
		Return(&transfer.Payment{PaymentHash: "h2"}, nil).Once()

	svc := transfer.NewService(gw, staticDirectory{snap: cached, live: live}, logger.Discard())
	res, err := svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 2})
	require.NoError(t, err)
	assert.Equal(t, "h2", res.PaymentHash)
	gw.AssertExpectations(t)

	// the live balance decides, not the cached one
	_, err = svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 3})
	assert.ErrorIs(t, err, transfer.ErrInsufficientBalance)
}

func TestSend_SenderWalletReadFailure(t *testing.T) {
	svc := transfer.NewService(new(MockGateway),
		staticDirectory{snap: testSnapshot(), walletsErr: errors.New("timeout")}, logger.Discard())

	_, err := svc.Send(context.Background(), transfer.Request{FromUserID: "alice", ToUserID: "bob", AmountSats: 1})
	assert.ErrorContains(t, err, "timeout")
}
