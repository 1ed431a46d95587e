package allowance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/module/allowance"
	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// =============================================================================
// Mocks
// =============================================================================

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListUsers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockDirectory) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Wallet), args.Error(1)
}

type MockTransferer struct {
	mock.Mock
}

func (m *MockTransferer) SendTransfer(ctx context.Context, from, to wallet.Wallet, amountSats int64, memo string, extra payment.Extra) (*transfer.Result, error) {
	args := m.Called(ctx, from, to, amountSats, memo, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Result), args.Error(1)
}

type MockTopUpper struct {
	mock.Mock
}

func (m *MockTopUpper) TopUp(ctx context.Context, walletID string, amountSats int64) error {
	return m.Called(ctx, walletID, amountSats).Error(0)
}

var (
	_ allowance.Directory  = (*MockDirectory)(nil)
	_ allowance.Transferer = (*MockTransferer)(nil)
	_ allowance.TopUpper   = (*MockTopUpper)(nil)
)

// =============================================================================
// Fixtures
// =============================================================================

var hostWallet = wallet.Wallet{ID: "H", Name: "Host", UserID: "host", InKey: "host-in"}

func testConfig() *allowance.Config {
	return &allowance.Config{
		Interval:     time.Hour,
		AmountSats:   25000,
		HostUserID:   "host",
		HostWalletID: "H",
		Enabled:      true,
	}
}

func newJob(dir *MockDirectory, tr *MockTransferer, tu *MockTopUpper) *allowance.Job {
	return allowance.NewJob(testConfig(), dir, tr, tu, logger.Discard())
}

// =============================================================================
// Tests
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	cfg := allowance.DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.HostUserID, cfg.HostWalletID = "host", "H"
	cfg.Interval = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 7*24*time.Hour, cfg.Interval)

	cfg.AmountSats = 0
	assert.Error(t, cfg.Validate())
}

func TestRunOnce_ClearsThenTopsUp(t *testing.T) {
	ctx := context.Background()
	alice := user.User{ID: "alice", DisplayName: "Alice"}
	aliceAllowance := wallet.Wallet{ID: "A", Name: "Allowance", UserID: "alice", AdminKey: "a-admin", BalanceMsat: 1_500_999}

	dir := new(MockDirectory)
	dir.On("ListWallets", ctx, "host").Return([]wallet.Wallet{hostWallet}, nil)
	dir.On("ListUsers", ctx).Return([]user.User{alice}, nil)
	dir.On("ListWallets", ctx, "alice").Return([]wallet.Wallet{
		{ID: "AP", Name: "Private", UserID: "alice"},
		aliceAllowance,
	}, nil)

	wantExtra := payment.Extra{
		FromUserID:   "alice",
		FromWalletID: "A",
		FromName:     "Alice",
		ToUserID:     "host",
		ToWalletID:   "H",
		Tag:          payment.TagZap,
	}
	tr := new(MockTransferer)
	tr.On("SendTransfer", ctx, aliceAllowance, hostWallet, int64(1500), "Alice Weekly Allowance cleared", wantExtra).
		Return(&transfer.Result{PaymentHash: "h"}, nil)

	tu := new(MockTopUpper)
	tu.On("TopUp", ctx, "A", int64(25000)).Return(nil)

	report, err := newJob(dir, tr, tu).RunOnce(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, 1, report.Wallets)
	assert.Equal(t, 1, report.Cleared)
	assert.Equal(t, int64(1500), report.ClearedSats)
	assert.Equal(t, 1, report.ToppedUp)
	tr.AssertExpectations(t)
	tu.AssertExpectations(t)
}

func TestRunOnce_EmptyWalletIsOnlyToppedUp(t *testing.T) {
	ctx := context.Background()
	dir := new(MockDirectory)
	dir.On("ListWallets", ctx, "host").Return([]wallet.Wallet{hostWallet}, nil)
	dir.On("ListUsers", ctx).Return([]user.User{{ID: "bob", DisplayName: "Bob"}}, nil)
	// 999 msat is below one sat
	dir.On("ListWallets", ctx, "bob").Return([]wallet.Wallet{{ID: "B", Name: "allowance", BalanceMsat: 999}}, nil)

	tr := new(MockTransferer)
	tu := new(MockTopUpper)
	tu.On("TopUp", ctx, "B", int64(25000)).Return(nil)

	report, err := newJob(dir, tr, tu).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Cleared)
	assert.Equal(t, 1, report.ToppedUp)
	tr.AssertNumberOfCalls(t, "SendTransfer", 0)
}

func TestRunOnce_FailuresDoNotStopTheRun(t *testing.T) {
	ctx := context.Background()
	dir := new(MockDirectory)
	dir.On("ListWallets", ctx, "host").Return([]wallet.Wallet{hostWallet}, nil)
	dir.On("ListUsers", ctx).Return([]user.User{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
		{ID: "carol", DisplayName: "Carol"},
		{ID: "dave", DisplayName: "Dave"},
	}, nil)
	dir.On("ListWallets", ctx, "alice").Return(nil, errors.New("timeout"))
	dir.On("ListWallets", ctx, "bob").Return([]wallet.Wallet{{ID: "B", Name: "Allowance", AdminKey: "b", BalanceMsat: 5000}}, nil)
	dir.On("ListWallets", ctx, "carol").Return([]wallet.Wallet{{ID: "C", Name: "Allowance", AdminKey: "c"}}, nil)
	dir.On("ListWallets", ctx, "dave").Return([]wallet.Wallet{{ID: "D", Name: "Private"}}, nil)

	tr := new(MockTransferer)
	tr.On("SendTransfer", ctx, mock.Anything, hostWallet, int64(5), "Bob Weekly Allowance cleared", mock.Anything).
		Return(nil, &transfer.TransferError{Stage: transfer.StagePayment, Err: errors.New("route")})

	tu := new(MockTopUpper)
	tu.On("TopUp", ctx, "C", int64(25000)).Return(errors.New("forbidden"))

	report, err := newJob(dir, tr, tu).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Wallets, "dave has no allowance wallet")
	require.Len(t, report.Failures, 3)
	assert.Equal(t, allowance.StageWallets, report.Failures[0].Stage)
	assert.Equal(t, allowance.StageClear, report.Failures[1].Stage)
	assert.True(t, transfer.IsTransferError(report.Failures[1]))
	assert.Equal(t, allowance.StageTopUp, report.Failures[2].Stage)
	assert.Error(t, report.Err())

	// an uncleared wallet is not topped up
	tu.AssertNotCalled(t, "TopUp", ctx, "B", int64(25000))
}

func TestRunOnce_HostWalletMissing(t *testing.T) {
	ctx := context.Background()
	dir := new(MockDirectory)
	dir.On("ListWallets", ctx, "host").Return([]wallet.Wallet{{ID: "other", InKey: "x"}}, nil)

	_, err := newJob(dir, new(MockTransferer), new(MockTopUpper)).RunOnce(ctx)
	assert.ErrorIs(t, err, allowance.ErrHostWalletNotFound)
	dir.AssertNotCalled(t, "ListUsers", ctx)
}

func TestRunOnce_UserListFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	dir := new(MockDirectory)
	dir.On("ListWallets", ctx, "host").Return([]wallet.Wallet{hostWallet}, nil)
	dir.On("ListUsers", ctx).Return(nil, errors.New("down"))

	_, err := newJob(dir, new(MockTransferer), new(MockTopUpper)).RunOnce(ctx)
	assert.Error(t, err)
}

func TestClearingMemo_IsHousekeeping(t *testing.T) {
	memo := allowance.ClearingMemo(&user.User{ID: "u1", DisplayName: "Jane Doe"})
	assert.Equal(t, "Jane Doe Weekly Allowance cleared", memo)
	assert.True(t, reconcile.IsHousekeeping(&payment.RawPayment{Memo: memo}))
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	job := allowance.NewJob(cfg, new(MockDirectory), new(MockTransferer), new(MockTopUpper), logger.Discard())

	done := make(chan struct{})
	go func() {
		job.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled job did not return")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	job := newJob(new(MockDirectory), new(MockTransferer), new(MockTopUpper))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
	job.Stop()
}

func TestRun_CanRestartAfterStop(t *testing.T) {
	job := newJob(new(MockDirectory), new(MockTransferer), new(MockTopUpper))

	for round := 0; round < 2; round++ {
		done := make(chan struct{})
		go func() {
			job.Run(context.Background())
			close(done)
		}()

		require.Eventually(t, job.Running, time.Second, 5*time.Millisecond)
		select {
		case <-done:
			t.Fatalf("round %d: job returned before Stop", round)
		case <-time.After(50 * time.Millisecond):
		}

		job.Stop()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("round %d: job did not stop", round)
		}
		assert.False(t, job.Running())
	}
}
