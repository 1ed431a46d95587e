package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	"github.com/kislikjeka/zapfeed/internal/shared/validation"
	"github.com/kislikjeka/zapfeed/pkg/logger"
	"github.com/kislikjeka/zapfeed/pkg/money"
)

// Service moves sats between wallets as invoice-then-payment
type Service struct {
	gateway   Gateway
	directory Directory
	metrics   Recorder
	logger    *logger.Logger
}

// NewService creates a transfer service
func NewService(gateway Gateway, dir Directory, log *logger.Logger) *Service {
	return &Service{
		gateway:   gateway,
		directory: dir,
		logger:    log.WithField("component", "transfer"),
	}
}

// SetMetrics records every transfer attempt
func (s *Service) SetMetrics(m Recorder) {
	s.metrics = m
}

func (s *Service) record(outcome string, amountSats int64) {
	if s.metrics != nil {
		s.metrics.RecordTransfer(outcome, amountSats)
	}
}

// Send zaps AmountSats from the sender's allowance wallet to the
// recipient's private wallet.
func (s *Service) Send(ctx context.Context, req Request) (*Result, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	snap, err := s.directory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load directory: %w", err)
	}

	from := snap.User(req.FromUserID)
	if from == nil {
		return nil, fmt.Errorf("sender %q: %w", req.FromUserID, user.ErrUserNotFound)
	}
	to := snap.User(req.ToUserID)
	if to == nil {
		return nil, fmt.Errorf("recipient %q: %w", req.ToUserID, user.ErrUserNotFound)
	}

	senderWallets, err := s.directory.ListWallets(ctx, from.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender wallets: %w", err)
	}
	fromWallet, ok := wallet.FindByRole(senderWallets, wallet.RoleAllowance)
	if !ok {
		return nil, ErrNoAllowanceWallet
	}
	toWallet, ok := wallet.FindByRole(snap.WalletsOf(to.ID), wallet.RolePrivate)
	if !ok {
		return nil, ErrNoPrivateWallet
	}

	if fromWallet.BalanceMsat < money.SatsToMsat(req.AmountSats) {
		return nil, fmt.Errorf("%w: have %s sats, need %d",
			ErrInsufficientBalance, money.FormatSats(fromWallet.BalanceMsat), req.AmountSats)
	}

	extra := payment.Extra{
		FromUserID:   from.ID,
		FromWalletID: fromWallet.ID,
		FromName:     from.DisplayName,
		ToUserID:     to.ID,
		ToWalletID:   toWallet.ID,
		ToName:       to.DisplayName,
		Tag:          payment.TagZap,
	}

	result, err := s.SendTransfer(ctx, fromWallet, toWallet, req.AmountSats, req.Memo, extra)
	if err != nil {
		return nil, err
	}
	result.From = from
	result.To = to
	return result, nil
}

// SendTransfer creates an invoice on the receiving wallet and pays it from
// the sending wallet. The two calls are not atomic: when payment fails the
// returned *TransferError carries the orphaned invoice.
func (s *Service) SendTransfer(ctx context.Context, from, to wallet.Wallet, amountSats int64, memo string, extra payment.Extra) (*Result, error) {
	if amountSats <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if from.AdminKey == "" || to.InKey == "" {
		return nil, ErrMissingKey
	}

	start := time.Now()
	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"from_wallet_id": from.ID,
		"to_wallet_id":   to.ID,
		"amount_sats":    amountSats,
	})

	invoice, err := s.gateway.CreateInvoice(ctx, to.InKey, amountSats, memo, extra)
	if err != nil {
		log.Error("invoice creation failed", "error", err)
		s.record("error", amountSats)
		return nil, &TransferError{Stage: StageInvoice, Err: err}
	}

	paid, err := s.gateway.PayInvoice(ctx, from.AdminKey, invoice.PaymentRequest, extra)
	if err != nil {
		log.Error("invoice payment failed, invoice left unpaid",
			"payment_hash", invoice.PaymentHash,
			"error", err)
		s.record("error", amountSats)
		return nil, &TransferError{Stage: StagePayment, PaymentRequest: invoice.PaymentRequest, Err: err}
	}

	log.WithDuration(time.Since(start)).Info("transfer completed", "payment_hash", paid.PaymentHash)
	s.record("success", amountSats)
	s.directory.Invalidate(ctx)

	hash := paid.PaymentHash
	if hash == "" {
		hash = invoice.PaymentHash
	}
	return &Result{
		FromWalletID:   from.ID,
		ToWalletID:     to.ID,
		AmountSats:     amountSats,
		Memo:           memo,
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    hash,
		CheckingID:     paid.CheckingID,
	}, nil
}
