package transfer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid transfer request")
	ErrNoAllowanceWallet   = errors.New("sender has no allowance wallet")
	ErrNoPrivateWallet     = errors.New("recipient has no private wallet")
	ErrMissingKey          = errors.New("wallet key is missing")
	ErrInsufficientBalance = errors.New("insufficient allowance balance")
)

// Stage names the step of a transfer that failed
type Stage string

const (
	StageInvoice Stage = "invoice"
	StagePayment Stage = "payment"
)

// TransferError is a failed write. A payment-stage failure leaves the
// invoice in PaymentRequest unpaid; nothing is rolled back.
type TransferError struct {
	Stage          Stage
	PaymentRequest string
	Err            error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed at %s stage: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError checks if an error is (or wraps) a TransferError
func IsTransferError(err error) bool {
	var te *TransferError
	return errors.As(err, &te)
}
