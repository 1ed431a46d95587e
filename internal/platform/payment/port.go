package payment

import "context"

// Source lists payments for one wallet. apiKey is the wallet's invoice key;
// limit bounds the server-side page.
type Source interface {
	ListPayments(ctx context.Context, apiKey string, limit int) ([]RawPayment, error)
}
