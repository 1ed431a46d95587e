package reconcile

import (
	"strings"

	"github.com/kislikjeka/zapfeed/internal/platform/payment"
)

// HousekeepingMarker appears in the memo of allowance-clearing payments
const HousekeepingMarker = "Weekly Allowance cleared"

// StripInternalMarker returns the id both rows of an internal transfer
// share. LNbits prefixes the credit row's checking id with "internal_".
func StripInternalMarker(checkingID string) string {
	return strings.TrimPrefix(strings.TrimSpace(checkingID), payment.InternalMarker)
}

// IsHousekeeping reports whether the payment was made by the allowance
// clearing job rather than by a person.
func IsHousekeeping(p *payment.RawPayment) bool {
	return strings.Contains(p.Memo, HousekeepingMarker)
}

// NormalizeTime returns the epoch-seconds sort key and whether the payment
// time was parseable. Unparseable times sort as 0.
func NormalizeTime(p *payment.RawPayment) (int64, bool) {
	return p.Time.Unix(), p.Time.Valid
}
