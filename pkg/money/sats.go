// Package money converts between LNbits millisatoshi amounts and the sat
// values shown to people.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MsatPerSat is the number of millisatoshis in one satoshi.
const MsatPerSat = 1000

var msatPerSat = decimal.NewFromInt(MsatPerSat)

// MsatToSats truncates toward negative infinity, so -5500 msat is -6 sats.
func MsatToSats(msat int64) int64 {
	return decimal.NewFromInt(msat).Div(msatPerSat).Floor().IntPart()
}

// DisplaySats is |floor(msat/1000)|, the amount the feed shows for a transfer.
func DisplaySats(msat int64) int64 {
	return decimal.NewFromInt(msat).Div(msatPerSat).Floor().Abs().IntPart()
}

// SatsToMsat converts whole sats to msat.
func SatsToMsat(sats int64) int64 {
	return decimal.NewFromInt(sats).Mul(msatPerSat).IntPart()
}

// FormatSats renders msat as a sat amount with up to three decimals, e.g. "12.5".
func FormatSats(msat int64) string {
	return decimal.NewFromInt(msat).Div(msatPerSat).String()
}

// ParseSats parses a human sat amount ("25000", "12.5") into msat.
// Fractions below one msat are rejected.
func ParseSats(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid sat amount %q: %w", s, err)
	}
	msat := d.Mul(msatPerSat)
	if !msat.Equal(msat.Truncate(0)) {
		return 0, fmt.Errorf("invalid sat amount %q: more precise than 1 msat", s)
	}
	return msat.IntPart(), nil
}
