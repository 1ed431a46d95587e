package payment

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a payment time normalised to epoch seconds. LNbits returns
// either a number or a string depending on version and endpoint.
type Timestamp struct {
	Epoch int64
	Valid bool
	Raw   string
}

// layouts without a zone are read as UTC
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Unix returns the epoch seconds, 0 when the value could not be parsed
func (t Timestamp) Unix() int64 {
	if !t.Valid {
		return 0
	}
	return t.Epoch
}

// Time returns the value as a UTC time.Time, the zero time when invalid
func (t Timestamp) Time() time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return time.Unix(t.Epoch, 0).UTC()
}

// Before reports whether t is strictly before the given instant.
// Invalid timestamps are never before anything so they survive filters.
func (t Timestamp) Before(since time.Time) bool {
	if !t.Valid || since.IsZero() {
		return false
	}
	return t.Epoch < since.Unix()
}

// UnixTimestamp builds a valid Timestamp from epoch seconds
func UnixTimestamp(sec int64) Timestamp {
	return Timestamp{Epoch: sec, Valid: true, Raw: strconv.FormatInt(sec, 10)}
}

// ParseTimestamp accepts a JSON number, a numeric string or an ISO-8601
// string. It never fails; unparseable input yields an invalid Timestamp.
func ParseTimestamp(raw json.RawMessage) Timestamp {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return Timestamp{}
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Timestamp{Raw: string(b)}
		}
		return ParseTimeString(s)
	}

	return parseNumber(string(b))
}

// ParseTimeString is ParseTimestamp for an already unquoted value
func ParseTimeString(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	if ts := parseNumber(s); ts.Valid {
		return ts
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Epoch: t.Unix(), Valid: true, Raw: s}
		}
	}
	return Timestamp{Raw: s}
}

func parseNumber(s string) Timestamp {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Epoch: n, Valid: true, Raw: s}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Timestamp{Raw: s}
	}
	return Timestamp{Epoch: int64(math.Floor(f)), Valid: true, Raw: s}
}

// UnmarshalJSON implements json.Unmarshaler and never returns an error
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = ParseTimestamp(b)
	return nil
}

// MarshalJSON writes epoch seconds, or null when invalid
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.Epoch, 10)), nil
}
