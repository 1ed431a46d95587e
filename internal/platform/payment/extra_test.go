package payment_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/platform/payment"
)

func TestDecodeExtra(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want payment.Extra
	}{
		{
			name: "nested hints",
			raw:  `{"from":{"user":"alice-id","name":"Alice"},"to":{"user":"bob-id","wallet":"w2"},"tag":"zap"}`,
			want: payment.Extra{FromUserID: "alice-id", FromName: "Alice", ToUserID: "bob-id", ToWalletID: "w2", Tag: "zap"},
		},
		{
			name: "whole user objects",
			raw:  `{"from":{"id":"alice-id","displayName":"Alice Smith","email":"a@x"},"to":{"id":"bob-id"}}`,
			want: payment.Extra{FromUserID: "alice-id", FromName: "Alice Smith", ToUserID: "bob-id"},
		},
		{
			name: "string party is a name",
			raw:  `{"to":"Coffee Shop"}`,
			want: payment.Extra{ToName: "Coffee Shop"},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"lnurl":"x","to":{"user":"bob-id","extra":1}}`,
			want: payment.Extra{ToUserID: "bob-id"},
		},
		{name: "wrong field types", raw: `{"from":{"user":42},"tag":true}`},
		{name: "array", raw: `[1,2]`},
		{name: "null", raw: `null`},
		{name: "empty", raw: ``},
		{name: "broken json", raw: `{"from":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := payment.DecodeExtra(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeExtra_InvalidSidecarDropped(t *testing.T) {
	raw := `{"tag":"` + strings.Repeat("z", 65) + `","to":{"user":"bob-id"}}`

	got, err := payment.DecodeExtra(json.RawMessage(raw))
	require.Error(t, err)
	assert.True(t, got.IsZero())
}

func TestExtra_WireRoundTrip(t *testing.T) {
	e := payment.Extra{FromUserID: "a", FromName: "Alice", ToUserID: "b", ToWalletID: "w", Tag: payment.TagZap}

	raw, err := json.Marshal(e.Wire())
	require.NoError(t, err)

	got, err := payment.DecodeExtra(raw)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestExtra_Hints(t *testing.T) {
	assert.Equal(t, "Bob", payment.Extra{ToUserID: "bob-id", ToName: "Bob"}.ToHint())
	assert.Equal(t, "bob-id", payment.Extra{ToUserID: "bob-id"}.ToHint())
	assert.Equal(t, "", payment.Extra{}.FromHint())
}
