package payment

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kislikjeka/zapfeed/internal/shared/validation"
)

// TagZap marks payments created by the zap flow
const TagZap = "zap"

// Extra is the structured form of the free-form LNbits `extra` object.
// The payment-creation path fills it unreliably, so every field is a hint.
type Extra struct {
	FromUserID   string `json:"from_user_id,omitempty" validate:"max=128"`
	FromWalletID string `json:"from_wallet_id,omitempty" validate:"max=128"`
	FromName     string `json:"from_name,omitempty" validate:"max=256"`
	ToUserID     string `json:"to_user_id,omitempty" validate:"max=128"`
	ToWalletID   string `json:"to_wallet_id,omitempty" validate:"max=128"`
	ToName       string `json:"to_name,omitempty" validate:"max=256"`
	Tag          string `json:"tag,omitempty" validate:"max=64"`
}

// IsZero reports whether no hint is present
func (e Extra) IsZero() bool {
	return e == Extra{}
}

// FromHint is the best raw text describing the sender
func (e Extra) FromHint() string {
	return firstNonEmpty(e.FromName, e.FromUserID)
}

// ToHint is the best raw text describing the recipient
func (e Extra) ToHint() string {
	return firstNonEmpty(e.ToName, e.ToUserID)
}

// Wire renders the sidecar in the nested shape LNbits stores and
// DecodeExtra reads back.
func (e Extra) Wire() map[string]any {
	out := map[string]any{}
	if party := wireParty(e.FromUserID, e.FromWalletID, e.FromName); party != nil {
		out["from"] = party
	}
	if party := wireParty(e.ToUserID, e.ToWalletID, e.ToName); party != nil {
		out["to"] = party
	}
	if e.Tag != "" {
		out["tag"] = e.Tag
	}
	return out
}

func wireParty(userID, walletID, name string) map[string]string {
	p := map[string]string{}
	if userID != "" {
		p["user"] = userID
	}
	if walletID != "" {
		p["wallet"] = walletID
	}
	if name != "" {
		p["name"] = name
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

type party struct {
	UserID   string
	WalletID string
	Name     string
}

// DecodeExtra reads the nested `extra` object: from.user|id|name,
// to.user|id|name, tag. Unknown keys are ignored and malformed shapes give
// an empty sidecar with a nil error. The error is non-nil only when the
// decoded sidecar fails validation; the returned Extra is then empty.
func DecodeExtra(raw json.RawMessage) (Extra, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Extra{}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Extra{}, nil
	}

	from := decodeParty(fields["from"])
	to := decodeParty(fields["to"])
	e := Extra{
		FromUserID:   from.UserID,
		FromWalletID: from.WalletID,
		FromName:     from.Name,
		ToUserID:     to.UserID,
		ToWalletID:   to.WalletID,
		ToName:       to.Name,
		Tag:          decodeString(fields["tag"]),
	}

	if err := validation.ValidateStruct(e); err != nil {
		return Extra{}, err
	}
	return e, nil
}

// decodeParty accepts either an object or a bare string, which is taken as
// a display name.
func decodeParty(raw json.RawMessage) party {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return party{}
	}
	if raw[0] == '"' {
		return party{Name: decodeString(raw)}
	}
	if raw[0] != '{' {
		return party{}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return party{}
	}

	p := party{
		UserID:   decodeString(obj["user"]),
		WalletID: decodeString(obj["wallet"]),
		Name:     firstNonEmpty(decodeString(obj["name"]), decodeString(obj["displayName"])),
	}
	// A whole user object was stored: its id is the user id.
	if p.UserID == "" {
		p.UserID = decodeString(obj["id"])
	}
	return p
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
