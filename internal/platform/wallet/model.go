package wallet

import "strings"

// Role is the semantic purpose of a wallet, inferred from its name.
// Roles is a set because a name can match more than one role.
type Role uint8

const (
	RoleAllowance Role = 1 << iota
	RolePrivate
)

// RoleOther is the empty role set.
const RoleOther Role = 0

const (
	allowanceMarker = "allowance"
	privateMarker   = "private"
)

// String returns the lower-case role name used in URLs and JSON
func (r Role) String() string {
	switch r {
	case RoleAllowance:
		return "allowance"
	case RolePrivate:
		return "private"
	case RoleOther:
		return "other"
	}
	return strings.Join(r.Names(), "+")
}

// Has reports whether every role in q is in r
func (r Role) Has(q Role) bool {
	return q != RoleOther && r&q == q
}

// Names lists the individual roles in r, or "other" for the empty set
func (r Role) Names() []string {
	var names []string
	if r.Has(RoleAllowance) {
		names = append(names, "allowance")
	}
	if r.Has(RolePrivate) {
		names = append(names, "private")
	}
	if len(names) == 0 {
		names = append(names, "other")
	}
	return names
}

// ParseRole maps "allowance" or "private" (any case) to a role
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(s) {
	case "allowance":
		return RoleAllowance, true
	case "private":
		return RolePrivate, true
	}
	return RoleOther, false
}

// Classify tests the name against each role independently using a
// case-insensitive substring match.
func Classify(name string) Role {
	lower := strings.ToLower(name)
	var r Role
	if strings.Contains(lower, allowanceMarker) {
		r |= RoleAllowance
	}
	if strings.Contains(lower, privateMarker) {
		r |= RolePrivate
	}
	return r
}

// Wallet is an LNbits wallet. InKey can read and create invoices,
// AdminKey can also pay.
type Wallet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UserID      string `json:"user"`
	InKey       string `json:"inkey"`
	AdminKey    string `json:"adminkey"`
	BalanceMsat int64  `json:"balance_msat"`
	Deleted     bool   `json:"deleted"`
}

// Roles classifies the wallet by name
func (w *Wallet) Roles() Role {
	return Classify(w.Name)
}

// IsTransferWallet reports whether the wallet takes part in zaps (allowance or private)
func (w *Wallet) IsTransferWallet() bool {
	r := w.Roles()
	return r.Has(RoleAllowance) || r.Has(RolePrivate)
}

// FilterActive drops tombstoned wallets
func FilterActive(wallets []Wallet) []Wallet {
	out := make([]Wallet, 0, len(wallets))
	for _, w := range wallets {
		if !w.Deleted {
			out = append(out, w)
		}
	}
	return out
}

// FindByRole returns the first wallet whose name is exactly the role name,
// otherwise the first whose name contains it.
func FindByRole(wallets []Wallet, role Role) (Wallet, bool) {
	for _, w := range wallets {
		if strings.EqualFold(w.Name, role.String()) {
			return w, true
		}
	}
	for _, w := range wallets {
		if w.Roles().Has(role) {
			return w, true
		}
	}
	return Wallet{}, false
}
