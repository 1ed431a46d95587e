package reconcile

import (
	"sort"
	"strings"

	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
)

// LogEntry is one payment of a single wallet with both parties resolved
// from that wallet's point of view.
type LogEntry struct {
	Transaction      payment.RawPayment `json:"transaction"`
	IsIncoming       bool               `json:"is_incoming"`
	From             *user.User         `json:"from"`
	To               *user.User         `json:"to"`
	CounterpartyHint string             `json:"counterparty_hint,omitempty"`
	TimeInvalid      bool               `json:"time_invalid,omitempty"`
}

// WalletLog attributes every payment of one wallet, newest first. The
// counterparty is found by pairing against allPayments, then through the
// extra hints, then by looking for a user's name or email in the memo.
func (e *Engine) WalletLog(snap *directory.Snapshot, walletID string, walletPayments, allPayments []payment.RawPayment) []LogEntry {
	idx := BuildIndex(snap)
	owner := idx.Owner(walletID)

	groups := make(map[string][]int)
	for i := range allPayments {
		if id := StripInternalMarker(allPayments[i].CheckingID); id != "" {
			groups[id] = append(groups[id], i)
		}
	}

	var users []user.User
	if snap != nil {
		users = snap.Users
	}

	out := make([]LogEntry, 0, len(walletPayments))
	for _, p := range walletPayments {
		entry := LogEntry{Transaction: p, IsIncoming: p.IsIncoming(), TimeInvalid: !p.Time.Valid}

		var other *user.User
		if id := StripInternalMarker(p.CheckingID); id != "" {
			if cp := findCounterparty(allPayments, groups[id], p.WalletID); cp != nil {
				other = idx.Owner(cp.WalletID)
			}
		}
		if other == nil {
			if entry.IsIncoming {
				other = resolveHint(idx, p.Extra.FromUserID, p.Extra.FromWalletID)
			} else {
				other = resolveHint(idx, p.Extra.ToUserID, p.Extra.ToWalletID)
			}
		}
		if other == nil {
			other = matchMemo(users, p.Memo, owner)
		}
		if other == nil {
			if entry.IsIncoming {
				entry.CounterpartyHint = p.Extra.FromHint()
			} else {
				entry.CounterpartyHint = p.Extra.ToHint()
			}
		}

		if entry.IsIncoming {
			entry.From, entry.To = other, owner
		} else {
			entry.From, entry.To = owner, other
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Transaction.Time.Unix() > out[b].Transaction.Time.Unix()
	})
	return out
}

// matchMemo finds the first user, other than the wallet owner, whose display
// name, email or email local part appears in the memo (case-insensitive).
func matchMemo(users []user.User, memo string, owner *user.User) *user.User {
	memo = strings.ToLower(memo)
	if memo == "" {
		return nil
	}
	for i := range users {
		u := &users[i]
		if owner != nil && u.ID == owner.ID {
			continue
		}
		for _, needle := range memoNeedles(u) {
			if strings.Contains(memo, needle) {
				return u
			}
		}
	}
	return nil
}

func memoNeedles(u *user.User) []string {
	var needles []string
	if name := strings.ToLower(strings.TrimSpace(u.DisplayName)); name != "" {
		needles = append(needles, name)
	}
	if email := strings.ToLower(strings.TrimSpace(u.Email)); email != "" {
		needles = append(needles, email)
		if at := strings.Index(email, "@"); at > 0 {
			needles = append(needles, email[:at])
		}
	}
	return needles
}
