package reconcile

import (
	"sort"
	"time"

	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// DefaultMaxRecords bounds the feed when no limit is given
const DefaultMaxRecords = 100

// ReconciledTransfer is one peer-to-peer zap. From and To are nil when the
// party could not be resolved; the hints then carry whatever text the
// payment had about it.
type ReconciledTransfer struct {
	From        *user.User         `json:"from"`
	To          *user.User         `json:"to"`
	Transaction payment.RawPayment `json:"transaction"`
	FromHint    string             `json:"from_hint,omitempty"`
	ToHint      string             `json:"to_hint,omitempty"`
	TimeInvalid bool               `json:"time_invalid,omitempty"`
}

// Options tune one reconciliation
type Options struct {
	// Since drops payments older than this instant; zero keeps everything.
	// Payments with an unparseable time are always kept.
	Since time.Time

	// MaxRecords truncates the sorted output; DefaultMaxRecords when not positive
	MaxRecords int
}

// Engine turns raw per-wallet payments into a deduplicated transfer list
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log.WithField("component", "reconcile")}
}

type grouped struct {
	cleanID string
	members []int
}

// Reconcile builds the feed. The result depends only on its inputs: the
// same snapshot and payments always produce the same list.
func (e *Engine) Reconcile(snap *directory.Snapshot, payments []payment.RawPayment, opts Options) []ReconciledTransfer {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	idx := BuildIndex(snap)

	cleanIDs := make([]string, len(payments))
	groups := make(map[string]*grouped)
	for i := range payments {
		id := StripInternalMarker(payments[i].CheckingID)
		cleanIDs[i] = id
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &grouped{cleanID: id}
			groups[id] = g
		}
		g.members = append(g.members, i)
	}

	candidate := make([]bool, len(payments))
	for i := range payments {
		p := &payments[i]
		candidate[i] = idx.IsCandidate(p.WalletID) && !IsHousekeeping(p) && !p.Time.Before(opts.Since)
	}

	// one emitted row per clean id: the first debit candidate, otherwise
	// the first candidate
	chosen := make(map[string]int, len(groups))
	for i := range payments {
		id := cleanIDs[i]
		if id == "" || !candidate[i] {
			continue
		}
		prev, ok := chosen[id]
		if !ok || (!payments[prev].IsDebit() && payments[i].IsDebit()) {
			chosen[id] = i
		}
	}

	out := make([]ReconciledTransfer, 0, len(chosen))
	for i := range payments {
		if !candidate[i] {
			continue
		}
		if id := cleanIDs[i]; id != "" && chosen[id] != i {
			continue
		}

		var counterparty *payment.RawPayment
		if g := groups[cleanIDs[i]]; g != nil {
			counterparty = findCounterparty(payments, g.members, payments[i].WalletID)
		}
		out = append(out, e.attribute(idx, payments[i], counterparty))
	}

	sort.SliceStable(out, func(a, b int) bool {
		ta, tb := out[a].Transaction.Time.Unix(), out[b].Transaction.Time.Unix()
		if ta != tb {
			return ta > tb
		}
		return StripInternalMarker(out[a].Transaction.CheckingID) < StripInternalMarker(out[b].Transaction.CheckingID)
	})

	if len(out) > opts.MaxRecords {
		out = out[:opts.MaxRecords]
	}
	return out
}

// findCounterparty returns the first group member on another wallet
func findCounterparty(payments []payment.RawPayment, members []int, walletID string) *payment.RawPayment {
	for _, m := range members {
		if payments[m].WalletID != walletID {
			return &payments[m]
		}
	}
	return nil
}

// attribute resolves both parties. The row's own wallet owner is the sender
// of a debit and the recipient of a credit; the counterparty owner takes the
// other side. Unresolved parties fall back to the extra hints.
func (e *Engine) attribute(idx *Index, p payment.RawPayment, counterparty *payment.RawPayment) ReconciledTransfer {
	own := idx.Owner(p.WalletID)
	var other *user.User
	if counterparty != nil {
		other = idx.Owner(counterparty.WalletID)
		if other == nil {
			e.logger.Debug("counterparty wallet has no known owner",
				"checking_id", p.CheckingID,
				"wallet_id", counterparty.WalletID)
		}
	}

	rt := ReconciledTransfer{Transaction: p}
	_, valid := NormalizeTime(&p)
	rt.TimeInvalid = !valid

	if p.IsDebit() {
		rt.From, rt.To = own, other
	} else {
		rt.From, rt.To = other, own
	}

	if rt.From == nil {
		rt.From = resolveHint(idx, p.Extra.FromUserID, p.Extra.FromWalletID)
		if rt.From == nil {
			rt.FromHint = p.Extra.FromHint()
		}
	}
	if rt.To == nil {
		rt.To = resolveHint(idx, p.Extra.ToUserID, p.Extra.ToWalletID)
		if rt.To == nil {
			rt.ToHint = p.Extra.ToHint()
		}
	}

	if rt.From == nil || rt.To == nil {
		e.logger.Debug("transfer party unresolved",
			"checking_id", p.CheckingID,
			"from_hint", rt.FromHint,
			"to_hint", rt.ToHint)
	}
	return rt
}

func resolveHint(idx *Index, userID, walletID string) *user.User {
	if u := idx.User(userID); u != nil {
		return u
	}
	return idx.Owner(walletID)
}
