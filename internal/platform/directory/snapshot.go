package directory

import (
	"strings"

	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
	apperrors "github.com/kislikjeka/zapfeed/internal/shared/errors"
)

// Snapshot is every user with their active wallets, read once for one
// feed computation.
type Snapshot struct {
	Users   []user.User                `json:"users"`
	Wallets map[string][]wallet.Wallet `json:"wallets"`

	// Skipped lists users whose wallets could not be read
	Skipped  []string                `json:"skipped,omitempty"`
	Failures []*apperrors.FetchError `json:"-"`
}

// User returns the user with the given id, nil when unknown
func (s *Snapshot) User(id string) *user.User {
	if s == nil || id == "" {
		return nil
	}
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByAADObjectID looks a user up by the Teams identity stored in extra
func (s *Snapshot) UserByAADObjectID(aad string) *user.User {
	if s == nil || aad == "" {
		return nil
	}
	for i := range s.Users {
		if strings.EqualFold(s.Users[i].AADObjectID, aad) {
			return &s.Users[i]
		}
	}
	return nil
}

// WalletsOf returns the active wallets of a user
func (s *Snapshot) WalletsOf(userID string) []wallet.Wallet {
	if s == nil {
		return nil
	}
	return s.Wallets[userID]
}

// AllWallets lists every active wallet in user order
func (s *Snapshot) AllWallets() []wallet.Wallet {
	if s == nil {
		return nil
	}
	var out []wallet.Wallet
	for _, u := range s.Users {
		for _, w := range s.Wallets[u.ID] {
			if !w.Deleted {
				out = append(out, w)
			}
		}
	}
	return out
}

// TransferWallets lists the active allowance and private wallets
func (s *Snapshot) TransferWallets() []wallet.Wallet {
	var out []wallet.Wallet
	for _, w := range s.AllWallets() {
		if w.IsTransferWallet() {
			out = append(out, w)
		}
	}
	return out
}

// Complete reports whether every user's wallets were read
func (s *Snapshot) Complete() bool {
	return s != nil && len(s.Skipped) == 0
}
