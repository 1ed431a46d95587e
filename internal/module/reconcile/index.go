package reconcile

import (
	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/user"
	"github.com/kislikjeka/zapfeed/internal/platform/wallet"
)

// Index maps wallet ids to their owner and role. It is built in full from a
// snapshot before any payment is looked at.
type Index struct {
	owners map[string]*user.User
	roles  map[string]wallet.Role
	users  map[string]*user.User
}

// BuildIndex indexes every active wallet of every user in the snapshot
func BuildIndex(snap *directory.Snapshot) *Index {
	idx := &Index{
		owners: make(map[string]*user.User),
		roles:  make(map[string]wallet.Role),
		users:  make(map[string]*user.User),
	}
	if snap == nil {
		return idx
	}

	for i := range snap.Users {
		u := &snap.Users[i]
		idx.users[u.ID] = u
		for _, w := range snap.Wallets[u.ID] {
			if w.Deleted || w.ID == "" {
				continue
			}
			// first owner wins if LNbits ever lists a wallet twice
			if _, seen := idx.owners[w.ID]; seen {
				continue
			}
			idx.owners[w.ID] = u
			idx.roles[w.ID] = w.Roles()
		}
	}
	return idx
}

// Owner returns the owner of an active wallet, nil when unknown
func (x *Index) Owner(walletID string) *user.User {
	return x.owners[walletID]
}

// Role returns the wallet's role set; unknown wallets have none
func (x *Index) Role(walletID string) wallet.Role {
	return x.roles[walletID]
}

// User resolves a user id, nil when unknown
func (x *Index) User(id string) *user.User {
	if id == "" {
		return nil
	}
	return x.users[id]
}

// IsCandidate reports whether payments of the wallet take part in the feed
func (x *Index) IsCandidate(walletID string) bool {
	r := x.Role(walletID)
	return r.Has(wallet.RoleAllowance) || r.Has(wallet.RolePrivate)
}
