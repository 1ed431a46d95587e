package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/zapfeed/internal/platform/payment"
)

func TestWalletLog_AttributesFromWalletPointOfView(t *testing.T) {
	snap := testSnapshot()

	received := pay("B", "internal_x", 5000, 100)
	sent := pay("B", "y", -300, 200)
	sent.Memo = "lunch with carol"
	unknown := pay("B", "z", 10, 50)
	unknown.Extra = payment.Extra{FromName: "Faucet"}

	all := []payment.RawPayment{
		pay("A", "x", -5000, 100),
		received,
		sent,
		unknown,
	}

	log := newEngine().WalletLog(snap, "B", []payment.RawPayment{received, sent, unknown}, all)

	require.Len(t, log, 3)

	// newest first
	assert.Equal(t, "y", log[0].Transaction.CheckingID)
	assert.False(t, log[0].IsIncoming)
	assert.Equal(t, "bob-id", userID(log[0].From))
	assert.Equal(t, "carol-id", userID(log[0].To), "memo names the recipient")

	assert.True(t, log[1].IsIncoming)
	assert.Equal(t, "alice-id", userID(log[1].From), "paired debit identifies the sender")
	assert.Equal(t, "bob-id", userID(log[1].To))

	assert.Nil(t, log[2].From)
	assert.Equal(t, "Faucet", log[2].CounterpartyHint)
}

func TestWalletLog_MemoMatchesEmailLocalPart(t *testing.T) {
	p := pay("A", "m", -1, 1)
	p.Memo = "Thanks BOB.SMITH for the help"

	log := newEngine().WalletLog(testSnapshot(), "A", []payment.RawPayment{p}, nil)

	require.Len(t, log, 1)
	assert.Equal(t, "alice-id", userID(log[0].From))
	assert.Equal(t, "bob-id", userID(log[0].To))
}

func TestWalletLog_OwnerNeverMatchedFromMemo(t *testing.T) {
	p := pay("A", "m", -1, 1)
	p.Memo = "Alice Weekly Allowance cleared"

	log := newEngine().WalletLog(testSnapshot(), "A", []payment.RawPayment{p}, nil)

	require.Len(t, log, 1)
	assert.Nil(t, log[0].To)
}

func TestWalletLog_HintBeforeMemo(t *testing.T) {
	p := pay("C", "h", 1, 1)
	p.Memo = "from bob"
	p.Extra = payment.Extra{FromUserID: "alice-id"}

	log := newEngine().WalletLog(testSnapshot(), "C", []payment.RawPayment{p}, nil)

	require.Len(t, log, 1)
	assert.Equal(t, "alice-id", userID(log[0].From))
	assert.Equal(t, "carol-id", userID(log[0].To))
}
