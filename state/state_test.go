package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/transaction"
)

func TestValidateRequiresNextNonce(t *testing.T) {
	st := NewState()

	tx := &transaction.Transaction{Sender: "alice", Nonce: 1}
	require.NoError(t, st.Validate(tx))
	st.Apply(tx)

	stale := &transaction.Transaction{Sender: "alice", Nonce: 1}
	err := st.Validate(stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidNonce))

	gap := &transaction.Transaction{Sender: "alice", Nonce: 5}
	assert.Error(t, st.Validate(gap))

	next := &transaction.Transaction{Sender: "alice", Nonce: 2}
	assert.NoError(t, st.Validate(next))
}

func TestSendersAreIndependent(t *testing.T) {
	st := NewState()
	st.Apply(&transaction.Transaction{Sender: "alice", Nonce: 1})

	bob := &transaction.Transaction{Sender: "bob", Nonce: 1}
	assert.NoError(t, st.Validate(bob))
}

func TestSnapshotRestore(t *testing.T) {
	st := NewState()
	st.Apply(&transaction.Transaction{Sender: "alice", Nonce: 1})
	snap := st.Snapshot()

	st.Apply(&transaction.Transaction{Sender: "alice", Nonce: 2})
	st.Apply(&transaction.Transaction{Sender: "bob", Nonce: 1})
	require.Equal(t, uint64(2), st.Nonce("alice"))

	st.Restore(snap)
	assert.Equal(t, uint64(1), st.Nonce("alice"))
	assert.Equal(t, uint64(0), st.Nonce("bob"))
}

func TestRootDeterministicAndOrderIndependent(t *testing.T) {
	a := NewState()
	a.Apply(&transaction.Transaction{Sender: "alice", Nonce: 1})
	a.Apply(&transaction.Transaction{Sender: "bob", Nonce: 2})

	b := NewState()
	b.Apply(&transaction.Transaction{Sender: "bob", Nonce: 2})
	b.Apply(&transaction.Transaction{Sender: "alice", Nonce: 1})

	assert.Equal(t, a.Root(), b.Root())

	b.Apply(&transaction.Transaction{Sender: "bob", Nonce: 3})
	assert.NotEqual(t, a.Root(), b.Root())
}
