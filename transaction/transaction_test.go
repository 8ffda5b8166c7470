package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDeterministic(t *testing.T) {
	tx := &Transaction{
		ID:        7,
		Type:      TxTypeGameBet,
		Sender:    "player-1",
		Data:      []byte(`{"game_type":"coinflip"}`),
		Timestamp: 1234567890,
		Nonce:     1,
	}

	assert.Equal(t, tx.Hash(), tx.Hash())
	assert.Len(t, tx.HashHex(), 64)
}

func TestHashChangesWithEveryField(t *testing.T) {
	base := Transaction{
		ID:        1,
		Type:      TxTypeStandard,
		Sender:    "alice",
		Data:      []byte("payload"),
		Timestamp: 1000,
		Nonce:     1,
	}

	variants := []Transaction{base, base, base, base}
	variants[0].ID = 2
	variants[1].Sender = "bob"
	variants[2].Data = []byte("payloae")
	variants[3].Nonce = 2

	baseHash := base.Hash()
	for i, v := range variants {
		assert.NotEqual(t, baseHash, v.Hash(), "variant %d should change the hash", i)
	}
}

func TestDedupHashIgnoresAssignedFields(t *testing.T) {
	a := &Transaction{Type: TxTypeGameBet, Sender: "alice", Data: []byte("bet"), Nonce: 3}
	b := &Transaction{Type: TxTypeGameBet, Sender: "alice", Data: []byte("bet"), Nonce: 3, ID: 99, Timestamp: 5555}

	assert.Equal(t, a.DedupHash(), b.DedupHash())

	c := &Transaction{Type: TxTypeGameBet, Sender: "alice", Data: []byte("bet"), Nonce: 4}
	assert.NotEqual(t, a.DedupHash(), c.DedupHash())
}

func TestHashDistinguishesSenderDataSplits(t *testing.T) {
	a := &Transaction{ID: 1, Sender: "ab", Data: []byte("c"), Timestamp: 100, Nonce: 1}
	b := &Transaction{ID: 1, Sender: "a", Data: []byte("bc"), Timestamp: 100, Nonce: 1}

	assert.NotEqual(t, a.Hash(), b.Hash())
}
