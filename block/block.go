package block

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/atomiq-chain/atomiq/transaction"
)

// Block is the unit of finality. Hash binds height, previous hash,
// the merkle root of transactions, the state root and the timestamp.
type Block struct {
	Height           uint64                     `json:"height"`
	PrevHash         [32]byte                   `json:"prev_hash"`
	Transactions     []*transaction.Transaction `json:"transactions"`
	TransactionsRoot [32]byte                   `json:"transactions_root"`
	StateRoot        [32]byte                   `json:"state_root"`
	Timestamp        uint64                     `json:"timestamp"`
	Hash             [32]byte                   `json:"hash"`
}

// NewBlock assembles a block, fills the merkle root and computes the
// block hash. timestamp is unix milliseconds.
func NewBlock(height uint64, prevHash [32]byte, txs []*transaction.Transaction, stateRoot [32]byte, timestamp uint64) *Block {
	b := &Block{
		Height:       height,
		PrevHash:     prevHash,
		Transactions: txs,
		StateRoot:    stateRoot,
		Timestamp:    timestamp,
	}
	b.TransactionsRoot = MerkleRoot(txs)
	b.Hash = b.computeHash()
	return b
}

func (b *Block) computeHash() [32]byte {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, b.Height)
	h.Write(buf)
	h.Write(b.PrevHash[:])
	h.Write(b.TransactionsRoot[:])
	h.Write(b.StateRoot[:])
	binary.BigEndian.PutUint64(buf, b.Timestamp)
	h.Write(buf)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyHash recomputes the block hash and checks it against the
// stored one.
func (b *Block) VerifyHash() bool {
	return b.computeHash() == b.Hash
}

// VerifyTransactionsRoot recomputes the merkle root over the block's
// transactions and checks it against the stored one.
func (b *Block) VerifyTransactionsRoot() bool {
	return MerkleRoot(b.Transactions) == b.TransactionsRoot
}

// HashHex returns the lowercase hex encoding of the block hash
func (b *Block) HashHex() string {
	return hex.EncodeToString(b.Hash[:])
}

// PrevHashHex returns the lowercase hex encoding of the previous hash
func (b *Block) PrevHashHex() string {
	return hex.EncodeToString(b.PrevHash[:])
}

// MerkleRoot computes a pairwise sha256 merkle root over transaction
// hashes. The last node is duplicated on odd levels. An empty set
// yields the zero root.
func MerkleRoot(txs []*transaction.Transaction) [32]byte {
	var root [32]byte
	if len(txs) == 0 {
		return root
	}

	level := make([][32]byte, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([][32]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := sha256.New()
			h.Write(level[i][:])
			h.Write(level[i+1][:])
			var node [32]byte
			copy(node[:], h.Sum(nil))
			next = append(next, node)
		}
		level = next
	}
	return level[0]
}
