package transaction

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// TxTypeStandard is a plain data-carrying transaction
	TxTypeStandard = 0
	// TxTypeGameBet carries an encoded bet and triggers VRF execution
	TxTypeGameBet = 1
)

// Transaction is the unit of work committed into blocks. Sender is an
// opaque address string, Data is an application payload (JSON-encoded
// bet for game transactions). ID and Timestamp are assigned by the
// pool at admission.
type Transaction struct {
	ID        uint64 `json:"id"`
	Type      int32  `json:"type"`
	Sender    string `json:"sender"`
	Data      []byte `json:"data"`
	Timestamp uint64 `json:"timestamp"`
	Nonce     uint64 `json:"nonce"`
}

// Hash computes the transaction hash over id, sender, data, timestamp
// and nonce. Fixed-width fields are big-endian; the variable-width
// sender and data are length-prefixed so distinct (sender, data)
// splits never share a preimage.
func (tx *Transaction) Hash() [32]byte {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, tx.ID)
	h.Write(buf)
	binary.BigEndian.PutUint64(buf, uint64(len(tx.Sender)))
	h.Write(buf)
	h.Write([]byte(tx.Sender))
	binary.BigEndian.PutUint64(buf, uint64(len(tx.Data)))
	h.Write(buf)
	h.Write(tx.Data)
	binary.BigEndian.PutUint64(buf, tx.Timestamp)
	h.Write(buf)
	binary.BigEndian.PutUint64(buf, tx.Nonce)
	h.Write(buf)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HashHex returns the lowercase hex encoding of Hash
func (tx *Transaction) HashHex() string {
	hash := tx.Hash()
	return hex.EncodeToString(hash[:])
}

// Serialize renders the identity fields used for pool deduplication.
// ID and Timestamp are excluded since the pool assigns them after the
// dedup check.
func (tx *Transaction) Serialize() []byte {
	metadata := fmt.Sprintf(
		"%d|%s|%s|%d",
		tx.Type, tx.Sender, tx.Data, tx.Nonce,
	)
	return []byte(metadata)
}

// DedupHash returns a base58 digest of the identity fields, used as
// the pool's dedup key.
func (tx *Transaction) DedupHash() string {
	sum := sha256.Sum256(tx.Serialize())
	return base58.Encode(sum[:])
}
