package events

// BlockCommittedEvent is broadcast once per committed block, after the
// storage batch has been written. TxIDs lists the ids of every
// transaction finalized in the block.
type BlockCommittedEvent struct {
	Height    uint64
	Hash      [32]byte
	TxIDs     []uint64
	Timestamp uint64
}

// Contains reports whether the event finalized txID
func (e *BlockCommittedEvent) Contains(txID uint64) bool {
	for _, id := range e.TxIDs {
		if id == txID {
			return true
		}
	}
	return false
}
