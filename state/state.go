package state

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/transaction"
)

// State tracks the last applied nonce per sender. The producer applies
// transactions against it while assembling a block and rolls back to a
// snapshot when the commit batch fails.
type State struct {
	mu     sync.RWMutex
	nonces map[string]uint64
}

func NewState() *State {
	return &State{nonces: make(map[string]uint64)}
}

// Nonce returns the last applied nonce for sender, zero when unseen
func (s *State) Nonce(sender string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[sender]
}

// Validate checks that tx carries the next nonce for its sender
func (s *State) Validate(tx *transaction.Transaction) error {
	s.mu.RLock()
	current := s.nonces[tx.Sender]
	s.mu.RUnlock()

	if tx.Nonce != current+1 {
		return errors.New(errors.ErrCodeInvalidNonce,
			fmt.Sprintf("sender %s: expected nonce %d, got %d", tx.Sender, current+1, tx.Nonce))
	}
	return nil
}

// Apply advances the sender's nonce. Callers validate first.
func (s *State) Apply(tx *transaction.Transaction) {
	s.mu.Lock()
	s.nonces[tx.Sender] = tx.Nonce
	s.mu.Unlock()
}

// Snapshot returns a copy of the nonce map for later Restore
func (s *State) Snapshot() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]uint64, len(s.nonces))
	for sender, nonce := range s.nonces {
		snap[sender] = nonce
	}
	return snap
}

// Restore replaces the nonce map with a previously taken snapshot
func (s *State) Restore(snap map[string]uint64) {
	s.mu.Lock()
	s.nonces = snap
	s.mu.Unlock()
}

// Root computes the state root as sha256 over (sender, nonce) pairs
// sorted by sender. Deterministic across nodes and restarts.
func (s *State) Root() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	senders := make([]string, 0, len(s.nonces))
	for sender := range s.nonces {
		senders = append(senders, sender)
	}
	sort.Strings(senders)

	h := sha256.New()
	buf := make([]byte, 8)
	for _, sender := range senders {
		h.Write([]byte(sender))
		binary.BigEndian.PutUint64(buf, s.nonces[sender])
		h.Write(buf)
	}
	var root [32]byte
	copy(root[:], h.Sum(nil))
	return root
}
