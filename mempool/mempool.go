package mempool

import (
	"fmt"
	"sync"
	"time"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/logx"
	"github.com/atomiq-chain/atomiq/monitoring"
	"github.com/atomiq-chain/atomiq/transaction"
)

// Mempool is a bounded FIFO of pending transactions. Submission
// assigns the monotonic transaction id and the submission timestamp,
// so ordering inside the pool is ordering on ids.
type Mempool struct {
	mu         sync.Mutex
	txs        []*transaction.Transaction
	dedup      map[string]struct{}
	nextID     uint64
	maxSize    int
	maxTxData  int
	warnedFull bool
}

func NewMempool(maxSize, maxTxDataSize int) *Mempool {
	return &Mempool{
		txs:       make([]*transaction.Transaction, 0),
		dedup:     make(map[string]struct{}),
		nextID:    1,
		maxSize:   maxSize,
		maxTxData: maxTxDataSize,
	}
}

// SeedNextID moves the id counter past ids already used on disk.
// Called once at startup after the chain replay.
func (m *Mempool) SeedNextID(maxSeenID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if maxSeenID >= m.nextID {
		m.nextID = maxSeenID + 1
	}
}

// Submit validates and enqueues tx, assigning its id and timestamp.
// Returns the assigned id.
func (m *Mempool) Submit(tx *transaction.Transaction) (uint64, error) {
	if len(tx.Data) > m.maxTxData {
		monitoring.RecordRejectedTx(monitoring.TxDataTooLarge)
		return 0, errors.New(errors.ErrCodeDataTooLarge,
			fmt.Sprintf("transaction data is %d bytes, limit is %d", len(tx.Data), m.maxTxData))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.txs) >= m.maxSize {
		monitoring.RecordRejectedTx(monitoring.TxPoolFull)
		return 0, errors.New(errors.ErrCodePoolFull,
			fmt.Sprintf("mempool is at capacity (%d)", m.maxSize))
	}

	dedupHash := tx.DedupHash()
	if _, exists := m.dedup[dedupHash]; exists {
		monitoring.RecordRejectedTx(monitoring.TxDuplicated)
		return 0, errors.New(errors.ErrCodeDuplicateTx, "transaction already pending")
	}

	if len(m.txs) >= m.maxSize*9/10 {
		if !m.warnedFull {
			logx.Warn("MEMPOOL", "pool above 90% capacity:", len(m.txs), "of", m.maxSize)
			m.warnedFull = true
		}
	} else {
		m.warnedFull = false
	}

	tx.ID = m.nextID
	m.nextID++
	tx.Timestamp = uint64(time.Now().UnixMilli())

	m.txs = append(m.txs, tx)
	m.dedup[dedupHash] = struct{}{}
	monitoring.SetMempoolSize(len(m.txs))
	return tx.ID, nil
}

// Drain removes and returns up to max transactions from the head of
// the queue, keeping their dedup hashes so resubmits of drained txs
// are still rejected until Forget is called.
func (m *Mempool) Drain(max int) []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.txs) == 0 {
		return nil
	}
	if max > len(m.txs) {
		max = len(m.txs)
	}

	batch := make([]*transaction.Transaction, max)
	copy(batch, m.txs[:max])
	m.txs = m.txs[max:]
	monitoring.SetMempoolSize(len(m.txs))
	return batch
}

// Requeue puts drained transactions back at the head of the queue in
// their original order. Used when the commit batch fails so the same
// batch is retried next tick.
func (m *Mempool) Requeue(txs []*transaction.Transaction) {
	if len(txs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(append(make([]*transaction.Transaction, 0, len(txs)+len(m.txs)), txs...), m.txs...)
	monitoring.SetMempoolSize(len(m.txs))
}

// Forget drops the dedup hashes of finalized transactions
func (m *Mempool) Forget(txs []*transaction.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txs {
		delete(m.dedup, tx.DedupHash())
	}
}

// Clear drops every pending transaction and its dedup entry
func (m *Mempool) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = m.txs[:0]
	m.dedup = make(map[string]struct{})
	m.warnedFull = false
	monitoring.SetMempoolSize(0)
}

// Size returns the queue depth. Best-effort: falls back to zero when
// the pool lock is contended, so stats loops never stall a producer
// tick.
func (m *Mempool) Size() int {
	if !m.mu.TryLock() {
		return 0
	}
	defer m.mu.Unlock()
	return len(m.txs)
}

// Len returns the queue depth, waiting for the lock
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}
