package producer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atomiq-chain/atomiq/block"
	"github.com/atomiq-chain/atomiq/config"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/events"
	"github.com/atomiq-chain/atomiq/exception"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/logx"
	"github.com/atomiq-chain/atomiq/mempool"
	"github.com/atomiq-chain/atomiq/monitoring"
	"github.com/atomiq-chain/atomiq/state"
	"github.com/atomiq-chain/atomiq/store"
	"github.com/atomiq-chain/atomiq/transaction"
)

// DirectCommit produces and finalizes a block per tick without any
// consensus round. Ticks are strictly sequential, so the chain tip,
// the state and the stores only ever see one writer.
type DirectCommit struct {
	cfg       *config.DirectCommitConfig
	pool      *mempool.Mempool
	st        *state.State
	chain     *store.ChainStore
	processor *games.Processor
	bus       *events.EventBus
	dataDir   string

	running         atomic.Bool
	stop            chan struct{}
	done            sync.WaitGroup
	blocksCommitted atomic.Uint64
	txsCommitted    atomic.Uint64
	lastBlockAt     atomic.Int64
}

func NewDirectCommit(
	cfg *config.DirectCommitConfig,
	pool *mempool.Mempool,
	st *state.State,
	chain *store.ChainStore,
	processor *games.Processor,
	bus *events.EventBus,
	dataDir string,
) *DirectCommit {
	return &DirectCommit{
		cfg:       cfg,
		pool:      pool,
		st:        st,
		chain:     chain,
		processor: processor,
		bus:       bus,
		dataDir:   dataDir,
	}
}

// Start launches the tick loop and the stats loop
func (dc *DirectCommit) Start() {
	if !dc.running.CompareAndSwap(false, true) {
		return
	}
	dc.stop = make(chan struct{})

	logx.Info("PRODUCER", "DirectCommit engine started,",
		fmt.Sprintf("interval=%dms max_tx_per_block=%d", dc.cfg.CommitIntervalMs, dc.cfg.MaxTxPerBlock))

	dc.done.Add(1)
	exception.SafeGoWithPanic("direct-commit-tick", func() {
		defer dc.done.Done()
		dc.tickLoop()
	})

	dc.done.Add(1)
	exception.SafeGo("direct-commit-stats", func() {
		defer dc.done.Done()
		dc.statsLoop()
	})
}

// Stop halts the loops and waits for the in-flight tick to finish
func (dc *DirectCommit) Stop() {
	if !dc.running.CompareAndSwap(true, false) {
		return
	}
	close(dc.stop)
	dc.done.Wait()
	logx.Info("PRODUCER", "DirectCommit engine stopped")
}

func (dc *DirectCommit) tickLoop() {
	ticker := time.NewTicker(time.Duration(dc.cfg.CommitIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-dc.stop:
			return
		case <-ticker.C:
			if err := dc.produceAndCommit(); err != nil {
				logx.Error("PRODUCER", "block production failed:", err)
			}
		}
	}
}

func (dc *DirectCommit) statsLoop() {
	interval := dc.cfg.StatsIntervalSeconds
	if interval <= 0 {
		interval = config.DefaultStatsIntervalSeconds
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-dc.stop:
			return
		case <-ticker.C:
			height, _ := dc.chain.Tip()
			logx.Info("PRODUCER", fmt.Sprintf(
				"uptime=%s height=%d blocks=%d txs=%d pool=%d",
				time.Since(start).Round(time.Second), height,
				dc.blocksCommitted.Load(), dc.txsCommitted.Load(), dc.pool.Size()))
		}
	}
}

// produceAndCommit runs one tick: drain, execute, assemble, persist,
// broadcast. A storage failure rolls the state back and requeues the
// drained transactions so the same batch retries next tick.
func (dc *DirectCommit) produceAndCommit() error {
	drained := dc.pool.Drain(dc.cfg.MaxTxPerBlock)
	if len(drained) == 0 && !dc.cfg.ProduceEmptyBlocks {
		return nil
	}

	tipHeight, tipHash := dc.chain.Tip()
	pendingHeight := tipHeight + 1
	timestamp := uint64(time.Now().UnixMilli())

	snapshot := dc.st.Snapshot()

	included := make([]*transaction.Transaction, 0, len(drained))
	dropped := make([]*transaction.Transaction, 0)
	results := make([]*games.Result, 0)

	for _, tx := range drained {
		if err := dc.st.Validate(tx); err != nil {
			monitoring.RecordRejectedTx(monitoring.TxInvalidNonce)
			logx.Warn("PRODUCER", "dropping tx", tx.ID, ":", err)
			dropped = append(dropped, tx)
			continue
		}

		if tx.Type == transaction.TxTypeGameBet {
			result, err := dc.processor.Execute(tx, tipHash, pendingHeight, timestamp)
			if err != nil {
				logx.Warn("PRODUCER", "dropping game tx", tx.ID, ":", err)
				dropped = append(dropped, tx)
				continue
			}
			results = append(results, result)
		}

		dc.st.Apply(tx)
		included = append(included, tx)
	}

	if len(included) == 0 && !dc.cfg.ProduceEmptyBlocks {
		// nothing valid this tick
		dc.st.Restore(snapshot)
		dc.pool.Forget(dropped)
		return nil
	}

	b := block.NewBlock(pendingHeight, tipHash, included, dc.st.Root(), timestamp)
	blockHashHex := b.HashHex()
	for _, result := range results {
		result.BlockHash = blockHashHex
	}

	if err := dc.chain.CommitBlock(b, results); err != nil {
		monitoring.IncreaseCommitBatchFailures()
		dc.st.Restore(snapshot)
		dc.pool.Requeue(drained)
		return errors.New(errors.ErrCodeBatchFailed,
			fmt.Sprintf("block %d not committed, state rolled back: %v", pendingHeight, err))
	}

	dc.afterCommit(b, included, dropped, results)
	return nil
}

func (dc *DirectCommit) afterCommit(b *block.Block, included, dropped []*transaction.Transaction, results []*games.Result) {
	for _, result := range results {
		dc.processor.StoreResult(result)
	}

	txIDs := make([]uint64, len(included))
	for i, tx := range included {
		txIDs[i] = tx.ID
	}
	dc.bus.Publish(&events.BlockCommittedEvent{
		Height:    b.Height,
		Hash:      b.Hash,
		TxIDs:     txIDs,
		Timestamp: b.Timestamp,
	})

	dc.pool.Forget(included)
	dc.pool.Forget(dropped)

	dc.blocksCommitted.Add(1)
	dc.txsCommitted.Add(uint64(len(included)))
	now := time.Now().UnixMilli()
	if last := dc.lastBlockAt.Swap(now); last > 0 {
		monitoring.RecordBlockTime(time.Duration(now-last) * time.Millisecond)
	}
	monitoring.IncreaseBlocksCommitted()
	monitoring.SetBlockHeight(b.Height)
	monitoring.RecordTxInBlock(len(included))

	if dc.cfg.MaxStorageSizeMb > 0 {
		dc.maybePrune()
	}
}

// maybePrune checks the data directory size against the configured
// cap and trims old block bodies down to 90% of it.
func (dc *DirectCommit) maybePrune() {
	currentSize, err := dirSize(dc.dataDir)
	if err != nil {
		logx.Warn("PRODUCER", "cannot measure data directory:", err)
		return
	}

	maxBytes := uint64(dc.cfg.MaxStorageSizeMb) * 1024 * 1024
	if currentSize <= maxBytes {
		return
	}

	targetBytes := maxBytes * 9 / 10
	bytesToFree := currentSize - targetBytes
	logx.Warn("PRODUCER", fmt.Sprintf("storage limit exceeded: %d MB / %d MB, pruning",
		currentSize/(1024*1024), dc.cfg.MaxStorageSizeMb))

	pruned, err := dc.chain.PruneToFit(bytesToFree)
	if err != nil {
		logx.Error("PRODUCER", "pruning failed:", err)
		return
	}
	if pruned > 0 {
		monitoring.RecordPrunedBlocks(pruned)
		logx.Info("PRODUCER", "pruned", pruned, "block bodies")
	}
}

func dirSize(path string) (uint64, error) {
	var total uint64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total, err
}
