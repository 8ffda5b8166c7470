package store

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/atomiq-chain/atomiq/block"
	"github.com/atomiq-chain/atomiq/db"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/jsonx"
	"github.com/atomiq-chain/atomiq/logx"
	"github.com/atomiq-chain/atomiq/transaction"
)

// pruneKeepRecent is the floor of block bodies size-based pruning
// never touches, counted back from the tip.
const pruneKeepRecent = 100

// pruneSampleSize is how many recent blocks the average body size
// estimate is taken over.
const pruneSampleSize = 10

// ChainStore persists blocks and their lookup indices through a
// DatabaseProvider. A block commit writes the body once, keyed by
// height, plus pointer entries for hash and per-transaction lookups,
// all inside one atomic batch.
type ChainStore struct {
	provider db.IterableProvider

	mu           sync.RWMutex
	latestHeight uint64
	latestHash   [32]byte
}

// NewChainStore creates a chain store and loads the persisted tip
func NewChainStore(provider db.IterableProvider) (*ChainStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	cs := &ChainStore{provider: provider}
	if err := cs.loadTip(); err != nil {
		return nil, fmt.Errorf("failed to load chain tip: %w", err)
	}
	return cs, nil
}

func (cs *ChainStore) loadTip() error {
	value, err := cs.provider.Get([]byte(KeyLatestHeight))
	if err != nil {
		return err
	}
	if value == nil {
		// empty chain
		return nil
	}
	if len(value) != 8 {
		return fmt.Errorf("invalid latest height value length: %d", len(value))
	}
	cs.latestHeight = binary.BigEndian.Uint64(value)

	hash, err := cs.provider.Get([]byte(KeyLatestHash))
	if err != nil {
		return err
	}
	if len(hash) != 32 {
		return fmt.Errorf("invalid latest hash value length: %d", len(hash))
	}
	copy(cs.latestHash[:], hash)
	return nil
}

// Tip returns the height and hash of the latest committed block.
// Height zero with a zero hash means the chain is empty.
func (cs *ChainStore) Tip() (uint64, [32]byte) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.latestHeight, cs.latestHash
}

// CommitBlock writes the block body, its hash and transaction indices,
// the game results settled in it and the tip pointers in one atomic
// batch. The in-memory tip only advances after the batch lands.
func (cs *ChainStore) CommitBlock(b *block.Block, results []*games.Result) error {
	blockData, err := jsonx.Marshal(b)
	if err != nil {
		return errors.New(errors.ErrCodeBatchFailed, fmt.Sprintf("encoding block %d: %v", b.Height, err))
	}

	batch := cs.provider.Batch()
	defer batch.Close()

	batch.Put(heightToBlockKey(b.Height), blockData)

	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, b.Height)
	batch.Put(hashToIdxKey(b.Hash), heightBytes)

	for i, tx := range b.Transactions {
		location := fmt.Sprintf("%d:%d", b.Height, i)
		batch.Put(txIDToIdxKey(tx.ID), []byte(location))
	}

	for _, result := range results {
		resultData, err := jsonx.Marshal(result)
		if err != nil {
			return errors.New(errors.ErrCodeBatchFailed,
				fmt.Sprintf("encoding game result for tx %d: %v", result.TransactionID, err))
		}
		batch.Put(gameResultKey(result.TransactionID), resultData)
	}

	batch.Put([]byte(KeyLatestHeight), heightBytes)
	batch.Put([]byte(KeyLatestHash), b.Hash[:])

	if err := batch.Write(); err != nil {
		return errors.New(errors.ErrCodeBatchFailed, fmt.Sprintf("committing block %d: %v", b.Height, err))
	}

	cs.mu.Lock()
	cs.latestHeight = b.Height
	cs.latestHash = b.Hash
	cs.mu.Unlock()
	return nil
}

// BlockByHeight loads a block body. Pruned or unknown heights return
// block_not_found.
func (cs *ChainStore) BlockByHeight(height uint64) (*block.Block, error) {
	value, err := cs.provider.Get(heightToBlockKey(height))
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("reading block %d: %v", height, err))
	}
	if value == nil {
		return nil, errors.New(errors.ErrCodeBlockNotFound, fmt.Sprintf("block %d not found", height))
	}

	var b block.Block
	if err := jsonx.Unmarshal(value, &b); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("decoding block %d: %v", height, err))
	}
	return &b, nil
}

// BlockByHash resolves the hash index and loads the block body
func (cs *ChainStore) BlockByHash(hash [32]byte) (*block.Block, error) {
	value, err := cs.provider.Get(hashToIdxKey(hash))
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("reading hash index: %v", err))
	}
	if value == nil {
		return nil, errors.New(errors.ErrCodeBlockNotFound, "no block with that hash")
	}
	if len(value) != 8 {
		return nil, errors.New(errors.ErrCodeCorruptedData, "hash index entry has wrong length")
	}
	return cs.BlockByHeight(binary.BigEndian.Uint64(value))
}

// TransactionByID resolves the tx index entry and extracts the
// transaction from its block. Returns the containing height as well.
func (cs *ChainStore) TransactionByID(txID uint64) (*transaction.Transaction, uint64, error) {
	value, err := cs.provider.Get(txIDToIdxKey(txID))
	if err != nil {
		return nil, 0, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("reading tx index: %v", err))
	}
	if value == nil {
		return nil, 0, errors.New(errors.ErrCodeTransactionNotFound, fmt.Sprintf("transaction %d not found", txID))
	}

	parts := strings.SplitN(string(value), ":", 2)
	if len(parts) != 2 {
		return nil, 0, errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("malformed tx index entry %q", value))
	}
	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, 0, errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("malformed tx index height %q", parts[0]))
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, 0, errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("malformed tx index position %q", parts[1]))
	}

	b, err := cs.BlockByHeight(height)
	if err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(b.Transactions) {
		return nil, 0, errors.New(errors.ErrCodeCorruptedData,
			fmt.Sprintf("tx index points at position %d of block %d with %d transactions", index, height, len(b.Transactions)))
	}
	return b.Transactions[index], height, nil
}

// GameResult loads the settled result for a game transaction
func (cs *ChainStore) GameResult(txID uint64) (*games.Result, error) {
	value, err := cs.provider.Get(gameResultKey(txID))
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("reading game result: %v", err))
	}
	if value == nil {
		return nil, errors.New(errors.ErrCodeGameResultNotFound, fmt.Sprintf("no game result for transaction %d", txID))
	}

	var result games.Result
	if err := jsonx.Unmarshal(value, &result); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("decoding game result for tx %d: %v", txID, err))
	}
	return &result, nil
}

// IterateGameResults walks stored results in transaction id order.
// The callback returns false to stop.
func (cs *ChainStore) IterateGameResults(fn func(*games.Result) bool) error {
	return cs.provider.IteratePrefix([]byte(PrefixGameResult), func(key, value []byte) bool {
		var result games.Result
		if err := jsonx.Unmarshal(value, &result); err != nil {
			logx.Error("STORE", "skipping undecodable game result at key", string(key), err)
			return true
		}
		return fn(&result)
	})
}

// ReplayBlocks walks surviving block bodies from oldest to newest.
// Pruned heights are skipped. Used at startup to rebuild state.
func (cs *ChainStore) ReplayBlocks(fn func(*block.Block) error) error {
	var replayErr error
	err := cs.provider.IteratePrefix([]byte(PrefixBlockHeight), func(key, value []byte) bool {
		var b block.Block
		if err := jsonx.Unmarshal(value, &b); err != nil {
			replayErr = errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("decoding block at key %x: %v", key, err))
			return false
		}
		if err := fn(&b); err != nil {
			replayErr = err
			return false
		}
		return true
	})
	if err != nil {
		return errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("iterating blocks: %v", err))
	}
	return replayErr
}

// MaxTxID scans the transaction index for the highest assigned id.
// Index keys are big-endian, so the last visited key wins.
func (cs *ChainStore) MaxTxID() (uint64, error) {
	var max uint64
	err := cs.provider.IteratePrefix([]byte(PrefixTxIdx), func(key, value []byte) bool {
		if len(key) == len(PrefixTxIdx)+8 {
			max = binary.BigEndian.Uint64(key[len(PrefixTxIdx):])
		}
		return true
	})
	if err != nil {
		return 0, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("iterating tx index: %v", err))
	}
	return max, nil
}

// OldestStoredHeight returns the lowest height whose body survives
// pruning, or zero when no blocks are stored.
func (cs *ChainStore) OldestStoredHeight() (uint64, error) {
	var oldest uint64
	err := cs.provider.IteratePrefix([]byte(PrefixBlockHeight), func(key, value []byte) bool {
		if len(key) == len(PrefixBlockHeight)+8 {
			oldest = binary.BigEndian.Uint64(key[len(PrefixBlockHeight):])
		}
		return false
	})
	if err != nil {
		return 0, errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("iterating blocks: %v", err))
	}
	return oldest, nil
}

// VerifyChain walks every surviving block and checks hash integrity,
// merkle roots, parent linkage and the hash index. fn, when non-nil,
// observes each verified block.
func (cs *ChainStore) VerifyChain(fn func(*block.Block)) error {
	var prev *block.Block
	return cs.ReplayBlocks(func(b *block.Block) error {
		if !b.VerifyHash() {
			return errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("block %d: stored hash does not match its contents", b.Height))
		}
		if !b.VerifyTransactionsRoot() {
			return errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("block %d: transactions root mismatch", b.Height))
		}
		if prev != nil && b.Height == prev.Height+1 && b.PrevHash != prev.Hash {
			return errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("block %d: prev_hash does not link to block %d", b.Height, prev.Height))
		}

		idxValue, err := cs.provider.Get(hashToIdxKey(b.Hash))
		if err != nil {
			return errors.New(errors.ErrCodeStorageUnavailable, fmt.Sprintf("reading hash index for block %d: %v", b.Height, err))
		}
		if idxValue == nil || len(idxValue) != 8 || binary.BigEndian.Uint64(idxValue) != b.Height {
			return errors.New(errors.ErrCodeCorruptedData, fmt.Sprintf("block %d: hash index missing or inconsistent", b.Height))
		}

		if fn != nil {
			fn(b)
		}
		prev = b
		return nil
	})
}

// EstimateAverageBlockSize samples the most recent stored bodies
func (cs *ChainStore) EstimateAverageBlockSize() uint64 {
	cs.mu.RLock()
	tip := cs.latestHeight
	cs.mu.RUnlock()

	var total, count uint64
	for offset := uint64(0); offset < pruneSampleSize && offset < tip; offset++ {
		value, err := cs.provider.Get(heightToBlockKey(tip - offset))
		if err != nil || value == nil {
			continue
		}
		total += uint64(len(value))
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}

// PruneToFit deletes the oldest block bodies and their hash index
// entries until roughly bytesToFree is reclaimed. Transaction indices
// and game results survive so historical lookups keep working. The
// most recent pruneKeepRecent bodies are never touched.
func (cs *ChainStore) PruneToFit(bytesToFree uint64) (int, error) {
	cs.mu.RLock()
	tip := cs.latestHeight
	cs.mu.RUnlock()

	if tip <= pruneKeepRecent {
		return 0, nil
	}

	avgBlockSize := cs.EstimateAverageBlockSize()
	blocksToPrune := uint64(10)
	if avgBlockSize > 0 {
		blocksToPrune = bytesToFree / avgBlockSize
		if blocksToPrune == 0 {
			blocksToPrune = 1
		}
	}

	oldest, err := cs.OldestStoredHeight()
	if err != nil {
		return 0, err
	}
	if oldest == 0 {
		return 0, nil
	}

	limit := tip - pruneKeepRecent
	pruned := 0
	for height := oldest; height <= limit && uint64(pruned) < blocksToPrune; height++ {
		b, err := cs.BlockByHeight(height)
		if err != nil {
			if errors.Is(err, errors.ErrCodeBlockNotFound) {
				continue
			}
			return pruned, err
		}

		batch := cs.provider.Batch()
		batch.Delete(heightToBlockKey(height))
		batch.Delete(hashToIdxKey(b.Hash))
		err = batch.Write()
		batch.Close()
		if err != nil {
			return pruned, errors.New(errors.ErrCodeBatchFailed, fmt.Sprintf("pruning block %d: %v", height, err))
		}
		pruned++
	}
	return pruned, nil
}

// Close closes the underlying provider
func (cs *ChainStore) Close() error {
	return cs.provider.Close()
}
