package node

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atomiq-chain/atomiq/block"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/interfaces"
	"github.com/atomiq-chain/atomiq/jsonx"
	"github.com/atomiq-chain/atomiq/monitoring"
	"github.com/atomiq-chain/atomiq/transaction"
)

// SubmitTransaction queues a transaction and returns its assigned id
func (n *Node) SubmitTransaction(ctx context.Context, tx *transaction.Transaction) (uint64, error) {
	monitoring.IncreaseIngressTxCount()
	if tx.Sender == "" {
		return 0, errors.New(errors.ErrCodeDecodeFailed, "sender cannot be empty")
	}
	return n.pool.Submit(tx)
}

// GetTransaction looks up a finalized transaction by id
func (n *Node) GetTransaction(ctx context.Context, txID uint64) (*interfaces.FinalizedTx, error) {
	tx, height, err := n.chain.TransactionByID(txID)
	if err != nil {
		return nil, err
	}
	b, err := n.chain.BlockByHeight(height)
	if err != nil {
		return nil, err
	}
	return &interfaces.FinalizedTx{
		Tx:          tx,
		BlockHeight: height,
		BlockHash:   b.HashHex(),
	}, nil
}

// GetBlockByHeight returns the block at height
func (n *Node) GetBlockByHeight(ctx context.Context, height uint64) (*block.Block, error) {
	return n.chain.BlockByHeight(height)
}

// GetBlockByHash returns the block with the given hex hash
func (n *Node) GetBlockByHash(ctx context.Context, hashHex string) (*block.Block, error) {
	raw, err := hex.DecodeString(hashHex)
	if err != nil || len(raw) != 32 {
		return nil, errors.New(errors.ErrCodeBlockNotFound, fmt.Sprintf("malformed block hash %q", hashHex))
	}
	var hash [32]byte
	copy(hash[:], raw)
	return n.chain.BlockByHash(hash)
}

// GetStatus reports the chain tip and pool depth
func (n *Node) GetStatus(ctx context.Context) (*interfaces.ChainStatus, error) {
	height, hash := n.chain.Tip()
	return &interfaces.ChainStatus{
		Height:       height,
		LatestHash:   hex.EncodeToString(hash[:]),
		PendingTxs:   n.pool.Len(),
		VRFPublicKey: n.engine.PublicKeyHex(),
	}, nil
}

// Play submits a bet and blocks until its block commits or the wait
// window elapses. The subscription is taken before the submit so the
// commit event cannot be missed.
func (n *Node) Play(ctx context.Context, playerAddress string, nonce uint64, bet *games.BetData) (*interfaces.PlayOutcome, error) {
	if playerAddress == "" {
		return nil, errors.New(errors.ErrCodeDecodeFailed, "player address cannot be empty")
	}

	data, err := jsonx.Marshal(bet)
	if err != nil {
		return nil, errors.New(errors.ErrCodeDecodeFailed, fmt.Sprintf("encoding bet: %v", err))
	}
	tx := &transaction.Transaction{
		Type:   transaction.TxTypeGameBet,
		Sender: playerAddress,
		Data:   data,
		Nonce:  nonce,
	}
	// reject malformed bets before they occupy a pool slot
	if _, err := games.DecodeBet(tx); err != nil {
		return nil, err
	}

	sub := n.bus.Subscribe()
	defer n.bus.Unsubscribe(sub.ID)

	monitoring.IncreaseIngressTxCount()
	start := time.Now()
	txID, err := n.pool.Submit(tx)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(n.dcCfg.FinalizationWaitTimeoutMs) * time.Millisecond
	if _, err := sub.WaitForTransaction(txID, timeout); err != nil {
		if errors.Is(err, errors.ErrCodeTimeout) {
			return &interfaces.PlayOutcome{TxID: txID, Pending: true}, nil
		}
		return nil, err
	}
	monitoring.RecordTimeToFinality(time.Since(start))

	result, err := n.GetResult(ctx, txID)
	if err != nil {
		return nil, err
	}
	return &interfaces.PlayOutcome{TxID: txID, Result: result}, nil
}

// GetResult returns the settled result for a game transaction. The
// processor's index answers without a storage read; results committed
// by earlier runs are seeded into it at startup.
func (n *Node) GetResult(ctx context.Context, txID uint64) (*games.Result, error) {
	if result, ok := n.processor.ResultByTxID(txID); ok {
		return result, nil
	}
	return n.chain.GameResult(txID)
}

// VerifyResult re-derives a stored result from its VRF bundle. The
// committing block must still be stored, since its parent hash is part
// of the signed input message.
func (n *Node) VerifyResult(ctx context.Context, txID uint64) (*games.Result, error) {
	result, err := n.chain.GameResult(txID)
	if err != nil {
		return nil, err
	}

	b, err := n.chain.BlockByHeight(result.BlockHeight)
	if err != nil {
		return nil, err
	}
	if b.HashHex() != result.BlockHash {
		return nil, errors.New(errors.ErrCodeCorruptedData,
			fmt.Sprintf("result for tx %d names block hash %s but height %d holds %s",
				txID, result.BlockHash, result.BlockHeight, b.HashHex()))
	}

	if err := games.VerifyResult(result, b.PrevHash); err != nil {
		return nil, err
	}
	return result, nil
}
