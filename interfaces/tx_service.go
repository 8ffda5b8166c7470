package interfaces

import (
	"context"

	"github.com/atomiq-chain/atomiq/transaction"
)

// FinalizedTx is a committed transaction with its chain location
type FinalizedTx struct {
	Tx          *transaction.Transaction
	BlockHeight uint64
	BlockHash   string
}

type TxService interface {
	// SubmitTransaction queues a transaction and returns its assigned id
	SubmitTransaction(ctx context.Context, tx *transaction.Transaction) (uint64, error)

	// GetTransaction looks up a finalized transaction by id
	GetTransaction(ctx context.Context, txID uint64) (*FinalizedTx, error)
}
