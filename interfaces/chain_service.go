package interfaces

import (
	"context"

	"github.com/atomiq-chain/atomiq/block"
)

// ChainStatus is a point-in-time view of the node
type ChainStatus struct {
	Height       uint64 `json:"height"`
	LatestHash   string `json:"latest_hash"`
	PendingTxs   int    `json:"pending_txs"`
	VRFPublicKey string `json:"vrf_public_key"`
}

type ChainService interface {
	GetBlockByHeight(ctx context.Context, height uint64) (*block.Block, error)
	GetBlockByHash(ctx context.Context, hashHex string) (*block.Block, error)
	GetStatus(ctx context.Context) (*ChainStatus, error)
}
