package interfaces

import (
	"context"

	"github.com/atomiq-chain/atomiq/games"
)

// PlayOutcome is the response to a bet. Pending is set when the bet
// was accepted but did not finalize within the wait window, in which
// case only TxID is meaningful and the result can be fetched later.
type PlayOutcome struct {
	TxID    uint64
	Pending bool
	Result  *games.Result
}

type GameService interface {
	// Play submits a bet and waits for its finalization
	Play(ctx context.Context, playerAddress string, nonce uint64, bet *games.BetData) (*PlayOutcome, error)

	// GetResult returns the settled result for a game transaction
	GetResult(ctx context.Context, txID uint64) (*games.Result, error)

	// VerifyResult re-checks a stored result's VRF bundle against the chain
	VerifyResult(ctx context.Context, txID uint64) (*games.Result, error)
}
