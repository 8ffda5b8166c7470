package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/config"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/transaction"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	cfg := &config.NodeConfig{
		ListenAddr: "127.0.0.1:0",
		DataDir:    t.TempDir(),
		DBBackend:  "leveldb",
	}
	dcCfg := config.DefaultDirectCommitConfig()
	dcCfg.CommitIntervalMs = 5
	dcCfg.FinalizationWaitTimeoutMs = 2000

	n, err := New(cfg, dcCfg)
	require.NoError(t, err)

	n.producer.Start()
	t.Cleanup(func() {
		n.producer.Stop()
		n.bus.Close()
		n.chain.Close()
	})
	return n
}

func coinflipBet(choice games.CoinSide) *games.BetData {
	return &games.BetData{
		GameType:     games.GameCoinflip,
		BetAmount:    2.5,
		Token:        games.TokenUSDT,
		PlayerChoice: choice,
	}
}

func TestPlaySettlesAndVerifies(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	outcome, err := n.Play(ctx, "alice", 1, coinflipBet(games.CoinHeads))
	require.NoError(t, err)
	require.False(t, outcome.Pending)
	require.NotNil(t, outcome.Result)

	result := outcome.Result
	assert.Equal(t, outcome.TxID, result.TransactionID)
	if result.CoinResult == games.CoinHeads {
		assert.Equal(t, games.OutcomeWin, result.Outcome)
		assert.Equal(t, 5.0, result.Payout)
	} else {
		assert.Equal(t, games.OutcomeLoss, result.Outcome)
		assert.Equal(t, 0.0, result.Payout)
	}

	// the settled result is queryable and passes chain-backed verification
	stored, err := n.GetResult(ctx, outcome.TxID)
	require.NoError(t, err)
	assert.Equal(t, result.VRF.VRFOutput, stored.VRF.VRFOutput)

	verified, err := n.VerifyResult(ctx, outcome.TxID)
	require.NoError(t, err)
	assert.Equal(t, result.Outcome, verified.Outcome)
}

func TestPlayRejectsMalformedBet(t *testing.T) {
	n := newTestNode(t)

	bad := &games.BetData{GameType: "slots", BetAmount: 1, Token: games.TokenSOL, PlayerChoice: games.CoinHeads}
	_, err := n.Play(context.Background(), "alice", 1, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDecodeFailed))
}

func TestPlayWithBadNonceStaysPending(t *testing.T) {
	n := newTestNode(t)
	n.dcCfg.FinalizationWaitTimeoutMs = 100

	outcome, err := n.Play(context.Background(), "alice", 9, coinflipBet(games.CoinTails))
	require.NoError(t, err)
	assert.True(t, outcome.Pending)
	assert.NotZero(t, outcome.TxID)
}

func TestChainLookupsAfterPlay(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	outcome, err := n.Play(ctx, "bob", 1, coinflipBet(games.CoinHeads))
	require.NoError(t, err)
	require.False(t, outcome.Pending)

	found, err := n.GetTransaction(ctx, outcome.TxID)
	require.NoError(t, err)
	assert.Equal(t, "bob", found.Tx.Sender)
	assert.Equal(t, outcome.Result.BlockHash, found.BlockHash)

	byHeight, err := n.GetBlockByHeight(ctx, found.BlockHeight)
	require.NoError(t, err)
	assert.Equal(t, found.BlockHash, byHeight.HashHex())

	byHash, err := n.GetBlockByHash(ctx, found.BlockHash)
	require.NoError(t, err)
	assert.Equal(t, byHeight.Height, byHash.Height)

	status, err := n.GetStatus(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, status.Height, found.BlockHeight)
	assert.Equal(t, n.engine.PublicKeyHex(), status.VRFPublicKey)
}

func TestSubmitStandardTransaction(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	tx := &transaction.Transaction{
		Type:   transaction.TxTypeStandard,
		Sender: "carol",
		Data:   []byte("hello"),
		Nonce:  1,
	}
	id, err := n.SubmitTransaction(ctx, tx)
	require.NoError(t, err)
	assert.NotZero(t, id)

	empty := &transaction.Transaction{Nonce: 1}
	_, err = n.SubmitTransaction(ctx, empty)
	assert.Error(t, err)
}
