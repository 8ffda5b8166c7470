package producer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/config"
	"github.com/atomiq-chain/atomiq/db"
	"github.com/atomiq-chain/atomiq/events"
	"github.com/atomiq-chain/atomiq/games"
	"github.com/atomiq-chain/atomiq/jsonx"
	"github.com/atomiq-chain/atomiq/mempool"
	"github.com/atomiq-chain/atomiq/state"
	"github.com/atomiq-chain/atomiq/store"
	"github.com/atomiq-chain/atomiq/transaction"
	"github.com/atomiq-chain/atomiq/vrf"
)

type testEngine struct {
	dc        *DirectCommit
	pool      *mempool.Mempool
	chain     *store.ChainStore
	bus       *events.EventBus
	processor *games.Processor
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	dir := t.TempDir()

	provider, err := db.NewLevelDBProvider(dir)
	require.NoError(t, err)
	t.Cleanup(func() { provider.Close() })

	chain, err := store.NewChainStore(provider.(db.IterableProvider))
	require.NoError(t, err)

	engine, err := vrf.LoadOrCreate(provider)
	require.NoError(t, err)

	cfg := config.DefaultDirectCommitConfig()
	pool := mempool.NewMempool(cfg.MaxPoolSize, cfg.MaxTxDataSize)
	bus := events.NewEventBus()

	processor := games.NewProcessor(engine)
	dc := NewDirectCommit(cfg, pool, state.NewState(), chain, processor, bus, dir)
	return &testEngine{dc: dc, pool: pool, chain: chain, bus: bus, processor: processor}
}

func submitBet(t *testing.T, pool *mempool.Mempool, sender string, nonce uint64, choice games.CoinSide) uint64 {
	t.Helper()
	data, err := jsonx.Marshal(&games.BetData{
		GameType:     games.GameCoinflip,
		BetAmount:    1,
		Token:        games.TokenSOL,
		PlayerChoice: choice,
	})
	require.NoError(t, err)
	id, err := pool.Submit(&transaction.Transaction{
		Type:   transaction.TxTypeGameBet,
		Sender: sender,
		Data:   data,
		Nonce:  nonce,
	})
	require.NoError(t, err)
	return id
}

func TestEmptyTickProducesNoBlock(t *testing.T) {
	te := newTestEngine(t)

	require.NoError(t, te.dc.produceAndCommit())
	height, _ := te.chain.Tip()
	assert.Equal(t, uint64(0), height)
}

func TestEmptyTickProducesBlockWhenConfigured(t *testing.T) {
	te := newTestEngine(t)
	te.dc.cfg.ProduceEmptyBlocks = true

	require.NoError(t, te.dc.produceAndCommit())
	height, _ := te.chain.Tip()
	assert.Equal(t, uint64(1), height)

	b, err := te.chain.BlockByHeight(1)
	require.NoError(t, err)
	assert.Empty(t, b.Transactions)
	assert.True(t, b.VerifyHash())
}

func TestTickCommitsBetsAndPublishes(t *testing.T) {
	te := newTestEngine(t)

	sub := te.bus.Subscribe()
	defer te.bus.Unsubscribe(sub.ID)

	// ten bets from ten players land in one block
	ids := make([]uint64, 10)
	for i := 0; i < 10; i++ {
		ids[i] = submitBet(t, te.pool, string(rune('a'+i))+"-player", 1, games.CoinHeads)
	}

	require.NoError(t, te.dc.produceAndCommit())

	event, err := sub.WaitForTransaction(ids[9], time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), event.Height)
	assert.Len(t, event.TxIDs, 10)

	b, err := te.chain.BlockByHeight(1)
	require.NoError(t, err)
	require.Len(t, b.Transactions, 10)
	assert.True(t, b.VerifyTransactionsRoot())

	// every bet has a settled result bound to this block
	for _, id := range ids {
		result, err := te.chain.GameResult(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), result.BlockHeight)
		assert.Equal(t, b.HashHex(), result.BlockHash)
		assert.NoError(t, games.VerifyResult(result, b.PrevHash))
	}
}

func TestCommitPopulatesResultIndex(t *testing.T) {
	te := newTestEngine(t)

	id := submitBet(t, te.pool, "alice", 1, games.CoinHeads)
	_, indexed := te.processor.ResultByTxID(id)
	assert.False(t, indexed)

	require.NoError(t, te.dc.produceAndCommit())

	b, err := te.chain.BlockByHeight(1)
	require.NoError(t, err)

	result, indexed := te.processor.ResultByTxID(id)
	require.True(t, indexed)
	assert.Equal(t, b.HashHex(), result.BlockHash)

	stored, err := te.chain.GameResult(id)
	require.NoError(t, err)
	assert.Equal(t, stored.VRF.VRFOutput, result.VRF.VRFOutput)
}

func TestBlocksLinkAcrossTicks(t *testing.T) {
	te := newTestEngine(t)

	submitBet(t, te.pool, "alice", 1, games.CoinHeads)
	require.NoError(t, te.dc.produceAndCommit())

	submitBet(t, te.pool, "alice", 2, games.CoinTails)
	require.NoError(t, te.dc.produceAndCommit())

	b1, err := te.chain.BlockByHeight(1)
	require.NoError(t, err)
	b2, err := te.chain.BlockByHeight(2)
	require.NoError(t, err)

	assert.Equal(t, b1.Hash, b2.PrevHash)
	require.NoError(t, te.chain.VerifyChain(nil))
}

func TestInvalidNonceIsDroppedNotCommitted(t *testing.T) {
	te := newTestEngine(t)

	good := submitBet(t, te.pool, "alice", 1, games.CoinHeads)
	bad := submitBet(t, te.pool, "bob", 7, games.CoinHeads)

	require.NoError(t, te.dc.produceAndCommit())

	b, err := te.chain.BlockByHeight(1)
	require.NoError(t, err)
	require.Len(t, b.Transactions, 1)
	assert.Equal(t, good, b.Transactions[0].ID)

	_, _, err = te.chain.TransactionByID(bad)
	assert.Error(t, err)
}

func TestAllInvalidTickCommitsNothing(t *testing.T) {
	te := newTestEngine(t)

	submitBet(t, te.pool, "bob", 7, games.CoinHeads)
	require.NoError(t, te.dc.produceAndCommit())

	height, _ := te.chain.Tip()
	assert.Equal(t, uint64(0), height)
}

func TestDroppedTxCanBeResubmitted(t *testing.T) {
	te := newTestEngine(t)

	submitBet(t, te.pool, "bob", 7, games.CoinHeads)
	require.NoError(t, te.dc.produceAndCommit())

	// the dedup entry was released with the drop
	submitBet(t, te.pool, "bob", 7, games.CoinHeads)
	assert.Equal(t, 1, te.pool.Len())
}

func TestStartStop(t *testing.T) {
	te := newTestEngine(t)
	te.dc.cfg.CommitIntervalMs = 5

	sub := te.bus.Subscribe()
	defer te.bus.Unsubscribe(sub.ID)

	te.dc.Start()
	id := submitBet(t, te.pool, "alice", 1, games.CoinTails)

	event, err := sub.WaitForTransaction(id, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, event.Contains(id))

	te.dc.Stop()
}
