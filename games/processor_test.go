package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/jsonx"
	"github.com/atomiq-chain/atomiq/transaction"
	"github.com/atomiq-chain/atomiq/vrf"
)

func testProcessor(t *testing.T) *Processor {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i * 3)
	}
	engine, err := vrf.NewFromSeed(seed)
	require.NoError(t, err)
	return NewProcessor(engine)
}

func betTx(t *testing.T, id uint64, sender string, choice CoinSide) *transaction.Transaction {
	t.Helper()
	data, err := jsonx.Marshal(&BetData{
		GameType:     GameCoinflip,
		BetAmount:    1.5,
		Token:        Token{Symbol: "USDC"},
		PlayerChoice: choice,
	})
	require.NoError(t, err)
	return &transaction.Transaction{
		ID:     id,
		Type:   transaction.TxTypeGameBet,
		Sender: sender,
		Data:   data,
		Nonce:  1,
	}
}

func TestCoinFromOutputParity(t *testing.T) {
	var even, odd [32]byte
	even[0] = 42
	odd[0] = 43

	assert.Equal(t, CoinHeads, CoinFromOutput(even))
	assert.Equal(t, CoinTails, CoinFromOutput(odd))
}

func TestExecuteSettlesOutcomeFromDerivedCoin(t *testing.T) {
	p := testProcessor(t)
	var prev [32]byte

	result, err := p.Execute(betTx(t, 1, "alice", CoinHeads), prev, 1, 1700000000000)
	require.NoError(t, err)

	// win iff the player's choice equals the derived coin
	if result.CoinResult == result.PlayerChoice {
		assert.Equal(t, OutcomeWin, result.Outcome)
		assert.Equal(t, 3.0, result.Payout)
	} else {
		assert.Equal(t, OutcomeLoss, result.Outcome)
		assert.Equal(t, 0.0, result.Payout)
	}

	// either choice yields the same coin for the same tx context
	other, err := p.Execute(betTx(t, 1, "alice", CoinTails), prev, 1, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, result.CoinResult, other.CoinResult)
	assert.NotEqual(t, result.Outcome, other.Outcome)
}

func TestExecuteFillsResultFields(t *testing.T) {
	p := testProcessor(t)
	var prev [32]byte
	prev[5] = 0x55

	result, err := p.Execute(betTx(t, 9, "bob", CoinTails), prev, 12, 1700000000555)
	require.NoError(t, err)

	assert.Equal(t, uint64(9), result.TransactionID)
	assert.Equal(t, "bob", result.PlayerAddress)
	assert.Equal(t, GameCoinflip, result.GameType)
	assert.Equal(t, TokenUSDC.Mint, result.Token.Mint, "token must be resolved to the canonical table entry")
	assert.Equal(t, uint64(12), result.BlockHeight)
	assert.Equal(t, uint64(1700000000555), result.Timestamp)
	assert.NotEmpty(t, result.VRF.VRFOutput)
	assert.NotEmpty(t, result.VRF.VRFProof)
	assert.NotEmpty(t, result.VRF.PublicKey)
	assert.Contains(t, result.VRF.InputMessage, "tx-9:coinflip:bob:")
}

func TestExecuteRejectsMalformedBets(t *testing.T) {
	p := testProcessor(t)
	var prev [32]byte

	cases := map[string]*BetData{
		"bad game":   {GameType: "roulette", BetAmount: 1, Token: TokenSOL, PlayerChoice: CoinHeads},
		"bad choice": {GameType: GameCoinflip, BetAmount: 1, Token: TokenSOL, PlayerChoice: "edge"},
		"bad amount": {GameType: GameCoinflip, BetAmount: 0, Token: TokenSOL, PlayerChoice: CoinHeads},
		"bad token":  {GameType: GameCoinflip, BetAmount: 1, Token: Token{Symbol: "DOGE"}, PlayerChoice: CoinHeads},
	}

	for name, bet := range cases {
		data, err := jsonx.Marshal(bet)
		require.NoError(t, err)
		tx := &transaction.Transaction{ID: 1, Type: transaction.TxTypeGameBet, Sender: "x", Data: data}
		_, err = p.Execute(tx, prev, 1, 1)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, errors.ErrCodeDecodeFailed), name)
	}

	garbage := &transaction.Transaction{ID: 2, Type: transaction.TxTypeGameBet, Sender: "x", Data: []byte("{not json")}
	_, err := p.Execute(garbage, prev, 1, 1)
	assert.Error(t, err)
}

func TestVerifyResultRoundTrip(t *testing.T) {
	p := testProcessor(t)
	var prev [32]byte
	prev[1] = 0x11

	result, err := p.Execute(betTx(t, 3, "carol", CoinHeads), prev, 7, 1700000001000)
	require.NoError(t, err)

	assert.NoError(t, VerifyResult(result, prev))
}

func TestVerifyResultDetectsTampering(t *testing.T) {
	p := testProcessor(t)
	var prev [32]byte

	fresh := func() *Result {
		result, err := p.Execute(betTx(t, 4, "dave", CoinHeads), prev, 2, 1700000002000)
		require.NoError(t, err)
		return result
	}

	flipped := fresh()
	if flipped.CoinResult == CoinHeads {
		flipped.CoinResult = CoinTails
	} else {
		flipped.CoinResult = CoinHeads
	}
	err := VerifyResult(flipped, prev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCoinMismatch))

	paid := fresh()
	paid.Payout = 1000
	err = VerifyResult(paid, prev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCoinMismatch))

	moved := fresh()
	moved.BlockHeight++
	err = VerifyResult(moved, prev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInputMessageMismatch))

	var wrongPrev [32]byte
	wrongPrev[0] = 0xff
	err = VerifyResult(fresh(), wrongPrev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInputMessageMismatch))
}
