package games

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/jsonx"
	"github.com/atomiq-chain/atomiq/monitoring"
	"github.com/atomiq-chain/atomiq/transaction"
	"github.com/atomiq-chain/atomiq/vrf"
)

// Processor turns game transactions into settled results using the
// node's VRF engine. Execution happens inside the producer tick, so
// results are bound to the block that finalizes them. It also holds an
// in-memory index of committed results, mirroring the persisted ones,
// so lookups from request handlers never touch storage on the hot path.
type Processor struct {
	engine  *vrf.Engine
	results sync.Map
}

func NewProcessor(engine *vrf.Engine) *Processor {
	return &Processor{engine: engine}
}

// StoreResult records a committed result in the in-memory index. Only
// the producer calls this, after the commit batch succeeds; the node
// also seeds the index from storage at startup.
func (p *Processor) StoreResult(result *Result) {
	p.results.Store(result.TransactionID, result)
}

// ResultByTxID returns the indexed result for a transaction id
func (p *Processor) ResultByTxID(txID uint64) (*Result, bool) {
	v, ok := p.results.Load(txID)
	if !ok {
		return nil, false
	}
	return v.(*Result), true
}

// DecodeBet parses and validates the bet payload of a game transaction
func DecodeBet(tx *transaction.Transaction) (*BetData, error) {
	var bet BetData
	if err := jsonx.Unmarshal(tx.Data, &bet); err != nil {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			fmt.Sprintf("tx %d: malformed bet payload: %v", tx.ID, err))
	}
	if bet.GameType != GameCoinflip {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			fmt.Sprintf("tx %d: unsupported game type %q", tx.ID, bet.GameType))
	}
	if bet.PlayerChoice != CoinHeads && bet.PlayerChoice != CoinTails {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			fmt.Sprintf("tx %d: invalid player choice %q", tx.ID, bet.PlayerChoice))
	}
	if bet.BetAmount <= 0 {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			fmt.Sprintf("tx %d: bet amount must be positive", tx.ID))
	}
	token, ok := TokenBySymbol(bet.Token.Symbol)
	if !ok {
		return nil, errors.New(errors.ErrCodeDecodeFailed,
			fmt.Sprintf("tx %d: unsupported token %q", tx.ID, bet.Token.Symbol))
	}
	bet.Token = token
	return &bet, nil
}

// CoinFromOutput derives the coin face from the first output byte
func CoinFromOutput(output [32]byte) CoinSide {
	if output[0]%2 == 0 {
		return CoinHeads
	}
	return CoinTails
}

// Execute settles a game transaction against the pending block's
// context. BlockHash on the result is filled by the producer once the
// block hash exists.
func (p *Processor) Execute(tx *transaction.Transaction, prevBlockHash [32]byte, pendingHeight uint64, blockTimestampMs uint64) (*Result, error) {
	bet, err := DecodeBet(tx)
	if err != nil {
		monitoring.RecordRejectedTx(monitoring.TxDecodeFailed)
		return nil, err
	}

	message := vrf.InputMessage(tx.ID, string(bet.GameType), tx.Sender, prevBlockHash, pendingHeight, blockTimestampMs)
	proof, output := p.engine.Sign(message)

	coin := CoinFromOutput(output)
	outcome := OutcomeLoss
	payout := 0.0
	if bet.PlayerChoice == coin {
		outcome = OutcomeWin
		payout = bet.BetAmount * 2
	}

	result := &Result{
		TransactionID: tx.ID,
		PlayerAddress: tx.Sender,
		GameType:      bet.GameType,
		BetAmount:     bet.BetAmount,
		Token:         bet.Token,
		PlayerChoice:  bet.PlayerChoice,
		CoinResult:    coin,
		Outcome:       outcome,
		VRF: VRFBundle{
			VRFOutput:    hex.EncodeToString(output[:]),
			VRFProof:     hex.EncodeToString(proof),
			PublicKey:    p.engine.PublicKeyHex(),
			InputMessage: string(message),
		},
		Payout:      payout,
		Timestamp:   blockTimestampMs,
		BlockHeight: pendingHeight,
	}
	monitoring.RecordGamePlayed(string(bet.GameType), string(outcome))
	return result, nil
}

// VerifyResult re-derives everything in a stored result from its VRF
// bundle. prevBlockHash is the hash of the block before the one that
// committed the result, needed to rebuild the canonical input message.
func VerifyResult(result *Result, prevBlockHash [32]byte) error {
	expected := vrf.InputMessage(result.TransactionID, string(result.GameType), result.PlayerAddress,
		prevBlockHash, result.BlockHeight, result.Timestamp)
	if string(expected) != result.VRF.InputMessage {
		return errors.New(errors.ErrCodeInputMessageMismatch,
			"stored input message does not match the canonical form for this result")
	}

	pub, err := hex.DecodeString(result.VRF.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errors.New(errors.ErrCodeSignatureInvalid, "malformed public key")
	}
	proof, err := hex.DecodeString(result.VRF.VRFProof)
	if err != nil {
		return errors.New(errors.ErrCodeSignatureInvalid, "malformed proof")
	}
	outputBytes, err := hex.DecodeString(result.VRF.VRFOutput)
	if err != nil || len(outputBytes) != sha256.Size {
		return errors.New(errors.ErrCodeOutputMismatch, "malformed output")
	}
	var output [32]byte
	copy(output[:], outputBytes)

	if err := vrf.Verify(pub, expected, proof, output); err != nil {
		return err
	}

	coin := CoinFromOutput(output)
	if coin != result.CoinResult {
		return errors.New(errors.ErrCodeCoinMismatch, "coin result does not follow from the vrf output")
	}

	outcome := OutcomeLoss
	payout := 0.0
	if result.PlayerChoice == coin {
		outcome = OutcomeWin
		payout = result.BetAmount * 2
	}
	if outcome != result.Outcome || payout != result.Payout {
		return errors.New(errors.ErrCodeCoinMismatch, "outcome or payout does not follow from the coin result")
	}
	return nil
}
