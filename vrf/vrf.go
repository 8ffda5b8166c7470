package vrf

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/atomiq-chain/atomiq/db"
	"github.com/atomiq-chain/atomiq/errors"
	"github.com/atomiq-chain/atomiq/logx"
)

// KeypairKey is where the engine persists its seed and public key
const KeypairKey = "vrf:keypair"

const seedSize = ed25519.SeedSize

// Engine produces verifiable random outputs from ed25519 signatures.
// The deterministic signature over the input message is the proof and
// sha256 of the proof is the random output, so anyone holding the
// public key can re-derive and check both.
type Engine struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewFromSeed builds an engine from a 32-byte ed25519 seed
func NewFromSeed(seed []byte) (*Engine, error) {
	if len(seed) != seedSize {
		return nil, fmt.Errorf("vrf seed must be %d bytes, got %d", seedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Engine{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// LoadOrCreate loads the persisted keypair or generates and persists a
// new one. The seed is written before first use so a crash between
// generate and persist cannot leave signed outputs behind an
// unrecoverable key.
func LoadOrCreate(provider db.DatabaseProvider) (*Engine, error) {
	raw, err := provider.Get([]byte(KeypairKey))
	if err != nil {
		return nil, errors.New(errors.ErrCodeStorageUnavailable,
			fmt.Sprintf("reading vrf keypair: %v", err))
	}

	if raw != nil {
		if len(raw) != seedSize+ed25519.PublicKeySize {
			return nil, errors.New(errors.ErrCodeCorruptedData,
				fmt.Sprintf("vrf keypair record is %d bytes, want %d", len(raw), seedSize+ed25519.PublicKeySize))
		}
		engine, err := NewFromSeed(raw[:seedSize])
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(engine.pub, raw[seedSize:]) {
			return nil, errors.New(errors.ErrCodeCorruptedData, "vrf keypair record does not match its seed")
		}
		logx.Info("VRF", "Loaded persisted keypair, public key:", engine.PublicKeyHex())
		return engine, nil
	}

	seed := make([]byte, seedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generating vrf seed: %w", err)
	}
	engine, err := NewFromSeed(seed)
	if err != nil {
		return nil, err
	}

	record := append(append(make([]byte, 0, seedSize+ed25519.PublicKeySize), seed...), engine.pub...)
	if err := provider.Put([]byte(KeypairKey), record); err != nil {
		return nil, errors.New(errors.ErrCodeStorageUnavailable,
			fmt.Sprintf("persisting vrf keypair: %v", err))
	}
	logx.Info("VRF", "Generated new keypair, public key:", engine.PublicKeyHex())
	return engine, nil
}

// PublicKey returns the engine's ed25519 public key
func (e *Engine) PublicKey() ed25519.PublicKey {
	return e.pub
}

// PublicKeyHex returns the lowercase hex public key
func (e *Engine) PublicKeyHex() string {
	return hex.EncodeToString(e.pub)
}

// Sign produces the proof and output for message
func (e *Engine) Sign(message []byte) (proof []byte, output [32]byte) {
	proof = ed25519.Sign(e.priv, message)
	output = sha256.Sum256(proof)
	return proof, output
}

// Verify checks that proof is a valid signature over message under
// pub and that output equals sha256(proof).
func Verify(pub ed25519.PublicKey, message, proof []byte, output [32]byte) error {
	if !ed25519.Verify(pub, message, proof) {
		return errors.New(errors.ErrCodeSignatureInvalid, "vrf proof is not a valid signature over the input message")
	}
	if sha256.Sum256(proof) != output {
		return errors.New(errors.ErrCodeOutputMismatch, "vrf output is not the hash of the proof")
	}
	return nil
}

// InputMessage builds the canonical per-transaction message the
// producer signs. It binds the bet to the pending block so outputs
// cannot be precomputed before the previous block exists.
func InputMessage(txID uint64, gameType, playerAddress string, prevBlockHash [32]byte, pendingHeight uint64, blockTimestampMs uint64) []byte {
	msg := fmt.Sprintf("tx-%d:%s:%s:block_hash:%s,tx:%d,height:%d,time:%d",
		txID, gameType, playerAddress,
		hex.EncodeToString(prevBlockHash[:]),
		txID, pendingHeight, blockTimestampMs)
	return []byte(msg)
}
