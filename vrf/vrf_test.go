package vrf

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomiq-chain/atomiq/db"
	"github.com/atomiq-chain/atomiq/errors"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	engine, err := NewFromSeed(seed)
	require.NoError(t, err)
	return engine
}

func TestSignDeterministic(t *testing.T) {
	engine := testEngine(t)
	message := []byte("tx-1:coinflip:alice:block_hash:00,tx:1,height:1,time:1")

	proof1, output1 := engine.Sign(message)
	proof2, output2 := engine.Sign(message)

	assert.Equal(t, proof1, proof2)
	assert.Equal(t, output1, output2)
	assert.Equal(t, sha256.Sum256(proof1), output1)
}

func TestDifferentMessagesDifferentOutputs(t *testing.T) {
	engine := testEngine(t)

	_, a := engine.Sign([]byte("message-a"))
	_, b := engine.Sign([]byte("message-b"))
	assert.NotEqual(t, a, b)
}

func TestVerifyRoundTrip(t *testing.T) {
	engine := testEngine(t)
	message := []byte("some input")
	proof, output := engine.Sign(message)

	assert.NoError(t, Verify(engine.PublicKey(), message, proof, output))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	engine := testEngine(t)
	message := []byte("some input")
	proof, output := engine.Sign(message)

	tampered := append([]byte(nil), proof...)
	tampered[0] ^= 0x01

	err := Verify(engine.PublicKey(), message, tampered, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSignatureInvalid))
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	engine := testEngine(t)
	message := []byte("some input")
	proof, output := engine.Sign(message)

	output[0] ^= 0x01
	err := Verify(engine.PublicKey(), message, proof, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeOutputMismatch))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	engine := testEngine(t)
	proof, output := engine.Sign([]byte("original"))

	err := Verify(engine.PublicKey(), []byte("originaM"), proof, output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSignatureInvalid))
}

func TestLoadOrCreatePersistsKeypair(t *testing.T) {
	dir := t.TempDir()

	provider, err := db.NewLevelDBProvider(dir)
	require.NoError(t, err)

	first, err := LoadOrCreate(provider)
	require.NoError(t, err)
	firstPub := first.PublicKeyHex()
	require.NoError(t, provider.Close())

	// reopen: the same key must come back
	provider, err = db.NewLevelDBProvider(dir)
	require.NoError(t, err)
	defer provider.Close()

	second, err := LoadOrCreate(provider)
	require.NoError(t, err)
	assert.Equal(t, firstPub, second.PublicKeyHex())

	message := []byte("stable across restarts")
	proof1, _ := first.Sign(message)
	proof2, _ := second.Sign(message)
	assert.Equal(t, proof1, proof2)
}

func TestInputMessageFormat(t *testing.T) {
	var prev [32]byte
	prev[0] = 0xaa
	prev[31] = 0xbb

	msg := InputMessage(12, "coinflip", "player-x", prev, 34, 1700000000123)
	expected := "tx-12:coinflip:player-x:block_hash:aa000000000000000000000000000000000000000000000000000000000000bb,tx:12,height:34,time:1700000000123"
	assert.Equal(t, expected, string(msg))
}
