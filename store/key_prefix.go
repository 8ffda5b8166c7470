package store

import "encoding/binary"

// Declare database key prefix for objects
const (
	PrefixBlockHeight = "block:height:"
	PrefixHashIdx     = "hash_idx:"
	PrefixTxIdx       = "tx_idx:"
	PrefixGameResult  = "game_result:"

	KeyLatestHeight = "chain:latest_height"
	KeyLatestHash   = "chain:latest_hash"
)

// uint64Key builds prefix + big-endian height/id, so lexicographic
// iteration order matches numeric order.
func uint64Key(prefix string, n uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], n)
	return key
}

func heightToBlockKey(height uint64) []byte {
	return uint64Key(PrefixBlockHeight, height)
}

func hashToIdxKey(hash [32]byte) []byte {
	key := make([]byte, len(PrefixHashIdx)+32)
	copy(key, PrefixHashIdx)
	copy(key[len(PrefixHashIdx):], hash[:])
	return key
}

func txIDToIdxKey(txID uint64) []byte {
	return uint64Key(PrefixTxIdx, txID)
}

func gameResultKey(txID uint64) []byte {
	return uint64Key(PrefixGameResult, txID)
}
