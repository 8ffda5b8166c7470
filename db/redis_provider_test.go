package db

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaryKey(prefix string, n uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], n)
	return key
}

func TestRedisKeyConversionRoundTrip(t *testing.T) {
	keys := [][]byte{
		binaryKey("block:height:", 1),
		binaryKey("block:height:", 256),
		binaryKey("tx_idx:", 123),
		binaryKey("game_result:", 9000),
		append([]byte("hash_idx:"), bytes.Repeat([]byte{0xab}, 32)...),
		[]byte("chain:latest_height"),
		[]byte("chain:latest_hash"),
		[]byte("vrf:keypair"),
	}
	for _, key := range keys {
		human := convertKeyToHumanReadable(key)
		assert.Equal(t, key, convertKeyFromHumanReadable(human), human)
	}
}

func TestRedisKeysSortNumericallyAfterConversion(t *testing.T) {
	// the order SCAN happens to return keys in
	scanned := []string{
		"block:height:10",
		"block:height:2",
		"block:height:256",
		"block:height:1",
	}

	restored := make([][]byte, len(scanned))
	for i, k := range scanned {
		restored[i] = convertKeyFromHumanReadable(k)
	}
	sort.Slice(restored, func(i, j int) bool {
		return bytes.Compare(restored[i], restored[j]) < 0
	})

	heights := make([]uint64, len(restored))
	for i, key := range restored {
		require.Len(t, key, len("block:height:")+8)
		heights[i] = binary.BigEndian.Uint64(key[len("block:height:"):])
	}
	assert.Equal(t, []uint64{1, 2, 10, 256}, heights)
}
