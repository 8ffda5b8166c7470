package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements DatabaseProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// convertKeyToHumanReadable renders the binary key suffixes as text so
// chain keys stay inspectable through redis-cli.
func convertKeyToHumanReadable(key []byte) string {
	for _, prefix := range []string{"block:height:", "tx_idx:", "game_result:"} {
		if len(key) == len(prefix)+8 && string(key[:len(prefix)]) == prefix {
			return fmt.Sprintf("%s%d", prefix, binary.BigEndian.Uint64(key[len(prefix):]))
		}
	}
	if prefix := "hash_idx:"; len(key) == len(prefix)+32 && string(key[:len(prefix)]) == prefix {
		return prefix + hex.EncodeToString(key[len(prefix):])
	}
	return string(key)
}

// convertKeyFromHumanReadable is the inverse of
// convertKeyToHumanReadable, restoring the canonical binary key form
// that callers compare and sort against.
func convertKeyFromHumanReadable(key string) []byte {
	for _, prefix := range []string{"block:height:", "tx_idx:", "game_result:"} {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		n, err := strconv.ParseUint(key[len(prefix):], 10, 64)
		if err != nil {
			break
		}
		out := make([]byte, len(prefix)+8)
		copy(out, prefix)
		binary.BigEndian.PutUint64(out[len(prefix):], n)
		return out
	}
	if prefix := "hash_idx:"; strings.HasPrefix(key, prefix) {
		raw, err := hex.DecodeString(key[len(prefix):])
		if err == nil && len(raw) == 32 {
			return append([]byte(prefix), raw...)
		}
	}
	return []byte(key)
}

// NewRedisProvider creates a new Redis provider
func NewRedisProvider(address string, database int) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   database,
	})

	ctx := context.Background()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get retrieves a value by key
func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	redisKey := convertKeyToHumanReadable(key)
	value, err := p.client.Get(p.ctx, redisKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return []byte(value), nil
}

// GetBatch retrieves multiple values by keys with a single MGET
func (p *RedisProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = convertKeyToHumanReadable(key)
	}

	values, err := p.client.MGet(p.ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		result[string(keys[i])] = []byte(s)
	}
	return result, nil
}

// Put stores a key-value pair
func (p *RedisProvider) Put(key, value []byte) error {
	return p.client.Set(p.ctx, convertKeyToHumanReadable(key), value, 0).Err()
}

// Delete removes a key-value pair
func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(p.ctx, convertKeyToHumanReadable(key)).Err()
}

// Has checks if a key exists
func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(p.ctx, convertKeyToHumanReadable(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the database connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a new batch for atomic operations
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix implements IterableProvider for Redis. SCAN returns
// keys in arbitrary order and possibly more than once, so all matches
// are collected first, restored to their canonical binary form and
// sorted; callers then see the same ascending key order the embedded
// backends produce.
func (p *RedisProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	pattern := string(prefix) + "*"
	var matched [][]byte
	var cursor uint64
	for {
		keys, newCursor, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		cursor = newCursor
		for _, k := range keys {
			matched = append(matched, convertKeyFromHumanReadable(k))
		}
		if cursor == 0 {
			break
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return bytes.Compare(matched[i], matched[j]) < 0
	})

	var prev []byte
	for _, key := range matched {
		if prev != nil && bytes.Equal(key, prev) {
			continue
		}
		prev = key
		val, err := p.client.Get(p.ctx, convertKeyToHumanReadable(key)).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return err
		}
		if !fn(key, val) {
			return nil
		}
	}
	return nil
}

// RedisBatch implements DatabaseBatch on top of a transactional pipeline
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

// Put adds a key-value pair to the batch
func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(b.ctx, convertKeyToHumanReadable(key), value, 0)
}

// Delete adds a deletion to the batch
func (b *RedisBatch) Delete(key []byte) {
	b.pipe.Del(b.ctx, convertKeyToHumanReadable(key))
}

// Write commits all operations in the batch
func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

// Reset clears the batch
func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

// Close releases batch resources
func (b *RedisBatch) Close() {
	b.pipe.Discard()
}
