package db

import "fmt"

// BackendType represents the type of storage backend
type BackendType string

const (
	// LevelDBBackend uses the LevelDB implementation
	LevelDBBackend BackendType = "leveldb"

	// RocksDBBackend uses the RocksDB implementation
	RocksDBBackend BackendType = "rocksdb"

	// BoltBackend uses the bbolt implementation
	BoltBackend BackendType = "bolt"

	// RedisBackend uses the Redis implementation
	RedisBackend BackendType = "redis"
)

// BackendConfig holds configuration for creating a provider
type BackendConfig struct {
	// Type specifies which backend implementation to use
	Type BackendType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based backends)
	Directory string `json:"directory" yaml:"directory"`

	// RedisAddr is the host:port of the Redis server (redis backend only)
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// RedisDB is the Redis logical database number (redis backend only)
	RedisDB int `json:"redis_db" yaml:"redis_db"`
}

// Validate validates the backend configuration
func (bc *BackendConfig) Validate() error {
	switch bc.Type {
	case LevelDBBackend, RocksDBBackend, BoltBackend:
		if bc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
		return nil
	case RedisBackend:
		if bc.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
		return nil
	case "":
		return fmt.Errorf("backend type cannot be empty")
	default:
		return fmt.Errorf("unsupported backend type: %s", bc.Type)
	}
}

// NewProvider creates a database provider based on the configuration.
// Every backend returned here also satisfies IterableProvider.
func NewProvider(config *BackendConfig) (DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBBackend:
		return NewLevelDBProvider(config.Directory)

	case RocksDBBackend:
		return NewRocksDBProvider(config.Directory)

	case BoltBackend:
		return NewBoltProvider(config.Directory)

	case RedisBackend:
		return NewRedisProvider(config.RedisAddr, config.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
