package config

const (
	DefaultCommitIntervalMs     = 10
	DefaultMaxTxPerBlock        = 10000
	DefaultMaxPoolSize          = 100000
	DefaultMaxTxDataSize        = 1024
	DefaultFinalizationWaitMs   = 2000
	DefaultMaxStorageSizeMb     = 0
	DefaultProduceEmptyBlocks   = false
	DefaultStatsIntervalSeconds = 10
)
