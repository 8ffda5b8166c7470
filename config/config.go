package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// LoadNodeConfig reads and parses the node.yml file
func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening node config")
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, errors.Wrap(err, "decoding node config")
	}
	if cfgFile.Config.DBBackend == "" {
		cfgFile.Config.DBBackend = "leveldb"
	}
	if cfgFile.Config.DataDir == "" {
		cfgFile.Config.DataDir = "./data"
	}
	return &cfgFile.Config, nil
}

type DirectCommitConfig struct {
	CommitIntervalMs          int   `ini:"direct_commit_interval_ms"`
	MaxTxPerBlock             int   `ini:"max_tx_per_block"`
	MaxPoolSize               int   `ini:"max_pool_size"`
	MaxTxDataSize             int   `ini:"max_tx_data_size"`
	FinalizationWaitTimeoutMs int   `ini:"finalization_wait_timeout_ms"`
	MaxStorageSizeMb          int64 `ini:"max_storage_size_mb"`
	ProduceEmptyBlocks        bool  `ini:"produce_empty_blocks"`
	StatsIntervalSeconds      int   `ini:"stats_interval_seconds"`
}

func DefaultDirectCommitConfig() *DirectCommitConfig {
	return &DirectCommitConfig{
		CommitIntervalMs:          DefaultCommitIntervalMs,
		MaxTxPerBlock:             DefaultMaxTxPerBlock,
		MaxPoolSize:               DefaultMaxPoolSize,
		MaxTxDataSize:             DefaultMaxTxDataSize,
		FinalizationWaitTimeoutMs: DefaultFinalizationWaitMs,
		MaxStorageSizeMb:          DefaultMaxStorageSizeMb,
		ProduceEmptyBlocks:        DefaultProduceEmptyBlocks,
		StatsIntervalSeconds:      DefaultStatsIntervalSeconds,
	}
}

// LoadDirectCommitConfig reads producer tuning from an .ini file. Missing
// keys keep their defaults.
func LoadDirectCommitConfig(path string) (*DirectCommitConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening engine config")
	}
	dcSection := cfg.Section("direct_commit")
	dcCfg := DefaultDirectCommitConfig()
	err = dcSection.MapTo(dcCfg)
	if err != nil {
		return nil, errors.Wrap(err, "mapping [direct_commit] section")
	}
	return dcCfg, nil
}
