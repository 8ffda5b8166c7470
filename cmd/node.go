package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atomiq-chain/atomiq/config"
	"github.com/atomiq-chain/atomiq/logx"
	"github.com/atomiq-chain/atomiq/node"
)

var (
	nodeConfigPath   string
	engineConfigPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the blockchain node",
	Run: func(cmd *cobra.Command, args []string) {
		runNode()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&nodeConfigPath, "config", "c", "config/node.yml", "Path to the node config file")
	runCmd.Flags().StringVar(&engineConfigPath, "engine-config", "config/engine.ini", "Path to the producer tuning file")
}

func runNode() {
	cfg, err := config.LoadNodeConfig(nodeConfigPath)
	if err != nil {
		log.Fatalf("Failed to load node config: %v", err)
	}

	dcCfg := config.DefaultDirectCommitConfig()
	if _, statErr := os.Stat(engineConfigPath); statErr == nil {
		dcCfg, err = config.LoadDirectCommitConfig(engineConfigPath)
		if err != nil {
			log.Fatalf("Failed to load engine config: %v", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", cfg.DataDir, err)
	}

	n, err := node.New(cfg, dcCfg)
	if err != nil {
		log.Fatalf("Failed to initialize node: %v", err)
	}
	n.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logx.Info("CMD", "shutdown signal received")
	n.Stop()
}
