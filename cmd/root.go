package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/atomiq-chain/atomiq/logx"
)

var rootCmd = &cobra.Command{
	Use:   "atomiq",
	Short: "Atomiq blockchain node CLI",
	Long:  "Command line interface for running and inspecting an Atomiq game-chain node.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
