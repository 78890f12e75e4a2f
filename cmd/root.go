package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "e164bill",
	Short: "DID range classification and monthly billing reports",
	Long:  "Classifies the DID inventory into contiguous ranges and products, prices them, writes the results back to the platform database, and generates monthly per-reseller billing reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
