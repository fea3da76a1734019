package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/config"
)

var (
	cfg     *config.Config
	noStore bool
)

var rootCmd = &cobra.Command{
	Use:   "reviewpower",
	Short: "Business review power scoring pipeline",
	Long:  "Ingests business and review feeds, aggregates ratings, scores review power, clusters and classifies businesses, and serves the dashboard API.",
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

func init() {
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "run without a store (no run bookkeeping or persisted records)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
