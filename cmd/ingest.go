package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/ingest"
	"github.com/sells-group/reviewpower/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the business and review feeds into the store",
	Long:  "Reads the JSON-lines business and review feeds and inserts them into the configured store in batches. Collections that already hold documents are skipped unless --drop is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if v, _ := cmd.Flags().GetString("businesses"); v != "" {
			cfg.Ingest.BusinessesPath = v
		}
		if v, _ := cmd.Flags().GetString("reviews"); v != "" {
			cfg.Ingest.ReviewsPath = v
		}
		if cmd.Flags().Changed("drop") {
			cfg.Ingest.DropExisting, _ = cmd.Flags().GetBool("drop")
		}
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, model.StageIngest)
		if err != nil {
			return eris.Wrap(err, "ingest: create run")
		}

		loader := ingest.NewLoader(st, ingest.Options{
			BatchSize:    cfg.Ingest.BatchSize,
			DropExisting: cfg.Ingest.DropExisting,
		})
		res, loadErr := loader.Load(ctx, cfg.Ingest.BusinessesPath, cfg.Ingest.ReviewsPath)

		result := model.RunResult{Err: loadErr}
		if res != nil {
			result.RowsIn = res.Businesses.Lines + res.Reviews.Lines
			result.RowsOut = int(res.Businesses.Inserted + res.Reviews.Inserted)
			result.Skipped = res.Businesses.Malformed + res.Reviews.Malformed
		}
		if err := st.FinishRun(ctx, run.ID, result); err != nil {
			zap.L().Warn("ingest: failed to record run", zap.Error(err))
		}
		if loadErr != nil {
			return loadErr
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	ingestCmd.Flags().String("businesses", "", "business feed path (default from config)")
	ingestCmd.Flags().String("reviews", "", "review feed path (default from config)")
	ingestCmd.Flags().Bool("drop", false, "empty both collections before loading")
	rootCmd.AddCommand(ingestCmd)
}
