package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/server"
)

var (
	servePort      int
	serveFromStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API over the classified dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		snap, err := loadSnapshot(ctx)
		if err != nil {
			return err
		}

		srv := server.New(snap, server.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			TopN:           cfg.Export.TopN,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Port)
	},
}

// loadSnapshot reads the classified dataset from the store or from the
// dataset file, along with the run report when one is present.
func loadSnapshot(ctx context.Context) (*server.Snapshot, error) {
	var (
		records []model.BusinessRecord
		err     error
	)
	if serveFromStore {
		st, serr := initStore(ctx)
		if serr != nil {
			return nil, serr
		}
		defer st.Close() //nolint:errcheck
		records, err = st.ListRecords(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "serve: list records")
		}
	} else {
		records, err = dataset.ReadClustered(datasetPath())
		if err != nil {
			return nil, err
		}
	}

	report, err := readReport(filepath.Join(cfg.Pipeline.DataDir, dataset.ReportFile))
	if err != nil {
		return nil, err
	}
	if report == nil {
		zap.L().Warn("serve: no run report found, thresholds computed from dataset and cluster profiles unavailable")
	}
	return server.NewSnapshot(records, report, cfg.Pipeline.QualityMinRating)
}

func datasetPath() string {
	if cfg.Server.Dataset != "" {
		return cfg.Server.Dataset
	}
	return filepath.Join(cfg.Pipeline.DataDir, dataset.ClusteredFile)
}

// readReport returns nil when the report file does not exist.
func readReport(path string) (*dataset.Report, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return dataset.ReadReport(path)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveFromStore, "from-store", false, "serve the records persisted in the store instead of the dataset file")
	rootCmd.AddCommand(serveCmd)
}
