package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/segment"
)

var exportFormats = []string{"xlsx", "shp", "csv"}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the classified dataset as XLSX, shapefile or top-N CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formats, _ := cmd.Flags().GetStringSlice("format")
		dir, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = cfg.Export.Dir
		}
		topN, _ := cmd.Flags().GetInt("top")
		if topN <= 0 {
			topN = cfg.Export.TopN
		}

		rows, err := dataset.ReadClustered(filepath.Join(cfg.Pipeline.DataDir, dataset.ClusteredFile))
		if err != nil {
			return err
		}

		written, err := exportDataset(dir, formats, rows, topN)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(os.Stdout, path)
		}
		return nil
	},
}

// exportDataset writes rows in each requested format to dir and returns the
// paths written.
func exportDataset(dir string, formats []string, rows []model.BusinessRecord, topN int) ([]string, error) {
	for _, f := range formats {
		if !slices.Contains(exportFormats, f) {
			return nil, eris.Errorf("export: unknown format %q (want %s)", f, strings.Join(exportFormats, ", "))
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}

	top := segment.TopByRPS(rows, topN)
	var written []string
	for _, f := range formats {
		var paths []string
		var err error
		switch f {
		case "xlsx":
			paths, err = exportXLSX(dir, rows, top)
		case "shp":
			path := filepath.Join(dir, "business_clustered.shp")
			paths, err = []string{path}, dataset.WriteShapefile(path, rows)
		case "csv":
			path := filepath.Join(dir, "top_review_power.csv")
			paths, err = []string{path}, dataset.WriteCSV(path, top)
		}
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
	}
	zap.L().Info("export complete", zap.Int("rows", len(rows)), zap.Strings("files", written))
	return written, nil
}

func exportXLSX(dir string, rows, top []model.BusinessRecord) ([]string, error) {
	files := []struct {
		name  string
		sheet string
		rows  []model.BusinessRecord
	}{
		{"business_clustered.xlsx", "Businesses", rows},
		{"top_review_power.xlsx", "Top RPS", top},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		out, err := os.Create(path)
		if err != nil {
			return paths, eris.Wrapf(err, "export: create %s", path)
		}
		err = dataset.WriteXLSX(out, f.sheet, f.rows)
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = eris.Wrapf(closeErr, "export: close %s", path)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func init() {
	exportCmd.Flags().StringSlice("format", []string{"xlsx", "shp"}, "formats to write: xlsx, shp, csv")
	exportCmd.Flags().String("out", "", "output directory (default from config)")
	exportCmd.Flags().Int("top", 0, "number of businesses in the top list (default from config)")
	rootCmd.AddCommand(exportCmd)
}
