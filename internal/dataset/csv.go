// Package dataset reads and writes the pipeline's stage files and exports.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/model"
)

// Stage file names inside the data directory.
const (
	MergedFile    = "reviews_business.csv"
	FeaturedFile  = "featured_business.csv"
	ClusteredFile = "business_clustered.csv"
	ReportFile    = "run_report.yaml"
)

// ReadCSV decodes every row of a headered CSV file into T.
func ReadCSV[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	rows, err := DecodeCSV[T](f)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return rows, nil
}

// DecodeCSV decodes a headered CSV stream into T. An empty stream yields no rows.
func DecodeCSV[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bufio.NewReader(r)))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "dataset: read header")
	}

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, eris.Wrapf(err, "dataset: decode row %d", len(out)+1)
		}
		out = append(out, v)
	}
}

// WriteCSV writes rows with a header row to path, creating parent directories.
// The file is written to a temp name and renamed so readers never see a
// partial dataset.
func WriteCSV[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "dataset: create dir for %s", path)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "dataset: create temp for %s", path)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeCSV(tmp, rows); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "dataset: close %s", path)
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "dataset: rename %s", path)
}

// EncodeCSV writes a header row followed by rows. The header is written
// even when rows is empty.
func EncodeCSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "dataset: encode header")
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "dataset: encode row %d", i+1)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// ReadMerged reads the stage-1 file.
func ReadMerged(path string) ([]model.Business, error) {
	return ReadCSV[model.Business](path)
}

// ReadFeatured reads the stage-2 file.
func ReadFeatured(path string) ([]model.FeaturedBusiness, error) {
	return ReadCSV[model.FeaturedBusiness](path)
}

// ReadClustered reads the output dataset.
func ReadClustered(path string) ([]model.BusinessRecord, error) {
	return ReadCSV[model.BusinessRecord](path)
}
