// Package ingest reads the JSON-lines business and review feeds, loads them
// into the store in batches, and exposes both the files and the store as
// sources for the aggregate stage.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxLineSize bounds a single document. Review texts in the feed can run
// to tens of kilobytes.
const maxLineSize = 16 << 20

// progressInterval is the minimum time between progress log lines.
const progressInterval = 5 * time.Second

// Stats counts what a JSON-lines read saw.
type Stats struct {
	Lines     int `json:"lines"`
	Decoded   int `json:"decoded"`
	Malformed int `json:"malformed"`
}

// ReadJSONL decodes one JSON document per line of r and passes each to fn.
// Blank lines are ignored. Lines that fail to decode are counted as
// malformed and skipped. An error from fn stops the read.
func ReadJSONL[T any](ctx context.Context, r io.Reader, name string, fn func(T) error) (Stats, error) {
	var st Stats
	log := zap.L().With(zap.String("file", name))
	progress := rate.Sometimes{Interval: progressInterval}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return st, eris.Wrap(err, "ingest: context cancelled")
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		st.Lines++

		var doc T
		if err := json.Unmarshal(line, &doc); err != nil {
			st.Malformed++
			continue
		}
		st.Decoded++
		if err := fn(doc); err != nil {
			return st, err
		}

		progress.Do(func() {
			log.Info("ingest progress", zap.Int("lines", st.Lines), zap.Int("malformed", st.Malformed))
		})
	}
	if err := sc.Err(); err != nil {
		return st, eris.Wrapf(err, "ingest: read %s", name)
	}
	return st, nil
}

// ReadJSONLFile is ReadJSONL over the file at path.
func ReadJSONLFile[T any](ctx context.Context, path string, fn func(T) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()
	return ReadJSONL(ctx, f, path, fn)
}
