package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reviewpower/internal/classify"
	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/fault"
	"github.com/sells-group/reviewpower/internal/ingest"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

type bizSpec struct {
	id      string
	stars   float64
	reviews int
	open    int
}

var corpus = []bizSpec{
	{"b01", 5, 12, 1}, {"b02", 4.5, 15, 1}, {"b03", 4, 80, 1}, {"b04", 4.5, 120, 1},
	{"b05", 2, 11, 1}, {"b06", 1.5, 14, 1}, {"b07", 2.5, 90, 1}, {"b08", 3, 60, 1},
	{"b09", 3.5, 30, 1}, {"b10", 4, 25, 1}, {"b11", 5, 5, 1}, {"b12", 4, 50, 0},
}

// writeFeeds writes business and review JSON-lines files for specs. Each
// business gets exactly its review count of reviews at its star rating,
// plus one null-rated review.
func writeFeeds(t *testing.T, dir string, specs []bizSpec) ingest.FileSource {
	t.Helper()
	var biz, rev strings.Builder
	n := 0
	for _, s := range specs {
		line, err := json.Marshal(map[string]any{
			"business_id": s.id, "name": "Biz " + s.id, "city": " tampa,  bay ",
			"state": "FL", "latitude": 27.9, "longitude": -82.4, "categories": "Food, Bars",
			"stars": s.stars, "review_count": s.reviews, "is_open": s.open,
		})
		require.NoError(t, err)
		biz.Write(line)
		biz.WriteByte('\n')

		for range s.reviews {
			n++
			fmt.Fprintf(&rev, `{"review_id":"r%d","business_id":%q,"stars":%v}`+"\n", n, s.id, s.stars)
		}
		n++
		fmt.Fprintf(&rev, `{"review_id":"r%d","business_id":%q,"stars":null}`+"\n", n, s.id)
	}

	src := ingest.FileSource{
		BusinessesPath: filepath.Join(dir, "business.json"),
		ReviewsPath:    filepath.Join(dir, "review.json"),
	}
	require.NoError(t, os.WriteFile(src.BusinessesPath, []byte(biz.String()), 0o644))
	require.NoError(t, os.WriteFile(src.ReviewsPath, []byte(rev.String()), 0o644))
	return src
}

func TestBuildMerged(t *testing.T) {
	src := writeFeeds(t, t.TempDir(), corpus)

	out, err := BuildMerged(context.Background(), src, 10)
	require.NoError(t, err)
	assert.Equal(t, 11, out.Businesses, "closed business excluded")
	assert.Equal(t, 12, out.SkippedReviews, "one null rating per business")
	assert.Equal(t, 1, out.BelowMinimum)
	require.Len(t, out.Rows, 10)
	for _, r := range out.Rows {
		assert.GreaterOrEqual(t, r.ReviewCount, 10)
		assert.Equal(t, "Tampa Bay", r.City)
		assert.Equal(t, r.Stars, r.StarsAvg)
	}
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	src := writeFeeds(t, dir, corpus)
	p := New(DefaultOptions(filepath.Join(dir, "data")), nil)

	report, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Rows)
	assert.Len(t, report.Clusters.Profiles, 4)

	records, err := dataset.ReadClustered(p.Path(dataset.ClusteredFile))
	require.NoError(t, err)
	require.Len(t, records, 10)

	for _, r := range records {
		assert.True(t, r.Sector.Valid(), r.Sector)
		assert.GreaterOrEqual(t, r.Cluster, 0)
		assert.Less(t, r.Cluster, 4)
	}
	sum := 0
	for _, c := range report.SectorCounts {
		sum += c
	}
	assert.Equal(t, 10, sum)

	saved, err := dataset.ReadReport(p.Path(dataset.ReportFile))
	require.NoError(t, err)
	assert.Equal(t, report.Thresholds, saved.Thresholds)
}

func TestPipeline_RerunIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	src := writeFeeds(t, dir, corpus)
	p := New(DefaultOptions(filepath.Join(dir, "data")), nil)
	ctx := context.Background()

	_, err := p.Run(ctx, src)
	require.NoError(t, err)
	files := []string{dataset.MergedFile, dataset.FeaturedFile, dataset.ClusteredFile}
	first := map[string][]byte{}
	for _, f := range files {
		b, err := os.ReadFile(p.Path(f))
		require.NoError(t, err)
		first[f] = b
	}

	_, err = p.Run(ctx, src)
	require.NoError(t, err)
	for _, f := range files {
		b, err := os.ReadFile(p.Path(f))
		require.NoError(t, err)
		assert.Equal(t, first[f], b, f)
	}
}

func TestPipeline_InsufficientData(t *testing.T) {
	dir := t.TempDir()
	src := writeFeeds(t, dir, []bizSpec{{"a", 4, 10, 1}, {"b", 4, 10, 1}, {"c", 2, 20, 1}, {"d", 5, 30, 1}})
	p := New(DefaultOptions(filepath.Join(dir, "data")), nil)

	_, err := p.Run(context.Background(), src)
	require.Error(t, err)
	assert.True(t, fault.IsInsufficientData(err), err.Error())
	_, statErr := os.Stat(p.Path(dataset.ClusteredFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_FeaturesMissingInput(t *testing.T) {
	p := New(DefaultOptions(t.TempDir()), nil)
	_, err := p.Features(context.Background())
	require.Error(t, err)
}

func TestPipeline_RecordsRunsInStore(t *testing.T) {
	dir := t.TempDir()
	src := writeFeeds(t, dir, corpus)
	st, err := store.NewSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	p := New(DefaultOptions(filepath.Join(dir, "data")), st)
	report, err := p.Run(ctx, src)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.Equal(t, model.RunStatusComplete, r.Status)
	}

	agg, err := st.ListRuns(ctx, store.RunFilter{Stage: model.StageAggregate})
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, 12, agg[0].Skipped)
	assert.Equal(t, 10, agg[0].RowsOut)

	records, err := st.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestClassify_UsesFullDatasetThresholds(t *testing.T) {
	out, err := BuildMerged(context.Background(), writeFeeds(t, t.TempDir(), corpus), 10)
	require.NoError(t, err)

	featured := make([]model.FeaturedBusiness, len(out.Rows))
	for i, r := range out.Rows {
		featured[i] = model.FeaturedBusiness{Business: r}
	}
	res, err := Classify(featured, DefaultOptions(""))
	require.NoError(t, err)

	want, err := classify.ComputeThresholds(featured, classify.DefaultQualityMinRating)
	require.NoError(t, err)
	assert.Equal(t, want, res.Report.Thresholds)

	c := classify.NewClassifier(classify.DefaultCascade(), want)
	for i := range res.Records {
		assert.Equal(t, c.Classify(&featured[i]), res.Records[i].Sector)
	}
}
