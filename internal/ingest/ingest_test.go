package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

const businessesJSONL = `{"business_id":"b1","name":"Open","city":"Tampa","state":"FL","stars":4.5,"review_count":12,"is_open":1}
{"business_id":"b2","name":"Closed","city":"Reno","state":"NV","stars":2,"review_count":30,"is_open":0}
not json
{"business_id":"b3","name":"Weird city","city":17,"state":"PA","stars":3,"review_count":11,"is_open":1}

`

const reviewsJSONL = `{"review_id":"r1","business_id":"b1","stars":5,"useful":3}
{"review_id":"r2","business_id":"b1","stars":null}
{"review_id":"r3","business_id":"b3","stars":"4"}
{"review_id":"r4","business_id":"b3","stars":"bad"}
{broken
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestReadJSONL(t *testing.T) {
	var ids []string
	st, err := ReadJSONL(context.Background(), strings.NewReader(businessesJSONL), "businesses", func(b model.RawBusiness) error {
		ids = append(ids, b.BusinessID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 4, Decoded: 3, Malformed: 1}, st)
	assert.Equal(t, []string{"b1", "b2", "b3"}, ids)
}

func TestReadJSONL_CallbackError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ReadJSONL(context.Background(), strings.NewReader(reviewsJSONL), "reviews", func(model.Review) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestReadJSONL_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadJSONL(ctx, strings.NewReader(reviewsJSONL), "reviews", func(model.Review) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestReadJSONLFile_Missing(t *testing.T) {
	_, err := ReadJSONLFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"), func(model.Review) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: open")
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	src := FileSource{
		BusinessesPath: writeFile(t, dir, "business.json", businessesJSONL),
		ReviewsPath:    writeFile(t, dir, "review.json", reviewsJSONL),
	}
	ctx := context.Background()

	biz, err := src.Businesses(ctx)
	require.NoError(t, err)
	require.Len(t, biz, 2)
	assert.Equal(t, "b1", biz[0].BusinessID)
	assert.Equal(t, "b3", biz[1].BusinessID)

	n := 0
	require.NoError(t, src.Reviews(ctx, func(model.Review) error { n++; return nil }))
	assert.Equal(t, 4, n)
}

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	bPath := writeFile(t, dir, "business.json", businessesJSONL)
	rPath := writeFile(t, dir, "review.json", reviewsJSONL)
	st := newStore(t)
	ctx := context.Background()

	res, err := NewLoader(st, Options{BatchSize: 2}).Load(ctx, bPath, rPath)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Businesses.Inserted)
	assert.Equal(t, 1, res.Businesses.Malformed)
	assert.Equal(t, int64(4), res.Reviews.Inserted)
	assert.Equal(t, 1, res.Reviews.Malformed)
	assert.False(t, res.Reviews.AlreadyLoaded)

	var stars []any
	require.NoError(t, StoreSource{Store: st}.Reviews(ctx, func(r model.Review) error {
		stars = append(stars, r.Stars)
		return nil
	}))
	assert.ElementsMatch(t, []any{5.0, nil, 4.0, nil}, stars)

	open, err := StoreSource{Store: st}.Businesses(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "", open[1].City)
}

func TestLoader_SkipsLoadedCollections(t *testing.T) {
	dir := t.TempDir()
	bPath := writeFile(t, dir, "business.json", businessesJSONL)
	rPath := writeFile(t, dir, "review.json", reviewsJSONL)
	st := newStore(t)
	ctx := context.Background()

	_, err := NewLoader(st, Options{}).Load(ctx, bPath, rPath)
	require.NoError(t, err)

	again, err := NewLoader(st, Options{}).Load(ctx, bPath, rPath)
	require.NoError(t, err)
	assert.True(t, again.Businesses.AlreadyLoaded)
	assert.True(t, again.Reviews.AlreadyLoaded)

	n, err := st.CountReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	dropped, err := NewLoader(st, Options{DropExisting: true}).Load(ctx, bPath, rPath)
	require.NoError(t, err)
	assert.False(t, dropped.Reviews.AlreadyLoaded)
	n, err = st.CountReviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNormalizeReview(t *testing.T) {
	assert.Equal(t, 4.0, normalizeReview(model.Review{Stars: "4"}).Stars)
	assert.Nil(t, normalizeReview(model.Review{Stars: -1.0}).Stars)
	assert.Nil(t, normalizeReview(model.Review{Stars: map[string]any{}}).Stars)
}
