package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/aggregate"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

// Source supplies the inputs of the aggregate stage.
type Source interface {
	// Businesses returns the documents that qualify for the merge.
	Businesses(ctx context.Context) ([]model.RawBusiness, error)
	// Reviews passes every review event to fn.
	Reviews(ctx context.Context, fn func(model.Review) error) error
}

// FileSource reads the JSON-lines feeds directly.
type FileSource struct {
	BusinessesPath string
	ReviewsPath    string
}

// Businesses returns the open businesses from the business feed.
func (s FileSource) Businesses(ctx context.Context) ([]model.RawBusiness, error) {
	var out []model.RawBusiness
	st, err := ReadJSONLFile(ctx, s.BusinessesPath, func(b model.RawBusiness) error {
		if aggregate.KeepOpen(b) {
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read businesses")
	}
	logMalformed("businesses", st)
	return out, nil
}

// Reviews streams every well-formed review line to fn.
func (s FileSource) Reviews(ctx context.Context, fn func(model.Review) error) error {
	st, err := ReadJSONLFile(ctx, s.ReviewsPath, fn)
	if err != nil {
		return eris.Wrap(err, "ingest: read reviews")
	}
	logMalformed("reviews", st)
	return nil
}

// StoreSource reads documents previously loaded into a store.
type StoreSource struct {
	Store store.Store
}

// Businesses returns the open businesses held by the store.
func (s StoreSource) Businesses(ctx context.Context) ([]model.RawBusiness, error) {
	return s.Store.ListOpenBusinesses(ctx)
}

// Reviews streams the stored reviews to fn.
func (s StoreSource) Reviews(ctx context.Context, fn func(model.Review) error) error {
	return s.Store.StreamReviews(ctx, fn)
}

func logMalformed(name string, st Stats) {
	if st.Malformed > 0 {
		zap.L().Warn("skipped malformed lines",
			zap.String("collection", name),
			zap.Int("malformed", st.Malformed),
			zap.Int("lines", st.Lines),
		)
	}
}
