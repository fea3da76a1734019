package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/reviewpower/internal/aggregate"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/store"
)

// Options controls a load.
type Options struct {
	BatchSize    int
	DropExisting bool
}

// Collection is the outcome of loading one file.
type Collection struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	AlreadyLoaded bool   `json:"already_loaded"`
	Inserted      int64  `json:"inserted"`
	Stats
}

// Result is the outcome of a load.
type Result struct {
	Businesses Collection `json:"businesses"`
	Reviews    Collection `json:"reviews"`
}

// Loader loads the feeds into a store.
type Loader struct {
	store store.Store
	opts  Options
}

// NewLoader creates a Loader writing to st.
func NewLoader(st store.Store, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = store.DefaultBatchSize
	}
	return &Loader{store: st, opts: opts}
}

// Load inserts both files concurrently. A collection that already holds
// documents is left alone unless DropExisting is set, in which case both
// collections are emptied first.
func (l *Loader) Load(ctx context.Context, businessesPath, reviewsPath string) (*Result, error) {
	if l.opts.DropExisting {
		if err := l.store.DropDocuments(ctx); err != nil {
			return nil, eris.Wrap(err, "ingest: drop existing")
		}
		zap.L().Info("dropped existing documents")
	}

	res := &Result{
		Businesses: Collection{Name: "businesses", Path: businessesPath},
		Reviews:    Collection{Name: "reviews", Path: reviewsPath},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loadCollection(gctx, &res.Businesses, l.store.CountBusinesses, l.opts.BatchSize,
			func(b model.RawBusiness) model.RawBusiness { return b },
			l.store.InsertBusinesses)
	})
	g.Go(func() error {
		return loadCollection(gctx, &res.Reviews, l.store.CountReviews, l.opts.BatchSize,
			normalizeReview,
			l.store.InsertReviews)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func loadCollection[T any](
	ctx context.Context,
	c *Collection,
	count func(context.Context) (int, error),
	batchSize int,
	prepare func(T) T,
	insert func(context.Context, []T) (int64, error),
) error {
	log := zap.L().With(zap.String("collection", c.Name), zap.String("path", c.Path))

	existing, err := count(ctx)
	if err != nil {
		return eris.Wrapf(err, "ingest: count %s", c.Name)
	}
	if existing > 0 {
		c.AlreadyLoaded = true
		log.Info("collection already loaded, skipping", zap.Int("documents", existing))
		return nil
	}

	batch := make([]T, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := insert(ctx, batch)
		if err != nil {
			return eris.Wrapf(err, "ingest: insert %s", c.Name)
		}
		c.Inserted += n
		batch = batch[:0]
		return nil
	}

	st, err := ReadJSONLFile(ctx, c.Path, func(doc T) error {
		batch = append(batch, prepare(doc))
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	c.Stats = st
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	log.Info("collection loaded",
		zap.Int64("inserted", c.Inserted),
		zap.Int("malformed", c.Malformed),
	)
	return nil
}

// normalizeReview reduces the rating to a float64 or nil so the store can
// keep it in a nullable numeric column.
func normalizeReview(r model.Review) model.Review {
	if f, ok := aggregate.ParseRating(r.Stars); ok {
		r.Stars = f
	} else {
		r.Stars = nil
	}
	return r
}
