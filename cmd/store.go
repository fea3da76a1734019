package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/ingest"
	"github.com/sells-group/reviewpower/internal/pipeline"
	"github.com/sells-group/reviewpower/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns:  cfg.Store.MaxConns,
			MinConns:  cfg.Store.MinConns,
			BatchSize: cfg.Ingest.BatchSize,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initOptionalStore opens the store unless --no-store is set. The returned
// close func is always safe to call.
func initOptionalStore(ctx context.Context) (store.Store, func(), error) {
	if noStore {
		return nil, func() {}, nil
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil //nolint:errcheck
}

// initPipeline validates the pipeline config and builds a Pipeline.
func initPipeline(st store.Store) (*pipeline.Pipeline, error) {
	if err := cfg.Validate("pipeline"); err != nil {
		return nil, err
	}
	return pipeline.New(pipelineOptions(), st), nil
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		DataDir:          cfg.Pipeline.DataDir,
		MinReviews:       cfg.Pipeline.MinReviews,
		QualityMinRating: cfg.Pipeline.QualityMinRating,
		Cluster:          cfg.Pipeline.ClusterConfig(),
	}
}

// newSource picks where the aggregate stage reads documents from.
func newSource(kind string, st store.Store) (pipeline.Source, error) {
	switch kind {
	case "files":
		return ingest.FileSource{
			BusinessesPath: cfg.Ingest.BusinessesPath,
			ReviewsPath:    cfg.Ingest.ReviewsPath,
		}, nil
	case "store":
		if st == nil {
			return nil, eris.New("--source store requires a store (drop --no-store)")
		}
		return ingest.StoreSource{Store: st}, nil
	default:
		return nil, eris.Errorf("unknown source %q (want files or store)", kind)
	}
}
