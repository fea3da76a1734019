// Package server exposes the classified dataset to the dashboard as a JSON
// API: overview metrics, top lists, sector counts, filter options, cluster
// profiles, chart series and map data.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/segment"
)

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	TopN           int
}

// Server serves one Snapshot.
type Server struct {
	snap   *Snapshot
	topN   int
	router chi.Router
}

// New creates a Server for snap.
func New(snap *Snapshot, opts Options) *Server {
	if opts.TopN <= 0 {
		opts.TopN = segment.DefaultTopN
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{snap: snap, topN: opts.TopN}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/businesses", s.handleBusinesses)
		r.Get("/top", s.handleTop)
		r.Get("/top.csv", s.handleTopCSV)
		r.Get("/top.xlsx", s.handleTopXLSX)
		r.Get("/sectors", s.handleSectors)
		r.Get("/clusters", s.handleClusters)
		r.Get("/filters", s.handleFilters)
		r.Get("/map", s.handleMap)
		r.Get("/thresholds", s.handleThresholds)
		r.Route("/charts", func(r chi.Router) {
			r.Get("/scatter", s.handleScatter)
			r.Get("/rps-histogram", s.handleRPSHistogram)
			r.Get("/stars", s.handleStars)
		})
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port), zap.Int("businesses", len(s.snap.Records())))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// requestLogger logs each request with its status and latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case ww.Status() >= 500:
			zap.L().Error("request completed", fields...)
		case ww.Status() >= 400:
			zap.L().Warn("request completed", fields...)
		default:
			zap.L().Debug("request completed", fields...)
		}
	})
}
