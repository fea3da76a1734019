package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/reviewpower/internal/dataset"
	"github.com/sells-group/reviewpower/internal/model"
	"github.com/sells-group/reviewpower/internal/segment"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	defaultBins     = 20
)

func filterFrom(r *http.Request) segment.Filter {
	q := r.URL.Query()
	return segment.Filter{State: q.Get("state"), City: q.Get("city"), Category: q.Get("category")}
}

// filtered applies the request's filter to the full dataset.
func (s *Server) filtered(r *http.Request) (segment.Filter, []model.BusinessRecord) {
	f := filterFrom(r)
	return f, segment.Apply(s.snap.Records(), f)
}

// intParam parses a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "businesses": len(s.snap.Records())})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":   f,
		"overview": segment.Summarize(rows),
		"global":   segment.Summarize(s.snap.Records()),
	})
}

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = min(limit, maxPageSize)

	_, rows := s.filtered(r)
	total := len(rows)
	start := min(offset, total)
	end := min(start+limit, total)
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      total,
		"offset":     start,
		"businesses": rows[start:end],
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", s.topN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":   f,
		"global":   segment.TopByRPS(s.snap.Records(), n),
		"filtered": segment.TopByRPS(rows, n),
	})
}

func (s *Server) handleTopCSV(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	top := segment.TopByRPS(rows, s.topN)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="top_review_power.csv"`)
	if err := dataset.EncodeCSV(w, top); err != nil {
		zap.L().Error("server: write top csv", zap.Error(err))
	}
}

func (s *Server) handleTopXLSX(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	top := segment.TopByRPS(rows, s.topN)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="top_review_power.xlsx"`)
	if err := dataset.WriteXLSX(w, "Top RPS", top); err != nil {
		zap.L().Error("server: write top xlsx", zap.Error(err))
	}
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, segment.CountSectors(rows))
}

func (s *Server) handleClusters(w http.ResponseWriter, _ *http.Request) {
	if s.snap.clusters == nil {
		writeError(w, http.StatusNotFound, "no cluster profiles loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.snap.clusters.Profiles)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, segment.FilterOptions(s.snap.Records(), q.Get("state"), q.Get("city")))
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	view := segment.BuildMapView(rows)
	if view == nil {
		writeError(w, http.StatusNotFound, "no businesses match the filter")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleThresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snap.Thresholds())
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, segment.Scatter(rows, s.snap.ClusterName))
}

func (s *Server) handleRPSHistogram(w http.ResponseWriter, r *http.Request) {
	bins, err := intParam(r, "bins", defaultBins)
	if err != nil || bins == 0 {
		writeError(w, http.StatusBadRequest, "bins must be a positive integer")
		return
	}
	bins = min(bins, segment.MaxHistogramBins)

	_, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, segment.RPSHistogram(rows, bins))
}

func (s *Server) handleStars(w http.ResponseWriter, r *http.Request) {
	_, rows := s.filtered(r)
	writeJSON(w, http.StatusOK, segment.StarDistribution(rows))
}
