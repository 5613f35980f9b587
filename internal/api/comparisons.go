package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/banshee-data/pointer.predict/internal/httputil"
	"github.com/banshee-data/pointer.predict/internal/report"
	"github.com/banshee-data/pointer.predict/internal/store"
)

// handleComparison serves /api/comparisons/{id} as JSON and
// /api/comparisons/{id}/chart as an HTML page.
func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/comparisons/"), "/")
	comparisonID, view, _ := strings.Cut(path, "/")
	if comparisonID == "" {
		httputil.BadRequest(w, "comparison_id is required")
		return
	}
	if view != "" && view != "chart" {
		httputil.NotFound(w, "unknown comparison view "+view)
		return
	}

	runs, err := s.store.Comparison(comparisonID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to load comparison: "+err.Error())
		return
	}
	if view == "" {
		httputil.WriteJSONOK(w, runs)
		return
	}

	// Render into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	err = report.RenderComparison(&buf, report.RowsFromRuns(runs), report.ChartOptions{
		Title:    "Prediction error by algorithm",
		Subtitle: runs[0].Trace,
	})
	if err != nil {
		httputil.InternalServerError(w, "failed to render chart: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
