package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cryptofolio/internal/models"
	"github.com/cryptofolio/internal/service"
	"github.com/cryptofolio/internal/types"
)

// handleCompare handles GET /api/compare
// Query: base, quote, frame, field, points, percentage, viewport
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := &service.CompareInput{
		BaseKey:    query.Get("base"),
		QuoteKey:   query.Get("quote"),
		Frame:      types.ParseTimeFrame(query.Get("frame")),
		Field:      models.SnapshotField(query.Get("field")),
		Percentage: query.Get("percentage") == "true",
		Narrow:     query.Get("viewport") == "narrow",
	}
	if raw := query.Get("points"); raw != "" {
		points, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "points must be an integer", nil)
			return
		}
		input.MaxPoints = points
	}

	view, err := s.compareService.Compare(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleGetSeries handles GET /api/assets/:key/series
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	assetKey := mux.Vars(r)["key"]
	frame := types.ParseTimeFrame(r.URL.Query().Get("frame"))

	series, err := s.snapshotService.GetSeries(r.Context(), assetKey, frame)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, series)
}
