package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cryptofolio/internal/service"
)

// requireUser extracts the caller's user ID from the X-User-ID header.
// Returns "" after writing an error response when the header is absent.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "User ID required", nil)
	}
	return userID
}

// handleCreatePortfolio handles POST /api/portfolios
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	portfolio, err := s.portfolioService.CreatePortfolio(r.Context(), &service.CreatePortfolioInput{
		UserID: userID,
		Name:   req.Name,
	})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, portfolio)
}

// handleListPortfolios handles GET /api/portfolios
func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	portfolios, err := s.portfolioService.ListPortfolios(r.Context(), userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, portfolios)
}

// handleDeletePortfolio handles DELETE /api/portfolios/:id
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	if err := s.portfolioService.DeletePortfolio(r.Context(), portfolioID, userID); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"portfolioId": portfolioID,
	})
}

// handleGetSummary handles GET /api/portfolios/:id/summary
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	summary, err := s.portfolioService.GetSummary(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleGetPositions handles GET /api/portfolios/:id/positions
func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	positions, err := s.portfolioService.GetPositions(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// handleGetPerformers handles GET /api/portfolios/:id/performers
func (s *Server) handleGetPerformers(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	performers, err := s.portfolioService.GetPerformers(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, performers)
}
