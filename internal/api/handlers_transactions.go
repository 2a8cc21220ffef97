package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/service"
	"github.com/cryptofolio/internal/types"
)

// handleCreateTransaction handles POST /api/portfolios/:id/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	var req struct {
		AssetKey     string     `json:"assetKey"`
		AssetKind    string     `json:"assetKind"`
		AssetSymbol  string     `json:"assetSymbol,omitempty"`
		AssetName    string     `json:"assetName,omitempty"`
		Type         string     `json:"type"`
		Quantity     string     `json:"quantity"`
		PricePerUnit string     `json:"pricePerUnit"`
		Timestamp    *time.Time `json:"timestamp,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	// Amounts travel as strings so client float formatting never leaks
	// into the ledger.
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "quantity must be a decimal number", nil)
		return
	}
	pricePerUnit, err := decimal.NewFromString(req.PricePerUnit)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "pricePerUnit must be a decimal number", nil)
		return
	}

	transaction, err := s.transactionService.CreateTransaction(r.Context(), &service.CreateTransactionInput{
		PortfolioID:  portfolioID,
		UserID:       userID,
		AssetKey:     req.AssetKey,
		AssetKind:    types.AssetKind(req.AssetKind),
		AssetSymbol:  req.AssetSymbol,
		AssetName:    req.AssetName,
		Type:         types.TransactionType(req.Type),
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, transaction)
}

// handleListTransactions handles GET /api/portfolios/:id/transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "since must be an RFC3339 timestamp", nil)
			return
		}
		since = &parsed
	}

	transactions, err := s.transactionService.ListTransactions(r.Context(), portfolioID, userID, since)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, transactions)
}

// handleDeleteTransaction handles DELETE /api/portfolios/:id/transactions/:txId
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	portfolioID := vars["id"]
	transactionID := vars["txId"]

	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	if err := s.transactionService.DeleteTransaction(r.Context(), transactionID, portfolioID, userID); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":        "deleted",
		"transactionId": transactionID,
	})
}
