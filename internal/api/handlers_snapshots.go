package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/internal/models"
)

// snapshotPayload is the wire form of one market observation. Numeric
// fields travel as strings, matching the transaction endpoints.
type snapshotPayload struct {
	AssetKey          string    `json:"assetKey"`
	Timestamp         time.Time `json:"timestamp"`
	Price             string    `json:"price"`
	MarketCap         string    `json:"marketCap,omitempty"`
	Volume24h         string    `json:"volume24h,omitempty"`
	CirculatingSupply string    `json:"circulatingSupply,omitempty"`
	TotalSupply       string    `json:"totalSupply,omitempty"`
}

// handleIngestSnapshots handles POST /api/snapshots
func (s *Server) handleIngestSnapshots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Snapshots []snapshotPayload `json:"snapshots"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	batch := make([]models.PriceSnapshot, 0, len(req.Snapshots))
	for _, payload := range req.Snapshots {
		snapshot, err := payload.toModel()
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), map[string]interface{}{
				"assetKey": payload.AssetKey,
			})
			return
		}
		batch = append(batch, snapshot)
	}

	accepted, err := s.snapshotService.Ingest(r.Context(), batch)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "accepted",
		"accepted": accepted,
	})
}

func (p *snapshotPayload) toModel() (models.PriceSnapshot, error) {
	snapshot := models.PriceSnapshot{
		AssetKey:  p.AssetKey,
		Timestamp: p.Timestamp,
	}

	fields := []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{p.Price, &snapshot.Price},
		{p.MarketCap, &snapshot.MarketCap},
		{p.Volume24h, &snapshot.Volume24h},
		{p.CirculatingSupply, &snapshot.CirculatingSupply},
		{p.TotalSupply, &snapshot.TotalSupply},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			return models.PriceSnapshot{}, err
		}
		*f.dest = value
	}
	return snapshot, nil
}
