package web

import (
	"encoding/json"
	"net/http"

	"ratestream/internal/rates/store"

	"go.uber.org/zap"
)

// RatesSnapshot is the response body of GET /api/v1/rates/current.
type RatesSnapshot struct {
	Pairs []store.PairState `json:"pairs"`
}

// handleCurrentRates serves a point-in-time snapshot of every tracked pair,
// lexically sorted. A thin pass-through to the store's ReadAll.
func (s *Server) handleCurrentRates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := RatesSnapshot{Pairs: s.snap.ReadAll()}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Warn("failed to encode rates snapshot", zap.Error(err))
	}
}
