package handlers

import (
	"net/http"

	"github.com/arden-atelier/orderdesk/internal/httpx"
	"github.com/arden-atelier/orderdesk/internal/orders"
)

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request, params GetStatsParams) {
	raw := ""
	if params.Period != nil {
		raw = *params.Period
	}
	period, err := orders.ParsePeriod(raw)
	if err != nil {
		s.writeDomainError(w, r, err, "Invalid period")
		return
	}

	stats, err := s.Engine.Stats(r.Context(), period)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to load stats")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapStats(stats))
}
