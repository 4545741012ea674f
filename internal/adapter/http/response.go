package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

type recordResponseRequest struct {
	CampaignID   string    `json:"campaign_id"`
	ContractorID string    `json:"contractor_id"`
	Channel      string    `json:"channel"`
	Timestamp    time.Time `json:"timestamp"`
}

// handleRecordResponse is the inbound webhook for external response
// detection (inbound email/SMS parsing, form submissions). The engine
// updates the matching attempt and recomputes progress; it does not parse
// raw messages. Responses for unknown attempts produce HTTP 404;
// duplicates are absorbed and return HTTP 200 like the first call.
func (h *Handler) handleRecordResponse(w http.ResponseWriter, r *http.Request) {
	var req recordResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.CampaignID == "" || req.ContractorID == "" || req.Channel == "" {
		http.Error(w, "campaign_id, contractor_id and channel are required", http.StatusBadRequest)
		return
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	err := h.svc.RecordResponse(r.Context(), req.CampaignID, req.ContractorID, domain.Channel(req.Channel), ts)
	switch {
	case errors.Is(err, port.ErrCampaignNotFound), errors.Is(err, port.ErrAttemptNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("record response error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
