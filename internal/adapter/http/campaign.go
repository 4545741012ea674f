package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

type startCampaignRequest struct {
	Project    domain.Project `json:"project"`
	TargetBids int            `json:"target_bids"`
}

type campaignResponse struct {
	ID            string  `json:"id"`
	ProjectID     string  `json:"project_id"`
	Urgency       string  `json:"urgency"`
	TargetBids    int     `json:"target_bids"`
	Status        string  `json:"status"`
	TimeBudget    string  `json:"time_budget"`
	Deadline      string  `json:"deadline"`
	Expected      float64 `json:"planned_expected"`
	Tier3Degraded bool    `json:"tier3_degraded"`
	Candidates    int     `json:"candidates"`
	Attempts      int     `json:"attempts"`
	Responses     int     `json:"responses"`
}

func toCampaignResponse(p *port.CampaignProgress) campaignResponse {
	c := p.Campaign
	return campaignResponse{
		ID:            c.ID,
		ProjectID:     c.ProjectID,
		Urgency:       string(c.Urgency),
		TargetBids:    c.TargetBids,
		Status:        string(c.Status),
		TimeBudget:    c.TimeBudget.String(),
		Deadline:      c.Deadline().Format(time.RFC3339),
		Expected:      c.PlannedExpected,
		Tier3Degraded: c.Tier3Degraded,
		Candidates:    p.Candidates,
		Attempts:      p.Attempts,
		Responses:     p.Responses,
	}
}

// handleStartCampaign plans and launches a campaign for a project. The
// request body carries the project and the desired bid count. Planning
// with no discoverable candidates anywhere returns HTTP 422; a project
// with a live campaign returns HTTP 409. Parsing errors produce HTTP 400,
// internal errors HTTP 500.
func (h *Handler) handleStartCampaign(w http.ResponseWriter, r *http.Request) {
	var req startCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Project.ID == "" || req.Project.Trade == "" || req.TargetBids < 1 {
		http.Error(w, "project id, trade and target_bids >= 1 are required", http.StatusBadRequest)
		return
	}

	progress, err := h.svc.StartCampaign(r.Context(), req.Project, req.TargetBids)
	switch {
	case errors.Is(err, port.ErrInsufficientCandidates):
		http.Error(w, "no contractors discoverable for this project", http.StatusUnprocessableEntity)
		return
	case errors.Is(err, port.ErrActiveCampaignExists):
		http.Error(w, "project already has an active campaign", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("start campaign error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err = json.NewEncoder(w).Encode(toCampaignResponse(progress)); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// handleGetCampaign returns a campaign with its progress counters.
// Unknown IDs produce HTTP 404.
func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	progress, err := h.svc.GetCampaign(r.Context(), id)
	if errors.Is(err, port.ErrCampaignNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("get campaign error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(toCampaignResponse(progress)); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

type checkInResponse struct {
	Fraction  float64 `json:"fraction"`
	Expected  float64 `json:"expected"`
	Actual    int     `json:"actual"`
	OnTrack   bool    `json:"on_track"`
	Action    string  `json:"action"`
	CreatedAt string  `json:"created_at"`
}

// handleListCheckIns returns the audit trail of checkpoint evaluations for
// a campaign.
func (h *Handler) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	results, err := h.svc.ListCheckIns(r.Context(), id)
	if err != nil {
		h.logger.Error("list check-ins error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]checkInResponse, 0, len(results))
	for _, res := range results {
		out = append(out, checkInResponse{
			Fraction:  res.Fraction,
			Expected:  res.Expected,
			Actual:    res.Actual,
			OnTrack:   res.OnTrack,
			Action:    string(res.Action),
			CreatedAt: res.CreatedAt.Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(out); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}
