package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"referra.org/internal/audit"
	"referra.org/internal/auth"
	"referra.org/internal/award"
)

type createAwardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
	AssignedTo  string `json:"assignedTo"`
}

func (a *API) handleAwardsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAward(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleAwardsSelf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}
	items, err := a.awards.ListFor(r.Context(), ac.ProfileID)
	if err != nil {
		handleAwardError(w, r, err)
		return
	}
	if items == nil {
		items = []award.Award{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleAwardResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/awards/")
	if id, ok := strings.CutSuffix(path, "/redeem"); ok && id != "" && !strings.Contains(id, "/") {
		a.redeemAward(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(path, "/paid"); ok && id != "" && !strings.Contains(id, "/") {
		a.markAwardPaid(w, r, id)
		return
	}
	if path != "" && !strings.Contains(path, "/") {
		a.getAward(w, r, path)
		return
	}
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func (a *API) getAward(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := requireRole(w, r, auth.RoleAdmin, auth.RoleSuperAdmin); !ok {
		return
	}

	found, err := a.awards.Get(r.Context(), id)
	if err != nil {
		handleAwardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (a *API) createAward(w http.ResponseWriter, r *http.Request) {
	ac, ok := requireRole(w, r, auth.RoleAdmin, auth.RoleSuperAdmin)
	if !ok {
		return
	}

	var req createAwardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	if strings.TrimSpace(req.AssignedTo) == "" {
		writeError(w, r, http.StatusBadRequest, "assignedTo is required")
		return
	}

	created, err := a.awards.Create(r.Context(), award.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		AssignedTo:  req.AssignedTo,
		AssignedBy:  ac.ProfileID,
	})
	if err != nil {
		handleAwardError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "award.created", map[string]any{
		"award_id":    created.ID,
		"points":      created.Points,
		"assigned_to": created.AssignedTo,
	})
	w.Header().Set("Location", "/v1/awards/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) redeemAward(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	ac, ok := requireAuth(w, r)
	if !ok {
		return
	}

	redeemed, err := a.awards.Redeem(r.Context(), id, ac.ProfileID)
	if err != nil {
		handleAwardError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "award.redeemed", map[string]any{
		"award_id": redeemed.ID,
	})
	writeJSON(w, http.StatusOK, redeemed)
}

func (a *API) markAwardPaid(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := requireRole(w, r, auth.RoleAdmin, auth.RoleSuperAdmin); !ok {
		return
	}

	paid, err := a.awards.MarkPaid(r.Context(), id)
	if err != nil {
		handleAwardError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "award.paid", map[string]any{
		"award_id": paid.ID,
	})
	writeJSON(w, http.StatusOK, paid)
}

func handleAwardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, award.ErrInvalidPoints):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, award.ErrAlreadyPaid):
		writeError(w, r, http.StatusBadRequest, "award already paid")
	case errors.Is(err, award.ErrNoRecipient):
		writeError(w, r, http.StatusNotFound, "recipient profile not found")
	case errors.Is(err, award.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "award not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
