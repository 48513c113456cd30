package handlers

import (
	"net/http"

	"github.com/mayumon/utow-mayubot/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
	}
}

// LinkHandler handles POST /tournaments/{slug}/teams
func (h *TeamHandler) LinkHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.LinkTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.LinkTeam(r.Context(), slug, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{slug}/teams
func (h *TeamHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.teamService.ListTeams(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByRoleHandler handles GET /tournaments/{slug}/teams/{roleID}
func (h *TeamHandler) GetByRoleHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roleID, err := getRoleIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeamByRole(r.Context(), slug, roleID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler handles PATCH /tournaments/{slug}/teams/{roleID}
func (h *TeamHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roleID, err := getRoleIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.UpdateTeam(r.Context(), slug, roleID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UnlinkHandler handles DELETE /tournaments/{slug}/teams/{roleID}
func (h *TeamHandler) UnlinkHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roleID, err := getRoleIDFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.UnlinkTeam(r.Context(), slug, roleID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
