package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	syncService       services.SyncService
	snapshotService   services.SnapshotService
}

func NewTournamentHandler(
	tournamentService services.TournamentService,
	syncService services.SyncService,
	snapshotService services.SnapshotService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		syncService:       syncService,
		snapshotService:   snapshotService,
	}
}

func getSlugFromURL(r *http.Request) (string, error) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		return "", errors.New("missing tournament slug URL parameter")
	}
	return slug, nil
}

// EnsureHandler handles POST /tournaments. Referencing a name that already
// exists returns the existing tournament instead of failing.
func (h *TournamentHandler) EnsureHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.EnsureTournament(r.Context(), input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.ListTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /tournaments/{slug}
func (h *TournamentHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SummaryHandler handles GET /tournaments/{slug}/summary
func (h *TournamentHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.tournamentService.GetSummary(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatusHandler handles PATCH /tournaments/{slug}/status
func (h *TournamentHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Status == "" {
		badRequestResponse(w, r, errors.New("status is required"))
		return
	}

	tournament, err := h.tournamentService.UpdateStatus(r.Context(), slug, models.TournamentStatus(input.Status))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LinkChallongeHandler handles PUT /tournaments/{slug}/challonge. An empty or
// absent slug unlinks the tournament.
func (h *TournamentHandler) LinkChallongeHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ChallongeSlug *string `json:"challonge_slug"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.LinkChallonge(r.Context(), slug, input.ChallongeSlug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SyncTeamsHandler handles POST /tournaments/{slug}/challonge/sync-teams
func (h *TournamentHandler) SyncTeamsHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.syncService.SyncTeams(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SyncResultsHandler handles POST /tournaments/{slug}/challonge/sync-results
func (h *TournamentHandler) SyncResultsHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reported, err := h.syncService.SyncResults(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"reported": reported}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PublishSnapshotHandler handles POST /tournaments/{slug}/snapshot
func (h *TournamentHandler) PublishSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.snapshotService.PublishSnapshot(r.Context(), slug)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"snapshot": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
