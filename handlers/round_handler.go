package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayumon/utow-mayubot/models"
	"github.com/mayumon/utow-mayubot/services"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(roundService services.RoundService) *RoundHandler {
	return &RoundHandler{
		roundService: roundService,
	}
}

func getPhaseFromURL(r *http.Request) (models.Phase, error) {
	phase := models.Phase(chi.URLParam(r, "phase"))
	if phase == "" {
		return "", errors.New("missing phase URL parameter")
	}
	return phase, nil
}

// CreateHandler handles POST /tournaments/{slug}/phases/{phase}/rounds.
// The count defaults to one round.
func (h *RoundHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phase, err := getPhaseFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	input := struct {
		Count int `json:"count"`
	}{Count: 1}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	rounds, err := h.roundService.CreateRounds(r.Context(), slug, phase, input.Count)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"rounds": rounds}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RefreshHandler handles POST /tournaments/{slug}/phases/{phase}/rounds/{round}/refresh
func (h *RoundHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phase, err := getPhaseFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIntFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.roundService.RefreshRound(r.Context(), slug, phase, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /tournaments/{slug}/phases/{phase}/rounds/{round}
func (h *RoundHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phase, err := getPhaseFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIntFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.roundService.GetRound(r.Context(), slug, phase, round)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler handles GET /tournaments/{slug}/standings. An optional
// phase query parameter narrows the table to one phase.
func (h *RoundHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var phase *models.Phase
	if phaseStr := r.URL.Query().Get("phase"); phaseStr != "" {
		p := models.Phase(phaseStr)
		phase = &p
	}

	standings, err := h.roundService.GetStandings(r.Context(), slug, phase)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
