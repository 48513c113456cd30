package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mayumon/utow-mayubot/brackets"
	"github.com/mayumon/utow-mayubot/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from a different origin than the API.
		return true
	},
}

type WebSocketHandler struct {
	hub               *brackets.Hub
	tournamentService services.TournamentService
}

func NewWebSocketHandler(hub *brackets.Hub, tournamentService services.TournamentService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: tournamentService,
	}
}

// ServeWs handles GET /ws/tournaments/{slug}. Subscribers receive every
// ROUND_CREATED, ROUND_REFRESHED and MATCH_REPORTED event of the tournament.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	slug, err := getSlugFromURL(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// The room is only worth opening for a tournament that exists.
	if _, err := h.tournamentService.GetTournament(r.Context(), slug); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		log.Printf("handlers: websocket upgrade for %s: %v", slug, err)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: slug,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
