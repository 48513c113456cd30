package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mayumon/utow-mayubot/handlers"
	"github.com/mayumon/utow-mayubot/middleware"
)

// SetupRoutes mounts every route on the router. Reads are public; anything
// that mutates state sits behind the operator token.
func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	roundHandler *handlers.RoundHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret []byte,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Post("/auth/login", authHandler.Login)

	router.Get("/ws/tournaments/{slug}", webSocketHandler.ServeWs)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/", tournamentHandler.EnsureHandler)
		})

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", tournamentHandler.GetHandler)
			r.Get("/summary", tournamentHandler.SummaryHandler)
			r.Get("/standings", roundHandler.StandingsHandler)
			r.Get("/teams", teamHandler.ListHandler)
			r.Get("/teams/{roleID}", teamHandler.GetByRoleHandler)
			r.Get("/phases/{phase}/rounds/{round}", roundHandler.GetHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(jwtSecret))

				r.Patch("/status", tournamentHandler.UpdateStatusHandler)
				r.Put("/challonge", tournamentHandler.LinkChallongeHandler)
				r.Post("/challonge/sync-teams", tournamentHandler.SyncTeamsHandler)
				r.Post("/challonge/sync-results", tournamentHandler.SyncResultsHandler)
				r.Post("/snapshot", tournamentHandler.PublishSnapshotHandler)

				r.Post("/teams", teamHandler.LinkHandler)
				r.Patch("/teams/{roleID}", teamHandler.UpdateHandler)
				r.Delete("/teams/{roleID}", teamHandler.UnlinkHandler)

				r.Post("/phases/{phase}/rounds", roundHandler.CreateHandler)
				r.Post("/phases/{phase}/rounds/{round}/refresh", roundHandler.RefreshHandler)
			})
		})
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", matchHandler.GetHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Post("/result", matchHandler.ReportHandler)
			r.Patch("/teams", matchHandler.AssignTeamsHandler)
		})
	})
}
