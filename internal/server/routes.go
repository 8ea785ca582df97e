package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/presenthunt/geohunt/internal/config"
	"github.com/presenthunt/geohunt/internal/ratelimit"
)

func addRoutes(r chi.Router, logger *slog.Logger, st Store, db *sql.DB, rdb *redis.Client, broker *Broker, cfg *config.Config) {
	limiter := ratelimit.New(rdb)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoHunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))
	r.Get("/ws/echo", handleWSEcho(logger))

	// Player routes. Identity is the deviceId carried in each request.
	r.Route("/api", func(r chi.Router) {
		r.Post("/identity", handleIdentity(logger, st, limiter, broker, identityConfig{
			maxRequests: cfg.IdentityLimit,
			window:      cfg.IdentityWindow,
		}))
		r.Post("/guess", handleGuess(logger, st, limiter, broker, guessConfig{
			maxRequests:   cfg.GuessLimit,
			window:        cfg.GuessWindow,
			winThresholdM: cfg.WinThresholdM,
			polygonQuorum: cfg.PolygonQuorum,
		}))
		r.Get("/round", handleRoundState(st))
		r.Get("/guesses", handleListGuesses(st))
		r.Get("/players", handleListPlayers(st))
		r.Get("/events", handleEvents(broker))

		// Admin: cookie session plus is_admin gate inside the action handler.
		r.Post("/admin/login", handleAdminLogin(db))
		r.Post("/admin/logout", handleAdminLogout(db))
		r.Get("/admin/me", handleAdminMe(db))
		r.Post("/admin/action", handleAdminAction(logger, st, db, broker))
	})
}
