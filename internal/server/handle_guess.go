package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/presenthunt/geohunt/internal/geo"
	"github.com/presenthunt/geohunt/internal/ratelimit"
)

// GuessRequest is the request body for POST /api/guess.
type GuessRequest struct {
	DeviceID string   `json:"deviceId"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

// GuessResponse acknowledges an accepted guess. DistanceM is present only in
// fixed/moving modes with the show-distance flag on; Temperature is the
// coarse hint always given in those modes. Polygon mode returns acceptance
// only, so containment never leaks through this response.
type GuessResponse struct {
	OK          bool     `json:"ok"`
	GuessID     string   `json:"guessId"`
	DistanceM   *float64 `json:"distanceM,omitempty"`
	Temperature string   `json:"temperature,omitempty"`
	Won         bool     `json:"won,omitempty"`
	TeamWin     bool     `json:"teamWin,omitempty"`
}

type guessConfig struct {
	maxRequests   int
	window        time.Duration
	winThresholdM float64
	polygonQuorum int
}

func handleGuess(logger *slog.Logger, st Store, limiter *ratelimit.Limiter, broker *Broker, cfg guessConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.DeviceID = strings.TrimSpace(req.DeviceID)
		if req.DeviceID == "" || req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, "deviceId, lat, and lng are required")
			return
		}

		// Precondition order is fixed: bounds, player, round, rate limit.
		point := geo.LatLng{Lat: *req.Lat, Lng: *req.Lng}
		if !geo.LondonBounds.Contains(point) {
			writeError(w, http.StatusBadRequest, "coordinates must be within Greater London")
			return
		}

		player, err := st.PlayerByDeviceID(r.Context(), req.DeviceID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		round, err := st.Round(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if round.Status != StatusRunning {
			writeError(w, http.StatusConflict, "no active round")
			return
		}

		ok, err := limiter.Allow(r.Context(), clientKey(r), "submit_guess", cfg.maxRequests, cfg.window)
		if err != nil {
			logger.Error("rate limit check", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "wait before submitting another guess")
			return
		}

		guess, err := st.UpsertGuess(r.Context(), round.RoundNo, player.ID, point.Lat, point.Lng)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out, err := evaluateGuess(r.Context(), st, scoringConfig{
			winThresholdM: cfg.winThresholdM,
			polygonQuorum: cfg.polygonQuorum,
		}, round, guess)
		if err != nil {
			logger.Error("scoring guess", "round_no", round.RoundNo, "player_id", player.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(Event{Type: eventGuess, Guess: &guess})

		decided := out.wonPlayerID != "" || out.teamWin
		if decided {
			logger.Info("round decided",
				"round_no", round.RoundNo,
				"mode", round.Mode,
				"winner_player_id", out.wonPlayerID,
				"team_win", out.teamWin,
			)
		}
		if decided || round.Mode == ModePolygon {
			// Insider count (and with it the overlay opacity) changes on any
			// polygon guess, so fan the round state out too.
			publishRoundState(r.Context(), logger, st, broker)
		}

		resp := GuessResponse{
			OK:      true,
			GuessID: guess.ID,
			Won:     out.wonPlayerID == player.ID && out.wonPlayerID != "",
			TeamWin: out.teamWin,
		}
		if out.distanceM != nil {
			resp.Temperature = out.temperature
			if round.ShowDistance {
				resp.DistanceM = out.distanceM
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// publishRoundState re-reads the round and fans it out. Failures are logged,
// not surfaced: the mutation is already committed and clients converge on
// reconnect.
func publishRoundState(ctx context.Context, logger *slog.Logger, st Store, broker *Broker) {
	state, err := currentRoundState(ctx, st)
	if err != nil {
		logger.Error("publishing round state", "error", err)
		return
	}
	broker.Publish(Event{Type: eventRound, Round: &state})
}
