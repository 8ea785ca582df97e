package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/presenthunt/geohunt/internal/ratelimit"
)

// IdentityRequest is the request body for POST /api/identity.
type IdentityRequest struct {
	DeviceID string `json:"deviceId"`
}

const nicknameRetryBudget = 50

type identityConfig struct {
	maxRequests int
	window      time.Duration
}

func handleIdentity(logger *slog.Logger, st Store, limiter *ratelimit.Limiter, broker *Broker, cfg identityConfig) http.HandlerFunc {
	faker := gofakeit.New(0)

	return func(w http.ResponseWriter, r *http.Request) {
		var req IdentityRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.DeviceID = strings.TrimSpace(req.DeviceID)
		if req.DeviceID == "" {
			writeError(w, http.StatusBadRequest, "deviceId is required")
			return
		}

		// Idempotent join: a known device gets its existing player back.
		player, err := st.PlayerByDeviceID(r.Context(), req.DeviceID)
		if err == nil {
			if err := st.TouchPlayer(r.Context(), player.ID); err != nil {
				logger.Error("touching player", "player_id", player.ID, "error", err)
			}
			writeJSON(w, http.StatusOK, player)
			return
		}
		if !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ok, err := limiter.Allow(r.Context(), clientKey(r), "assign_nickname", cfg.maxRequests, cfg.window)
		if err != nil {
			logger.Error("rate limit check", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		nickname, err := uniqueNickname(r, st, faker)
		if err != nil {
			logger.Error("generating nickname", "error", err)
			writeError(w, http.StatusInternalServerError, "could not generate a unique nickname")
			return
		}

		player, err = st.CreatePlayer(r.Context(), req.DeviceID, nickname, nicknameColor(nickname))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(Event{Type: eventPlayerJoined, Player: &player})

		writeJSON(w, http.StatusOK, player)
	}
}

// uniqueNickname composes three-part nicknames until one is unused, failing
// closed after the retry budget.
func uniqueNickname(r *http.Request, st Store, faker *gofakeit.Faker) (string, error) {
	for attempt := 0; attempt < nicknameRetryBudget; attempt++ {
		nickname := randomNickname(faker)
		taken, err := st.NicknameExists(r.Context(), nickname)
		if err != nil {
			return "", err
		}
		if !taken {
			return nickname, nil
		}
	}
	return "", errors.New("nickname retry budget exhausted")
}
