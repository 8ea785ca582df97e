package server

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/presenthunt/geohunt/internal/geo"
)

// AdminActionRequest is the discriminated request body for
// POST /api/admin/action. Action selects the round transition; the remaining
// fields are read per action.
type AdminActionRequest struct {
	Action string `json:"action"`

	// start_round
	Mode      string       `json:"mode,omitempty"`
	TargetLat *float64     `json:"targetLat,omitempty"`
	TargetLng *float64     `json:"targetLng,omitempty"`
	Polygon   []geo.LatLng `json:"polygon,omitempty"`

	// set_winner
	WinnerPlayerID  string   `json:"winnerPlayerId,omitempty"`
	WinnerDistanceM *float64 `json:"winnerDistanceM,omitempty"`

	// move_target reuses TargetLat/TargetLng.
}

var validModes = map[string]bool{
	ModeFixed:   true,
	ModeMoving:  true,
	ModePolygon: true,
}

func handleAdminAction(logger *slog.Logger, st Store, db *sql.DB, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(r, db)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !sess.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}

		var req AdminActionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var result any
		switch req.Action {
		case "start_round":
			result, err = startRound(r, st, req)
		case "stop_round":
			err = st.StopRound(r.Context())
			result = map[string]bool{"ok": true}
		case "set_winner":
			result, err = setWinner(r, st, req)
		case "reset_round":
			err = st.ResetRound(r.Context())
			result = map[string]bool{"ok": true}
		case "move_target":
			result, err = moveTarget(r, st, req)
		case "toggle_show_distance":
			var show bool
			show, err = st.ToggleShowDistance(r.Context())
			result = map[string]any{"ok": true, "showDistance": show}
		default:
			writeError(w, http.StatusBadRequest, "unknown action")
			return
		}

		var verr *validationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.msg)
			return
		case err != nil:
			writeTransitionError(w, err, "action not allowed in current round state")
			return
		}

		logger.Info("admin action", "action", req.Action, "admin", sess.Email)

		if req.Action == "reset_round" {
			broker.Publish(Event{Type: eventGuessesCleared})
		}
		publishRoundState(r.Context(), logger, st, broker)

		writeJSON(w, http.StatusOK, result)
	}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func startRound(r *http.Request, st Store, req AdminActionRequest) (any, error) {
	if !validModes[req.Mode] {
		return nil, &validationError{"mode must be fixed, moving, or polygon"}
	}

	var target *geo.LatLng
	var polygon []geo.LatLng

	switch req.Mode {
	case ModePolygon:
		if len(req.Polygon) < 3 {
			return nil, &validationError{"polygon requires at least 3 vertices"}
		}
		for _, v := range req.Polygon {
			if !geo.LondonBounds.Contains(v) {
				return nil, &validationError{"polygon vertices must be within Greater London"}
			}
		}
		polygon = req.Polygon
	default:
		if req.TargetLat == nil || req.TargetLng == nil {
			return nil, &validationError{"targetLat and targetLng are required"}
		}
		p := geo.LatLng{Lat: *req.TargetLat, Lng: *req.TargetLng}
		if !geo.LondonBounds.Contains(p) {
			return nil, &validationError{"target must be within Greater London"}
		}
		target = &p
	}

	roundNo, err := st.StartRound(r.Context(), req.Mode, target, polygon)
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": true, "roundNo": roundNo}, nil
}

func setWinner(r *http.Request, st Store, req AdminActionRequest) (any, error) {
	if req.WinnerPlayerID == "" || req.WinnerDistanceM == nil {
		return nil, &validationError{"winnerPlayerId and winnerDistanceM are required"}
	}

	round, err := st.Round(r.Context())
	if err != nil {
		return nil, err
	}

	won, err := st.SetWinner(r.Context(), round.RoundNo, req.WinnerPlayerID, *req.WinnerDistanceM)
	if err != nil {
		return nil, err
	}
	if !won {
		// Unlike the guess path, an admin asking for a decided round is told so.
		return nil, ErrInvalidTransition
	}
	return map[string]bool{"ok": true}, nil
}

func moveTarget(r *http.Request, st Store, req AdminActionRequest) (any, error) {
	if req.TargetLat == nil || req.TargetLng == nil {
		return nil, &validationError{"targetLat and targetLng are required"}
	}
	p := geo.LatLng{Lat: *req.TargetLat, Lng: *req.TargetLng}
	if !geo.LondonBounds.Contains(p) {
		return nil, &validationError{"target must be within Greater London"}
	}
	if err := st.MoveTarget(r.Context(), p.Lat, p.Lng); err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}
