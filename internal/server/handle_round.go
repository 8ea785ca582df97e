package server

import (
	"context"
	"net/http"

	"github.com/presenthunt/geohunt/internal/geo"
)

// RoundState is the round as clients are allowed to see it. The target is
// hidden while the round runs and revealed once it is decided; the polygon is
// never revealed as coordinates, only as an insider count and overlay
// opacity.
type RoundState struct {
	Status          string      `json:"status"`
	Mode            string      `json:"mode,omitempty"`
	RoundNo         int64       `json:"roundNo"`
	ShowDistance    bool        `json:"showDistance"`
	StartedAt       *string     `json:"startedAt"`
	EndedAt         *string     `json:"endedAt"`
	Target          *geo.LatLng `json:"target,omitempty"`
	WinnerPlayerID  *string     `json:"winnerPlayerId,omitempty"`
	WinnerDistanceM *float64    `json:"winnerDistanceM,omitempty"`
	TeamWin         bool        `json:"teamWin"`
	InsideCount     int         `json:"insideCount"`
	PolygonOpacity  float64     `json:"polygonOpacity"`
}

// roundState redacts a round for fan-out. insideCount is only meaningful in
// polygon mode and feeds the opacity step function.
func roundState(r Round, insideCount int) RoundState {
	state := RoundState{
		Status:          r.Status,
		Mode:            r.Mode,
		RoundNo:         r.RoundNo,
		ShowDistance:    r.ShowDistance,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		WinnerPlayerID:  r.WinnerPlayerID,
		WinnerDistanceM: r.WinnerDistanceM,
		TeamWin:         r.TeamWin,
	}

	if r.Status == StatusFinished && (r.Mode == ModeFixed || r.Mode == ModeMoving) {
		state.Target = r.Target
	}
	if r.Mode == ModePolygon {
		state.InsideCount = insideCount
		state.PolygonOpacity = geo.PolygonOpacity(insideCount)
	}
	return state
}

// currentRoundState reads the round and, in polygon mode, recounts insiders
// so the opacity buckets stay accurate.
func currentRoundState(ctx context.Context, st Store) (RoundState, error) {
	round, err := st.Round(ctx)
	if err != nil {
		return RoundState{}, err
	}

	insideCount := 0
	if round.Mode == ModePolygon {
		insideCount, err = countInsiders(ctx, st, round)
		if err != nil {
			return RoundState{}, err
		}
	}
	return roundState(round, insideCount), nil
}

func handleRoundState(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := currentRoundState(r.Context(), st)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleListGuesses(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		round, err := st.Round(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		guesses, err := st.ListGuesses(r.Context(), round.RoundNo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if guesses == nil {
			guesses = []Guess{}
		}
		writeJSON(w, http.StatusOK, guesses)
	}
}

func handleListPlayers(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := st.ListPlayers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if players == nil {
			players = []Player{}
		}
		writeJSON(w, http.StatusOK, players)
	}
}
