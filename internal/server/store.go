package server

import (
	"context"
	"errors"

	"github.com/presenthunt/geohunt/internal/geo"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a lifecycle operation is attempted
	// from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid round transition")
)

// Round lifecycle states.
const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusFinished = "finished"
)

// Game modes.
const (
	ModeFixed   = "fixed"
	ModeMoving  = "moving"
	ModePolygon = "polygon"
)

// Round is the single authoritative round record.
type Round struct {
	Status          string
	Mode            string // empty before the first start
	RoundNo         int64
	Target          *geo.LatLng  // fixed/moving modes only
	Polygon         []geo.LatLng // polygon mode only
	WinnerPlayerID  *string
	WinnerDistanceM *float64
	TeamWin         bool
	ShowDistance    bool
	StartedAt       *string
	EndedAt         *string
}

// Player is a device-scoped pseudo-identity.
type Player struct {
	ID         string `json:"id"`
	DeviceID   string `json:"-"`
	Nickname   string `json:"nickname"`
	Color      string `json:"color"`
	JoinedAt   string `json:"joinedAt"`
	LastSeenAt string `json:"lastSeenAt"`
}

// Guess is a player's current guess for a round, joined with the player's
// display attributes for fan-out.
type Guess struct {
	ID        string  `json:"id"`
	RoundNo   int64   `json:"roundNo"`
	PlayerID  string  `json:"playerId"`
	Nickname  string  `json:"nickname"`
	Color     string  `json:"color"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	CreatedAt string  `json:"createdAt"`
}

// Store is the persistence boundary for rounds, guesses, and players. All
// round transitions are conditional updates: concurrent callers race on the
// status guard and at most one wins.
type Store interface {
	Round(ctx context.Context) (Round, error)

	// StartRound is legal only from idle. It bumps round_no by one and clears
	// the previous winner and timestamps. Exactly one of target/polygon is set,
	// per mode.
	StartRound(ctx context.Context, mode string, target *geo.LatLng, polygon []geo.LatLng) (roundNo int64, err error)

	// StopRound is legal only from running. Winner fields are left untouched,
	// which covers the "time's up, nobody won" case.
	StopRound(ctx context.Context) error

	// SetWinner conditionally finishes round roundNo with the given winner.
	// It returns (false, nil) when the guard fails, i.e. another caller
	// already decided the round or the round changed; that is the expected
	// outcome of a lost race, not an error.
	SetWinner(ctx context.Context, roundNo int64, playerID string, distanceM float64) (bool, error)

	// FinishTeamWin conditionally finishes a running polygon round as a
	// collaborative win. Same race semantics as SetWinner.
	FinishTeamWin(ctx context.Context, roundNo int64) (bool, error)

	// ResetRound is legal from finished (and idle, where it is a no-op on
	// status). It clears target, polygon, winner, and timestamps, and deletes
	// every guess scoped to the round number just closed.
	ResetRound(ctx context.Context) error

	// MoveTarget relocates the target of a running moving-mode round.
	MoveTarget(ctx context.Context, lat, lng float64) error

	// ToggleShowDistance flips the feedback-granularity flag in any state and
	// returns the new value.
	ToggleShowDistance(ctx context.Context) (bool, error)

	PlayerByDeviceID(ctx context.Context, deviceID string) (Player, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	CreatePlayer(ctx context.Context, deviceID, nickname, color string) (Player, error)
	TouchPlayer(ctx context.Context, playerID string) error
	ListPlayers(ctx context.Context) ([]Player, error)

	// UpsertGuess records the player's current guess for roundNo. The
	// (round_no, player_id) pair is unique; resubmission overwrites in place.
	UpsertGuess(ctx context.Context, roundNo int64, playerID string, lat, lng float64) (Guess, error)
	ListGuesses(ctx context.Context, roundNo int64) ([]Guess, error)
}
