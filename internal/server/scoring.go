package server

import (
	"context"
	"fmt"

	"github.com/presenthunt/geohunt/internal/geo"
)

type scoringConfig struct {
	winThresholdM float64
	polygonQuorum int
}

// outcome is the result of scoring one guess against the round it was
// accepted into.
type outcome struct {
	// distanceM is set for fixed/moving modes only; polygon mode never
	// reveals a distance.
	distanceM   *float64
	temperature string

	// wonPlayerID is set when this guess decided the round.
	wonPlayerID string
	// teamWin is set when this guess completed the polygon quorum.
	teamWin     bool
	insideCount int
}

// evaluateGuess applies the mode-specific win rules. The round passed in was
// read in the same request that persisted the guess; the conditional updates
// in the store guarantee a single authoritative winner even when two winning
// guesses are evaluated concurrently: the loser's update matches zero rows
// and the outcome simply records no win.
func evaluateGuess(ctx context.Context, st Store, cfg scoringConfig, round Round, g Guess) (outcome, error) {
	switch round.Mode {
	case ModeFixed, ModeMoving:
		return evaluateTargetGuess(ctx, st, cfg, round, g)
	case ModePolygon:
		return evaluatePolygonGuess(ctx, st, cfg, round)
	default:
		return outcome{}, fmt.Errorf("scoring guess: unknown mode %q", round.Mode)
	}
}

// evaluateTargetGuess scores against the round's current target. In moving
// mode the target may have been relocated since the player tapped; the guess
// is deliberately scored against where the target is now.
func evaluateTargetGuess(ctx context.Context, st Store, cfg scoringConfig, round Round, g Guess) (outcome, error) {
	if round.Target == nil {
		return outcome{}, fmt.Errorf("scoring guess: %s round %d has no target", round.Mode, round.RoundNo)
	}

	distance := geo.Distance(geo.LatLng{Lat: g.Lat, Lng: g.Lng}, *round.Target)
	out := outcome{
		distanceM:   &distance,
		temperature: geo.TemperatureLabel(distance),
	}

	if distance > cfg.winThresholdM {
		return out, nil
	}

	won, err := st.SetWinner(ctx, round.RoundNo, g.PlayerID, distance)
	if err != nil {
		return out, fmt.Errorf("setting winner: %w", err)
	}
	if won {
		out.wonPlayerID = g.PlayerID
	}
	return out, nil
}

// evaluatePolygonGuess counts players whose current guess lies inside the
// target polygon and finishes the round as a team win once the quorum is
// reached. The guess being scored is already persisted, so it is part of the
// listing.
func evaluatePolygonGuess(ctx context.Context, st Store, cfg scoringConfig, round Round) (outcome, error) {
	inside, err := countInsiders(ctx, st, round)
	if err != nil {
		return outcome{}, err
	}

	out := outcome{insideCount: inside}
	if inside < cfg.polygonQuorum {
		return out, nil
	}

	won, err := st.FinishTeamWin(ctx, round.RoundNo)
	if err != nil {
		return out, fmt.Errorf("finishing team win: %w", err)
	}
	out.teamWin = won
	return out, nil
}

// countInsiders classifies the round's current guesses against its polygon.
// The (round_no, player_id) uniqueness of guesses makes this a distinct
// player count.
func countInsiders(ctx context.Context, st Store, round Round) (int, error) {
	guesses, err := st.ListGuesses(ctx, round.RoundNo)
	if err != nil {
		return 0, fmt.Errorf("listing guesses for round %d: %w", round.RoundNo, err)
	}

	inside := 0
	for _, g := range guesses {
		if geo.PointInPolygon(geo.LatLng{Lat: g.Lat, Lng: g.Lng}, round.Polygon) {
			inside++
		}
	}
	return inside, nil
}
