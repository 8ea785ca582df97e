package server

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/presenthunt/geohunt/internal/geo"
)

// RunTargetMover relocates the target of a running moving-mode round to a
// uniformly random point inside the playing field on every tick. Guesses are
// always scored against the target at evaluation time, so a relocation
// between tap and evaluation is simply absorbed. Returns when ctx is done.
func RunTargetMover(ctx context.Context, logger *slog.Logger, st Store, broker *Broker, interval time.Duration) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			round, err := st.Round(ctx)
			if err != nil {
				logger.Error("target mover: reading round", "error", err)
				continue
			}
			if round.Status != StatusRunning || round.Mode != ModeMoving {
				continue
			}

			p := geo.LondonBounds.RandomPoint(rng)
			err = st.MoveTarget(ctx, p.Lat, p.Lng)
			if errors.Is(err, ErrInvalidTransition) {
				// Round was decided or stopped between the read and the move.
				continue
			}
			if err != nil {
				logger.Error("target mover: relocating", "error", err)
				continue
			}

			logger.Debug("target relocated", "round_no", round.RoundNo)
			// The fan-out payload redacts the target while running, so this
			// only tells clients that something changed.
			publishRoundState(ctx, logger, st, broker)
		}
	}
}
