package server

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/presenthunt/geohunt/internal/geo"
)

func TestTargetMoverRelocatesMovingRound(t *testing.T) {
	st := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := geo.LatLng{Lat: 51.50, Lng: -0.10}
	if _, err := st.StartRound(ctx, ModeMoving, &start, nil); err != nil {
		t.Fatalf("start moving round: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	done := make(chan error, 1)
	go func() {
		done <- RunTargetMover(ctx, logger, st, NewBroker(), 5*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for {
		round, err := st.Round(context.Background())
		if err != nil {
			t.Fatalf("read round: %v", err)
		}
		if round.Target != nil && *round.Target != start {
			if !geo.LondonBounds.Contains(*round.Target) {
				t.Errorf("relocated target %v is out of bounds", *round.Target)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("target was never relocated")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("mover returned %v", err)
	}
}

func TestTargetMoverIgnoresFixedRound(t *testing.T) {
	st := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := geo.LatLng{Lat: 51.50, Lng: -0.10}
	mustStartFixed(t, st, start)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go RunTargetMover(ctx, logger, st, NewBroker(), time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	round, err := st.Round(context.Background())
	if err != nil {
		t.Fatalf("read round: %v", err)
	}
	if round.Target == nil || *round.Target != start {
		t.Errorf("fixed-mode target must not move, got %v", round.Target)
	}
}
