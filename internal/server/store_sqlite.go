package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/presenthunt/geohunt/internal/geo"
)

const roundID = "main-round"

const sqliteNow = "strftime('%Y-%m-%dT%H:%M:%fZ', 'now')"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Round(ctx context.Context) (Round, error) {
	var r Round
	var mode, polygonJSON, winnerID, startedAt, endedAt sql.NullString
	var targetLat, targetLng, winnerDistance sql.NullFloat64
	var teamWin, showDistance int

	err := s.db.QueryRowContext(ctx, `
		SELECT status, mode, round_no, target_lat, target_lng, polygon,
			winner_player_id, winner_distance_m, team_win, show_distance,
			started_at, ended_at
		FROM rounds WHERE id = ?
	`, roundID).Scan(&r.Status, &mode, &r.RoundNo, &targetLat, &targetLng, &polygonJSON,
		&winnerID, &winnerDistance, &teamWin, &showDistance, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}

	r.Mode = mode.String
	r.TeamWin = teamWin == 1
	r.ShowDistance = showDistance == 1
	if targetLat.Valid && targetLng.Valid {
		r.Target = &geo.LatLng{Lat: targetLat.Float64, Lng: targetLng.Float64}
	}
	if polygonJSON.Valid && polygonJSON.String != "" {
		if err := json.Unmarshal([]byte(polygonJSON.String), &r.Polygon); err != nil {
			return r, fmt.Errorf("decoding round polygon: %w", err)
		}
	}
	if winnerID.Valid {
		r.WinnerPlayerID = &winnerID.String
	}
	if winnerDistance.Valid {
		r.WinnerDistanceM = &winnerDistance.Float64
	}
	if startedAt.Valid {
		r.StartedAt = &startedAt.String
	}
	if endedAt.Valid {
		r.EndedAt = &endedAt.String
	}
	return r, nil
}

func (s *SQLiteStore) StartRound(ctx context.Context, mode string, target *geo.LatLng, polygon []geo.LatLng) (int64, error) {
	var targetLat, targetLng any
	if target != nil {
		targetLat, targetLng = target.Lat, target.Lng
	}
	var polygonJSON any
	if len(polygon) > 0 {
		data, err := json.Marshal(polygon)
		if err != nil {
			return 0, fmt.Errorf("encoding polygon: %w", err)
		}
		polygonJSON = string(data)
	}

	var roundNo int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE rounds SET
			status = 'running',
			mode = ?,
			round_no = round_no + 1,
			target_lat = ?, target_lng = ?, polygon = ?,
			winner_player_id = NULL, winner_distance_m = NULL, team_win = 0,
			started_at = `+sqliteNow+`, ended_at = NULL,
			updated_at = `+sqliteNow+`
		WHERE id = ? AND status = 'idle'
		RETURNING round_no
	`, mode, targetLat, targetLng, polygonJSON, roundID).Scan(&roundNo)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidTransition
	}
	return roundNo, err
}

func (s *SQLiteStore) StopRound(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET status = 'finished', ended_at = `+sqliteNow+`, updated_at = `+sqliteNow+`
		WHERE id = ? AND status = 'running'
	`, roundID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *SQLiteStore) SetWinner(ctx context.Context, roundNo int64, playerID string, distanceM float64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET
			status = 'finished',
			winner_player_id = ?, winner_distance_m = ?,
			ended_at = `+sqliteNow+`, updated_at = `+sqliteNow+`
		WHERE id = ? AND status = 'running' AND round_no = ?
	`, playerID, distanceM, roundID, roundNo)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

func (s *SQLiteStore) FinishTeamWin(ctx context.Context, roundNo int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET
			status = 'finished', team_win = 1,
			ended_at = `+sqliteNow+`, updated_at = `+sqliteNow+`
		WHERE id = ? AND status = 'running' AND mode = 'polygon' AND round_no = ?
	`, roundID, roundNo)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n == 1, nil
}

func (s *SQLiteStore) ResetRound(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var closedRoundNo int64
	err = tx.QueryRowContext(ctx, `
		UPDATE rounds SET
			status = 'idle', mode = NULL,
			target_lat = NULL, target_lng = NULL, polygon = NULL,
			winner_player_id = NULL, winner_distance_m = NULL, team_win = 0,
			started_at = NULL, ended_at = NULL,
			updated_at = `+sqliteNow+`
		WHERE id = ? AND status IN ('finished', 'idle')
		RETURNING round_no
	`, roundID).Scan(&closedRoundNo)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidTransition
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM guesses WHERE round_no = ?`, closedRoundNo); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) MoveTarget(ctx context.Context, lat, lng float64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET target_lat = ?, target_lng = ?, updated_at = `+sqliteNow+`
		WHERE id = ? AND status = 'running' AND mode = 'moving'
	`, lat, lng, roundID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *SQLiteStore) ToggleShowDistance(ctx context.Context) (bool, error) {
	var showDistance int
	err := s.db.QueryRowContext(ctx, `
		UPDATE rounds SET show_distance = 1 - show_distance, updated_at = `+sqliteNow+`
		WHERE id = ?
		RETURNING show_distance
	`, roundID).Scan(&showDistance)
	return showDistance == 1, err
}

func (s *SQLiteStore) PlayerByDeviceID(ctx context.Context, deviceID string) (Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, device_id, nickname, color, joined_at, last_seen_at
		FROM players WHERE device_id = ?
	`, deviceID).Scan(&p.ID, &p.DeviceID, &p.Nickname, &p.Color, &p.JoinedAt, &p.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE nickname = ?`, nickname).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) CreatePlayer(ctx context.Context, deviceID, nickname, color string) (Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (id, device_id, nickname, color)
		VALUES (?, ?, ?, ?)
		RETURNING id, device_id, nickname, color, joined_at, last_seen_at
	`, uuid.NewString(), deviceID, nickname, color).Scan(
		&p.ID, &p.DeviceID, &p.Nickname, &p.Color, &p.JoinedAt, &p.LastSeenAt)
	return p, err
}

func (s *SQLiteStore) TouchPlayer(ctx context.Context, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET last_seen_at = `+sqliteNow+` WHERE id = ?
	`, playerID)
	return err
}

func (s *SQLiteStore) ListPlayers(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, nickname, color, joined_at, last_seen_at
		FROM players ORDER BY joined_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.DeviceID, &p.Nickname, &p.Color, &p.JoinedAt, &p.LastSeenAt); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) UpsertGuess(ctx context.Context, roundNo int64, playerID string, lat, lng float64) (Guess, error) {
	var g Guess
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO guesses (id, round_no, player_id, lat, lng)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (round_no, player_id) DO UPDATE SET
			lat = excluded.lat, lng = excluded.lng,
			created_at = `+sqliteNow+`
		RETURNING id, round_no, player_id, lat, lng, created_at
	`, uuid.NewString(), roundNo, playerID, lat, lng).Scan(
		&g.ID, &g.RoundNo, &g.PlayerID, &g.Lat, &g.Lng, &g.CreatedAt)
	if err != nil {
		return g, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT nickname, color FROM players WHERE id = ?
	`, playerID).Scan(&g.Nickname, &g.Color)
	return g, err
}

func (s *SQLiteStore) ListGuesses(ctx context.Context, roundNo int64) ([]Guess, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.round_no, g.player_id, p.nickname, p.color, g.lat, g.lng, g.created_at
		FROM guesses g
		JOIN players p ON p.id = g.player_id
		WHERE g.round_no = ?
		ORDER BY g.created_at
	`, roundNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []Guess
	for rows.Next() {
		var g Guess
		if err := rows.Scan(&g.ID, &g.RoundNo, &g.PlayerID, &g.Nickname, &g.Color, &g.Lat, &g.Lng, &g.CreatedAt); err != nil {
			return nil, err
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}
