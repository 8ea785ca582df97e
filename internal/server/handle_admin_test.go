package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/presenthunt/geohunt/internal/geo"
)

func seedAccount(t *testing.T, ts *testServer, email, password string, isAdmin bool) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admin := 0
	if isAdmin {
		admin = 1
	}
	_, err = ts.db.ExecContext(context.Background(), `
		INSERT INTO accounts (email, password_hash, is_admin) VALUES (?, ?, ?)
	`, email, string(hash), admin)
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
}

// login authenticates and returns the session cookie.
func login(t *testing.T, ts *testServer, email, password string) *http.Cookie {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: email, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login: no session cookie set")
	return nil
}

func (ts *testServer) doAction(t *testing.T, cookie *http.Cookie, req AdminActionRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal action: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/api/admin/action", bytes.NewReader(body))
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, r)
	return w
}

func TestAdminLogin(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)

	// Wrong password and unknown account are indistinguishable.
	w := ts.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: "admin@example.com", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}
	w = ts.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: "ghost@example.com", Password: "hunter2"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown account: expected 401, got %d", w.Code)
	}

	cookie := login(t, ts, "admin@example.com", "hunter2")

	// The cookie resolves back to the account.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me AdminMeResponse
	json.NewDecoder(rec.Body).Decode(&me)
	if me.Email != "admin@example.com" || !me.IsAdmin {
		t.Errorf("me: unexpected account %+v", me)
	}
}

func TestAdminLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	cookie := login(t, ts, "admin@example.com", "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	// The old cookie no longer resolves.
	req = httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestAdminActionAuthorization(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	seedAccount(t, ts, "viewer@example.com", "p4ssword", false)

	lat, lng := 51.505, -0.09
	start := AdminActionRequest{Action: "start_round", Mode: ModeFixed, TargetLat: &lat, TargetLng: &lng}

	// No session at all.
	if w := ts.doAction(t, nil, start); w.Code != http.StatusUnauthorized {
		t.Errorf("no session: expected 401, got %d", w.Code)
	}

	// Authenticated but not an admin.
	viewer := login(t, ts, "viewer@example.com", "p4ssword")
	if w := ts.doAction(t, viewer, start); w.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", w.Code)
	}

	// Admin succeeds.
	admin := login(t, ts, "admin@example.com", "hunter2")
	if w := ts.doAction(t, admin, start); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminStartRoundValidation(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	admin := login(t, ts, "admin@example.com", "hunter2")

	lat, lng := 51.505, -0.09
	paris := 48.85

	cases := []struct {
		name string
		req  AdminActionRequest
	}{
		{"unknown action", AdminActionRequest{Action: "explode"}},
		{"bad mode", AdminActionRequest{Action: "start_round", Mode: "teleport", TargetLat: &lat, TargetLng: &lng}},
		{"missing target", AdminActionRequest{Action: "start_round", Mode: ModeFixed}},
		{"target out of bounds", AdminActionRequest{Action: "start_round", Mode: ModeFixed, TargetLat: &paris, TargetLng: &lng}},
		{"polygon too small", AdminActionRequest{Action: "start_round", Mode: ModePolygon, Polygon: []geo.LatLng{{Lat: 51.5, Lng: -0.1}, {Lat: 51.51, Lng: -0.1}}}},
		{"polygon vertex out of bounds", AdminActionRequest{Action: "start_round", Mode: ModePolygon, Polygon: []geo.LatLng{{Lat: 51.5, Lng: -0.1}, {Lat: 51.51, Lng: -0.1}, {Lat: 48.85, Lng: 2.35}}}},
	}

	for _, tc := range cases {
		if w := ts.doAction(t, admin, tc.req); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", tc.name, w.Code, w.Body.String())
		}
	}

	// Nothing above should have started a round.
	round, err := ts.store.Round(context.Background())
	if err != nil {
		t.Fatalf("read round: %v", err)
	}
	if round.Status != StatusIdle {
		t.Errorf("expected round untouched, got %q", round.Status)
	}
}

func TestAdminRoundLifecycle(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	admin := login(t, ts, "admin@example.com", "hunter2")
	ts.join(t, "device-1")

	lat, lng := 51.505, -0.09
	start := AdminActionRequest{Action: "start_round", Mode: ModeFixed, TargetLat: &lat, TargetLng: &lng}

	w := ts.doAction(t, admin, start)
	if w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Starting again mid-round conflicts.
	if w := ts.doAction(t, admin, start); w.Code != http.StatusConflict {
		t.Errorf("double start: expected 409, got %d", w.Code)
	}

	// Players submit while running.
	if w := ts.do(t, http.MethodPost, "/api/guess", guessBody("device-1", 51.55, -0.20)); w.Code != http.StatusOK {
		t.Fatalf("guess: expected 200, got %d", w.Code)
	}

	// Reset is only legal after a stop.
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "reset_round"}); w.Code != http.StatusConflict {
		t.Errorf("reset while running: expected 409, got %d", w.Code)
	}
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "stop_round"}); w.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", w.Code)
	}
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "reset_round"}); w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", w.Code)
	}

	// Reset wiped the board.
	w = ts.do(t, http.MethodGet, "/api/guesses", nil)
	var guesses []Guess
	json.NewDecoder(w.Body).Decode(&guesses)
	if len(guesses) != 0 {
		t.Errorf("expected no guesses after reset, got %d", len(guesses))
	}

	var state RoundState
	w = ts.do(t, http.MethodGet, "/api/round", nil)
	json.NewDecoder(w.Body).Decode(&state)
	if state.Status != StatusIdle {
		t.Errorf("expected idle after reset, got %q", state.Status)
	}
}

func TestAdminSetWinner(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	admin := login(t, ts, "admin@example.com", "hunter2")
	player := ts.join(t, "device-1")

	distance := 7.5
	setWinner := AdminActionRequest{Action: "set_winner", WinnerPlayerID: player.ID, WinnerDistanceM: &distance}

	// No running round: the transition conflicts.
	if w := ts.doAction(t, admin, setWinner); w.Code != http.StatusConflict {
		t.Errorf("set_winner on idle: expected 409, got %d", w.Code)
	}

	lat, lng := 51.505, -0.09
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "start_round", Mode: ModeFixed, TargetLat: &lat, TargetLng: &lng}); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}

	if w := ts.doAction(t, admin, setWinner); w.Code != http.StatusOK {
		t.Fatalf("set_winner: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state RoundState
	w := ts.do(t, http.MethodGet, "/api/round", nil)
	json.NewDecoder(w.Body).Decode(&state)
	if state.Status != StatusFinished {
		t.Errorf("expected finished, got %q", state.Status)
	}
	if state.WinnerPlayerID == nil || *state.WinnerPlayerID != player.ID {
		t.Errorf("expected winner %s, got %v", player.ID, state.WinnerPlayerID)
	}

	// The round is already decided.
	if w := ts.doAction(t, admin, setWinner); w.Code != http.StatusConflict {
		t.Errorf("set_winner twice: expected 409, got %d", w.Code)
	}
}

func TestAdminMoveTarget(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	admin := login(t, ts, "admin@example.com", "hunter2")

	lat, lng := 51.505, -0.09
	newLat, newLng := 51.60, 0.10

	// Moving applies to moving-mode rounds only.
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "start_round", Mode: ModeFixed, TargetLat: &lat, TargetLng: &lng}); w.Code != http.StatusOK {
		t.Fatalf("start fixed: expected 200, got %d", w.Code)
	}
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "move_target", TargetLat: &newLat, TargetLng: &newLng}); w.Code != http.StatusConflict {
		t.Errorf("move on fixed round: expected 409, got %d", w.Code)
	}

	ts.doAction(t, admin, AdminActionRequest{Action: "stop_round"})
	ts.doAction(t, admin, AdminActionRequest{Action: "reset_round"})

	if w := ts.doAction(t, admin, AdminActionRequest{Action: "start_round", Mode: ModeMoving, TargetLat: &lat, TargetLng: &lng}); w.Code != http.StatusOK {
		t.Fatalf("start moving: expected 200, got %d", w.Code)
	}
	if w := ts.doAction(t, admin, AdminActionRequest{Action: "move_target", TargetLat: &newLat, TargetLng: &newLng}); w.Code != http.StatusOK {
		t.Fatalf("move: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	round, err := ts.store.Round(context.Background())
	if err != nil {
		t.Fatalf("read round: %v", err)
	}
	if round.Target == nil || round.Target.Lat != newLat || round.Target.Lng != newLng {
		t.Errorf("expected relocated target, got %v", round.Target)
	}
}

func TestAdminToggleShowDistance(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts, "admin@example.com", "hunter2", true)
	admin := login(t, ts, "admin@example.com", "hunter2")

	w := ts.doAction(t, admin, AdminActionRequest{Action: "toggle_show_distance"})
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", w.Code)
	}
	var resp struct {
		ShowDistance bool `json:"showDistance"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.ShowDistance {
		t.Error("first toggle should report showDistance=true")
	}

	w = ts.doAction(t, admin, AdminActionRequest{Action: "toggle_show_distance"})
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ShowDistance {
		t.Error("second toggle should report showDistance=false")
	}
}

func TestSeedAdminIdempotent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := SeedAdmin(ctx, logger, ts.db, "admin@example.com", "hunter2"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// A second boot with different credentials must not add or replace.
	if err := SeedAdmin(ctx, logger, ts.db, "other@example.com", "changed"); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int
	if err := ts.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 account, got %d", count)
	}

	login(t, ts, "admin@example.com", "hunter2")
}
