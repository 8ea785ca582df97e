package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeTransitionError maps a failed lifecycle operation onto the HTTP
// taxonomy: a guarded update that matched nothing is a 409, anything else is
// a storage fault.
func writeTransitionError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrInvalidTransition) {
		writeError(w, http.StatusConflict, msg)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

// clientKey is the per-client rate-limit key. Behind the RealIP middleware
// RemoteAddr carries the originating address, with or without a port.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
