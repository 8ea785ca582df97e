package server

import (
	"database/sql"
	"errors"
	"net/http"
)

// accountSession is a resolved login session. IsAdmin is the externally
// delegated authorization decision: any account may hold a session, but only
// admin accounts may mutate the round.
type accountSession struct {
	AccountID string
	Email     string
	IsAdmin   bool
}

var errNoSession = errors.New("no valid session")

const sessionCookieName = "admin_session"

// sessionFromRequest reads the session cookie and resolves the account
// behind it.
func sessionFromRequest(r *http.Request, db *sql.DB) (accountSession, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return accountSession{}, errNoSession
	}

	var sess accountSession
	var isAdmin int
	err = db.QueryRowContext(r.Context(), `
		SELECT a.id, a.email, a.is_admin
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.id = ?
	`, cookie.Value).Scan(&sess.AccountID, &sess.Email, &isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return accountSession{}, errNoSession
	}
	sess.IsAdmin = isAdmin == 1
	return sess, err
}
