package handlers

import (
	"context"
	"net/http"

	"roomfinder/internal/models"
)

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores the resolved session on the request context.
func WithSession(ctx context.Context, sess models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the session stored by WithSession.
func SessionFrom(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(models.Session)
	return sess, ok
}

// session fetches the caller's session or writes a 401.
func session(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		writeError(w, r, models.ErrSessionNotFound)
		return models.Session{}, false
	}
	return sess, true
}
