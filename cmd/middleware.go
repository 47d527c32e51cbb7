package main

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/slices"

	"roomfinder/internal/handlers"
	"roomfinder/internal/models"
)

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func makeResponseJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.infoLog.Printf("%s - %s %s %s", r.RemoteAddr, r.Proto, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireSession resolves the gateway token into a session and, when roles
// are given, rejects callers holding none of them.
func (app *application) requireSession(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := handlers.BearerToken(r)
			if token == "" {
				app.clientError(w, http.StatusUnauthorized, "Authorization header missing or invalid")
				return
			}
			sess, err := app.auth.Resolve(r.Context(), token)
			switch {
			case errors.Is(err, models.ErrSessionExpired):
				app.clientError(w, http.StatusUnauthorized, "Session expired, sign in again")
				return
			case errors.Is(err, models.ErrSessionNotFound):
				app.clientError(w, http.StatusUnauthorized, "Invalid session")
				return
			case err != nil:
				app.serverError(w, err)
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, sess.Role()) {
				app.clientError(w, http.StatusForbidden, "Forbidden: this action is not allowed for your role")
				return
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithSession(r.Context(), sess)))
		})
	}
}
