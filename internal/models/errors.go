package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoRecord           = errors.New("models: no matching record found")
	ErrForbidden          = errors.New("models: action not allowed for this role")
	ErrInvalidCredentials = errors.New("models: invalid credentials")
	ErrSessionNotFound    = errors.New("models: session not found")
	ErrSessionExpired     = errors.New("models: session expired")
	ErrDuplicateRequest   = errors.New("models: duplicate booking request")
	ErrRoomUnavailable    = errors.New("models: room is not available for booking")
	ErrOwnRoom            = errors.New("models: owners cannot book their own room")
	ErrInvalidTransition  = errors.New("models: invalid status transition")
	ErrDraftNotFound      = errors.New("models: listing draft not found")
	ErrDraftConflict      = errors.New("models: listing draft changed concurrently")
	ErrTooManyImages      = errors.New("models: image limit reached")
	ErrInvalidImage       = errors.New("models: file is not an accepted image")
	ErrInvalidStep        = errors.New("models: wizard step out of range")
)

// ValidationError maps form field names to user-facing messages.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil when no field failed so callers can return it directly.
func (e ValidationError) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
