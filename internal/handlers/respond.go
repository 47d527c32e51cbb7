package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

const maxJSONBody = 1 << 20

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string                 `json:"error"`
	Fields models.ValidationError `json:"fields,omitempty"`
	Retry  bool                   `json:"retry"`
	ID     int                    `json:"booking_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// upstreamErrorStatus passes marketplace 4xx answers through and reports
// everything else from the marketplace as a bad gateway.
func upstreamErrorStatus(err error) int {
	var apiErr *roomapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && !apiErr.Temporary() {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	if roomapi.IsTransient(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorStatus(err error) int {
	var ve models.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, models.ErrTooManyImages),
		errors.Is(err, models.ErrInvalidImage),
		errors.Is(err, models.ErrInvalidStep):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrDuplicateRequest),
		errors.Is(err, models.ErrDraftConflict),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrRoomUnavailable):
		return http.StatusConflict
	case errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrOwnRoom):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNoRecord),
		errors.Is(err, models.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrSessionExpired),
		errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return upstreamErrorStatus(err)
}

func errorMessage(err error, status int) string {
	var ve models.ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation failed"
	case status == http.StatusInternalServerError:
		return http.StatusText(status)
	}
	var apiErr *roomapi.APIError
	if errors.As(err, &apiErr) {
		return roomapi.UserMessage(err, "the marketplace could not handle the request")
	}
	if status == http.StatusBadGateway {
		return "the marketplace is unreachable, try again"
	}
	return err.Error()
}

// writeError maps err to a status and JSON body. Server-side failures are
// logged; their details are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	resp := errorResponse{
		Error: errorMessage(err, status),
		Retry: roomapi.IsTransient(err),
	}
	var ve models.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve
	}
	if status >= http.StatusInternalServerError {
		slog.Default().Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded body, checks it against schema when one is
// given and decodes it into dst.
func decodeJSON(r *http.Request, v *contracts.Validator, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return models.ValidationError{"body": "Unable to read request body"}
	}
	if len(body) > maxJSONBody {
		return models.ValidationError{"body": "Request body is too large"}
	}
	if v != nil && schema != "" {
		if err := v.Validate(schema, body); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return models.ValidationError{"body": "Invalid JSON body"}
	}
	return nil
}
