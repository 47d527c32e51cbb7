package roomapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// APIError is returned for every non-2xx response of the marketplace API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("roomapi: %s: %s", e.Status, e.Message)
	}
	if e.Body != "" {
		return fmt.Sprintf("roomapi: %s: %s", e.Status, e.Body)
	}
	return "roomapi: " + e.Status
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// UserMessage returns the server supplied message or fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// IsTransient separates failures worth retrying (network trouble,
// timeouts, 408/429/5xx) from permanent rejections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    extractMessage(body),
		Body:       text,
	}
}

func extractMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if strings.TrimSpace(payload.Message) != "" {
		return strings.TrimSpace(payload.Message)
	}
	var s string
	if len(payload.Error) > 0 && json.Unmarshal(payload.Error, &s) == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
