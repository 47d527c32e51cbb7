package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// getParam returns a path or query parameter value regardless of whether
// the router stores it with a leading colon or not. It also supports the
// standard net/http PathValue API available in recent Go versions.
func getParam(r *http.Request, name string) string {
	if r == nil {
		return ""
	}

	if val := r.URL.Query().Get(":" + name); val != "" {
		return val
	}

	if val := r.URL.Query().Get(name); val != "" {
		return val
	}

	return r.PathValue(name)
}

// intParam parses a positive integer parameter. ok is false when the value
// is missing or malformed.
func intParam(r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(getParam(r, name)))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// floatQuery reads an optional float query value; def is returned when the
// value is absent.
func floatQuery(r *http.Request, name string, def float64) (float64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func boolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(name)))
	return v
}
