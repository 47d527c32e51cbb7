package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
)

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message, "retry": false})
}

// serverError logs err with a stack trace and answers 500.
func (app *application) serverError(w http.ResponseWriter, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	app.errorLog.Output(2, trace)
	writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (app *application) clientError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSONError(w, status, message)
}
