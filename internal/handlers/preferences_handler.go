package handlers

import (
	"net/http"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

type PreferencesHandler struct {
	Service   *services.PreferencesService
	Contracts *contracts.Validator
}

func (h *PreferencesHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var prefs models.Preferences
	if err := decodeJSON(r, h.Contracts, contracts.Preferences, &prefs); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.Service.Save(r.Context(), sess, prefs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *PreferencesHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	rooms, err := h.Service.Recommendations(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}
