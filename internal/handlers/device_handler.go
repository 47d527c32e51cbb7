package handlers

import (
	"net/http"

	"roomfinder/internal/contracts"
	"roomfinder/internal/services"
)

// DeviceHandler registers push notification tokens.
type DeviceHandler struct {
	Service   *services.DeviceService
	Contracts *contracts.Validator
}

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var t deviceRequest
	if err := decodeJSON(r, h.Contracts, contracts.Device, &t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.Register(r.Context(), sess, t.Token, t.Platform); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
