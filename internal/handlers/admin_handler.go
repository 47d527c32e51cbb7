package handlers

import (
	"net/http"
	"strconv"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

type AdminHandler struct {
	Approval  *services.ApprovalService
	Directory *services.DirectoryService
	Dashboard *services.DashboardService
	Contracts *contracts.Validator
}

func (h *AdminHandler) DashboardView(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	view, err := h.Dashboard.Load(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) HouseOwners(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	users, err := h.Directory.HouseOwners(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) Renters(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	users, err := h.Directory.Renters(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	bookings, err := h.Directory.Bookings(r.Context(), sess, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Listings serves one tab of the flats or rooms approval queue.
func (h *AdminHandler) Listings(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	view, err := h.Approval.Queue(r.Context(), sess, getParam(r, "kind"), r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, r, models.ValidationError{"id": "Invalid listing id"})
		return
	}
	view, err := h.Approval.Approve(r.Context(), sess, getParam(r, "kind"), id, r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) Decline(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, r, models.ValidationError{"id": "Invalid listing id"})
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, h.Contracts, contracts.Decline, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	view, err := h.Approval.Decline(r.Context(), sess, getParam(r, "kind"), id, body.Reason, r.URL.Query().Get("tab"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ModerationLog lists recent decisions, optionally for one ?listing_id.
func (h *AdminHandler) ModerationLog(w http.ResponseWriter, r *http.Request) {
	listingID, _ := strconv.Atoi(r.URL.Query().Get("listing_id"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.Approval.ModerationLog(r.Context(), listingID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.ModerationEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
