package handlers

import (
	"errors"
	"net/http"
	"strings"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

type BookingHandler struct {
	Service   *services.BookingService
	Contracts *contracts.Validator
}

type bookingRequestBody struct {
	RoomID int `json:"room_id"`
}

// Request submits a renter's booking. A repeated submission inside the
// dedup window answers 409 with the id of the booking already made.
func (h *BookingHandler) Request(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var body bookingRequestBody
	if err := decodeJSON(r, h.Contracts, contracts.BookingRequest, &body); err != nil {
		writeError(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	b, err := h.Service.Request(r.Context(), sess, body.RoomID, key)
	if errors.Is(err, models.ErrDuplicateRequest) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: "a booking request for this room was already sent",
			ID:    b.ID,
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) OwnerList(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	board, err := h.Service.ListForOwner(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *BookingHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, r, models.ValidationError{"id": "Invalid booking id"})
		return
	}
	board, err := h.Service.Accept(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, r, models.ValidationError{"id": "Invalid booking id"})
		return
	}
	board, err := h.Service.Delete(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
