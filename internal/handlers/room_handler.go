package handlers

import (
	"net/http"
	"strconv"

	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

type RoomHandler struct {
	Rooms         *services.RoomService
	NearbyService *services.NearbyService
	Owner         *services.OwnerService
}

// Explore lists rooms. ?type=room|flat narrows the kind and ?available=true
// hides occupied listings.
func (h *RoomHandler) Explore(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	f := services.ExploreFilter{
		Type:          r.URL.Query().Get("type"),
		AvailableOnly: boolQuery(r, "available"),
	}
	rooms, err := h.Rooms.Explore(r.Context(), sess, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	rooms, err := h.Rooms.Search(r.Context(), sess, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandler) Details(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	id, ok := intParam(r, "id")
	if !ok {
		writeError(w, r, models.ValidationError{"id": "Invalid room id"})
		return
	}
	room, err := h.Rooms.Details(r.Context(), sess, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	errs := models.ValidationError{}
	lat, ok := floatQuery(r, "lat", models.DefaultLatitude)
	if !ok {
		errs["lat"] = "Latitude must be a number"
	}
	lon, ok := floatQuery(r, "lon", models.DefaultLongitude)
	if !ok {
		errs["lon"] = "Longitude must be a number"
	}
	radius, ok := floatQuery(r, "radius_km", 0)
	if !ok {
		errs["radius_km"] = "Radius must be a number"
	}
	q := services.NearbyQuery{Lat: lat, Lon: lon, RadiusKm: radius}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs["limit"] = "Limit must be an integer"
		}
		q.Limit = n
	}
	if raw := r.URL.Query().Get("precision"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			errs["precision"] = "Precision must be a small positive integer"
		}
		q.Precision = uint(n)
	}
	if len(errs) > 0 {
		writeError(w, r, errs)
		return
	}

	res, err := h.NearbyService.Find(r.Context(), sess, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RoomHandler) OwnerRooms(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	sum, err := h.Owner.Summary(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
