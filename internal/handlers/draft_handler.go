package handlers

import (
	"net/http"
	"strings"

	"roomfinder/internal/contracts"
	"roomfinder/internal/models"
	"roomfinder/internal/services"
)

const maxUploadMemory = 10 << 20

// DraftHandler exposes the listing wizard.
type DraftHandler struct {
	Wizard    *services.ListingWizard
	Contracts *contracts.Validator
}

func draftID(r *http.Request) string {
	return strings.TrimSpace(getParam(r, "id"))
}

func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	d, err := h.Wizard.Start(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	drafts, err := h.Wizard.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if drafts == nil {
		drafts = []models.ListingDraft{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	d, err := h.Wizard.Get(r.Context(), sess, draftID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if err := h.Wizard.Discard(r.Context(), sess, draftID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandler) SaveBasic(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var basic models.BasicInfo
	if err := decodeJSON(r, h.Contracts, contracts.ListingBasic, &basic); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r)(h.Wizard.SaveBasic(r.Context(), sess, draftID(r), basic))
}

func (h *DraftHandler) SaveFacilities(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var f models.Facilities
	if err := decodeJSON(r, h.Contracts, contracts.Facilities, &f); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r)(h.Wizard.SaveFacilities(r.Context(), sess, draftID(r), f))
}

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *DraftHandler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var loc locationBody
	if err := decodeJSON(r, h.Contracts, contracts.Location, &loc); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r)(h.Wizard.SaveLocation(r.Context(), sess, draftID(r), loc.Latitude, loc.Longitude))
}

func (h *DraftHandler) Goto(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	var body struct {
		Step int `json:"step"`
	}
	if err := decodeJSON(r, nil, "", &body); err != nil {
		writeError(w, r, err)
		return
	}
	h.respond(w, r)(h.Wizard.Goto(r.Context(), sess, draftID(r), body.Step))
}

// UploadImages stages every photo of a multipart form. Photos stored before
// a failing one stay attached to the draft.
func (h *DraftHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, models.ValidationError{"images": "Expected a multipart form with images"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := collectImageFiles(r.MultipartForm, imageFormKeys...)
	if len(files) == 0 {
		writeError(w, r, models.ValidationError{"images": "No images were uploaded"})
		return
	}

	var d models.ListingDraft
	for _, fh := range files {
		up, f, err := openUpload(fh)
		if err != nil {
			writeError(w, r, err)
			return
		}
		d, err = h.Wizard.AddImage(r.Context(), sess, draftID(r), up)
		f.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	h.respond(w, r)(h.Wizard.RemoveImage(r.Context(), sess, draftID(r), getParam(r, "key")))
}

func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := session(w, r)
	if !ok {
		return
	}
	msg, err := h.Wizard.Submit(r.Context(), sess, draftID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *DraftHandler) respond(w http.ResponseWriter, r *http.Request) func(models.ListingDraft, error) {
	return func(d models.ListingDraft, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
