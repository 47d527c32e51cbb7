package models

import (
	"strconv"
	"strings"
	"time"
)

// Wizard steps of the listing creation flow.
const (
	StepBasicInfo  = 1
	StepFacilities = 2
	StepLocation   = 3
	StepImages     = 4
)

// MaxListingImages is the number of photos a listing may carry.
const MaxListingImages = 5

// BasicInfo is the first wizard step.
type BasicInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RoomType    string `json:"room_type"`
	Price       string `json:"price"`
	Address     string `json:"address"`
	AreaSize    string `json:"areaSize"`
	RoomCount   int    `json:"no_of_room"`
}

// Validate returns the field errors of the basic info step.
func (b BasicInfo) Validate() error {
	errs := ValidationError{}
	if strings.TrimSpace(b.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(b.Description) == "" {
		errs["description"] = "Description is required"
	}
	if p, err := strconv.ParseFloat(strings.TrimSpace(b.Price), 64); err != nil || p <= 0 {
		errs["price"] = "Valid price is required"
	}
	if strings.TrimSpace(b.Address) == "" {
		errs["address"] = "Address is required"
	}
	if strings.TrimSpace(b.AreaSize) == "" {
		errs["areaSize"] = "Area size is required"
	}
	switch b.RoomType {
	case RoomTypeRoom, RoomTypeFlat:
	default:
		errs["room_type"] = "Room type must be room or flat"
	}
	if b.RoomCount < 1 {
		errs["no_of_room"] = "At least one room is required"
	}
	return errs.OrNil()
}

// DraftImage is a photo staged in object storage for a draft.
type DraftImage struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ListingDraft holds a listing wizard between steps.
type ListingDraft struct {
	ID         string       `json:"id"`
	OwnerID    int          `json:"owner_id"`
	Step       int          `json:"step"`
	Version    int          `json:"version"`
	Basic      BasicInfo    `json:"basic"`
	Facilities Facilities   `json:"facilities"`
	Location   Point        `json:"location"`
	Images     []DraftImage `json:"images"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewListingDraft returns a draft with the wizard defaults applied.
func NewListingDraft(id string, ownerID int, now time.Time) ListingDraft {
	return ListingDraft{
		ID:        id,
		OwnerID:   ownerID,
		Step:      StepBasicInfo,
		Basic:     BasicInfo{RoomType: RoomTypeRoom, RoomCount: 1},
		Location:  NewPoint(DefaultLatitude, DefaultLongitude),
		Images:    []DraftImage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidStep reports whether step names a wizard page.
func ValidStep(step int) bool {
	return step >= StepBasicInfo && step <= StepImages
}
