package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	RoomTypeRoom = "room"
	RoomTypeFlat = "flat"
)

// Default map position used when a listing has no coordinates yet.
const (
	DefaultLatitude  = 27.716842
	DefaultLongitude = 85.321386
)

// Point is a GeoJSON-like point. Coordinates are stored as [lat, lng].
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func NewPoint(lat, lng float64) Point {
	return Point{Type: "Point", Coordinates: []float64{lat, lng}}
}

func (p Point) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p Point) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Valid reports whether the point holds a coordinate pair within range.
func (p Point) Valid() bool {
	if len(p.Coordinates) < 2 {
		return false
	}
	lat, lng := p.Lat(), p.Lng()
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Amount accepts both JSON numbers and numeric strings.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		*a = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", raw, err)
	}
	*a = Amount(v)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(a))
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// Facilities are the amenity flags of a listing.
type Facilities struct {
	WiFi           bool `json:"wifi"`
	Parking        bool `json:"parking"`
	Water          bool `json:"water"`
	Electricity    bool `json:"electricity"`
	DisposalCharge bool `json:"disposal_charge"`
}

type Listing struct {
	ID            int        `json:"r_id"`
	OwnerID       int        `json:"u_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Price         Amount     `json:"price"`
	Address       string     `json:"address"`
	Location      Point      `json:"location"`
	AreaSize      string     `json:"areaSize"`
	RoomCount     int        `json:"no_of_room"`
	RoomType      string     `json:"room_type"`
	RoomStatus    string     `json:"room_status"`
	AdminApproval *bool      `json:"admin_approval,omitempty"`
	Status        string     `json:"status,omitempty"`
	Images        []string   `json:"room_image_url"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	Facilities
}

// Approval resolves the moderation state from the fields different API
// revisions populate. Precedence: status, admin_approval, room_status.
func (l Listing) Approval() ApprovalState {
	if st, ok := ParseApprovalState(l.Status); ok {
		return st
	}
	if l.AdminApproval != nil {
		if *l.AdminApproval {
			return ApprovalApproved
		}
		return ApprovalPending
	}
	return ApprovalPending
}

func (l Listing) Occupancy() Occupancy {
	return NormalizeOccupancy(l.RoomStatus)
}

// Bookable reports whether renters may request the listing.
func (l Listing) Bookable() bool {
	return l.Occupancy() != OccupancyOccupied
}

// CoverImage returns the first image URL or an empty string.
func (l Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}
