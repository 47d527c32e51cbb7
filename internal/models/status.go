package models

import "strings"

// ApprovalState is the moderation outcome of a listing.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Occupancy mirrors room_status on the wire.
type Occupancy string

const (
	OccupancyAvailable Occupancy = "available"
	OccupancyOccupied  Occupancy = "occupied"
	OccupancyPending   Occupancy = "pending"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingApproved BookingStatus = "approved"
	BookingRejected BookingStatus = "rejected"
)

var bookingTransitions = map[BookingStatus]map[BookingStatus]struct{}{
	BookingPending:  {BookingApproved: {}, BookingRejected: {}},
	BookingApproved: {},
	BookingRejected: {},
}

// CanTransition reports whether a booking may move from one status to another.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	if s == to {
		return false
	}
	allowed, ok := bookingTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Terminal reports whether no further transitions exist.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// ParseBookingStatus folds the spellings seen across API revisions into one status.
// Empty and unknown values are treated as pending.
func ParseBookingStatus(raw string) BookingStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "accepted", "confirmed":
		return BookingApproved
	case "rejected", "declined", "cancelled", "canceled":
		return BookingRejected
	default:
		return BookingPending
	}
}

// ParseApprovalState returns ok=false when raw is not a moderation value.
func ParseApprovalState(raw string) (ApprovalState, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "accepted":
		return ApprovalApproved, true
	case "rejected", "declined":
		return ApprovalRejected, true
	case "pending":
		return ApprovalPending, true
	default:
		return "", false
	}
}

// NormalizeOccupancy defaults a missing room_status to pending.
func NormalizeOccupancy(raw string) Occupancy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return OccupancyAvailable
	case "occupied", "booked":
		return OccupancyOccupied
	default:
		return OccupancyPending
	}
}

// BadgeColor is the colour used for a booking status chip.
func (s BookingStatus) BadgeColor() string {
	switch s {
	case BookingApproved:
		return "#2E7D32"
	case BookingRejected:
		return "#E63946"
	default:
		return "#FF9800"
	}
}
