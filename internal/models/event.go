package models

import "time"

const (
	EventBookingRequested = "booking.requested"
	EventBookingAccepted  = "booking.accepted"
	EventBookingDeleted   = "booking.deleted"
	EventListingCreated   = "listing.created"
	EventListingApproved  = "listing.approved"
	EventListingRejected  = "listing.rejected"
)

// Event is pushed to connected dashboards and apps. UserID selects the
// recipient; admins receive every event.
type Event struct {
	Type      string         `json:"type"`
	UserID    int            `json:"user_id,omitempty"`
	ListingID int            `json:"listing_id,omitempty"`
	BookingID int            `json:"booking_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Moderation actions recorded for listings.
const (
	ModerationApprove = "approve"
	ModerationDecline = "decline"
)

// ModerationEntry is one admin decision on a listing.
type ModerationEntry struct {
	ID        int64     `json:"id"`
	AdminID   int       `json:"admin_id"`
	ListingID int       `json:"listing_id"`
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
