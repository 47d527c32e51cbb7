package models

import (
	"time"
)

// BookingRequest is one entry of a home owner's booking inbox.
type BookingRequest struct {
	ID          int        `json:"id"`
	RoomID      int        `json:"room_id"`
	OwnerID     int        `json:"owner_id"`
	UserID      int        `json:"user_id"`
	Price       Amount     `json:"price"`
	Status      string     `json:"status"`
	Requester   string     `json:"user,omitempty"`
	RoomTitle   string     `json:"room,omitempty"`
	RequestedOn string     `json:"date,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func (b BookingRequest) BookingStatus() BookingStatus {
	return ParseBookingStatus(b.Status)
}

// CreateBookingRequest is the payload of a renter's booking submission.
type CreateBookingRequest struct {
	RoomID  int    `json:"room_id"`
	UserID  int    `json:"user_id"`
	OwnerID int    `json:"owner_id"`
	Price   Amount `json:"price"`
}

// BookingCard is a booking request prepared for display.
type BookingCard struct {
	ID          int           `json:"id"`
	RoomID      int           `json:"room_id"`
	Requester   string        `json:"requester"`
	RoomTitle   string        `json:"room_title"`
	Price       Amount        `json:"price"`
	Status      BookingStatus `json:"status"`
	BadgeColor  string        `json:"badge_color"`
	RequestedOn string        `json:"requested_on,omitempty"`
	CanAccept   bool          `json:"can_accept"`
}

func NewBookingCard(b BookingRequest) BookingCard {
	status := b.BookingStatus()
	requested := b.RequestedOn
	if requested == "" && b.CreatedAt != nil {
		requested = b.CreatedAt.Format(time.DateOnly)
	}
	return BookingCard{
		ID:          b.ID,
		RoomID:      b.RoomID,
		Requester:   b.Requester,
		RoomTitle:   b.RoomTitle,
		Price:       b.Price,
		Status:      status,
		BadgeColor:  status.BadgeColor(),
		RequestedOn: requested,
		CanAccept:   status.CanTransition(BookingApproved),
	}
}

// BookingBoard is the home owner's booking request list.
type BookingBoard struct {
	Cards   []BookingCard `json:"cards"`
	Pending int           `json:"pending"`
}

// AdminBooking is one row of the admin booking overview.
type AdminBooking struct {
	BookingID   int     `json:"booking_id"`
	RoomDetails Listing `json:"roomDetails"`
	RoomOwner   User    `json:"roomOwner"`
	RequestedBy User    `json:"requestedBy"`
	BookingInfo struct {
		BookingStatus string     `json:"booking_status"`
		CreatedAt     *time.Time `json:"created_at,omitempty"`
	} `json:"bookingInfo"`
}

func (b AdminBooking) Status() BookingStatus {
	return ParseBookingStatus(b.BookingInfo.BookingStatus)
}
