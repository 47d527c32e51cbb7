package roomapi

import (
	"context"
	"net/http"
	"strconv"

	"roomfinder/internal/models"
)

func (c *Client) BookingRequests(ctx context.Context, token string) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	err := c.do(ctx, request{
		method:   http.MethodGet,
		segments: []string{"bookings", "get-booking-requests"},
		token:    token,
	}, &out)
	return out, err
}

// RequestBooking submits a renter's booking. A non-empty idempotencyKey is
// forwarded; the call is retried only when the client is configured to
// trust the upstream with it.
func (c *Client) RequestBooking(ctx context.Context, token string, in models.CreateBookingRequest, idempotencyKey string) (models.BookingRequest, error) {
	body, err := jsonBody(in)
	if err != nil {
		return models.BookingRequest{}, err
	}
	var out models.BookingRequest
	err = c.do(ctx, request{
		method:         http.MethodPost,
		segments:       []string{"bookings", "request-booking"},
		token:          token,
		contentType:    "application/json",
		idempotencyKey: idempotencyKey,
		body:           body,
	}, &out)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if out.RoomID == 0 {
		out.RoomID = in.RoomID
	}
	if out.UserID == 0 {
		out.UserID = in.UserID
	}
	if out.OwnerID == 0 {
		out.OwnerID = in.OwnerID
	}
	return out, nil
}

func (c *Client) AcceptBooking(ctx context.Context, token string, id int) (Message, error) {
	body, err := jsonBody(map[string]int{"booking_id": id})
	if err != nil {
		return Message{}, err
	}
	var out Message
	err = c.do(ctx, request{
		method:      http.MethodPost,
		segments:    []string{"bookings", "accept-booking"},
		token:       token,
		contentType: "application/json",
		body:        body,
		raw:         true,
	}, &out)
	return out, err
}

func (c *Client) DeleteBooking(ctx context.Context, token string, id int) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		segments: []string{"bookings", "delete-booking", strconv.Itoa(id)},
		token:    token,
	}, nil)
}
