package roomapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"roomfinder/internal/models"
)

// Listing collections moderated by admins.
const (
	KindFlats = "flats"
	KindRooms = "rooms"
)

func (c *Client) HomeOwners(ctx context.Context, token string) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", "gethomeOwners"}, token: token}, &out)
	return out, err
}

func (c *Client) Renters(ctx context.Context, token string) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", "getrenters"}, token: token}, &out)
	return out, err
}

func (c *Client) AllBookings(ctx context.Context, token string) ([]models.AdminBooking, error) {
	var out []models.AdminBooking
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", "all-bookings"}, token: token}, &out)
	return out, err
}

// AdminListings returns every flat or room regardless of moderation state.
func (c *Client) AdminListings(ctx context.Context, token, kind string) ([]models.Listing, error) {
	segment := "filter-rooms"
	if kind == KindFlats {
		segment = "filter-flats"
	}
	var out []models.Listing
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", segment}, token: token}, &out)
	return out, err
}

func (c *Client) ApproveListing(ctx context.Context, token string, id int) (Message, error) {
	var out Message
	err := c.do(ctx, request{
		method:   http.MethodPatch,
		segments: []string{"admin", "approve-room", strconv.Itoa(id)},
		token:    token,
		raw:      true,
	}, &out)
	return out, err
}

// RejectListing declines a listing; reason is forwarded when present.
func (c *Client) RejectListing(ctx context.Context, token string, id int, reason string) (Message, error) {
	req := request{
		method:   http.MethodPatch,
		segments: []string{"admin", "reject-room", strconv.Itoa(id)},
		token:    token,
		raw:      true,
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		body, err := jsonBody(map[string]string{"message": reason})
		if err != nil {
			return Message{}, err
		}
		req.body = body
		req.contentType = "application/json"
	}
	var out Message
	err := c.do(ctx, req, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context, token string) (models.DashboardStats, error) {
	var out models.DashboardStats
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", "stats"}, token: token}, &out)
	return out, err
}

func (c *Client) RoomKPIs(ctx context.Context, token string) (models.RoomKPIs, error) {
	var out models.RoomKPIs
	err := c.do(ctx, request{method: http.MethodGet, segments: []string{"admin", "room-stats"}, token: token}, &out)
	return out, err
}
