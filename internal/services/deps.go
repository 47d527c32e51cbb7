package services

import (
	"context"
	"io"
	"time"

	"roomfinder/internal/geo"
	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

// The interfaces below are satisfied by *roomapi.Client and the stores in
// internal/repositories. Services depend on the narrow slice they use.

type AuthAPI interface {
	Login(ctx context.Context, in models.LoginRequest) (models.LoginResult, error)
	SignUp(ctx context.Context, in models.SignUpRequest) (roomapi.Message, error)
}

type RoomsAPI interface {
	ListRooms(ctx context.Context, token string) ([]models.Listing, error)
	SearchRooms(ctx context.Context, token, query string) ([]models.Listing, error)
	RoomDetails(ctx context.Context, token string, id int) (models.Listing, error)
	OwnerRooms(ctx context.Context, token string) ([]models.Listing, error)
}

type CreateRoomAPI interface {
	CreateRoom(ctx context.Context, token string, in roomapi.CreateRoomInput) (roomapi.Message, error)
}

type BookingAPI interface {
	BookingRequests(ctx context.Context, token string) ([]models.BookingRequest, error)
	RequestBooking(ctx context.Context, token string, in models.CreateBookingRequest, idempotencyKey string) (models.BookingRequest, error)
	AcceptBooking(ctx context.Context, token string, id int) (roomapi.Message, error)
	DeleteBooking(ctx context.Context, token string, id int) error
}

type AdminAPI interface {
	HomeOwners(ctx context.Context, token string) ([]models.User, error)
	Renters(ctx context.Context, token string) ([]models.User, error)
	AllBookings(ctx context.Context, token string) ([]models.AdminBooking, error)
	AdminListings(ctx context.Context, token, kind string) ([]models.Listing, error)
	ApproveListing(ctx context.Context, token string, id int) (roomapi.Message, error)
	RejectListing(ctx context.Context, token string, id int, reason string) (roomapi.Message, error)
	Stats(ctx context.Context, token string) (models.DashboardStats, error)
	RoomKPIs(ctx context.Context, token string) (models.RoomKPIs, error)
}

type RecommendAPI interface {
	SetPreferences(ctx context.Context, token string, prefs models.Preferences) (roomapi.Message, error)
	Recommendations(ctx context.Context, token string) ([]models.Listing, error)
}

type SessionStore interface {
	Save(ctx context.Context, sess models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
}

type ReservationStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Complete(ctx context.Context, key, value string) error
	Release(ctx context.Context, key string) error
}

type RoomCache interface {
	Get(ctx context.Context, id int) (models.Listing, bool, error)
	Set(ctx context.Context, l models.Listing) error
	Invalidate(ctx context.Context, id int) error
}

type DraftStore interface {
	Create(ctx context.Context, d models.ListingDraft) error
	Get(ctx context.Context, id string, ownerID int) (models.ListingDraft, error)
	Update(ctx context.Context, d models.ListingDraft) error
	Delete(ctx context.Context, id string, ownerID int) error
	ListByOwner(ctx context.Context, ownerID int) ([]models.ListingDraft, error)
	ListExpired(ctx context.Context, before time.Time, limit int) ([]models.ListingDraft, error)
}

// ImageStore stages wizard photos. *utils.S3Storage implements it.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type ModerationStore interface {
	Record(ctx context.Context, e models.ModerationEntry) (models.ModerationEntry, error)
	List(ctx context.Context, listingID, limit int) ([]models.ModerationEntry, error)
}

type DeviceTokenStore interface {
	Upsert(ctx context.Context, t models.DeviceToken) error
	TokensByUser(ctx context.Context, userID int) ([]string, error)
	Delete(ctx context.Context, token string) error
}

type Locator interface {
	Indexed(ctx context.Context) (bool, error)
	Rebuild(ctx context.Context, listings []models.Listing, ttl time.Duration) (int, error)
	Remove(ctx context.Context, listingID int) error
	Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]geo.NearbyListing, error)
}
