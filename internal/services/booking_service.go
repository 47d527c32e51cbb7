package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"roomfinder/internal/models"
)

// BookingService drives the booking request lifecycle for both sides:
// renters submit requests, home owners accept or delete them.
type BookingService struct {
	Bookings     BookingAPI
	Rooms        RoomsAPI
	Cache        RoomCache
	Reservations ReservationStore
	Events       EventPublisher
	Notifier     Notifier
	DedupWindow  time.Duration
	Logger       *slog.Logger
}

func NewBookingService(bookings BookingAPI, rooms RoomsAPI, cache RoomCache, reservations ReservationStore, events EventPublisher, notifier Notifier, window time.Duration, logger *slog.Logger) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &BookingService{
		Bookings:     bookings,
		Rooms:        rooms,
		Cache:        cache,
		Reservations: reservations,
		Events:       publisherOrNop(events),
		Notifier:     notifier,
		DedupWindow:  window,
		Logger:       logger.With("service", "bookings"),
	}
}

// ListForOwner returns the booking inbox of the session's home owner,
// newest first.
func (s *BookingService) ListForOwner(ctx context.Context, sess models.Session) (models.BookingBoard, error) {
	items, err := s.Bookings.BookingRequests(ctx, sess.AccessToken)
	if err != nil {
		return models.BookingBoard{}, err
	}
	return buildBoard(items), nil
}

func buildBoard(items []models.BookingRequest) models.BookingBoard {
	slices.SortStableFunc(items, func(a, b models.BookingRequest) int {
		switch {
		case a.CreatedAt != nil && b.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt):
			if a.CreatedAt.After(*b.CreatedAt) {
				return -1
			}
			return 1
		default:
			return b.ID - a.ID
		}
	})

	board := models.BookingBoard{Cards: make([]models.BookingCard, 0, len(items))}
	for _, item := range items {
		card := models.NewBookingCard(item)
		if card.Status == models.BookingPending {
			board.Pending++
		}
		board.Cards = append(board.Cards, card)
	}
	return board
}

// Accept approves a pending request and returns the refreshed inbox.
func (s *BookingService) Accept(ctx context.Context, sess models.Session, id int) (models.BookingBoard, error) {
	items, err := s.Bookings.BookingRequests(ctx, sess.AccessToken)
	if err != nil {
		return models.BookingBoard{}, err
	}
	idx := slices.IndexFunc(items, func(b models.BookingRequest) bool { return b.ID == id })
	if idx < 0 {
		return models.BookingBoard{}, models.ErrNoRecord
	}
	target := items[idx]
	if from := target.BookingStatus(); !from.CanTransition(models.BookingApproved) {
		return models.BookingBoard{}, fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, from, models.BookingApproved)
	}

	if _, err := s.Bookings.AcceptBooking(ctx, sess.AccessToken, id); err != nil {
		return models.BookingBoard{}, err
	}
	s.Logger.Info("booking accepted", "booking_id", id, "room_id", target.RoomID, "owner_id", sess.UserID())

	if s.Cache != nil && target.RoomID > 0 {
		if err := s.Cache.Invalidate(ctx, target.RoomID); err != nil {
			s.Logger.Warn("room cache invalidate", "room_id", target.RoomID, "err", err)
		}
	}

	ev := newEvent(models.EventBookingAccepted, target.UserID)
	ev.BookingID = id
	ev.ListingID = target.RoomID
	s.Events.Publish(ev)
	notifyAsync(s.Notifier, s.Logger, target.UserID, Notification{
		Title: "Booking accepted",
		Body:  fmt.Sprintf("Your request for %s was accepted", displayTitle(target.RoomTitle)),
		Data:  map[string]string{"type": models.EventBookingAccepted, "booking_id": strconv.Itoa(id)},
	})

	return s.ListForOwner(ctx, sess)
}

// Delete removes a request and returns the inbox without it, even when the
// upstream list still lags behind. The requester is told about the removal.
func (s *BookingService) Delete(ctx context.Context, sess models.Session, id int) (models.BookingBoard, error) {
	if id <= 0 {
		return models.BookingBoard{}, models.ValidationError{"id": "Invalid booking id"}
	}
	before, err := s.Bookings.BookingRequests(ctx, sess.AccessToken)
	if err != nil {
		return models.BookingBoard{}, err
	}
	var target models.BookingRequest
	if idx := slices.IndexFunc(before, func(b models.BookingRequest) bool { return b.ID == id }); idx >= 0 {
		target = before[idx]
	}

	if err := s.Bookings.DeleteBooking(ctx, sess.AccessToken, id); err != nil {
		return models.BookingBoard{}, err
	}
	s.Logger.Info("booking deleted", "booking_id", id, "room_id", target.RoomID, "owner_id", sess.UserID())

	if target.UserID > 0 {
		ev := newEvent(models.EventBookingDeleted, target.UserID)
		ev.BookingID = id
		ev.ListingID = target.RoomID
		s.Events.Publish(ev)
		notifyAsync(s.Notifier, s.Logger, target.UserID, Notification{
			Title: "Booking request removed",
			Body:  fmt.Sprintf("Your request for %s was removed by the owner", displayTitle(target.RoomTitle)),
			Data:  map[string]string{"type": models.EventBookingDeleted, "booking_id": strconv.Itoa(id)},
		})
	}

	items, err := s.Bookings.BookingRequests(ctx, sess.AccessToken)
	if err != nil {
		return models.BookingBoard{}, err
	}
	items = slices.DeleteFunc(items, func(b models.BookingRequest) bool { return b.ID == id })
	return buildBoard(items), nil
}

// Request submits a renter's booking for roomID. Owner and price come from
// the room itself. A second request by the same renter for the same room
// inside the dedup window fails with ErrDuplicateRequest, whatever
// idempotency key it carries. Replaying a client key fails the same way.
// The error carries the first booking id when it is known.
func (s *BookingService) Request(ctx context.Context, sess models.Session, roomID int, idempotencyKey string) (models.BookingRequest, error) {
	if roomID <= 0 {
		return models.BookingRequest{}, models.ValidationError{"room_id": "Room is required"}
	}

	room, err := s.room(ctx, sess.AccessToken, roomID)
	if err != nil {
		return models.BookingRequest{}, err
	}
	if room.OwnerID != 0 && room.OwnerID == sess.UserID() {
		return models.BookingRequest{}, models.ErrOwnRoom
	}
	if !room.Bookable() {
		return models.BookingRequest{}, models.ErrRoomUnavailable
	}

	keys := dedupKeys(sess.UserID(), roomID, idempotencyKey)
	reserved, prior, err := s.reserve(ctx, keys)
	if errors.Is(err, models.ErrDuplicateRequest) {
		dup := models.BookingRequest{RoomID: roomID, UserID: sess.UserID(), OwnerID: room.OwnerID}
		dup.ID, _ = strconv.Atoi(prior)
		return dup, err
	}

	upstreamKey := idempotencyKey
	if upstreamKey == "" {
		upstreamKey = uuid.NewString()
	}
	created, err := s.Bookings.RequestBooking(ctx, sess.AccessToken, models.CreateBookingRequest{
		RoomID:  roomID,
		UserID:  sess.UserID(),
		OwnerID: room.OwnerID,
		Price:   room.Price,
	}, upstreamKey)
	if err != nil {
		s.release(ctx, reserved)
		return models.BookingRequest{}, err
	}
	if created.Price == 0 {
		created.Price = room.Price
	}
	if created.Status == "" {
		created.Status = string(models.BookingPending)
	}

	if created.ID > 0 {
		for _, key := range reserved {
			if err := s.Reservations.Complete(ctx, key, strconv.Itoa(created.ID)); err != nil {
				s.Logger.Warn("complete booking reservation", "key", key, "err", err)
			}
		}
	}
	s.Logger.Info("booking requested", "booking_id", created.ID, "room_id", roomID, "user_id", sess.UserID())

	ev := newEvent(models.EventBookingRequested, room.OwnerID)
	ev.BookingID = created.ID
	ev.ListingID = roomID
	ev.Data = map[string]any{"requester": sess.User.FullName, "price": room.Price}
	s.Events.Publish(ev)
	notifyAsync(s.Notifier, s.Logger, room.OwnerID, Notification{
		Title: "New booking request",
		Body:  fmt.Sprintf("%s wants to book %s", displayName(sess.User.FullName), displayTitle(room.Title)),
		Data:  map[string]string{"type": models.EventBookingRequested, "room_id": strconv.Itoa(roomID)},
	})

	return created, nil
}

// dedupKeys always includes the renter and room pair. A client key is
// reserved as well, scoped to the renter.
func dedupKeys(userID, roomID int, idempotencyKey string) []string {
	keys := []string{fmt.Sprintf("user:%d:room:%d", userID, roomID)}
	if k := strings.TrimSpace(idempotencyKey); k != "" {
		keys = append(keys, fmt.Sprintf("user:%d:key:%s", userID, k))
	}
	return keys
}

// reserve claims every key or none. It returns the keys it holds; a Redis
// failure disables dedup instead of blocking the booking.
func (s *BookingService) reserve(ctx context.Context, keys []string) ([]string, string, error) {
	if s.Reservations == nil {
		return nil, "", nil
	}
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		prior, ok, err := s.Reservations.Reserve(ctx, key, s.DedupWindow)
		switch {
		case err != nil:
			s.Logger.Warn("booking reservation unavailable", "key", key, "err", err)
			s.release(ctx, held)
			return nil, "", nil
		case !ok:
			s.release(ctx, held)
			return nil, prior, models.ErrDuplicateRequest
		}
		held = append(held, key)
	}
	return held, "", nil
}

func (s *BookingService) release(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Reservations.Release(context.WithoutCancel(ctx), key); err != nil {
			s.Logger.Warn("release booking reservation", "key", key, "err", err)
		}
	}
}

func (s *BookingService) room(ctx context.Context, token string, id int) (models.Listing, error) {
	return cachedRoom(ctx, s.Cache, s.Rooms, s.Logger, token, id)
}

// cachedRoom reads a room detail through the cache. Cache failures fall
// through to the API.
func cachedRoom(ctx context.Context, cache RoomCache, api RoomsAPI, logger *slog.Logger, token string, id int) (models.Listing, error) {
	if cache != nil {
		l, ok, err := cache.Get(ctx, id)
		if err != nil {
			logger.Warn("room cache read", "room_id", id, "err", err)
		} else if ok {
			return l, nil
		}
	}
	l, err := api.RoomDetails(ctx, token, id)
	if err != nil {
		return models.Listing{}, err
	}
	if l.ID == 0 {
		l.ID = id
	}
	if cache != nil {
		if err := cache.Set(ctx, l); err != nil {
			logger.Warn("room cache write", "room_id", id, "err", err)
		}
	}
	return l, nil
}

func displayTitle(title string) string {
	if title == "" {
		return "the room"
	}
	return title
}

func displayName(name string) string {
	if name == "" {
		return "A renter"
	}
	return name
}
