package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"roomfinder/internal/models"
	"roomfinder/internal/roomapi"
)

// Explore filters.
const (
	TypeAll = "all"
)

type ExploreFilter struct {
	Type          string
	AvailableOnly bool
}

// RoomService backs the renter's explore, search and detail screens.
type RoomService struct {
	API    RoomsAPI
	Cache  RoomCache
	Logger *slog.Logger
}

func (s *RoomService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (f ExploreFilter) validate() (string, error) {
	t := strings.ToLower(strings.TrimSpace(f.Type))
	switch t {
	case "", TypeAll:
		return TypeAll, nil
	case models.RoomTypeRoom, models.RoomTypeFlat:
		return t, nil
	default:
		return "", models.ValidationError{"type": "Type must be all, room or flat"}
	}
}

func (s *RoomService) Explore(ctx context.Context, sess models.Session, f ExploreFilter) ([]models.Listing, error) {
	kind, err := f.validate()
	if err != nil {
		return nil, err
	}
	listings, err := s.API.ListRooms(ctx, sess.AccessToken)
	if err != nil {
		return nil, err
	}
	return filterListings(listings, kind, f.AvailableOnly), nil
}

func filterListings(listings []models.Listing, kind string, availableOnly bool) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if kind != TypeAll && !strings.EqualFold(l.RoomType, kind) {
			continue
		}
		if availableOnly && !l.Bookable() {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (s *RoomService) Details(ctx context.Context, sess models.Session, id int) (models.Listing, error) {
	if id <= 0 {
		return models.Listing{}, models.ValidationError{"id": "Invalid room id"}
	}
	return cachedRoom(ctx, s.Cache, s.API, s.logger(), sess.AccessToken, id)
}

// Search queries the marketplace search endpoint. If that fails, it
// matches the query against the full list locally.
func (s *RoomService) Search(ctx context.Context, sess models.Session, query string) ([]models.Listing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Explore(ctx, sess, ExploreFilter{})
	}

	found, err := s.API.SearchRooms(ctx, sess.AccessToken, query)
	if err == nil {
		return nonNil(found), nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	var apiErr *roomapi.APIError
	if !roomapi.IsTransient(err) && !errors.As(err, &apiErr) {
		return nil, err
	}

	s.logger().Warn("search endpoint failed, matching locally", "query", query, "err", err)
	all, listErr := s.API.ListRooms(ctx, sess.AccessToken)
	if listErr != nil {
		return nil, err
	}
	return MatchListings(all, query), nil
}

// MatchListings keeps listings whose title, address or description contain
// query, compared case-insensitively.
func MatchListings(listings []models.Listing, query string) []models.Listing {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	out := make([]models.Listing, 0)
	for _, l := range listings {
		for _, field := range []string{l.Title, l.Address, l.Description} {
			if strings.Contains(fold.String(field), needle) {
				out = append(out, l)
				break
			}
		}
	}
	return out
}
