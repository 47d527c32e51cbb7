package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/exp/slices"

	"roomfinder/internal/geo"
	"roomfinder/internal/models"
)

const (
	defaultNearbyLimit   = 50
	maxNearbyLimit       = 200
	defaultClusterLength = 6
)

type NearbyQuery struct {
	Lat       float64
	Lon       float64
	RadiusKm  float64
	Limit     int
	Precision uint
}

// NearbyListing is a listing with its distance from the query point.
type NearbyListing struct {
	models.Listing
	DistanceKm float64 `json:"distance_km"`
}

type NearbyResult struct {
	Listings []NearbyListing `json:"listings"`
	Clusters []geo.Cluster   `json:"clusters"`
}

// NearbyService answers the map view. The Redis GEO index is rebuilt
// from the room list when it has expired; without it distances are
// computed in memory.
type NearbyService struct {
	Rooms           RoomsAPI
	Locator         Locator
	IndexTTL        time.Duration
	DefaultRadiusKm float64
	Logger          *slog.Logger
}

func (s *NearbyService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *NearbyService) normalize(q NearbyQuery) (NearbyQuery, error) {
	if !geo.ValidCoords(q.Lat, q.Lon) {
		return q, models.ValidationError{"location": "Valid latitude and longitude are required"}
	}
	if q.RadiusKm <= 0 {
		q.RadiusKm = s.DefaultRadiusKm
	}
	if q.RadiusKm <= 0 {
		q.RadiusKm = 5
	}
	if q.RadiusKm > 100 {
		q.RadiusKm = 100
	}
	if q.Limit <= 0 {
		q.Limit = defaultNearbyLimit
	}
	if q.Limit > maxNearbyLimit {
		q.Limit = maxNearbyLimit
	}
	if q.Precision == 0 {
		q.Precision = defaultClusterLength
	}
	return q, nil
}

func (s *NearbyService) Find(ctx context.Context, sess models.Session, q NearbyQuery) (NearbyResult, error) {
	q, err := s.normalize(q)
	if err != nil {
		return NearbyResult{}, err
	}
	listings, err := s.Rooms.ListRooms(ctx, sess.AccessToken)
	if err != nil {
		return NearbyResult{}, err
	}

	var items []NearbyListing
	if s.Locator != nil {
		items, err = s.fromIndex(ctx, q, listings)
		if err != nil {
			s.logger().Warn("geo index unavailable, computing distances in memory", "err", err)
			items = nil
		}
	}
	if items == nil {
		items = nearbyInMemory(q, listings)
	}

	points := make([]geo.Point, 0, len(items))
	for _, it := range items {
		points = append(points, geo.Point{ID: it.ID, Lat: it.Location.Lat(), Lon: it.Location.Lng()})
	}
	return NearbyResult{Listings: items, Clusters: geo.ClusterPoints(points, q.Precision)}, nil
}

func (s *NearbyService) fromIndex(ctx context.Context, q NearbyQuery, listings []models.Listing) ([]NearbyListing, error) {
	indexed, err := s.Locator.Indexed(ctx)
	if err != nil {
		return nil, err
	}
	if !indexed {
		ttl := s.IndexTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		n, err := s.Locator.Rebuild(ctx, listings, ttl)
		if err != nil {
			return nil, err
		}
		s.logger().Debug("geo index rebuilt", "listings", n)
	}

	hits, err := s.Locator.Nearby(ctx, q.Lat, q.Lon, q.RadiusKm, q.Limit)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]models.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	out := make([]NearbyListing, 0, len(hits))
	for _, h := range hits {
		l, ok := byID[h.ID]
		if !ok || !l.Bookable() {
			continue
		}
		out = append(out, NearbyListing{Listing: l, DistanceKm: h.DistKm})
	}
	return out, nil
}

func nearbyInMemory(q NearbyQuery, listings []models.Listing) []NearbyListing {
	out := make([]NearbyListing, 0)
	for _, l := range listings {
		if l.Approval() != models.ApprovalApproved || !l.Bookable() {
			continue
		}
		lat, lon := l.Location.Lat(), l.Location.Lng()
		if !geo.ValidCoords(lat, lon) {
			continue
		}
		d := geo.HaversineKm(q.Lat, q.Lon, lat, lon)
		if d <= q.RadiusKm {
			out = append(out, NearbyListing{Listing: l, DistanceKm: d})
		}
	}
	slices.SortFunc(out, func(a, b NearbyListing) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return a.ID - b.ID
		}
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
