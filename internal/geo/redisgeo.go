package geo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"roomfinder/internal/models"
)

const listingsKey = "listings:geo:available"

// NearbyListing is a listing id returned from a GEO query.
type NearbyListing struct {
	ID     int
	DistKm float64
	Lat    float64
	Lon    float64
}

// ListingLocator indexes bookable listings in a Redis GEO set.
type ListingLocator struct {
	rdb *redis.Client
}

func NewListingLocator(rdb *redis.Client) *ListingLocator {
	return &ListingLocator{rdb: rdb}
}

func memberName(listingID int) string {
	return fmt.Sprintf("listing:%d", listingID)
}

func parseListingMember(member string) (int, error) {
	parts := strings.Split(member, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid member %q", member)
	}
	return strconv.Atoi(parts[1])
}

// Indexed reports whether the index exists (it expires after its TTL).
func (l *ListingLocator) Indexed(ctx context.Context) (bool, error) {
	n, err := l.rdb.Exists(ctx, listingsKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Rebuild replaces the index with the approved, unoccupied listings that
// carry valid coordinates. It returns the number indexed.
func (l *ListingLocator) Rebuild(ctx context.Context, listings []models.Listing, ttl time.Duration) (int, error) {
	locations := make([]*redis.GeoLocation, 0, len(listings))
	for _, item := range listings {
		if item.Approval() != models.ApprovalApproved || !item.Bookable() {
			continue
		}
		lat, lon := item.Location.Lat(), item.Location.Lng()
		if !ValidCoords(lat, lon) {
			continue
		}
		locations = append(locations, &redis.GeoLocation{
			Name:      memberName(item.ID),
			Longitude: lon,
			Latitude:  lat,
		})
	}

	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, listingsKey)
		if len(locations) > 0 {
			pipe.GeoAdd(ctx, listingsKey, locations...)
			pipe.Expire(ctx, listingsKey, ttl)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(locations), nil
}

// Remove drops a listing, e.g. after it became occupied.
func (l *ListingLocator) Remove(ctx context.Context, listingID int) error {
	return l.rdb.ZRem(ctx, listingsKey, memberName(listingID)).Err()
}

// Nearby returns listings within radius sorted by distance (ascending).
func (l *ListingLocator) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]NearbyListing, error) {
	res, err := l.rdb.GeoSearchLocation(ctx, listingsKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  lon,
			Latitude:   lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]NearbyListing, 0, len(res))
	for _, item := range res {
		id, err := parseListingMember(item.Name)
		if err != nil {
			continue
		}
		out = append(out, NearbyListing{
			ID:     id,
			DistKm: item.Dist,
			Lat:    item.Latitude,
			Lon:    item.Longitude,
		})
	}
	return out, nil
}
