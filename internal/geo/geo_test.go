package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Kathmandu Durbar Square to Patan Durbar Square, about 4.3 km.
	d := HaversineKm(27.7045, 85.3075, 27.6727, 85.3250)
	if d < 3.5 || d > 4.5 {
		t.Fatalf("unexpected distance %.3f km", d)
	}
	if HaversineKm(10, 10, 10, 10) != 0 {
		t.Fatal("distance to self must be zero")
	}
	if math.Abs(HaversineKm(0, 0, 0, 1)-111.19) > 0.1 {
		t.Fatalf("one degree of longitude at the equator should be about 111 km")
	}
}

func TestValidCoords(t *testing.T) {
	if !ValidCoords(27.7, 85.3) {
		t.Fatal("expected valid")
	}
	if ValidCoords(91, 0) || ValidCoords(0, 181) {
		t.Fatal("out of range must be invalid")
	}
	if ValidCoords(0, 0) {
		t.Fatal("null island must be invalid")
	}
}

func TestClusterPoints(t *testing.T) {
	points := []Point{
		{ID: 1, Lat: 27.7172, Lon: 85.3240},
		{ID: 2, Lat: 27.7173, Lon: 85.3241},
		{ID: 3, Lat: 27.6727, Lon: 85.3250},
		{ID: 4, Lat: 0, Lon: 0},
	}

	clusters := ClusterPoints(points, 6)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(clusters), clusters)
	}
	if clusters[0].Count != 2 || len(clusters[0].ListingIDs) != 2 {
		t.Fatalf("expected largest cluster first, got %+v", clusters[0])
	}
	if len(clusters[0].Geohash) != 6 {
		t.Fatalf("unexpected geohash %q", clusters[0].Geohash)
	}
	if math.Abs(clusters[0].Lat-27.7172) > 0.01 || math.Abs(clusters[0].Lon-85.324) > 0.01 {
		t.Fatalf("cluster centre too far from its points: %+v", clusters[0])
	}

	coarse := ClusterPoints(points, 3)
	if len(coarse) != 1 || coarse[0].Count != 3 {
		t.Fatalf("expected a single coarse cluster, got %+v", coarse)
	}
}

func TestParseListingMember(t *testing.T) {
	id, err := parseListingMember(memberName(42))
	if err != nil || id != 42 {
		t.Fatalf("unexpected parse result %d, %v", id, err)
	}
	if _, err := parseListingMember("bogus"); err == nil {
		t.Fatal("expected error for malformed member")
	}
}
