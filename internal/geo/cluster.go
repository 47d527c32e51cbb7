package geo

import (
	"sort"

	"github.com/mmcloughlin/geohash"
)

// Point is a listing position to be clustered.
type Point struct {
	ID  int
	Lat float64
	Lon float64
}

// Cluster groups map markers that share a geohash cell.
type Cluster struct {
	Geohash    string  `json:"geohash"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Count      int     `json:"count"`
	ListingIDs []int   `json:"listing_ids"`
}

// ClusterPoints buckets points by geohash prefix of the given precision
// (1..12 characters). Cells are ordered by size, largest first.
func ClusterPoints(points []Point, precision uint) []Cluster {
	if precision < 1 {
		precision = 1
	}
	if precision > 12 {
		precision = 12
	}

	byCell := make(map[string]*Cluster)
	for _, p := range points {
		if !ValidCoords(p.Lat, p.Lon) {
			continue
		}
		cell := geohash.EncodeWithPrecision(p.Lat, p.Lon, precision)
		c, ok := byCell[cell]
		if !ok {
			lat, lon := geohash.DecodeCenter(cell)
			c = &Cluster{Geohash: cell, Lat: lat, Lon: lon}
			byCell[cell] = c
		}
		c.Count++
		c.ListingIDs = append(c.ListingIDs, p.ID)
	}

	out := make([]Cluster, 0, len(byCell))
	for _, c := range byCell {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Geohash < out[j].Geohash
	})
	return out
}
