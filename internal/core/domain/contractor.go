package domain

import (
	"math"
	"time"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the haversine distance to other in kilometres.
func (g GeoPoint) DistanceKm(other GeoPoint) float64 {
	const earthRadiusKm = 6371.0
	lat1 := g.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - g.Lat) * math.Pi / 180
	dLng := (other.Lng - g.Lng) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Contractor is a known or discovered service provider. ContactedCount and
// RespondedCount accumulate across prior campaigns and feed the scorer's
// historical response rate.
type Contractor struct {
	ID             string
	Name           string
	Trades         []string
	Geo            GeoPoint
	Email          string
	Phone          string
	WebFormURL     string
	ContactedCount int
	RespondedCount int
	LastActiveAt   time.Time
}

// Channels returns the outreach channels the contractor can actually be
// reached on, based on which endpoints are present.
func (c Contractor) Channels() []Channel {
	var out []Channel
	if c.Email != "" {
		out = append(out, ChannelEmail)
	}
	if c.Phone != "" {
		out = append(out, ChannelSMS)
	}
	if c.WebFormURL != "" {
		out = append(out, ChannelWebForm)
	}
	return out
}
