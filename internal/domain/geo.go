package domain

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
	EarthRadiusMeters = 6_371_000.0

	// WalkingSpeedMetersPerSecond is the average walking speed used for stop-to-stop estimates.
	WalkingSpeedMetersPerSecond = 1.4
)

// ErrInvalidCoordinates is returned when a GeoPoint lies outside the WGS 84 domain.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// GeoPoint is a WGS 84 coordinate. It has no identity beyond its coordinates.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate rejects NaN/Inf values and coordinates outside [-90,90] / [-180,180].
func (p GeoPoint) Validate() error {
	switch {
	case math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0):
		return fmt.Errorf("%w: latitude is not a finite number", ErrInvalidCoordinates)
	case math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0):
		return fmt.Errorf("%w: longitude is not a finite number", ErrInvalidCoordinates)
	case p.Latitude < -90 || p.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinates, p.Latitude)
	case p.Longitude < -180 || p.Longitude > 180:
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinates, p.Longitude)
	}
	return nil
}

// DistanceMeters returns the great-circle distance between a and b (Haversine).
// It is symmetric and returns 0 when a == b.
func DistanceMeters(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}
	lat1 := degToRad(a.Latitude)
	lat2 := degToRad(b.Latitude)
	dLat := lat2 - lat1
	dLon := degToRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// WalkingTimeSeconds estimates the time needed to walk distanceMeters at the average walking speed.
// Non-positive and NaN distances yield 0.
func WalkingTimeSeconds(distanceMeters float64) int {
	if !(distanceMeters > 0) {
		return 0
	}
	return int(math.Ceil(distanceMeters / WalkingSpeedMetersPerSecond))
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
