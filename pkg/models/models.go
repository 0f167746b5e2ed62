package models

import "fmt"

// Coordinate is a position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is inside the WGS84 envelope.
// NaN fails every comparison, so it is rejected here too.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Sample is one observed position of an asset at a historical time offset.
// Offset 0 is the most recent snapshot.
type Sample struct {
	Coordinate
	Alt    *float64 `json:"alt,omitempty"`
	Offset int      `json:"offset"`
}

// Asset is one tracked object within a single fetch cycle. Identifiers are
// positional within the feed batch and are NOT stable across cycles; the
// upstream feed supplies no persistent identity.
type Asset struct {
	ID string `json:"id"`
	Coordinate
	Alt     *float64 `json:"alt,omitempty"`
	History []Sample `json:"history,omitempty"`
}

// POI is a fixed point of interest, immutable for the lifetime of one
// cache entry. Source is "live" for upstream data and "fallback" for the
// configured emergency dataset.
type POI struct {
	ID string `json:"id"`
	Coordinate
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Source  string `json:"source,omitempty"`
}

// BoundingBox is a rectangular viewport in degrees.
type BoundingBox struct {
	South float64 `json:"south" yaml:"south"`
	West  float64 `json:"west" yaml:"west"`
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
}

// Valid reports whether the corners are in range and properly ordered.
func (b BoundingBox) Valid() bool {
	sw := Coordinate{Lat: b.South, Lon: b.West}
	ne := Coordinate{Lat: b.North, Lon: b.East}
	return sw.Valid() && ne.Valid() && b.South < b.North && b.West < b.East
}

// SpanWithin reports whether both sides of the box fit inside maxDeg.
func (b BoundingBox) SpanWithin(maxDeg float64) bool {
	return b.North-b.South <= maxDeg && b.East-b.West <= maxDeg
}

// Contains reports whether c lies inside the box, borders included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lon >= b.West && c.Lon <= b.East
}

// ContainsBox reports whether other lies entirely inside b.
func (b BoundingBox) ContainsBox(other BoundingBox) bool {
	return other.South >= b.South && other.North <= b.North &&
		other.West >= b.West && other.East <= b.East
}

// Key renders the box as a stable cache key.
func (b BoundingBox) Key() string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.South, b.West, b.North, b.East)
}

// Link associates an asset with its nearest POI for one refresh cycle.
// An asset with no reachable POI produces no Link at all.
type Link struct {
	AssetID       string     `json:"assetId"`
	AssetPosition Coordinate `json:"assetPosition"`
	POI           POI        `json:"poi"`
	DistanceM     float64    `json:"distanceMeters"`
	DistanceMi    float64    `json:"distanceMiles"`
}
