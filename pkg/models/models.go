package models

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Location represents a query position with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the location as an orb.Point (x = lon, y = lat)
func (l Location) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

// LocationFromPoint converts an orb.Point back to a Location
func LocationFromPoint(p orb.Point) Location {
	return Location{Lat: p[1], Lon: p[0]}
}

// BoundingBox represents a rectangular area defined by two corners.
// BottomLeft holds (min-x, min-y) and TopRight holds (max-x, max-y).
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// NewBoundingBox builds a box from min-x, min-y, max-x, max-y
func NewBoundingBox(minX, minY, maxX, maxY float64) BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lat: minY, Lon: minX},
		TopRight:   Location{Lat: maxY, Lon: maxX},
	}
}

// BoundingBoxFromSlice builds a box from the 4-number GeoJSON bbox form
func BoundingBoxFromSlice(b []float64) (BoundingBox, error) {
	if len(b) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox must have 4 values, got %d", len(b))
	}
	return NewBoundingBox(b[0], b[1], b[2], b[3]), nil
}

// BoundingBoxFromBound converts an orb.Bound
func BoundingBoxFromBound(b orb.Bound) BoundingBox {
	return NewBoundingBox(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

func (b BoundingBox) MinX() float64 { return b.BottomLeft.Lon }
func (b BoundingBox) MinY() float64 { return b.BottomLeft.Lat }
func (b BoundingBox) MaxX() float64 { return b.TopRight.Lon }
func (b BoundingBox) MaxY() float64 { return b.TopRight.Lat }

// Slice returns the GeoJSON bbox form [minx, miny, maxx, maxy]
func (b BoundingBox) Slice() []float64 {
	return []float64{b.MinX(), b.MinY(), b.MaxX(), b.MaxY()}
}

// Bound returns the box as an orb.Bound
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinX(), b.MinY()},
		Max: orb.Point{b.MaxX(), b.MaxY()},
	}
}

// Valid reports whether min <= max on both axes
func (b BoundingBox) Valid() bool {
	return b.MinX() <= b.MaxX() && b.MinY() <= b.MaxY()
}

// Contains reports whether p lies inside the box or on its edge
func (b BoundingBox) Contains(p orb.Point) bool {
	return p[0] >= b.MinX() && p[0] <= b.MaxX() &&
		p[1] >= b.MinY() && p[1] <= b.MaxY()
}

// Intersects reports whether two boxes overlap, touching edges included
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinX() <= o.MaxX() && o.MinX() <= b.MaxX() &&
		b.MinY() <= o.MaxY() && o.MinY() <= b.MaxY()
}

// Union returns the smallest box containing both
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBoxFromBound(b.Bound().Union(o.Bound()))
}

// Clamp returns the point of the box closest to p in coordinate space
func (b BoundingBox) Clamp(p orb.Point) orb.Point {
	return orb.Point{
		clamp(p[0], b.MinX(), b.MaxX()),
		clamp(p[1], b.MinY(), b.MaxY()),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
