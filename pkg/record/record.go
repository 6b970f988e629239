// Package record holds the loosely-typed GeoJSON feature records consumed by
// the feature builder. Coordinates are kept as nested float slices with their
// original arity so that malformed input can still be represented and
// rejected later with a precise diagnostic.
package record

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrNotFeature    = errors.New("record: object is not a Feature")
	ErrNotCollection = errors.New("record: object is not a FeatureCollection")
	ErrInvalidID     = errors.New("record: id must be a string or a number")
	ErrInvalidBBox   = errors.New("record: bbox must be an array of numbers")
)

// Kind is a GeoJSON geometry type tag.
type Kind string

const (
	KindPoint              Kind = "Point"
	KindLineString         Kind = "LineString"
	KindPolygon            Kind = "Polygon"
	KindMultiPoint         Kind = "MultiPoint"
	KindMultiLineString    Kind = "MultiLineString"
	KindMultiPolygon       Kind = "MultiPolygon"
	KindGeometryCollection Kind = "GeometryCollection"
)

// Kinds lists every supported geometry kind.
var Kinds = []Kind{
	KindPoint,
	KindLineString,
	KindPolygon,
	KindMultiPoint,
	KindMultiLineString,
	KindMultiPolygon,
	KindGeometryCollection,
}

// Valid reports whether k is one of the seven supported tags.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Position is a single coordinate tuple. A valid position has exactly two
// components (x, y) but the record keeps whatever the source supplied.
type Position []float64

// LineStringCoords is the coordinate shape of a LineString or a MultiPoint.
type LineStringCoords []Position

// PolygonCoords is the coordinate shape of a Polygon (first ring is the
// exterior) or of a MultiLineString.
type PolygonCoords []LineStringCoords

// Geometry is a raw geometry payload: a kind tag plus the nested coordinate
// arrays matching that kind. Geometries is only used by GeometryCollection.
//
// Coordinates holds:
//
//	Point                        Position
//	LineString, MultiPoint       LineStringCoords
//	Polygon, MultiLineString     PolygonCoords
//	MultiPolygon                 []PolygonCoords
type Geometry struct {
	Type        Kind
	Coordinates any
	Geometries  []*Geometry
}

// NewPoint builds a Point payload
func NewPoint(p Position) *Geometry {
	return &Geometry{Type: KindPoint, Coordinates: p}
}

// NewLineString builds a LineString payload
func NewLineString(ls LineStringCoords) *Geometry {
	return &Geometry{Type: KindLineString, Coordinates: ls}
}

// NewPolygon builds a Polygon payload, exterior ring first
func NewPolygon(p PolygonCoords) *Geometry {
	return &Geometry{Type: KindPolygon, Coordinates: p}
}

// NewMultiPoint builds a MultiPoint payload
func NewMultiPoint(mp LineStringCoords) *Geometry {
	return &Geometry{Type: KindMultiPoint, Coordinates: mp}
}

// NewMultiLineString builds a MultiLineString payload
func NewMultiLineString(mls PolygonCoords) *Geometry {
	return &Geometry{Type: KindMultiLineString, Coordinates: mls}
}

// NewMultiPolygon builds a MultiPolygon payload
func NewMultiPolygon(mp []PolygonCoords) *Geometry {
	return &Geometry{Type: KindMultiPolygon, Coordinates: mp}
}

// NewGeometryCollection builds a GeometryCollection of the given members
func NewGeometryCollection(geometries ...*Geometry) *Geometry {
	return &Geometry{Type: KindGeometryCollection, Geometries: geometries}
}

// Point returns the Point payload if g is a Point.
func (g *Geometry) Point() (Position, bool) {
	if g == nil || g.Type != KindPoint {
		return nil, false
	}
	p, ok := g.Coordinates.(Position)
	return p, ok || g.Coordinates == nil
}

// LineString returns the LineString payload if g is a LineString.
func (g *Geometry) LineString() (LineStringCoords, bool) {
	if g == nil || g.Type != KindLineString {
		return nil, false
	}
	ls, ok := g.Coordinates.(LineStringCoords)
	return ls, ok || g.Coordinates == nil
}

// Polygon returns the Polygon payload if g is a Polygon.
func (g *Geometry) Polygon() (PolygonCoords, bool) {
	if g == nil || g.Type != KindPolygon {
		return nil, false
	}
	p, ok := g.Coordinates.(PolygonCoords)
	return p, ok || g.Coordinates == nil
}

// MultiPoint returns the MultiPoint payload if g is a MultiPoint.
func (g *Geometry) MultiPoint() (LineStringCoords, bool) {
	if g == nil || g.Type != KindMultiPoint {
		return nil, false
	}
	mp, ok := g.Coordinates.(LineStringCoords)
	return mp, ok || g.Coordinates == nil
}

// MultiLineString returns the MultiLineString payload if g is a MultiLineString.
func (g *Geometry) MultiLineString() (PolygonCoords, bool) {
	if g == nil || g.Type != KindMultiLineString {
		return nil, false
	}
	mls, ok := g.Coordinates.(PolygonCoords)
	return mls, ok || g.Coordinates == nil
}

// MultiPolygon returns the MultiPolygon payload if g is a MultiPolygon.
func (g *Geometry) MultiPolygon() ([]PolygonCoords, bool) {
	if g == nil || g.Type != KindMultiPolygon {
		return nil, false
	}
	mp, ok := g.Coordinates.([]PolygonCoords)
	return mp, ok || g.Coordinates == nil
}

// GeometryCollection returns the member geometries if g is a GeometryCollection.
func (g *Geometry) GeometryCollection() ([]*Geometry, bool) {
	if g == nil || g.Type != KindGeometryCollection {
		return nil, false
	}
	return g.Geometries, true
}

// Feature is a loosely-typed GeoJSON feature as produced by a parser.
//
// ID is nil, a string or a float64. ForeignMembers carries every top-level
// member that is not part of the Feature object definition.
type Feature struct {
	ID             any
	BBox           []float64
	Geometry       *Geometry
	Properties     map[string]any
	ForeignMembers map[string]any
}
